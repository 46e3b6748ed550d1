package player

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Queue is an append-ordered, concurrency-safe sequence of pending tracks.
// Multiple producers may push; the playback loop is the single pop consumer.
type Queue struct {
	mu     sync.Mutex
	items  []*Track
	notify chan struct{}
}

func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Push appends a track and wakes a blocked Pop.
func (q *Queue) Push(t *Track) {
	q.mu.Lock()
	q.items = append(q.items, t)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Pop removes and returns the head track, suspending the caller until one
// is available. Timeout yields ErrPopTimeout; context cancellation yields
// the context's error.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*Track, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			t := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return t, nil
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-deadline.C:
			return nil, ErrPopTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Len returns the number of queued tracks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Slice returns a copy of the tracks in [start, end), clamped to bounds.
func (q *Queue) Slice(start, end int) []*Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	if start < 0 {
		start = 0
	}
	if end > len(q.items) {
		end = len(q.items)
	}
	if start >= end {
		return nil
	}
	out := make([]*Track, end-start)
	copy(out, q.items[start:end])
	return out
}

// Shuffle reorders the currently-held tracks uniformly at random. Playlist
// entries not yet loaded keep their original order.
func (q *Queue) Shuffle() {
	q.mu.Lock()
	defer q.mu.Unlock()
	rand.Shuffle(len(q.items), func(i, j int) {
		q.items[i], q.items[j] = q.items[j], q.items[i]
	})
}

// Remove deletes and returns the track at index.
func (q *Queue) Remove(index int) (*Track, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.items) {
		return nil, &StateError{Op: "remove", Reason: "index out of range"}
	}
	t := q.items[index]
	q.items = append(q.items[:index], q.items[index+1:]...)
	return t, nil
}

// Drain empties the queue and returns everything that was held.
func (q *Queue) Drain() []*Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Clear drops all queued tracks.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}
