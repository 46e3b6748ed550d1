package cache

import "time"

// Entry wraps a cached payload with its bookkeeping metadata.
type Entry[V any] struct {
	Data         V             `json:"data"`
	CreatedAt    time.Time     `json:"created_at"`
	LastAccessed time.Time     `json:"last_accessed"`
	TTL          time.Duration `json:"ttl"`
	AccessCount  int64         `json:"access_count"`
}

func newEntry[V any](data V, ttl time.Duration) *Entry[V] {
	now := time.Now()
	return &Entry[V]{
		Data:         data,
		CreatedAt:    now,
		LastAccessed: now,
		TTL:          ttl,
		AccessCount:  1,
	}
}

// Expired reports whether the entry is past its time-to-live at the given
// instant. A non-positive TTL counts as already expired.
func (e *Entry[V]) Expired(now time.Time) bool {
	if e.TTL <= 0 {
		return true
	}
	return now.After(e.CreatedAt.Add(e.TTL))
}

// Age returns how long the entry has existed.
func (e *Entry[V]) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// TimeUntilExpiry returns the remaining lifetime, or zero if already expired.
func (e *Entry[V]) TimeUntilExpiry(now time.Time) time.Duration {
	remaining := e.CreatedAt.Add(e.TTL).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (e *Entry[V]) touch(now time.Time) {
	e.LastAccessed = now
	e.AccessCount++
}
