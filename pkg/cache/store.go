package cache

import (
	"container/list"
	"sort"
	"sync"
	"time"
)

// Stats holds the hit/miss/eviction counters for a store.
type Stats struct {
	Size          int
	MaxSize       int
	Hits          uint64
	Misses        uint64
	Evictions     uint64
	TotalRequests uint64
	HitRate       float64
}

// AccessStat pairs a cache key with its access count.
type AccessStat struct {
	Key         string
	AccessCount int64
}

type record[V any] struct {
	key   string
	entry *Entry[V]
}

// Store is an LRU cache with per-entry TTL and a hard size bound.
//
// Entries past their TTL are never returned by Get; they are removed lazily
// on lookup or in bulk by CleanupExpired. Size-based eviction removes the
// least-recently-used entry regardless of its TTL.
type Store[V any] struct {
	mu         sync.Mutex
	maxSize    int
	defaultTTL time.Duration

	order *list.List // back = most recently used
	index map[string]*list.Element

	hits      uint64
	misses    uint64
	evictions uint64
}

// NewStore creates a store bound to maxSize entries with the given default TTL.
func NewStore[V any](maxSize int, defaultTTL time.Duration) *Store[V] {
	return &Store[V]{
		maxSize:    maxSize,
		defaultTTL: defaultTTL,
		order:      list.New(),
		index:      make(map[string]*list.Element),
	}
}

// Get returns the value for key if present and unexpired. A hit moves the
// entry to the most-recently-used position and increments its access count.
// An expired entry is removed and counted as a miss.
func (s *Store[V]) Get(key string) (V, bool) {
	var zero V

	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.index[key]
	if !ok {
		s.misses++
		return zero, false
	}

	rec := elem.Value.(*record[V])
	now := time.Now()
	if rec.entry.Expired(now) {
		s.removeElement(elem)
		s.misses++
		return zero, false
	}

	s.order.MoveToBack(elem)
	rec.entry.touch(now)
	s.hits++
	return rec.entry.Data, true
}

// Put stores value under key with the store's default TTL.
func (s *Store[V]) Put(key string, value V) {
	s.PutTTL(key, value, s.defaultTTL)
}

// PutTTL stores value under key with an explicit TTL, overwriting any
// existing entry and evicting from the least-recently-used end while the
// store is over its size bound.
func (s *Store[V]) PutTTL(key string, value V, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.index[key]; ok {
		s.removeElement(elem)
	}

	elem := s.order.PushBack(&record[V]{key: key, entry: newEntry(value, ttl)})
	s.index[key] = elem

	for s.order.Len() > s.maxSize {
		oldest := s.order.Front()
		if oldest == nil {
			break
		}
		s.removeElement(oldest)
		s.evictions++
	}
}

// Delete removes key from the store, reporting whether it was present.
func (s *Store[V]) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.index[key]
	if !ok {
		return false
	}
	s.removeElement(elem)
	return true
}

// Clear removes every entry and resets all counters.
func (s *Store[V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order.Init()
	s.index = make(map[string]*list.Element)
	s.hits = 0
	s.misses = 0
	s.evictions = 0
}

// CleanupExpired removes every currently-expired entry and returns how many
// were removed. It does not perform size-based eviction.
func (s *Store[V]) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for elem := s.order.Front(); elem != nil; {
		next := elem.Next()
		if elem.Value.(*record[V]).entry.Expired(now) {
			s.removeElement(elem)
			removed++
		}
		elem = next
	}
	return removed
}

// Len returns the current number of entries, expired ones included.
func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// Stats returns a snapshot of the store's counters.
func (s *Store[V]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.hits + s.misses
	rate := 0.0
	if total > 0 {
		rate = float64(s.hits) / float64(total)
	}
	return Stats{
		Size:          s.order.Len(),
		MaxSize:       s.maxSize,
		Hits:          s.hits,
		Misses:        s.misses,
		Evictions:     s.evictions,
		TotalRequests: total,
		HitRate:       rate,
	}
}

// TopAccessed returns up to n entries ordered by access count, descending.
func (s *Store[V]) TopAccessed(n int) []AccessStat {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make([]AccessStat, 0, s.order.Len())
	for elem := s.order.Front(); elem != nil; elem = elem.Next() {
		rec := elem.Value.(*record[V])
		stats = append(stats, AccessStat{Key: rec.key, AccessCount: rec.entry.AccessCount})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].AccessCount > stats[j].AccessCount })
	if n < len(stats) {
		stats = stats[:n]
	}
	return stats
}

// Snapshot copies every unexpired entry, for persistence.
func (s *Store[V]) Snapshot() map[string]Entry[V] {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	out := make(map[string]Entry[V], s.order.Len())
	for elem := s.order.Front(); elem != nil; elem = elem.Next() {
		rec := elem.Value.(*record[V])
		if rec.entry.Expired(now) {
			continue
		}
		out[rec.key] = *rec.entry
	}
	return out
}

// Restore inserts persisted entries, skipping expired ones and keys already
// present. Restored entries keep their original creation time and counters.
func (s *Store[V]) Restore(entries map[string]Entry[V]) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	restored := 0
	for key, entry := range entries {
		if entry.Expired(now) {
			continue
		}
		if _, ok := s.index[key]; ok {
			continue
		}
		e := entry
		s.index[key] = s.order.PushBack(&record[V]{key: key, entry: &e})
		restored++
	}
	for s.order.Len() > s.maxSize {
		oldest := s.order.Front()
		if oldest == nil {
			break
		}
		s.removeElement(oldest)
		s.evictions++
	}
	return restored
}

func (s *Store[V]) removeElement(elem *list.Element) {
	s.order.Remove(elem)
	delete(s.index, elem.Value.(*record[V]).key)
}
