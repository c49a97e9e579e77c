// Package cache provides a bounded store of decoded frames with
// byte-budgeted, frequency-weighted eviction.
package cache

import (
	"fmt"
	"sort"
	"sync"

	"dicom-viewer/internal/frame"
)

const (
	// frequencyWeight biases the eviction score toward frames that are
	// re-read often over frames that are merely recent.
	frequencyWeight = 10

	// evictTriggerPercent starts a batch eviction once byte usage
	// crosses this share of the budget.
	evictTriggerPercent = 80

	// evictBatchPercent is the share of entries removed per batch. One
	// larger pass amortizes eviction cost and avoids thrashing during
	// rapid sequential navigation.
	evictBatchPercent = 30
)

// FrameTooLargeError reports a frame whose pixel buffer alone exceeds the
// cache budget. Such a frame is never admitted; evicting everything else
// to fit it would just thrash.
type FrameTooLargeError struct {
	ID        string
	SizeBytes int
	MaxBytes  int
}

func (e *FrameTooLargeError) Error() string {
	return fmt.Sprintf("frame %s (%d bytes) exceeds cache budget (%d bytes)",
		e.ID, e.SizeBytes, e.MaxBytes)
}

type entry struct {
	frame       *frame.Frame
	sizeBytes   int
	lastAccess  int64
	accessCount int64
	inPreload   bool
}

// score favors recently and frequently used entries; the lowest scores
// are evicted first.
func (e *entry) score() int64 {
	return e.lastAccess + e.accessCount*frequencyWeight
}

// Stats is a snapshot of cache effectiveness counters.
type Stats struct {
	Hits       uint64 `json:"hits"`
	Misses     uint64 `json:"misses"`
	BytesUsed  int    `json:"bytesUsed"`
	EntryCount int    `json:"entryCount"`
}

// HitRatio returns hits/(hits+misses), or 0 before any lookup.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache is a bounded frame store. All mutation of entries and of the
// byte-budget bookkeeping happens under one mutex; get/set/evict are
// atomic with respect to each other.
type Cache struct {
	mu         sync.Mutex
	maxBytes   int
	maxEntries int
	entries    map[string]*entry
	bytesUsed  int
	clock      int64
	hits       uint64
	misses     uint64

	inflight map[string]*inflightFetch
}

// New creates a cache bounded by maxBytes of pixel data and maxEntries
// frames.
func New(maxBytes, maxEntries int) *Cache {
	return &Cache{
		maxBytes:   maxBytes,
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
		inflight:   make(map[string]*inflightFetch),
	}
}

// Get returns the cached frame and records the access, or reports a miss.
func (c *Cache) Get(key string) (*frame.Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.clock++
	e.lastAccess = c.clock
	e.accessCount++
	e.inPreload = false
	c.hits++
	return e.frame, true
}

// Set inserts or replaces a frame, evicting as needed to respect the
// byte and entry budgets.
func (c *Cache) Set(key string, f *frame.Frame) error {
	size := f.SizeBytes()
	if size > c.maxBytes {
		return &FrameTooLargeError{ID: key, SizeBytes: size, MaxBytes: c.maxBytes}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		c.bytesUsed -= old.sizeBytes
		delete(c.entries, key)
	}

	// Admission crossing the trigger threshold starts a batch pass; the
	// loop then guarantees the hard budget before the insert.
	if (c.bytesUsed+size)*100 > c.maxBytes*evictTriggerPercent {
		c.evictBatchLocked()
	}
	for len(c.entries) >= c.maxEntries || c.bytesUsed+size > c.maxBytes {
		if !c.evictBatchLocked() {
			break
		}
	}

	c.clock++
	c.entries[key] = &entry{
		frame:      f,
		sizeBytes:  size,
		lastAccess: c.clock,
	}
	c.bytesUsed += size
	return nil
}

// MarkForPreload flags an entry as prefetched so the batch evictor spares
// it until its first real read. Returns false if the key is not cached.
func (c *Cache) MarkForPreload(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if ok {
		e.inPreload = true
	}
	return ok
}

// Remove drops a single entry.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.bytesUsed -= e.sizeBytes
		delete(c.entries, key)
	}
}

// Clear drops all entries but keeps the counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.bytesUsed = 0
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:       c.hits,
		Misses:     c.misses,
		BytesUsed:  c.bytesUsed,
		EntryCount: len(c.entries),
	}
}

// evictBatchLocked removes the lowest-scoring entries in one pass.
// Prefetched entries that have not been read yet are spared unless
// nothing else remains. Reports whether anything was evicted.
func (c *Cache) evictBatchLocked() bool {
	if len(c.entries) == 0 {
		return false
	}

	type scored struct {
		key   string
		score int64
	}
	candidates := make([]scored, 0, len(c.entries))
	for k, e := range c.entries {
		if e.inPreload {
			continue
		}
		candidates = append(candidates, scored{key: k, score: e.score()})
	}
	if len(candidates) == 0 {
		// Only unread prefetches remain; spare nothing.
		for k, e := range c.entries {
			candidates = append(candidates, scored{key: k, score: e.score()})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score < candidates[j].score
	})

	n := (len(candidates)*evictBatchPercent + 99) / 100
	if n < 1 {
		n = 1
	}
	for _, s := range candidates[:n] {
		e := c.entries[s.key]
		c.bytesUsed -= e.sizeBytes
		delete(c.entries, s.key)
	}
	return true
}
