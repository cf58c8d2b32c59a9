package store

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"calcore/internal/model"
)

// CacheStats is the query cache's accounting snapshot. Hits and misses
// are counted per GetEventsInRange call; evictions count only entries
// displaced by capacity pressure, never invalidation purges.
type CacheStats struct {
	Hits      int `json:"hits"`
	Misses    int `json:"misses"`
	Evictions int `json:"evictions"`
}

// rangeResult is one cached range-query computation. The range bounds
// are retained so invalidation can match entries against mutated spans.
type rangeResult struct {
	start  time.Time
	end    time.Time
	events []*model.Event
}

// queryCache is a bounded LRU of computed range queries. One instance
// lives per Store; it is never shared.
type queryCache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, rangeResult]

	// gen increments on every store mutation. A computation that began
	// under an older generation is discarded instead of cached, so a
	// reader can never install a pre-mutation result after the mutation.
	gen uint64

	hits      int
	misses    int
	evictions int
}

func newQueryCache(capacity int) *queryCache {
	if capacity <= 0 {
		capacity = 128
	}
	entries, err := lru.New[string, rangeResult](capacity)
	if err != nil {
		// Unreachable: lru.New fails only for non-positive sizes.
		panic(err)
	}
	return &queryCache{entries: entries}
}

// rangeKey derives the cache key from a query's defining parameters.
func rangeKey(start, end time.Time) string {
	return start.Format(time.RFC3339Nano) + "|" + end.Format(time.RFC3339Nano)
}

// get looks up a cached result and updates hit/miss accounting.
func (c *queryCache) get(key string) ([]*model.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, ok := c.entries.Get(key)
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return res.events, true
}

// generation returns the current mutation generation.
func (c *queryCache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// put installs a computed result unless a mutation happened since gen
// was captured; stale computations are silently dropped.
func (c *queryCache) put(key string, res rangeResult, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		return
	}
	if evicted := c.entries.Add(key, res); evicted {
		c.evictions++
	}
}

// invalidateSpans bumps the generation and drops every entry whose
// cached range intersects one of the mutated spans.
func (c *queryCache) invalidateSpans(spans []span) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	for _, key := range c.entries.Keys() {
		res, ok := c.entries.Peek(key)
		if !ok {
			continue
		}
		for _, s := range spans {
			if !res.end.Before(s.start) && !res.start.After(s.end) {
				c.entries.Remove(key)
				break
			}
		}
	}
}

// purge bumps the generation and drops every entry. Used for mutations
// whose reach cannot be bounded (recurring events, Clear).
func (c *queryCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.entries.Purge()
}

// reset drops all entries and zeroes the counters.
func (c *queryCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.entries.Purge()
	c.hits = 0
	c.misses = 0
	c.evictions = 0
}

func (c *queryCache) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Evictions: c.evictions}
}

// span is a closed time interval touched by a mutation.
type span struct {
	start time.Time
	end   time.Time
}
