// ═══════════════════════════════════════════════════════════════════════════════
// RESULT CACHE: Bounded, TTL-Aware, Strategy-Switchable Query Cache
// ═══════════════════════════════════════════════════════════════════════════════
// Every cached entry sits in a map for O(1) lookup and in a container/list
// for O(1) access-order maintenance, the same two-structure idiom the
// teacher's skip list uses (hash-free traversal plus an ordered backbone).
// Eviction strategy (LRU vs MRU) only changes which end of the list a
// `set` at capacity evicts from.
// ═══════════════════════════════════════════════════════════════════════════════
package blaze

import (
	"container/list"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// CacheStrategy selects which end of the access-order list a full cache
// evicts from.
type CacheStrategy int

const (
	StrategyLRU CacheStrategy = iota // evict oldest-accessed
	StrategyMRU                      // evict newest-accessed
)

func (s CacheStrategy) String() string {
	if s == StrategyMRU {
		return "mru"
	}
	return "lru"
}

// cacheEntry is the payload stored per key, plus its access bookkeeping.
type cacheEntry struct {
	key          string
	value        []SearchResult
	storedAt     time.Time
	lastAccessed time.Time
	accessCount  int
	elem         *list.Element
}

// CacheStats is the cache's accounting surface.
type CacheStats struct {
	Hits      int
	Misses    int
	Evictions int
	Size      int
	MaxSize   int
	HitRate   float64
	Strategy  string
}

// CacheAnalysis is the richer report returned by Analyze().
type CacheAnalysis struct {
	HitRate            float64
	AverageAccessCount float64
	MostAccessedKeys   []string
	EstimatedMemory    string
}

// ResultCache is a bounded, TTL-aware cache of scored search results keyed
// by a deterministic query fingerprint.
type ResultCache struct {
	mu       sync.Mutex
	entries  map[string]*cacheEntry
	order    *list.List // front = most recently accessed
	maxSize  int
	ttl      time.Duration
	strategy CacheStrategy

	hits      int
	misses    int
	evictions int
}

// NewResultCache creates a cache bounded to maxSize entries with the given
// TTL (0 disables expiry) and initial strategy.
func NewResultCache(maxSize int, ttl time.Duration, strategy CacheStrategy) *ResultCache {
	return &ResultCache{
		entries:  make(map[string]*cacheEntry),
		order:    list.New(),
		maxSize:  maxSize,
		ttl:      ttl,
		strategy: strategy,
	}
}

// FingerprintOptions is the subset of SearchOptions that participates in
// the cache key; caller-opaque options such as IncludeMatches are excluded.
type FingerprintOptions struct {
	Fuzzy      bool
	MaxResults int
	Threshold  float64
	Fields     []string
	SortBy     string
	SortOrder  string
	Page       int
	PageSize   int
	Regex      string
	Boost      map[string]float64
}

// Fingerprint builds the deterministic cache key for a normalized query and
// its key-relevant options.
func Fingerprint(normalizedQuery string, opts FingerprintOptions) string {
	fields := append([]string(nil), opts.Fields...)
	sort.Strings(fields)

	boostKeys := make([]string, 0, len(opts.Boost))
	for k := range opts.Boost {
		boostKeys = append(boostKeys, k)
	}
	sort.Strings(boostKeys)
	boostParts := make([]string, 0, len(boostKeys))
	for _, k := range boostKeys {
		boostParts = append(boostParts, fmt.Sprintf("%s=%v", k, opts.Boost[k]))
	}

	b, _ := json.Marshal(struct {
		Query      string
		Fuzzy      bool
		MaxResults int
		Threshold  float64
		Fields     []string
		SortBy     string
		SortOrder  string
		Page       int
		PageSize   int
		Regex      string
		Boost      []string
	}{normalizedQuery, opts.Fuzzy, opts.MaxResults, opts.Threshold, fields, opts.SortBy, opts.SortOrder, opts.Page, opts.PageSize, opts.Regex, boostParts})
	return string(b)
}

// Get returns the cached results for key, reporting a miss (and deleting
// the entry) if it is absent or expired.
func (c *ResultCache) Get(key string) ([]SearchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.expired(entry) {
		c.removeEntry(entry)
		c.misses++
		return nil, false
	}

	entry.lastAccessed = time.Now()
	entry.accessCount++
	c.order.MoveToFront(entry.elem)
	c.hits++
	return entry.value, true
}

// Set stores value under key, evicting one entry per the current strategy
// if the cache is at capacity. value may be an empty (non-nil) slice; a nil
// value is a CacheError.
func (c *ResultCache) Set(key string, value []SearchResult) error {
	if value == nil {
		return &CacheError{Reason: "cannot cache a nil result set"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok {
		existing.value = value
		existing.storedAt = time.Now()
		existing.lastAccessed = time.Now()
		c.order.MoveToFront(existing.elem)
		return nil
	}

	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.evictOne()
	}

	now := time.Now()
	entry := &cacheEntry{key: key, value: value, storedAt: now, lastAccessed: now}
	entry.elem = c.order.PushFront(entry)
	c.entries[key] = entry
	return nil
}

func (c *ResultCache) evictOne() {
	var victim *list.Element
	if c.strategy == StrategyMRU {
		victim = c.order.Front()
	} else {
		victim = c.order.Back()
	}
	if victim == nil {
		return
	}
	entry := victim.Value.(*cacheEntry)
	c.removeEntry(entry)
	c.evictions++
}

func (c *ResultCache) removeEntry(entry *cacheEntry) {
	c.order.Remove(entry.elem)
	delete(c.entries, entry.key)
}

func (c *ResultCache) expired(entry *cacheEntry) bool {
	if c.ttl <= 0 {
		return false
	}
	return time.Since(entry.storedAt) > c.ttl
}

// SetStrategy switches the eviction strategy at runtime. Current entries
// are preserved; only the eviction end changes for future Set calls.
func (c *ResultCache) SetStrategy(strategy CacheStrategy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.strategy = strategy
}

// Prune sweeps expired entries, returning the count removed.
func (c *ResultCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for e := c.order.Back(); e != nil; {
		prev := e.Prev()
		entry := e.Value.(*cacheEntry)
		if c.expired(entry) {
			c.removeEntry(entry)
			removed++
		}
		e = prev
	}
	return removed
}

// Clear empties the cache without affecting accounting counters.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	c.order = list.New()
}

// Stats returns the current accounting snapshot.
func (c *ResultCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.entries),
		MaxSize:   c.maxSize,
		HitRate:   hitRate(c.hits, c.misses),
		Strategy:  c.strategy.String(),
	}
}

func hitRate(hits, misses int) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Analyze returns a richer report: hit rate, average access count, the 5
// most-accessed keys, and a formatted memory estimate.
func (c *ResultCache) Analyze() CacheAnalysis {
	c.mu.Lock()
	defer c.mu.Unlock()

	totalAccess := 0
	var memBytes int
	type keyCount struct {
		key   string
		count int
	}
	counts := make([]keyCount, 0, len(c.entries))

	for key, entry := range c.entries {
		totalAccess += entry.accessCount
		memBytes += len(key) * 2
		if b, err := json.Marshal(entry.value); err == nil {
			memBytes += len(b)
		}
		counts = append(counts, keyCount{key, entry.accessCount})
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].key < counts[j].key
	})

	top := make([]string, 0, 5)
	for i := 0; i < len(counts) && i < 5; i++ {
		top = append(top, counts[i].key)
	}

	avg := 0.0
	if len(c.entries) > 0 {
		avg = float64(totalAccess) / float64(len(c.entries))
	}

	return CacheAnalysis{
		HitRate:            hitRate(c.hits, c.misses),
		AverageAccessCount: avg,
		MostAccessedKeys:   top,
		EstimatedMemory:    formatBytes(memBytes),
	}
}

func formatBytes(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for v := int64(n) / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	units := []string{"KB", "MB", "GB"}
	if exp >= len(units) {
		exp = len(units) - 1
	}
	return fmt.Sprintf("%.1f%s", float64(n)/float64(div), units[exp])
}
