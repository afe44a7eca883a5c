// cache.go - In-memory cache for analysis results

package storage

import (
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/bosocmputer/trade_compliance_ocr/internal/common"
)

// CacheConfig controls the result cache.
type CacheConfig struct {
	Enabled    bool
	TTL        time.Duration
	MaxEntries int
	// KeyPrefixBytes is how much of the document feeds the key. 0 hashes the whole document.
	KeyPrefixBytes int
}

// DefaultCacheConfig holds the defaults: 15 minutes, 100 entries, whole-document keys.
var DefaultCacheConfig = CacheConfig{
	Enabled:    true,
	TTL:        15 * time.Minute,
	MaxEntries: 100,
}

// cacheEntry is immutable once stored; overwrites replace it.
type cacheEntry struct {
	result    *common.AnalysisResult
	timestamp time.Time
}

// ResultCache memoizes analysis results with a TTL and FIFO eviction.
type ResultCache struct {
	mu      sync.Mutex
	config  CacheConfig
	entries map[string]cacheEntry
	order   []string // insertion order, oldest first
	now     func() time.Time
}

// NewResultCache creates a cache with the given configuration.
func NewResultCache(cfg CacheConfig) *ResultCache {
	return &ResultCache{
		config:  cfg,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// CacheKey derives the memoization key from a document prefix and the route.
// Documents sharing the prefix and route collide.
func (c *ResultCache) CacheKey(document string, opts common.AnalysisOptions) string {
	c.mu.Lock()
	prefixLen := c.config.KeyPrefixBytes
	c.mu.Unlock()
	return CacheKey(document, opts, prefixLen)
}

// CacheKey is the key derivation used by ResultCache.
func CacheKey(document string, opts common.AnalysisOptions, prefixBytes int) string {
	if prefixBytes > 0 && len(document) > prefixBytes {
		document = document[:prefixBytes]
	}
	d := xxhash.New()
	_, _ = d.WriteString(document)
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(opts.FromCountry)
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(opts.ToCountry)
	return "analysis:" + strconv.FormatUint(d.Sum64(), 16)
}

// Enabled reports whether the cache is serving entries.
func (c *ResultCache) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config.Enabled
}

// Get returns the cached result for key. Expired entries are deleted on discovery.
func (c *ResultCache) Get(key string) (*common.AnalysisResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.config.Enabled {
		return nil, false
	}

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.timestamp) > c.config.TTL {
		c.removeLocked(key)
		return nil, false
	}
	return entry.result, true
}

// Put stores result under key, evicting the oldest-inserted entry when full.
func (c *ResultCache) Put(key string, result *common.AnalysisResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.config.Enabled || result == nil || c.config.MaxEntries <= 0 {
		return
	}

	if _, exists := c.entries[key]; exists {
		// Overwrite counts as a fresh insertion.
		c.removeLocked(key)
	}
	for len(c.entries) >= c.config.MaxEntries && len(c.order) > 0 {
		c.removeLocked(c.order[0])
	}

	c.entries[key] = cacheEntry{result: result, timestamp: c.now()}
	c.order = append(c.order, key)
}

// SetEnabled turns caching on or off. Disabling purges every entry immediately.
func (c *ResultCache) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config.Enabled = enabled
	if !enabled {
		c.clearLocked()
	}
}

// Configure replaces the configuration, trimming or purging as the new limits demand.
func (c *ResultCache) Configure(cfg CacheConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config = cfg
	if !cfg.Enabled {
		c.clearLocked()
		return
	}
	for len(c.entries) > cfg.MaxEntries && len(c.order) > 0 {
		c.removeLocked(c.order[0])
	}
}

// Config returns the active configuration.
func (c *ResultCache) Config() CacheConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}

// Clear removes all cached results.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

// Len returns the number of stored entries, expired ones included.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ResultCache) clearLocked() {
	c.entries = make(map[string]cacheEntry)
	c.order = nil
}

func (c *ResultCache) removeLocked(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
