package cache

import (
	"sync"
	"time"
)

// Entry is a cached payload with its expiry
type Entry struct {
	Value      []byte
	Expiration time.Time
	storedAt   time.Time
}

// IsExpired checks if the entry has expired
func (e *Entry) IsExpired(now time.Time) bool {
	if e.Expiration.IsZero() {
		return false // Never expires
	}
	return now.After(e.Expiration)
}

// Cache is a thread-safe in-memory byte cache with TTL and a size bound.
// Both an item count and a total byte count are enforced; the oldest
// entry is evicted first.
type Cache struct {
	mu       sync.Mutex
	items    map[string]*Entry
	bytes    int
	maxItems int
	maxBytes int
	ttl      time.Duration
	now      func() time.Time

	// Metrics
	hits   int64
	misses int64

	quit chan struct{}
	once sync.Once
}

// Config holds cache configuration
type Config struct {
	MaxItems int
	// MaxBytes bounds the total size of all stored values. Set evicts
	// the oldest entries until the new value fits.
	MaxBytes int
	TTL      time.Duration
	// CleanupInterval is how often expired entries are swept; 0 disables the sweeper
	CleanupInterval time.Duration
}

// DefaultConfig returns default cache configuration
func DefaultConfig() Config {
	return Config{
		MaxItems:        64,
		MaxBytes:        16 << 20,
		TTL:             30 * time.Minute,
		CleanupInterval: time.Minute,
	}
}

// New creates a new cache instance
func New(cfg Config) *Cache {
	def := DefaultConfig()
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = def.MaxItems
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = def.MaxBytes
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}

	c := &Cache{
		items:    make(map[string]*Entry),
		maxItems: cfg.MaxItems,
		maxBytes: cfg.MaxBytes,
		ttl:      cfg.TTL,
		now:      time.Now,
		quit:     make(chan struct{}),
	}

	if cfg.CleanupInterval > 0 {
		go c.cleanupLoop(cfg.CleanupInterval)
	}
	return c
}

// Get retrieves a value from the cache
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.items[key]
	if !exists {
		c.misses++
		return nil, false
	}
	if entry.IsExpired(c.now()) {
		c.remove(key, entry)
		c.misses++
		return nil, false
	}

	c.hits++
	return entry.Value, true
}

// Set stores a value with the default TTL. Values larger than the byte
// bound are not stored.
func (c *Cache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(value) > c.maxBytes {
		return
	}
	if old, ok := c.items[key]; ok {
		c.remove(key, old)
	}
	for len(c.items) > 0 && (len(c.items) >= c.maxItems || c.bytes+len(value) > c.maxBytes) {
		c.evictOldest()
	}

	now := c.now()
	c.items[key] = &Entry{
		Value:      value,
		Expiration: now.Add(c.ttl),
		storedAt:   now,
	}
	c.bytes += len(value)
}

// Delete removes a value from the cache
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.items[key]; ok {
		c.remove(key, entry)
	}
}

// Clear removes all items from the cache
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*Entry)
	c.bytes = 0
}

// Size returns the number of items and the total bytes held
func (c *Cache) Size() (items, bytes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items), c.bytes
}

// Stats returns cache statistics
func (c *Cache) Stats() (hits, misses int64, hitRate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hits = c.hits
	misses = c.misses
	total := hits + misses
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	return
}

// Close stops the cleanup goroutine
func (c *Cache) Close() {
	c.once.Do(func() { close(c.quit) })
}

// remove must be called with the lock held
func (c *Cache) remove(key string, entry *Entry) {
	delete(c.items, key)
	c.bytes -= len(entry.Value)
}

// evictOldest removes the oldest entry (must be called with lock held)
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldest *Entry

	for key, entry := range c.items {
		if oldest == nil || entry.storedAt.Before(oldest.storedAt) {
			oldestKey = key
			oldest = entry
		}
	}

	if oldest != nil {
		c.remove(oldestKey, oldest)
	}
}

// cleanupLoop periodically removes expired entries
func (c *Cache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.quit:
			return
		}
	}
}

// cleanup removes all expired entries
func (c *Cache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.items {
		if entry.IsExpired(now) {
			c.remove(key, entry)
		}
	}
}
