// Package cache is the in-process TTL cache for completed pipeline
// results, keyed by the inputs that change the output. Safe for
// concurrent use.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"github.com/tabfetch/tabfetch/models"
)

// entry holds a cached result with its creation timestamp.
type entry struct {
	response  *models.FetchResponse
	createdAt time.Time
}

// Cache is a bounded in-memory cache for fetch results.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
	done       chan struct{}
}

// New creates a Cache with the given capacity and entry TTL. A
// background goroutine evicts expired entries every 5 minutes.
func New(maxEntries int, ttl time.Duration) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		done:       make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Key derives a cache key from everything that changes the result:
// the target, the fallback setting and whether an export was asked for.
func Key(target string, useFallbacks, export bool) string {
	h := sha256.New()
	h.Write([]byte(target))
	h.Write([]byte("|"))
	h.Write([]byte(strconv.FormatBool(useFallbacks)))
	h.Write([]byte("|"))
	h.Write([]byte(strconv.FormatBool(export)))
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached result younger than the TTL.
func (c *Cache) Get(key string) (*models.FetchResponse, bool) {
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok || time.Since(e.createdAt) > c.ttl {
		return nil, false
	}
	return e.response, true
}

// Set stores a result. At capacity a random entry is evicted to make
// room (map iteration order is random).
func (c *Cache) Set(key string, resp *models.FetchResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[key] = &entry{
		response:  resp,
		createdAt: time.Now(),
	}
}

// Close stops the eviction goroutine.
func (c *Cache) Close() {
	close(c.done)
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-c.ttl)
			c.mu.Lock()
			for k, e := range c.store {
				if e.createdAt.Before(cutoff) {
					delete(c.store, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
