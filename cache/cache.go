// Package cache keeps recently downloaded image bytes so a retried or
// repeated batch does not hit the CDN again.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry struct {
	data   []byte
	stored time.Time
}

// Cache is a least-recently-used byte cache whose entries also expire
// after a fixed TTL. It is safe for concurrent use. A Cache created with
// maxEntries <= 0 stores nothing.
type Cache struct {
	lru *lru.Cache[string, entry]
	ttl time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Cache holding at most maxEntries items for ttl each.
// Expired entries are swept in the background until Close is called.
func New(maxEntries int, ttl time.Duration) *Cache {
	c := &Cache{ttl: ttl, done: make(chan struct{})}
	if maxEntries > 0 {
		// Only fails for a non-positive size.
		c.lru, _ = lru.New[string, entry](maxEntries)
		go c.sweepLoop()
	}
	return c
}

// Key hashes its parts into a fixed-length key.
func Key(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte("|"))
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached bytes for key if present and not expired.
func (c *Cache) Get(key string) ([]byte, bool) {
	if c.lru == nil {
		return nil, false
	}
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	if c.expired(e, time.Now()) {
		c.lru.Remove(key)
		return nil, false
	}
	return e.data, true
}

// Set stores data under key, evicting the least recently used entry when
// the cache is full.
func (c *Cache) Set(key string, data []byte) {
	if c.lru == nil {
		return
	}
	c.lru.Add(key, entry{data: data, stored: time.Now()})
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}

// Close stops the sweeper.
func (c *Cache) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Cache) expired(e entry, now time.Time) bool {
	return now.Sub(e.stored) > c.ttl
}

func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(max(c.ttl/2, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case now := <-ticker.C:
			c.evictExpired(now)
		}
	}
}

func (c *Cache) evictExpired(now time.Time) {
	for _, k := range c.lru.Keys() {
		// Peek so the sweep does not refresh recency.
		if e, ok := c.lru.Peek(k); ok && c.expired(e, now) {
			c.lru.Remove(k)
		}
	}
}
