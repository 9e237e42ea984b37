package chunkstore

import (
	"github.com/VictoriaMetrics/fastcache"
)

// Cache is a thin wrapper around fastcache.Cache keyed by the same
// 8-byte big-endian chunk key the LevelDB store uses, so Store can share
// one key derivation between both layers.
type Cache struct {
	c *fastcache.Cache
}

// NewCache builds a cache with the given byte budget. fastcache enforces
// a minimum internal size; very small budgets are rounded up by the
// library itself.
func NewCache(maxBytes int) *Cache {
	return &Cache{c: fastcache.New(maxBytes)}
}

// Get returns the cached chunk for key, if present.
func (c *Cache) Get(key []byte) ([]byte, bool) {
	v, ok := c.c.HasGet(nil, key)
	return v, ok
}

// Set stores chunk under key.
func (c *Cache) Set(key, chunk []byte) {
	c.c.Set(key, chunk)
}

// Reset clears the cache without touching the LevelDB file.
func (c *Cache) Reset() {
	c.c.Reset()
}
