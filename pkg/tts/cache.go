package tts

import (
	"container/list"
	"context"
	"strings"
	"sync"
)

// DefaultCacheSize fits a user's everyday phrases.
const DefaultCacheSize = 64

// Cache keeps the most recently spoken phrases. Typed phrases repeat a lot
// ("yes", "thank you", "I need help"), and a hit plays without a network
// round trip. Failures are not cached.
type Cache struct {
	next Provider
	size int

	mu     sync.Mutex
	recent *list.List // of *cached, most recent first
	byText map[string]*list.Element
	hits   uint64
	misses uint64
}

type cached struct {
	key string
	res AudioResult
}

// NewCache wraps next with an LRU of size phrases. size <= 0 uses
// DefaultCacheSize.
func NewCache(next Provider, size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Cache{
		next:   next,
		size:   size,
		recent: list.New(),
		byText: make(map[string]*list.Element),
	}
}

// Synthesize answers from the cache or the wrapped provider.
func (c *Cache) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	key := strings.Join(strings.Fields(text), " ")
	if key == "" {
		return c.next.Synthesize(ctx, text)
	}

	c.mu.Lock()
	if el, ok := c.byText[key]; ok {
		c.recent.MoveToFront(el)
		c.hits++
		res := el.Value.(*cached).res
		c.mu.Unlock()
		res.LatencyMs = 0
		return &res, nil
	}
	c.misses++
	c.mu.Unlock()

	res, err := c.next.Synthesize(ctx, key)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byText[key]; !ok {
		c.byText[key] = c.recent.PushFront(&cached{key: key, res: *res})
		if c.recent.Len() > c.size {
			oldest := c.recent.Back()
			c.recent.Remove(oldest)
			delete(c.byText, oldest.Value.(*cached).key)
		}
	}
	return res, nil
}

// Stats returns cache hits and misses.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Len returns the number of cached phrases.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recent.Len()
}

// Close closes the wrapped provider.
func (c *Cache) Close() error {
	return c.next.Close()
}

var _ Provider = (*Cache)(nil)
