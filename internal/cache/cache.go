package cache

import (
	"sync"
	"time"

	"github.com/PetoAdam/homenavi/weather-sync/internal/forecast"
)

type entry struct {
	data      []forecast.Entry
	expiresAt time.Time
}

// Cache holds forecast listings keyed by their start date.
type Cache struct {
	mu    sync.RWMutex
	items map[int64]entry
	ttl   time.Duration
	now   func() time.Time
}

func New(ttl time.Duration) *Cache {
	return &Cache{items: make(map[int64]entry), ttl: ttl, now: time.Now}
}

func (c *Cache) Get(from int64) ([]forecast.Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[from]
	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}
	return e.data, true
}

func (c *Cache) Set(from int64, data []forecast.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[from] = entry{data: data, expiresAt: c.now().Add(c.ttl)}
}

// Invalidate drops every listing; called after the stored forecast changes.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.items)
}
