package cache

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/VinothKuppanna/pigeon-routes/pkg/domain/definition"
	"github.com/patrickmn/go-cache"
)

const (
	DefaultCapacity = 100
	// KeyPrecision is the number of decimals kept per coordinate in a key.
	KeyPrecision = 5
)

// RouteCache is a bounded store of engine-backed routes. Once full, the
// oldest inserted entry is evicted first.
type RouteCache struct {
	capacity int
	ttl      time.Duration

	mu    sync.Mutex
	store *cache.Cache
	order []string
}

// New returns a RouteCache holding at most capacity entries. A ttl of zero
// keeps entries until they are evicted or cleared.
func New(capacity int, ttl time.Duration) *RouteCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	expiration, cleanup := cache.NoExpiration, time.Duration(0)
	if ttl > 0 {
		expiration, cleanup = ttl, 2*ttl
	}
	return &RouteCache{
		capacity: capacity,
		ttl:      ttl,
		store:    cache.New(expiration, cleanup),
		order:    make([]string, 0, capacity),
	}
}

// Key normalizes coords so that jitter below KeyPrecision maps to one key.
func Key(coords []definition.Coordinate) string {
	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = strconv.FormatFloat(c.Lat, 'f', KeyPrecision, 64) + "," +
			strconv.FormatFloat(c.Lng, 'f', KeyPrecision, 64)
	}
	return strings.Join(parts, ";")
}

func (c *RouteCache) Get(key string) (definition.RoutingResult, bool) {
	if value, ok := c.store.Get(key); ok {
		return value.(definition.RoutingResult), true
	}
	return definition.RoutingResult{}, false
}

func (c *RouteCache) Put(key string, result definition.RoutingResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.store.Get(key); !ok {
		c.removeLocked(key)
		for len(c.order) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			c.store.Delete(oldest)
		}
		c.order = append(c.order, key)
	}
	c.store.Set(key, result, cache.DefaultExpiration)
}

func (c *RouteCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Flush()
	c.order = make([]string, 0, c.capacity)
}

// Len returns the number of live entries. Expired entries still waiting for
// the janitor are not counted.
func (c *RouteCache) Len() int {
	return len(c.store.Items())
}

// removeLocked drops key from the insertion queue, which happens when an
// entry expired in the store but is still queued.
func (c *RouteCache) removeLocked(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
