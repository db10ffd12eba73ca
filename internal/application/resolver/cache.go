package resolver

import (
	"sync"
	"time"

	"github.com/jhoicas/nordia-pos/internal/domain/entity"
)

// DefaultCacheTTL vigencia de una entrada del cache de resolución.
const DefaultCacheTTL = 24 * time.Hour

type cacheEntry struct {
	product  entity.Product
	storedAt time.Time
}

// Cache cache en memoria código → producto con vencimiento fijo.
// Se construye una vez por proceso y se inyecta en el Resolver; siempre es reconstruible
// desde el catálogo local o las fuentes externas.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewCache construye el cache. ttl <= 0 usa DefaultCacheTTL; now nil usa time.Now.
func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{entries: make(map[string]cacheEntry), ttl: ttl, now: now}
}

// Get devuelve el producto si la entrada existe y now - storedAt < ttl.
// Una entrada vencida se elimina y cuenta como fallo.
func (c *Cache) Get(barcode string) (entity.Product, bool) {
	c.mu.RLock()
	e, ok := c.entries[barcode]
	c.mu.RUnlock()
	if !ok {
		return entity.Product{}, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		c.mu.Lock()
		if cur, still := c.entries[barcode]; still && cur.storedAt.Equal(e.storedAt) {
			delete(c.entries, barcode)
		}
		c.mu.Unlock()
		return entity.Product{}, false
	}
	return e.product, true
}

// Set guarda el producto con la hora actual.
func (c *Cache) Set(barcode string, p entity.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[barcode] = cacheEntry{product: p, storedAt: c.now()}
}

// Delete quita la entrada del código.
func (c *Cache) Delete(barcode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, barcode)
}

// Clear vacía el cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Len cantidad de entradas (incluye vencidas aún no consultadas).
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
