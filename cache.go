package overlaystudio

import (
	"database/sql"
	"sync"
	"time"

	"github.com/eringen/overlaystudio/assets"
)

// ErrNotFound is returned when a requested session does not exist.
var ErrNotFound = sql.ErrNoRows

// CatalogCache is an in-memory copy of the asset catalog file with TTL.
// With no path it serves the built-in catalog.
type CatalogCache struct {
	mu      sync.RWMutex
	catalog *assets.Catalog
	fetched time.Time
	ttl     time.Duration
	path    string
}

// NewCatalogCache creates a CatalogCache reading path.
func NewCatalogCache(path string, ttl time.Duration) *CatalogCache {
	return &CatalogCache{path: path, ttl: ttl}
}

func (c *CatalogCache) valid() bool {
	return c.catalog != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read reloads the file.
func (c *CatalogCache) Invalidate() {
	c.mu.Lock()
	c.catalog = nil
	c.mu.Unlock()
}

func (c *CatalogCache) load() error {
	if c.valid() {
		return nil
	}
	if c.path == "" {
		c.catalog = assets.DefaultCatalog()
	} else {
		cat, err := assets.LoadCatalog(c.path)
		if err != nil {
			return err
		}
		c.catalog = cat
	}
	c.fetched = time.Now()
	return nil
}

// Get returns the catalog after ensuring the cache is fresh. It tries a read
// lock first and only takes the write lock when a reload is needed. The
// returned catalog must not be modified.
func (c *CatalogCache) Get() (*assets.Catalog, error) {
	c.mu.RLock()
	if c.valid() {
		cat := c.catalog
		c.mu.RUnlock()
		return cat, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(); err != nil {
		return nil, err
	}
	return c.catalog, nil
}

// Frame finds the frame with url.
func (c *CatalogCache) Frame(url string) (assets.Asset, bool, error) {
	cat, err := c.Get()
	if err != nil {
		return assets.Asset{}, false, err
	}
	a, ok := assets.Find(cat.Frames, url)
	return a, ok, nil
}
