package edupress

import (
	"context"
	"sync"
	"time"

	"github.com/eringen/edupress/article"
)

// MetadataLister is the read side of the repository the cache fronts.
type MetadataLister interface {
	ListMetadata(ctx context.Context) ([]article.Metadata, error)
}

// ListingCache keeps the article listing in memory for ttl. Every listing
// otherwise costs one store round trip per article. A zero ttl disables
// caching.
type ListingCache struct {
	mu      sync.RWMutex
	items   []article.Metadata
	fetched time.Time
	ttl     time.Duration
	src     MetadataLister
}

// NewListingCache creates a ListingCache over src.
func NewListingCache(src MetadataLister, ttl time.Duration) *ListingCache {
	return &ListingCache{src: src, ttl: ttl}
}

func (c *ListingCache) valid() bool {
	return c.items != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate drops the cached listing so the next read reloads it.
func (c *ListingCache) Invalidate() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

// List returns article metadata newest first.
func (c *ListingCache) List(ctx context.Context) ([]article.Metadata, error) {
	if c.ttl <= 0 {
		return c.src.ListMetadata(ctx)
	}

	c.mu.RLock()
	if c.valid() {
		items := c.items
		c.mu.RUnlock()
		return items, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.items, nil
	}
	items, err := c.src.ListMetadata(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []article.Metadata{}
	}
	c.items = items
	c.fetched = time.Now()
	return items, nil
}
