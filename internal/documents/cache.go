package documents

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/claimwise/cli/internal/api"
)

// Fetcher loads a document from the backend
type Fetcher interface {
	GetDocument(ctx context.Context, fileID string) (*api.DocumentResponse, error)
}

// Cache is a read-through cache of analysed documents. Screens that show the
// same document share one request. Documents still in progress are never
// cached because their status is about to change.
type Cache struct {
	fetcher Fetcher
	items   *cache.Cache
	group   singleflight.Group
}

// NewCache creates a cache keeping terminal documents for ttl
func NewCache(fetcher Fetcher, ttl time.Duration) *Cache {
	return &Cache{
		fetcher: fetcher,
		items:   cache.New(ttl, 2*ttl),
	}
}

// Get returns the document, fetching it when missing
func (c *Cache) Get(ctx context.Context, fileID string) (*api.DocumentResponse, error) {
	if v, ok := c.items.Get(fileID); ok {
		return v.(*api.DocumentResponse), nil
	}

	v, err, _ := c.group.Do(fileID, func() (any, error) {
		if v, ok := c.items.Get(fileID); ok {
			return v, nil
		}
		doc, err := c.fetcher.GetDocument(ctx, fileID)
		if err != nil {
			return nil, err
		}
		if doc.Status.Terminal() {
			c.items.SetDefault(fileID, doc)
		}
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*api.DocumentResponse), nil
}

// Invalidate drops a document after it changed on the backend
func (c *Cache) Invalidate(fileID string) {
	c.items.Delete(fileID)
	c.group.Forget(fileID)
}
