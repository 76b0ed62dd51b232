package applications

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedFinder keeps recently read applications in an expiring LRU. Misses and
// errors fall through to the wrapped finder and errors are never cached.
type CachedFinder struct {
	next  Finder
	cache *expirable.LRU[string, Application]
}

var _ Finder = (*CachedFinder)(nil)

func NewCachedFinder(next Finder, size int, ttl time.Duration) *CachedFinder {
	return &CachedFinder{
		next:  next,
		cache: expirable.NewLRU[string, Application](size, nil, ttl),
	}
}

func (c *CachedFinder) FindByID(ctx context.Context, id string) (*Application, error) {
	if app, ok := c.cache.Get(id); ok {
		return &app, nil
	}
	app, err := c.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Add(id, *app)
	return app, nil
}
