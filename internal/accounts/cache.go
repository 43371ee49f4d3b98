package accounts

import (
	"context"
	"fmt"
	"sync"

	"github.com/farmbooks-dev/farmbooks/internal/model"
)

// Source supplies the raw account table.
type Source interface {
	Accounts(ctx context.Context) ([]model.Account, error)
}

// Cache resolves a book's hierarchy once and hands out the same result until
// Invalidate is called.
type Cache struct {
	src  Source
	opts Options

	mu   sync.Mutex
	hier *Hierarchy
}

// NewCache returns a Cache over src.
func NewCache(src Source, opts Options) *Cache {
	return &Cache{src: src, opts: opts}
}

// Get returns the resolved hierarchy, loading it on first use.
func (c *Cache) Get(ctx context.Context) (*Hierarchy, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hier != nil {
		return c.hier, nil
	}
	accts, err := c.src.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading accounts: %w", err)
	}
	c.hier = Resolve(accts, c.opts)
	return c.hier, nil
}

// Invalidate drops the cached hierarchy, e.g. after a write to the book.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.hier = nil
	c.mu.Unlock()
}
