package refdata

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/odyssey-erp/invoice-worklist/internal/invoicing"
)

// Source is the slice of the invoice API that serves reference lists.
type Source interface {
	CustomerList(ctx context.Context) ([]invoicing.Customer, error)
	CategoryServiceList(ctx context.Context) ([]invoicing.CategoryService, error)
	StatusList(ctx context.Context) ([]invoicing.StatusOption, error)
}

// Catalog groups the reference lists used by the invoice screens.
type Catalog struct {
	Customers  *Cache[[]invoicing.Customer]
	Categories *Cache[[]invoicing.CategoryService]
	Statuses   *Cache[[]invoicing.StatusOption]

	store Store
}

// NewCatalog builds idle caches over source. Options apply to every list.
func NewCatalog(source Source, opts ...Option) *Catalog {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Catalog{
		Customers:  New[[]invoicing.Customer]("customers", source.CustomerList, opts...),
		Categories: New[[]invoicing.CategoryService]("categories", source.CategoryServiceList, opts...),
		Statuses:   New[[]invoicing.StatusOption]("statuses", source.StatusList, opts...),
		store:      o.store,
	}
}

// WarmUp loads every list concurrently and reports all failures together.
func (c *Catalog) WarmUp(ctx context.Context) error {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		result *multierror.Error
	)
	record := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		result = multierror.Append(result, err)
		mu.Unlock()
	}
	wg.Add(3)
	go func() {
		defer wg.Done()
		_, err := c.Customers.FetchOnce(ctx)
		record(err)
	}()
	go func() {
		defer wg.Done()
		_, err := c.Categories.FetchOnce(ctx)
		record(err)
	}()
	go func() {
		defer wg.Done()
		_, err := c.Statuses.FetchOnce(ctx)
		record(err)
	}()
	wg.Wait()
	return result.ErrorOrNil()
}

// Invalidate drops every list and bumps the shared store.
func (c *Catalog) Invalidate(ctx context.Context) error {
	c.Reset()
	if c.store == nil {
		return nil
	}
	if err := c.store.Bump(ctx); err != nil {
		return fmt.Errorf("refdata: invalidate catalog: %w", err)
	}
	return nil
}

// Reset drops every in-memory list, typically after another process bumped the store.
func (c *Catalog) Reset() {
	c.Customers.Reset()
	c.Categories.Reset()
	c.Statuses.Reset()
}
