// Package store provides typed, cached reads of the Budgie collections.
package store

import (
	"context"
	"io"
	"net/url"

	"github.com/charmbracelet/log"

	"github.com/budgie-app/budgie/internal/api"
	"github.com/budgie-app/budgie/internal/cache"
	"github.com/budgie-app/budgie/internal/model"
	"github.com/budgie-app/budgie/internal/period"
)

// Filter narrows a transaction listing. Zero fields are not sent.
type Filter struct {
	CategoryID string
	Period     period.Period
}

// Query returns the filter as list query parameters.
func (f Filter) Query() url.Values {
	q := url.Values{}
	if f.CategoryID != "" {
		q.Set(api.QueryCategory, f.CategoryID)
	}
	if !f.Period.IsZero() {
		q.Set(api.QueryPeriod, f.Period.String())
	}
	return q
}

// Key is the canonical cache filter key: sorted query encoding, empty when
// unfiltered.
func (f Filter) Key() string {
	return f.Query().Encode()
}

// Store reads through the cache, fetching from the API on a miss.
type Store struct {
	client *api.Client
	cache  *cache.Cache
	logger *log.Logger
}

// New creates a Store. A nil logger discards output.
func New(client *api.Client, c *cache.Cache, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Store{client: client, cache: c, logger: logger}
}

// Cache returns the cache the store reads through.
func (s *Store) Cache() *cache.Cache {
	return s.cache
}

func (s *Store) Transactions(ctx context.Context, f Filter) ([]model.Transaction, error) {
	key := cache.Key{Resource: model.ResourceTransactions, Filter: f.Key()}
	return load(ctx, s, key, func(ctx context.Context) ([]model.Transaction, error) {
		return s.client.ListTransactions(ctx, f.Query())
	})
}

func (s *Store) Categories(ctx context.Context) ([]model.Category, error) {
	key := cache.Key{Resource: model.ResourceCategories}
	return load(ctx, s, key, s.client.ListCategories)
}

func (s *Store) Budgets(ctx context.Context) ([]model.Budget, error) {
	key := cache.Key{Resource: model.ResourceBudgets}
	return load(ctx, s, key, s.client.ListBudgets)
}

// Utilization returns the budgets of p with their spend.
func (s *Store) Utilization(ctx context.Context, p period.Period) ([]model.BudgetUtilization, error) {
	key := cache.Key{Resource: model.ResourceBudgetUtilization, Filter: p.String()}
	return load(ctx, s, key, func(ctx context.Context) ([]model.BudgetUtilization, error) {
		return s.client.BudgetUtilization(ctx, p)
	})
}

func load[T any](ctx context.Context, s *Store, key cache.Key, fetch func(context.Context) ([]T, error)) ([]T, error) {
	v, err := cache.Load(ctx, s.cache, key, fetch)
	if err != nil {
		s.logger.Warn("fetch failed", "key", key, "err", err)
		return nil, err
	}
	return v, nil
}
