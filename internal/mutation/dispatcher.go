// Package mutation sends creates, updates and deletes to the Budgie API and
// brings the resource cache up to date afterwards.
//
// Overlapping writes are not serialized: each one updates the cache when its
// response arrives, so the last response to land wins.
package mutation

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/budgie-app/budgie/internal/api"
	"github.com/budgie-app/budgie/internal/cache"
	"github.com/budgie-app/budgie/internal/category"
	"github.com/budgie-app/budgie/internal/model"
	"github.com/budgie-app/budgie/internal/store"
)

// Mode selects how the cache is updated after a successful write.
type Mode int

const (
	// ModeInvalidate marks the written resource stale so the next read refetches.
	ModeInvalidate Mode = iota
	// ModeOptimistic patches the returned record into loaded collections.
	ModeOptimistic
)

// ParseMode maps "invalidate" or "optimistic" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "invalidate":
		return ModeInvalidate, nil
	case "optimistic":
		return ModeOptimistic, nil
	}
	return 0, fmt.Errorf("unknown cache mode %q", s)
}

func (m Mode) String() string {
	if m == ModeOptimistic {
		return "optimistic"
	}
	return "invalidate"
}

// Dispatcher performs writes. It is safe for concurrent use.
type Dispatcher struct {
	client *api.Client
	store  *store.Store
	cache  *cache.Cache
	mode   Mode
	logger *log.Logger
}

// New creates a Dispatcher. Category lookups for the income rule go through
// st, and cache updates go to st's cache. A nil logger discards output.
func New(client *api.Client, st *store.Store, mode Mode, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Dispatcher{client: client, store: st, cache: st.Cache(), mode: mode, logger: logger}
}

func (d *Dispatcher) Mode() Mode { return d.mode }

// CreateTransaction validates form, applies the income rule and posts it.
func (d *Dispatcher) CreateTransaction(ctx context.Context, form TransactionForm) (model.Transaction, error) {
	body, err := form.Body()
	if err != nil {
		return model.Transaction{}, err
	}
	if body, err = d.applyIncomeRule(ctx, body); err != nil {
		return model.Transaction{}, err
	}

	txn, err := d.client.CreateTransaction(ctx, body)
	if err != nil {
		return model.Transaction{}, d.failed(err, model.ResourceTransactions, model.ResourceBudgetUtilization)
	}
	d.logger.Debug("created transaction", "id", txn.ID, "vendor", txn.Vendor, "amount", txn.AmountCents)
	created(d, model.ResourceTransactions, txn)
	d.cache.Invalidate(model.ResourceBudgetUtilization)
	return txn, nil
}

// UpdateTransaction replaces transaction id with form.
func (d *Dispatcher) UpdateTransaction(ctx context.Context, id string, form TransactionForm) (model.Transaction, error) {
	if err := requireID(id); err != nil {
		return model.Transaction{}, err
	}
	body, err := form.Body()
	if err != nil {
		return model.Transaction{}, err
	}
	if body, err = d.applyIncomeRule(ctx, body); err != nil {
		return model.Transaction{}, err
	}

	txn, err := d.client.UpdateTransaction(ctx, id, body)
	if err != nil {
		return model.Transaction{}, d.failed(err, model.ResourceTransactions, model.ResourceBudgetUtilization)
	}
	d.logger.Debug("updated transaction", "id", id)
	updated(d, model.ResourceTransactions, id, txn, transactionID)
	d.cache.Invalidate(model.ResourceBudgetUtilization)
	return txn, nil
}

func (d *Dispatcher) DeleteTransaction(ctx context.Context, id string) error {
	if err := requireID(id); err != nil {
		return err
	}
	if err := d.client.DeleteTransaction(ctx, id); err != nil {
		return d.failed(err)
	}
	d.logger.Debug("deleted transaction", "id", id)
	deleted(d, model.ResourceTransactions, id, transactionID)
	d.cache.Invalidate(model.ResourceBudgetUtilization)
	return nil
}

func (d *Dispatcher) CreateCategory(ctx context.Context, form CategoryForm) (model.Category, error) {
	body, err := form.Body()
	if err != nil {
		return model.Category{}, err
	}
	c, err := d.client.CreateCategory(ctx, body)
	if err != nil {
		return model.Category{}, d.failed(err, model.ResourceCategories)
	}
	d.logger.Debug("created category", "id", c.ID, "name", c.Name)
	created(d, model.ResourceCategories, c)
	return c, nil
}

// UpdateCategory renames a category. Transactions carry the category name,
// so they are refetched too.
func (d *Dispatcher) UpdateCategory(ctx context.Context, id string, form CategoryForm) (model.Category, error) {
	if err := requireID(id); err != nil {
		return model.Category{}, err
	}
	body, err := form.Body()
	if err != nil {
		return model.Category{}, err
	}
	c, err := d.client.UpdateCategory(ctx, id, body)
	if err != nil {
		return model.Category{}, d.failed(err, model.ResourceCategories, model.ResourceTransactions)
	}
	d.logger.Debug("updated category", "id", id, "name", c.Name)
	updated(d, model.ResourceCategories, id, c, categoryID)
	d.cache.Invalidate(model.ResourceTransactions)
	return c, nil
}

func (d *Dispatcher) DeleteCategory(ctx context.Context, id string) error {
	if err := requireID(id); err != nil {
		return err
	}
	if err := d.client.DeleteCategory(ctx, id); err != nil {
		return d.failed(err)
	}
	d.logger.Debug("deleted category", "id", id)
	deleted(d, model.ResourceCategories, id, categoryID)
	d.cache.Invalidate(model.ResourceTransactions)
	d.cache.Invalidate(model.ResourceBudgets)
	d.cache.Invalidate(model.ResourceBudgetUtilization)
	return nil
}

func (d *Dispatcher) CreateBudget(ctx context.Context, form BudgetForm) (model.Budget, error) {
	body, err := form.Body()
	if err != nil {
		return model.Budget{}, err
	}
	b, err := d.client.CreateBudget(ctx, body)
	if err != nil {
		return model.Budget{}, d.failed(err, model.ResourceBudgets, model.ResourceBudgetUtilization)
	}
	d.logger.Debug("created budget", "id", b.ID, "period", b.Period)
	created(d, model.ResourceBudgets, b)
	d.cache.Invalidate(model.ResourceBudgetUtilization)
	return b, nil
}

func (d *Dispatcher) UpdateBudget(ctx context.Context, id string, form BudgetForm) (model.Budget, error) {
	if err := requireID(id); err != nil {
		return model.Budget{}, err
	}
	body, err := form.Body()
	if err != nil {
		return model.Budget{}, err
	}
	b, err := d.client.UpdateBudget(ctx, id, body)
	if err != nil {
		return model.Budget{}, d.failed(err, model.ResourceBudgets, model.ResourceBudgetUtilization)
	}
	d.logger.Debug("updated budget", "id", id)
	updated(d, model.ResourceBudgets, id, b, budgetID)
	d.cache.Invalidate(model.ResourceBudgetUtilization)
	return b, nil
}

func (d *Dispatcher) DeleteBudget(ctx context.Context, id string) error {
	if err := requireID(id); err != nil {
		return err
	}
	if err := d.client.DeleteBudget(ctx, id); err != nil {
		return d.failed(err)
	}
	d.logger.Debug("deleted budget", "id", id)
	deleted(d, model.ResourceBudgets, id, budgetID)
	d.cache.Invalidate(model.ResourceBudgetUtilization)
	return nil
}

// applyIncomeRule forces type income when the category is the one named
// Income.
func (d *Dispatcher) applyIncomeRule(ctx context.Context, body api.TransactionBody) (api.TransactionBody, error) {
	if body.Type == model.TypeIncome {
		return body, nil
	}
	cats, err := d.store.Categories(ctx)
	if err != nil {
		return body, fmt.Errorf("resolving categories: %w", err)
	}
	if category.NewIndex(cats).IsIncome(body.CategoryID) {
		d.logger.Debug("income category forces type income", "category", body.CategoryID)
		body.Type = model.TypeIncome
	}
	return body, nil
}

// failed logs a write error. A rejected or unsent write leaves the cache
// alone; any other error came after the server applied the write, so the
// affected resources are invalidated.
func (d *Dispatcher) failed(err error, applied ...model.Resource) error {
	if api.IsMutationError(err) {
		d.logger.Debug("write rejected", "err", err)
		return err
	}
	for _, res := range applied {
		d.cache.Invalidate(res)
	}
	return err
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ValidationErrors{{Field: "id", Description: "required"}}
	}
	return nil
}

func transactionID(t model.Transaction) string { return t.ID }
func categoryID(c model.Category) string       { return c.ID }
func budgetID(b model.Budget) string           { return b.ID }

// created prepends rec to the unfiltered collection; filtered variants cannot
// know whether rec belongs to them and are invalidated.
func created[T any](d *Dispatcher, res model.Resource, rec T) {
	if d.mode != ModeOptimistic {
		d.cache.Invalidate(res)
		return
	}
	cache.Patch(d.cache, res, func(k cache.Key, data []T) ([]T, bool) {
		if k.Filter != "" {
			return nil, false
		}
		return append([]T{rec}, data...), true
	})
}

// updated replaces the record with the same id, keeping its position.
// Filtered variants are invalidated since the record may have moved in or
// out of them.
func updated[T any](d *Dispatcher, res model.Resource, id string, rec T, idOf func(T) string) {
	if d.mode != ModeOptimistic {
		d.cache.Invalidate(res)
		return
	}
	cache.Patch(d.cache, res, func(k cache.Key, data []T) ([]T, bool) {
		if k.Filter != "" {
			return nil, false
		}
		i := slices.IndexFunc(data, func(x T) bool { return idOf(x) == id })
		if i < 0 {
			return nil, false
		}
		next := slices.Clone(data)
		next[i] = rec
		return next, true
	})
}

// deleted removes the record with id from every variant, keeping the order
// of the rest.
func deleted[T any](d *Dispatcher, res model.Resource, id string, idOf func(T) string) {
	if d.mode != ModeOptimistic {
		d.cache.Invalidate(res)
		return
	}
	cache.Patch(d.cache, res, func(_ cache.Key, data []T) ([]T, bool) {
		return slices.DeleteFunc(slices.Clone(data), func(x T) bool { return idOf(x) == id }), true
	})
}
