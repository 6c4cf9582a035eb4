package mutation_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgie-app/budgie/internal/api"
	"github.com/budgie-app/budgie/internal/apitest"
	"github.com/budgie-app/budgie/internal/cache"
	"github.com/budgie-app/budgie/internal/model"
	"github.com/budgie-app/budgie/internal/mutation"
	"github.com/budgie-app/budgie/internal/period"
	"github.com/budgie-app/budgie/internal/store"
)

type fixture struct {
	srv    *apitest.Server
	store  *store.Store
	d      *mutation.Dispatcher
	userID string
	food   model.Category
	income model.Category
}

func newFixture(t *testing.T, mode mutation.Mode) *fixture {
	t.Helper()
	srv := apitest.New(t)
	userID := srv.AddUser("alex", "hunter2")
	food := srv.SeedCategory(userID, "Food")
	income := srv.SeedCategory(userID, "Income")

	client, err := api.New(srv.URL)
	require.NoError(t, err)
	_, err = client.Login(context.Background(), "alex", "hunter2")
	require.NoError(t, err)

	st := store.New(client, cache.New(), nil)
	return &fixture{
		srv:    srv,
		store:  st,
		d:      mutation.New(client, st, mode, nil),
		userID: userID,
		food:   food,
		income: income,
	}
}

func (f *fixture) seed(vendor string, day int) model.Transaction {
	return f.srv.SeedTransaction(f.userID, model.Transaction{
		Vendor:      vendor,
		CategoryID:  f.food.ID,
		AmountCents: 1000,
		Type:        model.TypeExpense,
		Date:        time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC),
	})
}

func (f *fixture) lastBody(t *testing.T, method string) map[string]any {
	t.Helper()
	reqs := f.srv.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method {
			var body map[string]any
			require.NoError(t, json.Unmarshal(reqs[i].Body, &body))
			return body
		}
	}
	t.Fatalf("no %s request", method)
	return nil
}

func vendors(txns []model.Transaction) []string {
	out := make([]string, len(txns))
	for i, t := range txns {
		out[i] = t.Vendor
	}
	return out
}

func txnForm(categoryID string) mutation.TransactionForm {
	return mutation.TransactionForm{
		Vendor:     "Market",
		CategoryID: categoryID,
		Amount:     "19.99",
		Type:       model.TypeExpense,
		Date:       "2025-03-04",
	}
}

var allTxns = cache.Key{Resource: model.ResourceTransactions}

func TestCreateTransaction_ValidationSendsNothing(t *testing.T) {
	f := newFixture(t, mutation.ModeInvalidate)
	before := len(f.srv.Requests())

	_, err := f.d.CreateTransaction(context.Background(), mutation.TransactionForm{Vendor: "x"})
	var verrs mutation.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, f.srv.Requests(), before)
}

func TestCreateTransaction_WireNormalization(t *testing.T) {
	f := newFixture(t, mutation.ModeInvalidate)

	txn, err := f.d.CreateTransaction(context.Background(), txnForm(f.food.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(1999), txn.AmountCents)

	body := f.lastBody(t, http.MethodPost)
	assert.Equal(t, float64(1999), body["amount"])
	assert.Equal(t, "2025-03-04T00:00:00Z", body["date"])
	assert.Equal(t, "expense", body["type"])
	assert.Equal(t, f.food.ID, body["category_id"])
}

func TestCreateTransaction_InvalidatesCache(t *testing.T) {
	f := newFixture(t, mutation.ModeInvalidate)
	ctx := context.Background()
	f.seed("Old", 1)

	txns, err := f.store.Transactions(ctx, store.Filter{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	_, err = f.store.Utilization(ctx, period.Period{Year: 2025, Month: time.March})
	require.NoError(t, err)

	_, err = f.d.CreateTransaction(ctx, txnForm(f.food.ID))
	require.NoError(t, err)

	e, _ := f.store.Cache().Peek(allTxns)
	assert.True(t, e.Stale)
	e, _ = f.store.Cache().Peek(cache.Key{Resource: model.ResourceBudgetUtilization, Filter: "2025-03"})
	assert.True(t, e.Stale)

	txns, err = f.store.Transactions(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Market", "Old"}, vendors(txns))
}

func TestCreateTransaction_RejectedLeavesCache(t *testing.T) {
	f := newFixture(t, mutation.ModeInvalidate)
	ctx := context.Background()
	_, err := f.store.Transactions(ctx, store.Filter{})
	require.NoError(t, err)
	f.srv.Fail("POST /api/transactions", http.StatusInternalServerError, "insert failed")

	_, err = f.d.CreateTransaction(ctx, txnForm(f.food.ID))
	var me *api.MutationError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, model.ResourceTransactions, me.Resource)
	assert.Equal(t, api.OpCreate, me.Op)
	assert.Equal(t, "insert failed", me.Message)
	assert.Equal(t, 1, f.srv.Count(http.MethodPost, "/api/transactions"))

	e, _ := f.store.Cache().Peek(allTxns)
	assert.False(t, e.Stale)
}

func TestIncomeRule(t *testing.T) {
	f := newFixture(t, mutation.ModeInvalidate)
	ctx := context.Background()

	txn, err := f.d.CreateTransaction(ctx, txnForm(f.income.ID))
	require.NoError(t, err)
	assert.Equal(t, model.TypeIncome, txn.Type)
	assert.Equal(t, "income", f.lastBody(t, http.MethodPost)["type"])

	existing := f.seed("Payroll", 5)
	updated, err := f.d.UpdateTransaction(ctx, existing.ID, txnForm(f.income.ID))
	require.NoError(t, err)
	assert.Equal(t, model.TypeIncome, updated.Type)
	assert.Equal(t, "income", f.lastBody(t, http.MethodPut)["type"])

	other, err := f.d.UpdateTransaction(ctx, existing.ID, txnForm(f.food.ID))
	require.NoError(t, err)
	assert.Equal(t, model.TypeExpense, other.Type)
}

func TestOptimisticCreate_PrependsUnfiltered(t *testing.T) {
	f := newFixture(t, mutation.ModeOptimistic)
	ctx := context.Background()
	f.seed("First", 1)
	f.seed("Second", 2)

	txns, err := f.store.Transactions(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Second", "First"}, vendors(txns))
	march := store.Filter{Period: period.Period{Year: 2025, Month: time.March}}
	_, err = f.store.Transactions(ctx, march)
	require.NoError(t, err)
	gets := f.srv.Count(http.MethodGet, "/api/transactions")

	_, err = f.d.CreateTransaction(ctx, txnForm(f.food.ID))
	require.NoError(t, err)

	txns, err = f.store.Transactions(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Market", "Second", "First"}, vendors(txns))
	assert.Equal(t, gets, f.srv.Count(http.MethodGet, "/api/transactions"))

	e, _ := f.store.Cache().Peek(cache.Key{Resource: model.ResourceTransactions, Filter: march.Key()})
	assert.True(t, e.Stale)
}

func TestOptimisticUpdate_KeepsPosition(t *testing.T) {
	f := newFixture(t, mutation.ModeOptimistic)
	ctx := context.Background()
	f.seed("A", 1)
	b := f.seed("B", 2)
	f.seed("C", 3)

	_, err := f.store.Transactions(ctx, store.Filter{})
	require.NoError(t, err)

	form := txnForm(f.food.ID)
	form.Vendor = "B2"
	_, err = f.d.UpdateTransaction(ctx, b.ID, form)
	require.NoError(t, err)

	e, _ := f.store.Cache().Peek(allTxns)
	assert.False(t, e.Stale)
	assert.Equal(t, []string{"C", "B2", "A"}, vendors(e.Data.([]model.Transaction)))
}

func TestOptimisticDelete_PreservesOrder(t *testing.T) {
	f := newFixture(t, mutation.ModeOptimistic)
	ctx := context.Background()
	f.seed("A", 1)
	b := f.seed("B", 2)
	f.seed("C", 3)

	before, err := f.store.Transactions(ctx, store.Filter{})
	require.NoError(t, err)

	require.NoError(t, f.d.DeleteTransaction(ctx, b.ID))

	after, err := f.store.Transactions(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A"}, vendors(after))
	assert.Equal(t, []string{"C", "B", "A"}, vendors(before), "earlier reads are not mutated")
}

func TestDeleteTransaction_RequiresID(t *testing.T) {
	f := newFixture(t, mutation.ModeInvalidate)
	err := f.d.DeleteTransaction(context.Background(), " ")
	var verrs mutation.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.Has("id"))
}

func TestDeleteTransaction_NotFound(t *testing.T) {
	f := newFixture(t, mutation.ModeInvalidate)
	err := f.d.DeleteTransaction(context.Background(), "txn-404")
	var me *api.MutationError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, api.OpDelete, me.Op)
	assert.Equal(t, http.StatusNotFound, me.Status)
}

func TestCategoryLifecycle(t *testing.T) {
	f := newFixture(t, mutation.ModeInvalidate)
	ctx := context.Background()
	f.seed("Market", 1)
	_, err := f.store.Transactions(ctx, store.Filter{})
	require.NoError(t, err)

	c, err := f.d.CreateCategory(ctx, mutation.CategoryForm{Name: "Pets"})
	require.NoError(t, err)
	cats, err := f.store.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 3)

	_, err = f.d.UpdateCategory(ctx, f.food.ID, mutation.CategoryForm{Name: "Groceries"})
	require.NoError(t, err)
	txns, err := f.store.Transactions(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, "Groceries", txns[0].CategoryName)

	require.NoError(t, f.d.DeleteCategory(ctx, c.ID))
	cats, err = f.store.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 2)
}

func TestOptimisticCategoryRename(t *testing.T) {
	f := newFixture(t, mutation.ModeOptimistic)
	ctx := context.Background()
	_, err := f.store.Categories(ctx)
	require.NoError(t, err)

	_, err = f.d.UpdateCategory(ctx, f.food.ID, mutation.CategoryForm{Name: "Groceries"})
	require.NoError(t, err)

	e, _ := f.store.Cache().Peek(cache.Key{Resource: model.ResourceCategories})
	cats := e.Data.([]model.Category)
	assert.Equal(t, "Groceries", cats[0].Name)
	assert.Equal(t, "Income", cats[1].Name)
}

func TestBudgetLifecycle(t *testing.T) {
	f := newFixture(t, mutation.ModeInvalidate)
	ctx := context.Background()
	march := period.Period{Year: 2025, Month: time.March}

	b, err := f.d.CreateBudget(ctx, mutation.BudgetForm{CategoryID: f.food.ID, Amount: "250", Period: "2025-03"})
	require.NoError(t, err)
	assert.Equal(t, march, b.Period)
	assert.Equal(t, "2025-03-01T00:00:00Z", f.lastBody(t, http.MethodPost)["period"])

	usage, err := f.store.Utilization(ctx, march)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Zero(t, usage[0].UtilizationCents)

	_, err = f.d.CreateTransaction(ctx, txnForm(f.food.ID))
	require.NoError(t, err)
	usage, err = f.store.Utilization(ctx, march)
	require.NoError(t, err)
	assert.Equal(t, int64(1999), usage[0].UtilizationCents)

	_, err = f.d.UpdateBudget(ctx, b.ID, mutation.BudgetForm{CategoryID: f.food.ID, Amount: "300", Period: "2025-03"})
	require.NoError(t, err)
	budgets, err := f.store.Budgets(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), budgets[0].AmountCents)

	require.NoError(t, f.d.DeleteBudget(ctx, b.ID))
	budgets, err = f.store.Budgets(ctx)
	require.NoError(t, err)
	assert.Empty(t, budgets)
}
