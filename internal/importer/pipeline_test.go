package importer_test

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgie-app/budgie/internal/api"
	"github.com/budgie-app/budgie/internal/apitest"
	"github.com/budgie-app/budgie/internal/cache"
	"github.com/budgie-app/budgie/internal/importer"
	"github.com/budgie-app/budgie/internal/importlog"
	"github.com/budgie-app/budgie/internal/model"
	"github.com/budgie-app/budgie/internal/mutation"
	"github.com/budgie-app/budgie/internal/store"
)

type fixture struct {
	srv   *apitest.Server
	store *store.Store
	d     *mutation.Dispatcher
	user  string
}

func newFixture(t *testing.T, categories ...string) *fixture {
	t.Helper()
	srv := apitest.New(t)
	user := srv.AddUser("alex", "hunter2")
	for _, name := range categories {
		srv.SeedCategory(user, name)
	}
	client, err := api.New(srv.URL)
	require.NoError(t, err)
	_, err = client.Login(context.Background(), "alex", "hunter2")
	require.NoError(t, err)

	st := store.New(client, cache.New(), nil)
	return &fixture{srv: srv, store: st, d: mutation.New(client, st, mutation.ModeInvalidate, nil), user: user}
}

func (f *fixture) pipeline(opts ...importer.Option) *importer.Pipeline {
	return importer.New(f.d, f.store, opts...)
}

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestImport_CreatesExpenseRows(t *testing.T) {
	f := newFixture(t, "Food", "Uncategorized")
	uncategorized := f.srv.Categories()[1]

	report, err := f.pipeline().Import(context.Background(), []string{"testdata/statement.csv"})
	require.NoError(t, err)
	assert.False(t, report.Aborted)
	assert.Equal(t, 3, report.Submitted())
	assert.Equal(t, 1, report.Skipped())
	assert.Zero(t, report.Failed())
	assert.True(t, report.Clean("statement.csv"))
	assert.Equal(t, 3, f.srv.Count(http.MethodPost, "/api/transactions"))

	got := map[string]model.Transaction{}
	for _, txn := range f.srv.Transactions() {
		got[txn.Vendor] = txn
	}
	require.Len(t, got, 3)
	assert.Equal(t, int64(400), got["GITHUB *PRO"].AmountCents)
	assert.Equal(t, int64(1200), got["CORNER MARKET, INC"].AmountCents)
	assert.Equal(t, int64(150), got["BANK FEE"].AmountCents)
	for _, txn := range got {
		assert.Equal(t, model.TypeExpense, txn.Type)
		assert.Equal(t, uncategorized.ID, txn.CategoryID)
		assert.Empty(t, txn.Description)
	}
	assert.Equal(t, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), got["CORNER MARKET, INC"].Date)

	for _, res := range report.Results {
		if res.Status == importer.StatusCreated {
			assert.NotEmpty(t, res.TransactionID)
		}
	}
}

func TestImport_SingleRow(t *testing.T) {
	f := newFixture(t, "Uncategorized")
	path := writeFile(t, "one.csv", "Date,Transaction Details,Funds Out,Funds In\n2025-03-01,SHOP,12.00,\n2025-03-02,PAY,,50.00\n")

	report, err := f.pipeline().Import(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Submitted())
	assert.Equal(t, 1, f.srv.Count(http.MethodPost, "/api/transactions"))
}

func TestImport_BOMHeader(t *testing.T) {
	f := newFixture(t, "Uncategorized")
	path := writeFile(t, "bom.csv", "\ufeffDate,Transaction Details,Funds Out\n2025-03-01,SHOP,12.00\n")

	report, err := f.pipeline().Import(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Submitted())
	assert.Zero(t, report.Failed())
	require.Len(t, f.srv.Transactions(), 1)
	txn := f.srv.Transactions()[0]
	assert.Equal(t, "SHOP", txn.Vendor)
	assert.Equal(t, int64(1200), txn.AmountCents)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), txn.Date)
}

func TestImport_AbortsWithoutUncategorized(t *testing.T) {
	f := newFixture(t, "Food")

	report, err := f.pipeline().Import(context.Background(), []string{"testdata/statement.csv", "testdata/chase_checking.csv"})
	require.NoError(t, err)
	assert.True(t, report.Aborted)
	assert.Empty(t, report.Results)
	assert.False(t, report.Clean("statement.csv"))
	assert.Zero(t, f.srv.Count(http.MethodPost, "/api/transactions"))
}

func TestImport_UncategorizedNameIsExact(t *testing.T) {
	f := newFixture(t, "uncategorized")

	report, err := f.pipeline().Import(context.Background(), []string{"testdata/statement.csv"})
	require.NoError(t, err)
	assert.True(t, report.Aborted)
}

func TestImport_CategoriesUnavailable(t *testing.T) {
	f := newFixture(t, "Uncategorized")
	f.srv.Fail("GET /api/categories", http.StatusInternalServerError, "down")

	_, err := f.pipeline().Import(context.Background(), []string{"testdata/statement.csv"})
	require.Error(t, err)
	assert.True(t, api.IsFetchError(err))
}

func TestImport_RowFailuresDoNotStopOthers(t *testing.T) {
	f := newFixture(t, "Uncategorized")
	path := writeFile(t, "mixed.csv", "Date,Transaction Details,Funds Out\nsoon,SHOP,1.00\n2025-03-02,CAFE,2.50\n2025-03-03,,3.00\n")

	report, err := f.pipeline().Import(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Submitted())
	assert.Equal(t, 2, report.Failed())
	assert.False(t, report.Clean("mixed.csv"))

	for _, res := range report.Results {
		if res.Status == importer.StatusFailed {
			var verrs mutation.ValidationErrors
			assert.ErrorAs(t, res.Err, &verrs)
		}
	}
	assert.Equal(t, 1, f.srv.Count(http.MethodPost, "/api/transactions"))
}

func TestImport_ServerRejections(t *testing.T) {
	f := newFixture(t, "Uncategorized")
	f.srv.Fail("POST /api/transactions", http.StatusBadRequest, "Invalid amount")

	report, err := f.pipeline().Import(context.Background(), []string{"testdata/statement.csv"})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Failed())
	for _, res := range report.Results {
		if res.Status == importer.StatusFailed {
			assert.True(t, api.IsMutationError(res.Err))
		}
	}
}

func TestImport_UnreadableFileIsReported(t *testing.T) {
	f := newFixture(t, "Uncategorized")
	missing := filepath.Join(t.TempDir(), "missing.csv")

	report, err := f.pipeline().Import(context.Background(), []string{missing, "testdata/statement.csv"})
	require.NoError(t, err)
	require.Len(t, report.FileErrors, 1)
	assert.Equal(t, "missing.csv", report.FileErrors[0].File)
	assert.ErrorIs(t, report.FileErrors[0], os.ErrNotExist)
	assert.Equal(t, 3, report.Submitted())
	assert.False(t, report.Clean("missing.csv"))
	assert.True(t, report.Clean("statement.csv"))
}

func TestImport_ChaseFormat(t *testing.T) {
	f := newFixture(t, "Uncategorized")

	report, err := f.pipeline(importer.WithParser(&importer.ChaseParser{})).
		Import(context.Background(), []string{"testdata/chase_checking.csv"})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Submitted())
	assert.Equal(t, 1, report.Skipped())
}

func TestImport_DryRun(t *testing.T) {
	f := newFixture(t, "Uncategorized")
	logPath := filepath.Join(t.TempDir(), "import-log.csv")

	report, err := f.pipeline(importer.WithDryRun(true), importer.WithLogPath(logPath)).
		Import(context.Background(), []string{"testdata/statement.csv"})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Count(importer.StatusPlanned))
	assert.Zero(t, f.srv.Count(http.MethodPost, "/api/transactions"))

	_, err = os.Stat(logPath)
	assert.True(t, os.IsNotExist(err))
}

func TestImport_WritesLog(t *testing.T) {
	f := newFixture(t, "Uncategorized")
	logPath := filepath.Join(t.TempDir(), "logs", "import-log.csv")

	_, err := f.pipeline(importer.WithLogPath(logPath)).Import(context.Background(), []string{"testdata/statement.csv"})
	require.NoError(t, err)

	entries, err := importlog.Read(logPath)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "statement.csv", entries[0].File)
	assert.Equal(t, 2, entries[0].Row)
	assert.Equal(t, "GITHUB *PRO", entries[0].Vendor)
	assert.Equal(t, "4.00", entries[0].Amount)
	assert.Equal(t, "created", entries[0].Status)
	assert.NotEmpty(t, entries[0].Detail)
}

type countingCreator struct {
	mu       sync.Mutex
	inFlight int
	peak     int
	calls    atomic.Int32
}

func (c *countingCreator) CreateTransaction(_ context.Context, form mutation.TransactionForm) (model.Transaction, error) {
	c.calls.Add(1)
	c.mu.Lock()
	c.inFlight++
	c.peak = max(c.peak, c.inFlight)
	c.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	c.mu.Lock()
	c.inFlight--
	c.mu.Unlock()
	return model.Transaction{ID: "txn-" + form.Vendor}, nil
}

type staticCategories []model.Category

func (s staticCategories) Categories(context.Context) ([]model.Category, error) { return s, nil }

func TestImport_ConcurrencyLimit(t *testing.T) {
	var data = "Date,Transaction Details,Funds Out\n"
	for i := range 12 {
		data += "2025-03-01,V" + string(rune('a'+i)) + ",1.00\n"
	}
	path := writeFile(t, "many.csv", data)
	creator := &countingCreator{}
	cats := staticCategories{{ID: "cat-9", Name: "Uncategorized"}}

	report, err := importer.New(creator, cats, importer.WithConcurrency(2)).Import(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, 12, report.Submitted())
	assert.Equal(t, int32(12), creator.calls.Load())
	assert.LessOrEqual(t, creator.peak, 2)
}
