package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgie-app/budgie/internal/category"
	"github.com/budgie-app/budgie/internal/model"
)

func sampleTransactions() []model.Transaction {
	return []model.Transaction{
		{
			ID:           "txn-3",
			Vendor:       "CORNER MARKET, INC",
			Description:  `weekly "big" shop`,
			CategoryID:   "cat-1",
			CategoryName: "Food",
			AmountCents:  123450,
			Type:         model.TypeExpense,
			Date:         time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:          "txn-2",
			Vendor:      "ACME",
			CategoryID:  "cat-2",
			AmountCents: 350000,
			Type:        model.TypeIncome,
			Date:        time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:          "txn-1",
			Vendor:      "GITHUB",
			CategoryID:  "cat-404",
			AmountCents: 5,
			Type:        model.TypeExpense,
			Date:        time.Date(2025, 2, 28, 23, 30, 0, 0, time.FixedZone("EST", -5*3600)),
		},
	}
}

func TestWriteTransactions_Golden(t *testing.T) {
	idx := category.NewIndex([]model.Category{{ID: "cat-1", Name: "Food"}, {ID: "cat-2", Name: "Income"}})

	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, sampleTransactions(), idx))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "transactions", buf.Bytes())
}

func TestWriteTransactions_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, nil, nil))
	assert.Equal(t, TransactionHeader+"\n", buf.String())
}

func TestMarshalTransaction_NilIndex(t *testing.T) {
	row := MarshalTransaction(sampleTransactions()[1], nil)
	assert.Len(t, row, numFields)
	assert.Empty(t, row[colCategory])
	assert.Equal(t, "3500.00", row[colAmount])
}
