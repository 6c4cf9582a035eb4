// Package export writes cached records as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/budgie-app/budgie/internal/category"
	"github.com/budgie-app/budgie/internal/model"
	"github.com/budgie-app/budgie/internal/money"
)

// TransactionHeader is the header row written by WriteTransactions.
const TransactionHeader = "id,date,type,vendor,description,category,amount"

const (
	numFields   = 7
	colID       = 0
	colDate     = 1
	colType     = 2
	colVendor   = 3
	colDesc     = 4
	colCategory = 5
	colAmount   = 6
)

// MarshalTransaction converts a Transaction to a CSV row. The category
// column is the server-supplied name, or the name in idx when the server
// sent none. idx may be nil.
func MarshalTransaction(t model.Transaction, idx *category.Index) []string {
	row := make([]string, numFields)
	row[colID] = t.ID
	row[colDate] = t.Date.UTC().Format(time.DateOnly)
	row[colType] = string(t.Type)
	row[colVendor] = t.Vendor
	row[colDesc] = t.Description
	row[colCategory] = t.CategoryName
	if row[colCategory] == "" && idx != nil {
		row[colCategory] = idx.Name(t.CategoryID)
	}
	row[colAmount] = money.String(t.AmountCents)
	return row
}

// WriteTransactions writes txns to w, header first.
func WriteTransactions(w io.Writer, txns []model.Transaction, idx *category.Index) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(TransactionHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, t := range txns {
		if err := cw.Write(MarshalTransaction(t, idx)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
