package importer

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// ChaseParser parses Chase checking CSV exports. Debits become FundsOut and
// credits FundsIn, both as positive decimals.
type ChaseParser struct{}

const (
	chaseDateFormat = "01/02/2006"
	chaseMinFields  = 5
	chaseColDate    = 1
	chaseColDesc    = 2
	chaseColAmount  = 3
)

func (p *ChaseParser) Format() string { return "chase" }

func (p *ChaseParser) Parse(r io.Reader) ([]Row, error) {
	cr := newCSVReader(r)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading chase CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var rows []Row
	for i, rec := range records[1:] {
		row, err := parseChaseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		row.Line = i + 2
		rows = append(rows, row)
	}
	return rows, nil
}

func parseChaseRow(rec []string) (Row, error) {
	if len(rec) < chaseMinFields {
		return Row{}, fmt.Errorf("expected at least %d fields, got %d", chaseMinFields, len(rec))
	}
	date, err := time.Parse(chaseDateFormat, rec[chaseColDate])
	if err != nil {
		return Row{}, fmt.Errorf("parsing date %q: %w", rec[chaseColDate], err)
	}
	amount, err := decimal.NewFromString(rec[chaseColAmount])
	if err != nil {
		return Row{}, fmt.Errorf("parsing amount %q: %w", rec[chaseColAmount], err)
	}

	row := Row{
		Date:               date.Format(time.DateOnly),
		TransactionDetails: rec[chaseColDesc],
	}
	if amount.IsNegative() {
		row.FundsOut = amount.Neg().StringFixed(2)
	} else {
		row.FundsIn = amount.StringFixed(2)
	}
	return row, nil
}
