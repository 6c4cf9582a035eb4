package importer

import (
	"errors"
	"fmt"
	"io"
)

// Field keys of a statement export after NormalizeHeader.
const (
	FieldDate               = "date"
	FieldTransactionDetails = "transactionDetails"
	FieldFundsOut           = "fundsOut"
	FieldFundsIn            = "fundsIn"
	FieldCreditCard         = "creditCard"
)

// StatementParser reads header-keyed statement exports with the columns
// "Date", "Transaction Details", "Funds Out", "Funds In" and "Credit Card".
// Columns may come in any order; unknown ones are ignored.
type StatementParser struct{}

func (p *StatementParser) Format() string { return "statement" }

func (p *StatementParser) Parse(r io.Reader) ([]Row, error) {
	cr := newCSVReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading statement header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := NormalizeHeader(h)
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading statement CSV: %w", err)
		}
		line, _ := cr.FieldPos(0)
		cell := func(key string) string {
			if i, ok := cols[key]; ok && i < len(rec) {
				return rec[i]
			}
			return ""
		}
		rows = append(rows, Row{
			Line:               line,
			Date:               cell(FieldDate),
			TransactionDetails: cell(FieldTransactionDetails),
			FundsOut:           cell(FieldFundsOut),
			FundsIn:            cell(FieldFundsIn),
			CreditCard:         cell(FieldCreditCard),
		})
	}
	return rows, nil
}
