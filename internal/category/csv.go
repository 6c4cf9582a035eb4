package category

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// NamesHeader is the header of a category name list.
const NamesHeader = "name"

// ReadNames reads a one-column CSV of category names with a "name" header.
// Blank names are skipped.
func ReadNames(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading categories CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}
	if got := strings.TrimSpace(records[0][0]); !strings.EqualFold(got, NamesHeader) {
		return nil, fmt.Errorf("expected header %q, got %q", NamesHeader, got)
	}

	var names []string
	for _, rec := range records[1:] {
		if n := strings.TrimSpace(rec[0]); n != "" {
			names = append(names, n)
		}
	}
	return names, nil
}
