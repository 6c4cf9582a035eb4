package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

const (
	formatText = "text"
	formatJSON = "json"
)

func (a *app) checkFormat() error {
	switch a.format {
	case formatText, formatJSON:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want text or json)", a.format)
}

// table collects tab-separated rows for aligned text output.
type table struct {
	header []string
	rows   [][]string
}

func newTable(header ...string) *table {
	return &table{header: header}
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.header, "\t"))
	for _, r := range t.rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

// render writes v as indented JSON, or t as a text table.
func (a *app) render(w io.Writer, v any, t *table) error {
	if a.format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return t.write(w)
}
