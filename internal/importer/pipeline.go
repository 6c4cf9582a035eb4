package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/budgie-app/budgie/internal/category"
	"github.com/budgie-app/budgie/internal/importlog"
	"github.com/budgie-app/budgie/internal/model"
	"github.com/budgie-app/budgie/internal/mutation"
)

// DefaultConcurrency bounds in-flight creates when no limit is configured.
const DefaultConcurrency = 4

// Creator submits transaction creates. *mutation.Dispatcher satisfies it.
type Creator interface {
	CreateTransaction(ctx context.Context, form mutation.TransactionForm) (model.Transaction, error)
}

// CategorySource lists the user's categories. *store.Store satisfies it.
type CategorySource interface {
	Categories(ctx context.Context) ([]model.Category, error)
}

// Status is what happened to one statement row.
type Status string

const (
	StatusCreated Status = "created"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusPlanned Status = "planned" // dry run; the form validated
)

// Result is the outcome for one row.
type Result struct {
	File          string
	Row           int
	Date          string
	Vendor        string
	Amount        string
	Status        Status
	TransactionID string
	Err           error
}

// FileError is a file that could not be opened or parsed. None of its rows
// were submitted.
type FileError struct {
	File string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("%s: %v", e.File, e.Err) }
func (e *FileError) Unwrap() error { return e.Err }

// Report summarizes an import.
type Report struct {
	// Aborted is set when no Uncategorized category exists. Nothing was
	// submitted.
	Aborted    bool
	Results    []Result
	FileErrors []*FileError
}

// Count returns how many rows ended with status s.
func (r Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

func (r Report) Submitted() int { return r.Count(StatusCreated) }
func (r Report) Skipped() int   { return r.Count(StatusSkipped) }
func (r Report) Failed() int    { return r.Count(StatusFailed) }

// Clean reports whether every row of file was created or skipped.
func (r Report) Clean(file string) bool {
	if r.Aborted {
		return false
	}
	for _, fe := range r.FileErrors {
		if fe.File == file {
			return false
		}
	}
	for _, res := range r.Results {
		if res.File == file && res.Status != StatusCreated && res.Status != StatusSkipped {
			return false
		}
	}
	return true
}

// Pipeline imports statement files as expense transactions in the
// Uncategorized category.
type Pipeline struct {
	creator    Creator
	categories CategorySource
	parser     Parser
	limit      int
	logPath    string
	dryRun     bool
	logger     *log.Logger
	now        func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithParser selects the statement format. The default is StatementParser.
func WithParser(p Parser) Option { return func(pl *Pipeline) { pl.parser = p } }

// WithConcurrency bounds in-flight creates. Values below 1 use
// DefaultConcurrency.
func WithConcurrency(n int) Option { return func(pl *Pipeline) { pl.limit = n } }

// WithLogPath appends every submission to an import log at path.
func WithLogPath(path string) Option { return func(pl *Pipeline) { pl.logPath = path } }

// WithDryRun validates rows without sending anything.
func WithDryRun(dry bool) Option { return func(pl *Pipeline) { pl.dryRun = dry } }

func WithLogger(l *log.Logger) Option { return func(pl *Pipeline) { pl.logger = l } }

func New(creator Creator, categories CategorySource, opts ...Option) *Pipeline {
	p := &Pipeline{
		creator:    creator,
		categories: categories,
		parser:     &StatementParser{},
		logger:     log.New(io.Discard),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.limit < 1 {
		p.limit = DefaultConcurrency
	}
	return p
}

// Import parses every file and submits a create for each row with a
// non-empty "Funds Out". Rows are submitted concurrently and a failed row
// does not stop the rest. The returned error is reserved for problems that
// prevent the import from starting or from being logged.
func (p *Pipeline) Import(ctx context.Context, paths []string) (Report, error) {
	var report Report

	cats, err := p.categories.Categories(ctx)
	if err != nil {
		return report, fmt.Errorf("loading categories: %w", err)
	}
	uncategorized, ok := category.NewIndex(cats).ByName(category.UncategorizedName)
	if !ok {
		p.logger.Warn("no Uncategorized category; import aborted", "files", len(paths))
		report.Aborted = true
		return report, nil
	}

	for _, path := range paths {
		name := filepath.Base(path)
		rows, err := p.parseFile(path)
		if err != nil {
			p.logger.Warn("skipping file", "file", name, "err", err)
			report.FileErrors = append(report.FileErrors, &FileError{File: name, Err: err})
			continue
		}
		for _, row := range rows {
			report.Results = append(report.Results, Result{
				File:   name,
				Row:    row.Line,
				Date:   row.Date,
				Vendor: row.TransactionDetails,
				Amount: row.FundsOut,
				Status: StatusSkipped,
			})
		}
		p.logger.Debug("parsed statement", "file", name, "format", p.parser.Format(), "rows", len(rows))
	}

	p.submit(ctx, report.Results, uncategorized.ID)

	if p.logPath != "" && !p.dryRun {
		if err := importlog.Append(p.logPath, p.entries(report.Results)); err != nil {
			return report, fmt.Errorf("writing import log: %w", err)
		}
	}
	p.logger.Info("import finished",
		"created", report.Submitted(), "skipped", report.Skipped(), "failed", report.Failed(),
		"planned", report.Count(StatusPlanned), "file_errors", len(report.FileErrors))
	return report, nil
}

func (p *Pipeline) parseFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening statement: %w", err)
	}
	defer f.Close()
	return p.parser.Parse(f)
}

// submit sends every row with funds out. results is updated in place; each
// goroutine owns one index.
func (p *Pipeline) submit(ctx context.Context, results []Result, categoryID string) {
	var g errgroup.Group
	g.SetLimit(p.limit)
	for i := range results {
		res := &results[i]
		if res.Amount == "" {
			continue
		}
		form := mutation.TransactionForm{
			Vendor:      res.Vendor,
			Description: "",
			CategoryID:  categoryID,
			Amount:      res.Amount,
			Type:        model.TypeExpense,
			Date:        res.Date,
		}
		g.Go(func() error {
			p.submitRow(ctx, res, form)
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Pipeline) submitRow(ctx context.Context, res *Result, form mutation.TransactionForm) {
	if p.dryRun {
		if _, err := form.Body(); err != nil {
			res.Status, res.Err = StatusFailed, err
			return
		}
		res.Status = StatusPlanned
		return
	}
	txn, err := p.creator.CreateTransaction(ctx, form)
	if err != nil {
		p.logger.Warn("row not imported", "file", res.File, "row", res.Row, "vendor", res.Vendor, "err", err)
		res.Status, res.Err = StatusFailed, err
		return
	}
	res.Status, res.TransactionID = StatusCreated, txn.ID
}

func (p *Pipeline) entries(results []Result) []importlog.Entry {
	now := p.now()
	var out []importlog.Entry
	for _, res := range results {
		if res.Status == StatusSkipped {
			continue
		}
		detail := res.TransactionID
		if res.Err != nil {
			detail = res.Err.Error()
		}
		out = append(out, importlog.Entry{
			Timestamp: now,
			File:      res.File,
			Row:       res.Row,
			Vendor:    res.Vendor,
			Amount:    res.Amount,
			Status:    string(res.Status),
			Detail:    detail,
		})
	}
	return out
}
