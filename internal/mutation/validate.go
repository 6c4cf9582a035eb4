package mutation

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/budgie-app/budgie/internal/model"
	"github.com/budgie-app/budgie/internal/money"
	"github.com/budgie-app/budgie/internal/period"
)

// Field limits enforced before a request is sent.
const (
	MaxVendorLength       = 100
	MaxDescriptionLength  = 255
	MaxCategoryNameLength = 50
)

// dateLayouts are the accepted transaction date forms. Date-only forms are
// read as UTC midnight.
var dateLayouts = []string{
	time.DateOnly,
	"01/02/2006",
	"2006/01/02",
	"2 Jan 2006",
	"Jan 2, 2006",
}

// ValidationError describes a single rejected form field.
type ValidationError struct {
	Field       string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Description)
}

// ValidationErrors is every field a form failed on. No request is sent when
// a form produces any.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, v := range e {
		parts[i] = v.Error()
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// Has reports whether field failed.
func (e ValidationErrors) Has(field string) bool {
	for _, v := range e {
		if v.Field == field {
			return true
		}
	}
	return false
}

type checker struct {
	errs ValidationErrors
}

func (c *checker) fail(field, format string, args ...any) {
	c.errs = append(c.errs, ValidationError{Field: field, Description: fmt.Sprintf(format, args...)})
}

func (c *checker) required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		c.fail(field, "required")
		return false
	}
	return true
}

func (c *checker) maxLength(field, value string, limit int) {
	if n := utf8.RuneCountInString(value); n > limit {
		c.fail(field, "%d characters exceeds the limit of %d", n, limit)
	}
}

func (c *checker) amount(field, value string) int64 {
	if !c.required(field, value) {
		return 0
	}
	cents, err := money.ToCents(value)
	if errors.Is(err, money.ErrOutOfRange) {
		c.fail(field, "is too large")
		return 0
	}
	if err != nil {
		c.fail(field, "%q is not a number", value)
		return 0
	}
	if cents < 0 {
		c.fail(field, "must not be negative")
		return 0
	}
	return cents
}

func (c *checker) date(field, value string) time.Time {
	if !c.required(field, value) {
		return time.Time{}
	}
	t, err := ParseDate(value)
	if err != nil {
		c.fail(field, "%q is not a date", value)
	}
	return t
}

func (c *checker) period(field, value string) period.Period {
	if !c.required(field, value) {
		return period.Period{}
	}
	p, err := period.Parse(value)
	if err != nil {
		c.fail(field, "%q is not a year-month", value)
	}
	return p
}

func (c *checker) transactionType(field string, value model.TransactionType) {
	if value == "" {
		c.fail(field, "required")
		return
	}
	if !value.Valid() {
		c.fail(field, `must be "income" or "expense"`)
	}
}

func (c *checker) err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return c.errs
}

// ParseDate reads a transaction date. Date-only forms become UTC midnight;
// RFC 3339 timestamps keep their instant.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing date %q: unrecognized format", s)
}
