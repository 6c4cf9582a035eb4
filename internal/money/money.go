package money

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// MaxCents is the largest magnitude ToCents returns: the biggest integer a
// JSON number carries exactly.
const MaxCents = 1<<53 - 1

// ErrOutOfRange is returned by ToCents for amounts beyond MaxCents.
var ErrOutOfRange = errors.New("out of range")

// ToCents converts a decimal amount string like "12.34" into integer minor units.
//
// The conversion is round(parseFloat(s) * 100) evaluated on float64 with ties
// rounded toward positive infinity, so "0.005" -> 1 and "1.005" -> 100.
func ToCents(s string) (int64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("parsing amount %q: empty", s)
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("parsing amount %q: not a finite number", s)
	}
	cents := roundHalfUp(f * 100)
	if math.Abs(cents) > MaxCents {
		return 0, fmt.Errorf("parsing amount %q: %w", s, ErrOutOfRange)
	}
	return int64(cents), nil
}

// roundHalfUp returns the integer closest to v, choosing the larger one on ties.
func roundHalfUp(v float64) float64 {
	f := math.Floor(v)
	if v-f >= 0.5 {
		f++
	}
	return f
}

// Decimal returns cents as an exact two-place decimal.
func Decimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// String renders cents as a plain decimal string, e.g. 1050 -> "10.50".
func String(cents int64) string {
	return Decimal(cents).StringFixed(2)
}

// Format renders cents as US currency with thousands grouping, e.g. 123450 -> "$1,234.50".
func Format(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%s.%02d", sign, printer.Sprintf("%d", cents/100), cents%100)
}
