package period

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period is a calendar month, the scope of a budget.
type Period struct {
	Year  int
	Month time.Month
}

// Format returns a period string like "2025-01".
func Format(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// Of returns the UTC month containing t.
func Of(t time.Time) Period {
	u := t.UTC()
	return Period{Year: u.Year(), Month: u.Month()}
}

// Parse accepts "2025-01", "2025-01-15" or an RFC 3339 timestamp and returns
// the month it falls in. Timestamps are taken in UTC.
func Parse(s string) (Period, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Of(t), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return Of(t), nil
	}

	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return Period{}, fmt.Errorf("invalid period format: %q", s)
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return Period{}, fmt.Errorf("invalid year in period %q: %w", s, err)
	}

	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return Period{}, fmt.Errorf("invalid month in period %q: %w", s, err)
	}
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("invalid month in period %q: %d", s, month)
	}

	return Period{Year: year, Month: time.Month(month)}, nil
}

// String returns "YYYY-MM".
func (p Period) String() string {
	return Format(p.Year, p.Month)
}

// IsZero reports whether p is unset.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Start returns the first instant of the month in UTC.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether t falls inside the month (UTC).
func (p Period) Contains(t time.Time) bool {
	return Of(t) == p
}

// MarshalText implements encoding.TextMarshaler.
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Period) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
