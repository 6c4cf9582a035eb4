package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToCents(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"10.50", 1050},
		{"12.00", 1200},
		{"0.005", 1},
		{"1.005", 100},
		{"12.345", 1235},
		{"0", 0},
		{"7", 700},
		{" 3.10 ", 310},
		{"0.1", 10},
		{"19.99", 1999},
	}
	for _, tt := range tests {
		got, err := ToCents(tt.in)
		require.NoError(t, err, "ToCents(%q)", tt.in)
		assert.Equal(t, tt.want, got, "ToCents(%q)", tt.in)
	}
}

func TestToCents_TiesRoundUp(t *testing.T) {
	got, err := ToCents("-0.025")
	require.NoError(t, err)
	// -2.5 rounds toward positive infinity.
	assert.Equal(t, int64(-2), got)
}

func TestToCents_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "12.3.4", "NaN", "Inf", "1,234.00"} {
		_, err := ToCents(in)
		assert.Error(t, err, "ToCents(%q) should fail", in)
	}
}

func TestToCents_Range(t *testing.T) {
	got, err := ToCents("90071992547409.91")
	require.NoError(t, err)
	assert.Equal(t, int64(MaxCents), got)

	for _, in := range []string{"1e15", "1e17", "-1e17", "1e300"} {
		_, err := ToCents(in)
		require.Error(t, err, "ToCents(%q)", in)
		assert.ErrorIs(t, err, ErrOutOfRange)
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "10.50", String(1050))
	assert.Equal(t, "0.01", String(1))
	assert.Equal(t, "0.00", String(0))
	assert.Equal(t, "-4.00", String(-400))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "$10.50", Format(1050))
	assert.Equal(t, "$1,234.50", Format(123450))
	assert.Equal(t, "$0.07", Format(7))
	assert.Equal(t, "-$12.00", Format(-1200))
	assert.Equal(t, "$1,000,000.00", Format(100000000))
}
