package importer

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeHeader turns a column title into a field key: the words are
// lower-cased and joined, with the first letter of every word after the
// first upper-cased, so "Transaction Details" becomes "transactionDetails".
// Only spaces separate words; "Funds In-Out" becomes "fundsIn-out".
func NormalizeHeader(h string) string {
	lower := cases.Lower(language.Und)
	upper := cases.Upper(language.Und)

	words := strings.Split(strings.TrimSpace(h), " ")
	var b strings.Builder
	for i, w := range words {
		w = lower.String(w)
		if i == 0 || w == "" {
			b.WriteString(w)
			continue
		}
		_, size := utf8.DecodeRuneInString(w)
		b.WriteString(upper.String(w[:size]))
		b.WriteString(w[size:])
	}
	return b.String()
}
