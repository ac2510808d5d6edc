// Package core provides the domain model shared by the reconciliation and
// analytics engines: transactions, import bookkeeping, derived aggregates,
// and amount parsing.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a spreadsheet amount cell into an exact decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and strips
// thin formatting (spaces, currency markers the loaders already removed leave
// only digit grouping commas to worry about: "1,234.56" parses as 1234.56).
// Amounts must be strictly positive; direction is carried by the transaction
// type, not the sign.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}

	// "1,234.56" -> grouping commas; "12,34" -> decimal comma.
	if strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", "")
	} else if strings.Count(s, ",") == 1 {
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
