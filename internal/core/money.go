// Package core holds the domain model and the ledger computations.
//
// Monetary values are shopspring decimals throughout; this file contains the
// parsing and formatting helpers used at the HTTP and import boundaries.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a transaction amount. It accepts both dot and comma
// decimal separators and rejects non-positive values: direction is carried by
// the transaction kind, never by sign.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() || d.IsZero() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseBalance parses an account balance. Balances may legitimately be
// negative (credit cards, the debt ledger) or zero.
func ParseBalance(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders a decimal with two fraction digits for display.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
