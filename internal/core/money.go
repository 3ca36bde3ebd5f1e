// Package core provides the domain types, money handling and failure
// taxonomy shared by the ledger engine and its boundaries.
//
// All money arithmetic runs on decimal.Decimal; amounts cross every boundary
// as fixed-point values with exactly two fraction digits.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a signed money amount with at most two decimals.
// Both dot (12.34) and comma (12,34) separators are accepted.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("-12,5")  -> -12.50, nil
//	ParseAmount("12.345") -> error (sub-cent precision)
//	ParseAmount("0")      -> error (zero amount)
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty amount", ErrInvalidInput)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q", ErrInvalidInput, s)
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount rejects zero amounts and sub-cent precision.
func ValidateAmount(d decimal.Decimal) error {
	if d.IsZero() {
		return ErrZeroAmount
	}
	if !d.Equal(d.Round(2)) {
		return ErrAmountPrecision
	}
	return nil
}

// FormatAmount renders an amount with exactly two decimals, the canonical
// form for storage and API responses.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
