// Package core provides the domain types shared by storage, services and analytics.
//
// This file contains helpers for parsing and dividing monetary amounts. All
// amounts are decimal.Decimal so sums never drift the way floats do.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

var hundred = decimal.NewFromInt(100)

// ParseAmount parses a decimal string such as "-50.00" or "1000".
// A decimal comma is accepted and normalized to a dot.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// Percentage returns part/whole*100, or zero when whole is not positive.
func Percentage(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

// PercentageFloat is Percentage converted to float64 for ratio fields.
func PercentageFloat(part, whole decimal.Decimal) float64 {
	return Percentage(part, whole).InexactFloat64()
}
