// Package core provides money parsing and formatting utilities.
//
// This file contains functions for parsing monetary amounts typed by users
// and rendering them in the dollar format used across the application.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseAmount converts a user supplied decimal string to a currency amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators, rounds
// half-up to cents and rejects signs, zero and anything that is not a number.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("12.345") -> 12.35, nil (rounds up)
//	ParseAmount("12.344") -> 12.34, nil (rounds down)
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatDollars renders an amount as "$12.34", with a leading minus for
// negative values ("-$3.50").
func FormatDollars(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// Percent returns part/whole*100. The caller guarantees whole is non-zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	return part.Div(whole).Mul(hundred)
}

// PercentOf returns whole*pct/100.
func PercentOf(whole, pct decimal.Decimal) decimal.Decimal {
	return whole.Mul(pct).Div(hundred)
}
