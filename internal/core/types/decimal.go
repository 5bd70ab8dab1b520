// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// NewMoney creates a Money value from a float.
// WARNING: Use NewMoneyFromString for precise values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

var hundred = decimal.NewFromInt(100)

// RoundPercent rounds a percentage to 2 decimal places, half away from zero.
// Currency sums stay unrounded until presentation; only derived percentages
// pass through here.
func RoundPercent(d Money) Money {
	return d.Round(2)
}

// PercentOf returns part/whole*100 rounded to 2 places, or zero when the
// denominator is not positive. Division by a zero denominator is a legitimate
// "no sales yet" state, never an error.
func PercentOf(part, whole Money) Money {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return RoundPercent(part.Div(whole).Mul(hundred))
}

// SafeDiv returns num/den, or zero when den is zero.
func SafeDiv(num, den Money) Money {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den)
}
