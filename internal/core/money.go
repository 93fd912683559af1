// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between cents and decimal representations.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount stored as integer cents.
type Money struct {
	Cents int64
}

// maxAmount bounds a single parsed amount so cents never overflow.
var maxAmount = decimal.New(1, 12)

// ParseAmount converts a decimal string to Money with half-up rounding to cents.
//
// Only strictly positive amounts are accepted. An amount that rounds to zero
// cents is rejected as well.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234 cents
//	ParseAmount("12.345") -> 1235 cents
//	ParseAmount("0.004")  -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return MoneyFromDecimal(d)
}

// MoneyFromDecimal rounds d to cents and applies the same rules as ParseAmount.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if !d.IsPositive() || d.GreaterThan(maxAmount) {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Round(2).Shift(2).IntPart()
	if cents <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents}, nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}
