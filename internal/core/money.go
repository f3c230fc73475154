// Package core provides money parsing and handling utilities.
//
// Amounts are kept as signed int64 cents. Conversions to and from decimal
// text go through shopspring/decimal so no float rounding leaks into the
// persisted document.
package core

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used for display when none is configured.
const DefaultCurrency = "USD"

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. The result is always positive cents.
// Returns an error for invalid formats, negative values, or zero amounts.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil (rounds up)
//	ParseDecimalToCents("12.344") -> 1234, nil (rounds down)
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Sign is carried by the transaction kind, not the amount.
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if r < '0' || r > '9' {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// ParseMoney parses a strictly positive user-entered amount.
func ParseMoney(s string) (Money, error) {
	cents, err := ParseDecimalToCents(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: cents}, nil
}

// Cents is a shorthand constructor.
func Cents(c int64) Money { return Money{Cents: c} }

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(n Money) Money        { return Money{Cents: m.Cents + n.Cents} }
func (m Money) Sub(n Money) Money        { return Money{Cents: m.Cents - n.Cents} }
func (m Money) Neg() Money               { return Money{Cents: -m.Cents} }
func (m Money) IsZero() bool             { return m.Cents == 0 }
func (m Money) IsPositive() bool         { return m.Cents > 0 }
func (m Money) IsNegative() bool         { return m.Cents < 0 }
func (m Money) LessThan(n Money) bool    { return m.Cents < n.Cents }
func (m Money) Decimal() decimal.Decimal { return decimal.New(m.Cents, -2) }

func (m Money) Abs() Money {
	if m.Cents < 0 {
		return m.Neg()
	}
	return m
}

// Max returns the larger of m and n.
func (m Money) Max(n Money) Money {
	if m.Cents < n.Cents {
		return n
	}
	return m
}

// String returns the amount with two decimals, e.g. "-300.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Format renders the amount in the given ISO 4217 currency, e.g. "$1,234.56".
// Unknown codes fall back to the plain decimal string followed by the code.
func (m Money) Format(currency string) string {
	if money.GetCurrency(currency) == nil {
		return m.String() + " " + currency
	}
	return money.New(m.Cents, currency).Display()
}

// IsKnownCurrency reports whether code is a currency go-money can format.
func IsKnownCurrency(code string) bool {
	return money.GetCurrency(code) != nil
}

// MarshalJSON writes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number, a numeric string or null. Empty
// strings and null decode to zero.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		m.Cents = 0
		return nil
	}
	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("amount %s: %w", s, err)
		}
		s = strings.TrimSpace(unq)
		if s == "" {
			m.Cents = 0
			return nil
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("amount %q: %w", s, ErrInvalidAmount)
	}
	cents := d.Shift(2).Round(0)
	if cents.LessThan(minCents) || cents.GreaterThan(maxCents) {
		return fmt.Errorf("amount %q out of range: %w", s, ErrInvalidAmount)
	}
	m.Cents = cents.IntPart()
	return nil
}

var (
	minCents = decimal.NewFromInt(math.MinInt64)
	maxCents = decimal.NewFromInt(math.MaxInt64)
)
