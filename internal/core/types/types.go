// Package types provides common value types shared across the domain.
package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors in totals and fees.
type Money = decimal.Decimal

// NewMoney creates a Money value from a float.
// Prefer NewMoneyFromString for values coming off the wire.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// NewMoneyFromString creates a Money value from a string.
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

// Zero returns the zero Money value.
func Zero() Money {
	return decimal.Zero
}

// Quantity is a fixed-point quantity with 4 decimal places (scale 1e4).
//
// Matches Postgres NUMERIC(15,4) semantics without floating point errors and
// stores as BIGINT (scaled integer). JSON stays a plain number.
type Quantity int64

// QuantityScale is the fixed-point scale factor.
const QuantityScale int64 = 10_000

// NewQuantityFromFloat64 converts a float to fixed-point Quantity.
func NewQuantityFromFloat64(v float64) Quantity {
	return Quantity(math.Round(v * float64(QuantityScale)))
}

// NewQuantityFromInt converts a whole-unit count to Quantity.
func NewQuantityFromInt(v int64) Quantity {
	return Quantity(v * QuantityScale)
}

// NewQuantityFromInt64Scaled wraps an already-scaled integer (DB value).
func NewQuantityFromInt64Scaled(v int64) Quantity {
	return Quantity(v)
}

// Float64 converts back to a float for display and arithmetic at boundaries.
func (q Quantity) Float64() float64 {
	return float64(q) / float64(QuantityScale)
}

// Int64Scaled returns the raw scaled integer for storage.
func (q Quantity) Int64Scaled() int64 {
	return int64(q)
}

// Decimal converts to a decimal.Decimal for exact financial arithmetic.
func (q Quantity) Decimal() decimal.Decimal {
	return decimal.New(int64(q), -4)
}

func (q Quantity) IsZero() bool     { return q == 0 }
func (q Quantity) IsPositive() bool { return q > 0 }
func (q Quantity) IsNegative() bool { return q < 0 }

// Neg returns the negated quantity.
func (q Quantity) Neg() Quantity { return -q }

// Abs returns the absolute quantity.
func (q Quantity) Abs() Quantity {
	if q < 0 {
		return -q
	}
	return q
}

// String renders the quantity with trailing zeros trimmed.
func (q Quantity) String() string {
	v := int64(q)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := v / QuantityScale
	frac := v % QuantityScale
	if frac == 0 {
		return sign + strconv.FormatInt(whole, 10)
	}
	s := fmt.Sprintf("%s%d.%04d", sign, whole, frac)
	return strings.TrimRight(s, "0")
}

// MarshalJSON renders Quantity as a plain JSON number.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalJSON accepts both number tokens and numeric strings.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := parseQuantityString(s)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

func parseQuantityString(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}

	// Exponent form is rare on this API; parse it loosely via float.
	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("parse quantity: %w", err)
		}
		return NewQuantityFromFloat64(f), nil
	}

	sign := int64(1)
	switch {
	case strings.HasPrefix(s, "-"):
		sign = -1
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	intStr, fracStr, _ := strings.Cut(s, ".")
	if intStr == "" {
		intStr = "0"
	}
	whole, err := strconv.ParseInt(intStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quantity integer part: %w", err)
	}

	// Normalize fraction to 4 digits: pad right, truncate extras.
	if len(fracStr) > 4 {
		fracStr = fracStr[:4]
	}
	for len(fracStr) < 4 {
		fracStr += "0"
	}
	frac, err := strconv.ParseInt(fracStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quantity fractional part: %w", err)
	}

	return Quantity(sign * (whole*QuantityScale + frac)), nil
}
