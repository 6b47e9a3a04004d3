// Package money holds the fixed-point currency type used across the ledger.
//
// Amounts are stored and summed as integer cents. Decimal values only appear
// at the edges (JSON, user input) and are converted with shopspring/decimal.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Epsilon is the tolerance used wherever the ledger compares sums: one cent.
const Epsilon Cents = 1

var ErrInvalidAmount = errors.New("invalid amount")

// maxCents keeps every sum of a household comfortably inside int64.
var maxCents = decimal.New(1, 15)

// Cents is a signed amount in minor currency units.
type Cents int64

// FromDecimal converts d to cents, rounding half away from zero on the third decimal.
func FromDecimal(d decimal.Decimal) (Cents, error) {
	c := d.Shift(2).Round(0)
	if c.Abs().GreaterThanOrEqual(maxCents) {
		return 0, ErrInvalidAmount
	}
	return Cents(c.IntPart()), nil
}

// Parse accepts "12.34", "12,34", "-3" and similar decimal notations.
func Parse(s string) (Cents, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return FromDecimal(d)
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Cents {
	c, err := Parse(s)
	if err != nil {
		panic("money: cannot parse " + s)
	}
	return c
}

func (c Cents) Decimal() decimal.Decimal { return decimal.New(int64(c), -2) }

func (c Cents) String() string { return c.Decimal().StringFixed(2) }

func (c Cents) Abs() Cents {
	if c < 0 {
		return -c
	}
	return c
}

// Within reports whether c and other differ by at most Epsilon.
func (c Cents) Within(other Cents) bool { return (c - other).Abs() <= Epsilon }

// MarshalJSON writes a plain JSON number with exactly two decimals.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted decimal strings.
func (c *Cents) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return ErrInvalidAmount
	}
	v, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func Sum(values ...Cents) Cents {
	var total Cents
	for _, v := range values {
		total += v
	}
	return total
}
