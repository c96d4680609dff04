package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Cents is a monetary amount in minor currency units. All arithmetic inside the
// core is done in Cents; conversion to decimal currency units happens at the edge.
type Cents int64

var hundred = decimal.NewFromInt(100)

// Decimal returns the amount in major currency units (e.g. 12345 → 123.45).
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// Abs returns the absolute value.
func (c Cents) Abs() Cents {
	if c < 0 {
		return -c
	}
	return c
}

func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// CentsFromDecimal converts a currency amount to Cents, rounding half away from zero.
func CentsFromDecimal(d decimal.Decimal) Cents {
	return Cents(d.Mul(hundred).Round(0).IntPart())
}

// ParseCents parses a decimal currency string such as "319.00".
func ParseCents(s string) (Cents, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return CentsFromDecimal(d), nil
}

// lineValue is quantity × unit price.
func lineValue(quantity int, unitPrice Cents) Cents {
	return Cents(int64(quantity) * int64(unitPrice))
}
