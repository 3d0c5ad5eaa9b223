package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is an exact decimal quantity of a commodity.
type Amount struct {
	Number    decimal.Decimal
	Commodity Commodity
}

// NewAmount parses number exactly. Floating point input is never involved.
func NewAmount(number string, commodity Commodity) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(number))
	if err != nil {
		return Amount{}, fmt.Errorf("amount %q: %w", number, err)
	}
	return Amount{Number: d, Commodity: commodity}, nil
}

// MustAmount is NewAmount for literals known to be valid.
func MustAmount(number string, commodity Commodity) Amount {
	a, err := NewAmount(number, commodity)
	if err != nil {
		panic(err)
	}
	return a
}

// ParseAmount reads the "<number> <commodity>" form used by the stream codec.
func ParseAmount(s string) (Amount, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Amount{}, fmt.Errorf("amount %q: want \"<number> <commodity>\"", s)
	}
	return NewAmount(fields[0], Commodity(fields[1]))
}

// IsZero reports whether the quantity is exactly zero.
func (a Amount) IsZero() bool { return a.Number.IsZero() }

// Equal compares quantity numerically and commodity exactly, so 7 and 7.00
// USD are equal.
func (a Amount) Equal(b Amount) bool {
	return a.Commodity == b.Commodity && a.Number.Equal(b.Number)
}

// String keeps the declared scale: 10.00 stays 10.00.
func (a Amount) String() string {
	return FormatNumber(a.Number) + " " + string(a.Commodity)
}

// FormatNumber renders d without dropping trailing zeros of its scale.
func FormatNumber(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}
