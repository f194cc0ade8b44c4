package domain

import (
	"bytes"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// MinorUnitScale is the number of decimal places carried by an Amount.
const MinorUnitScale = 2

var (
	maxAmount = decimal.NewFromInt(math.MaxInt64)
	minAmount = decimal.NewFromInt(-math.MaxInt64)
)

// Amount is a signed monetary value held in integral minor units (cents).
// All comparisons inside the engine are exact integer comparisons.
type Amount int64

// NewAmountFromFloat converts a floating input into minor units. The input may
// sit at most tolerance (in major units) away from a representable value;
// anything further is rejected with ErrPrecision.
func NewAmountFromFloat(f float64, tolerance decimal.Decimal) (Amount, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v is not a finite number", ErrPrecision, f)
	}
	return AmountFromDecimal(decimal.NewFromFloat(f), tolerance)
}

// ParseAmount parses a decimal string such as "120.50" or "-20".
func ParseAmount(s string, tolerance decimal.Decimal) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: could not parse amount '%s': %v", ErrInvalidInput, s, err)
	}
	return AmountFromDecimal(d, tolerance)
}

// AmountFromDecimal rounds d to minor units, refusing values that lose more
// than tolerance or do not fit the fixed-precision range.
func AmountFromDecimal(d, tolerance decimal.Decimal) (Amount, error) {
	minor := d.Shift(MinorUnitScale)
	rounded := minor.Round(0)

	if minor.Sub(rounded).Abs().GreaterThan(tolerance.Abs().Shift(MinorUnitScale)) {
		return 0, fmt.Errorf("%w: %s has more than %d decimal places", ErrPrecision, d.String(), MinorUnitScale)
	}
	if rounded.GreaterThan(maxAmount) || rounded.LessThan(minAmount) {
		return 0, fmt.Errorf("%w: %s overflows the amount range", ErrPrecision, d.String())
	}
	return Amount(rounded.IntPart()), nil
}

// MustParseAmount is ParseAmount with zero tolerance that panics on error.
// Intended for literals in tests.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s, decimal.Zero)
	if err != nil {
		panic(err)
	}
	return a
}

// Decimal returns the amount in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -MinorUnitScale)
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(MinorUnitScale)
}

func (a Amount) Abs() Amount {
	if a < 0 {
		return -a
	}
	return a
}

// MarshalJSON renders the amount as a JSON number with two decimals.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or string and requires an exact value.
func (a *Amount) UnmarshalJSON(b []byte) error {
	parsed, err := ParseAmount(string(bytes.Trim(b, `"`)), decimal.Zero)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// addChecked adds b to a and reports whether the result stayed in range.
func addChecked(a, b Amount) (Amount, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}
