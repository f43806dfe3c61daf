package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// Precision rules for all mutating operations: currency amounts round to
// 2 decimal places, asset quantities to 8. Rounding is half away from zero
// and happens once per operation, never on intermediate products.
const (
	CurrencyPlaces int32 = 2
	QuantityPlaces int32 = 8
)

// RoundCurrency rounds a money amount to currency resolution.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

// RoundQuantity rounds an asset quantity to quantity resolution.
func RoundQuantity(d decimal.Decimal) decimal.Decimal {
	return d.Round(QuantityPlaces)
}

// QuantityFromFloat converts a user-supplied quantity into a valid trade
// quantity. Non-finite values and values that are not strictly positive at
// quantity resolution are rejected with ErrInvalidQuantity.
func QuantityFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, ErrInvalidQuantity
	}
	q := RoundQuantity(decimal.NewFromFloat(f))
	if !q.IsPositive() {
		return decimal.Zero, ErrInvalidQuantity
	}
	return q, nil
}
