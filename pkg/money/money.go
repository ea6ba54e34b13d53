// Package money provides integer-penny monetary arithmetic for the
// settlement core. All balances and transfer amounts are int64 pennies;
// rate calculations go through shopspring/decimal and round back to
// pennies, so no float64 ever reaches a ledger balance.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency identifies a currency by its ISO-style code.
type Currency string

// DefaultCurrency is used whenever a caller does not specify one.
const DefaultCurrency Currency = "USD"

var (
	// ErrNegativeAmount is a schema violation: a negative monetary amount
	// reached the ledger boundary. It must be rejected before any state
	// mutation, never coerced.
	ErrNegativeAmount = errors.New("money: negative amount")

	// ErrZeroAmount marks an amount that is not meaningful to settle.
	ErrZeroAmount = errors.New("money: zero amount")
)

// ValidateAmount rejects amounts that may not enter the settlement path.
// Zero is permitted for no-op bookkeeping entries; negative amounts are a
// schema violation.
func ValidateAmount(pennies int64) error {
	if pennies < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeAmount, pennies)
	}
	return nil
}

// ValidatePositive rejects amounts that must be strictly positive, such as
// transfer legs and swap legs.
func ValidatePositive(pennies int64) error {
	if pennies < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeAmount, pennies)
	}
	if pennies == 0 {
		return ErrZeroAmount
	}
	return nil
}

var daysPerYear = decimal.NewFromInt(365)

// DailyInterest computes one day of interest on a principal at an annual
// rate: round(principal * rate / 365), half-up to the nearest penny.
func DailyInterest(principalPennies int64, annualRate float64) int64 {
	if principalPennies <= 0 || annualRate <= 0 {
		return 0
	}
	d := decimal.NewFromInt(principalPennies).
		Mul(decimal.NewFromFloat(annualRate)).
		Div(daysPerYear)
	return RoundToPennies(d)
}

// RoundToPennies rounds a decimal penny quantity to an integer penny,
// half-up.
func RoundToPennies(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// ApplyDiscount returns value * rate truncated toward zero (integer
// division semantics). Liquidation haircuts never round up.
func ApplyDiscount(valuePennies int64, rate float64) int64 {
	if valuePennies <= 0 || rate <= 0 {
		return 0
	}
	d := decimal.NewFromInt(valuePennies).Mul(decimal.NewFromFloat(rate))
	return d.Truncate(0).IntPart()
}

// UnitPrice derives a display price from an authoritative integer total.
// The total is the source of truth; the unit price is never stored back.
func UnitPrice(totalPennies int64, quantity float64) float64 {
	if quantity == 0 {
		return 0
	}
	return float64(totalPennies) / quantity / 100.0
}
