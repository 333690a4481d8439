// Package ledger derives net balances and settlement plans from a group's
// expenses and recorded settlements. Everything here is pure: callers load
// the records and pass them in.
package ledger

import (
	"github.com/shopspring/decimal"
)

// DefaultPlaces is the minor-unit precision used when a currency has none
// on record.
const DefaultPlaces int32 = 2

// MaxAmount is the exclusive upper bound on any single amount. Amounts are
// stored as NUMERIC(14, 4), which leaves ten integer digits.
var MaxAmount = decimal.New(1, 10)

// Round applies the single rounding rule used for every amount the engine
// emits: half away from zero at the currency's minor unit.
func Round(amount decimal.Decimal, places int32) decimal.Decimal {
	return amount.Round(places)
}

// MinorUnit returns the smallest representable amount, e.g. 0.01 for two
// places.
func MinorUnit(places int32) decimal.Decimal {
	return decimal.New(1, -places)
}

// IsSettled reports whether an amount is smaller than one minor unit in
// magnitude.
func IsSettled(amount decimal.Decimal, places int32) bool {
	return amount.Abs().LessThan(MinorUnit(places))
}

// FitsPrecision reports whether amount carries no digits beyond the minor
// unit.
func FitsPrecision(amount decimal.Decimal, places int32) bool {
	return amount.Equal(amount.Truncate(places))
}

// WithinLimit reports whether amount is smaller than MaxAmount in magnitude.
func WithinLimit(amount decimal.Decimal) bool {
	return amount.Abs().LessThan(MaxAmount)
}
