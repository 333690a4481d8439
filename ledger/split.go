package ledger

import (
	"errors"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ttiimmothy/expense-splitter/models"
)

var (
	ErrNoParticipants   = errors.New("split needs at least one participant")
	ErrNonPositiveTotal = errors.New("split total must be positive")
	ErrTotalPrecision   = errors.New("split total has more precision than the currency allows")
	ErrTotalTooLarge    = errors.New("split total exceeds the maximum amount")
)

var maxUnits = decimal.NewFromInt(math.MaxInt64)

// SplitEqually divides total among the given users in whole minor units.
// Users are ordered by ID; each receives floor(total/n) units and the
// leftover units go one apiece to the first users in that order, so the
// shares always add up to total exactly. Duplicate IDs are collapsed.
func SplitEqually(total decimal.Decimal, userIDs []string, places int32) ([]models.ExpenseShare, error) {
	if !total.IsPositive() {
		return nil, ErrNonPositiveTotal
	}
	if !FitsPrecision(total, places) {
		return nil, ErrTotalPrecision
	}
	if !WithinLimit(total) {
		return nil, ErrTotalTooLarge
	}
	shifted := total.Shift(places)
	if shifted.GreaterThan(maxUnits) {
		return nil, ErrTotalTooLarge
	}

	seen := make(map[string]bool, len(userIDs))
	ids := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, ErrNoParticipants
	}
	sort.Strings(ids)

	units := shifted.IntPart()
	n := int64(len(ids))
	base, leftover := units/n, units%n

	shares := make([]models.ExpenseShare, len(ids))
	for i, id := range ids {
		u := base
		if int64(i) < leftover {
			u++
		}
		shares[i] = models.ExpenseShare{
			UserID:     id,
			AmountOwed: decimal.New(u, -places),
		}
	}
	return shares, nil
}
