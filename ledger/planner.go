package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ttiimmothy/expense-splitter/models"
)

type position struct {
	id     string
	name   string
	amount decimal.Decimal // magnitude still to settle
}

// PlanSettlements pairs the largest remaining creditor with the largest
// remaining debtor until one side runs out. It emits at most n-1 payments
// for n non-settled participants. Equal balances are ordered by participant
// ID so the plan is deterministic.
func PlanSettlements(balances []models.Balance, places int32) []models.SettlementSuggestion {
	var creditors, debtors []*position
	for _, b := range balances {
		net := Round(b.NetBalance, places)
		// Strictly below one minor unit counts as settled. A balance of
		// exactly one unit is a real debt and must get a payment, otherwise
		// applying every suggestion would leave it outstanding.
		if IsSettled(net, places) {
			continue
		}
		p := &position{id: b.UserID, name: b.UserName, amount: net.Abs()}
		if net.IsPositive() {
			creditors = append(creditors, p)
		} else {
			debtors = append(debtors, p)
		}
	}

	byAmountDesc := func(list []*position) {
		sort.SliceStable(list, func(i, j int) bool {
			if c := list[i].amount.Cmp(list[j].amount); c != 0 {
				return c > 0
			}
			return list[i].id < list[j].id
		})
	}
	byAmountDesc(creditors)
	// Debtors hold magnitudes, so descending magnitude is most negative first.
	byAmountDesc(debtors)

	suggestions := make([]models.SettlementSuggestion, 0)
	ci, di := 0, 0
	for ci < len(creditors) && di < len(debtors) {
		creditor, debtor := creditors[ci], debtors[di]

		amount := decimal.Min(creditor.amount, debtor.amount)
		suggestions = append(suggestions, models.SettlementSuggestion{
			FromUserID:   debtor.id,
			FromUserName: debtor.name,
			ToUserID:     creditor.id,
			ToUserName:   creditor.name,
			Amount:       amount,
		})

		creditor.amount = creditor.amount.Sub(amount)
		debtor.amount = debtor.amount.Sub(amount)

		if IsSettled(creditor.amount, places) {
			ci++
		}
		if IsSettled(debtor.amount, places) {
			di++
		}
	}

	return suggestions
}
