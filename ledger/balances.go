package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ttiimmothy/expense-splitter/models"
)

// Snapshot is everything the aggregator needs for one group, loaded by the
// caller in a single request.
type Snapshot struct {
	// Members are the group's current members.
	Members []models.User
	// Involved are the users referenced by any expense or settlement of the
	// group, including those who have since left. It may overlap Members.
	Involved    []models.User
	Expenses    []models.Expense
	Settlements []models.Settlement
}

// Result is the outcome of ComputeBalances.
type Result struct {
	Balances []models.Balance
	// Mismatched lists expenses whose shares do not add up to the expense
	// amount. They are still applied as recorded.
	Mismatched []string
}

type UnresolvedParticipantError struct {
	UserID   string
	RecordID string
	Kind     string
}

func (e *UnresolvedParticipantError) Error() string {
	return fmt.Sprintf("%s %s references unknown participant %s", e.Kind, e.RecordID, e.UserID)
}

type MalformedExpenseError struct {
	ExpenseID string
	Reason    string
}

func (e *MalformedExpenseError) Error() string {
	return fmt.Sprintf("expense %s: %s", e.ExpenseID, e.Reason)
}

type participant struct {
	name    string
	current bool
	net     decimal.Decimal
}

// ComputeBalances nets every payer contribution, share obligation and
// settlement into one balance per participant. Positive balances are owed
// money; negative balances owe money. The result is ordered by display name,
// then by participant ID.
func ComputeBalances(snap Snapshot, places int32) (*Result, error) {
	people := make(map[string]*participant, len(snap.Members)+len(snap.Involved))
	for _, u := range snap.Involved {
		people[u.ID] = &participant{name: u.Name}
	}
	for _, u := range snap.Members {
		if p, ok := people[u.ID]; ok {
			p.current = true
			continue
		}
		people[u.ID] = &participant{name: u.Name, current: true}
	}

	lookup := func(userID, kind, recordID string) (*participant, error) {
		p, ok := people[userID]
		if !ok {
			return nil, &UnresolvedParticipantError{UserID: userID, RecordID: recordID, Kind: kind}
		}
		return p, nil
	}

	var mismatched []string
	for _, e := range snap.Expenses {
		if len(e.Payers) == 0 {
			return nil, &MalformedExpenseError{ExpenseID: e.ID, Reason: "no payers"}
		}
		if len(e.Shares) == 0 {
			return nil, &MalformedExpenseError{ExpenseID: e.ID, Reason: "no shares"}
		}

		for _, payer := range e.Payers {
			p, err := lookup(payer.UserID, "expense", e.ID)
			if err != nil {
				return nil, err
			}
			p.net = p.net.Add(payer.Amount)
		}

		owed := decimal.Zero
		for _, share := range e.Shares {
			p, err := lookup(share.UserID, "expense", e.ID)
			if err != nil {
				return nil, err
			}
			p.net = p.net.Sub(share.AmountOwed)
			owed = owed.Add(share.AmountOwed)
		}
		if !owed.Equal(e.Amount) {
			mismatched = append(mismatched, e.ID)
		}
	}

	for _, s := range snap.Settlements {
		from, err := lookup(s.FromUserID, "settlement", s.ID)
		if err != nil {
			return nil, err
		}
		to, err := lookup(s.ToUserID, "settlement", s.ID)
		if err != nil {
			return nil, err
		}
		from.net = from.net.Add(s.Amount)
		to.net = to.net.Sub(s.Amount)
	}

	balances := make([]models.Balance, 0, len(people))
	for id, p := range people {
		balances = append(balances, models.Balance{
			UserID:          id,
			UserName:        p.name,
			NetBalance:      Round(p.net, places),
			IsCurrentMember: p.current,
		})
	}
	sort.Slice(balances, func(i, j int) bool {
		if balances[i].UserName != balances[j].UserName {
			return balances[i].UserName < balances[j].UserName
		}
		return balances[i].UserID < balances[j].UserID
	})

	return &Result{Balances: balances, Mismatched: mismatched}, nil
}

// Sum adds up the net balances. It is zero for a consistent ledger.
func Sum(balances []models.Balance) decimal.Decimal {
	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(b.NetBalance)
	}
	return total
}
