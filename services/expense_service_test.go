package services

import (
	"context"
	"strings"
	"testing"

	apperrors "github.com/ttiimmothy/expense-splitter/errors"
	"github.com/ttiimmothy/expense-splitter/models"
	"github.com/ttiimmothy/expense-splitter/notify"
)

func TestCreateExpenseDefaults(t *testing.T) {
	f := newFixture(t)

	e, err := f.expenses.Create(context.Background(), f.groupID, f.bob.ID, CreateExpenseInput{
		Description: "  Groceries ",
		Amount:      dec("100"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if e.Description != "Groceries" || e.Split != models.SplitModeEqual || e.CreatedBy != f.bob.ID {
		t.Errorf("unexpected expense %+v", e)
	}
	if len(e.Payers) != 1 || e.Payers[0].UserID != f.bob.ID || !e.Payers[0].Amount.Equal(dec("100")) {
		t.Errorf("expected the requester to pay everything, got %+v", e.Payers)
	}
	if len(e.Shares) != 3 {
		t.Fatalf("expected a share per member, got %d", len(e.Shares))
	}
	// Shares come back in participant ID order; the first takes the leftover cent.
	want := []string{"33.34", "33.33", "33.33"}
	for i, sh := range e.Shares {
		if !sh.AmountOwed.Equal(dec(want[i])) {
			t.Errorf("share %d: got %s, want %s", i, sh.AmountOwed, want[i])
		}
		if i > 0 && e.Shares[i-1].UserID > sh.UserID {
			t.Errorf("shares out of ID order at %d", i)
		}
	}

	types := f.notifier.types()
	if len(types) != 1 || types[0] != notify.EventExpenseCreated {
		t.Errorf("expected one expense-created event, got %v", types)
	}
}

func TestCreateExpenseCustomSplit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e, err := f.expenses.Create(ctx, f.groupID, f.alice.ID, CreateExpenseInput{
		Description: "Hotel",
		Amount:      dec("250"),
		Split:       models.SplitModeCustom,
		Payers: []AmountInput{
			{UserID: f.alice.ID, Amount: dec("200")},
			{UserID: f.bob.ID, Amount: dec("50")},
		},
		Shares: []AmountInput{
			{UserID: f.alice.ID, Amount: dec("100")},
			{UserID: f.bob.ID, Amount: dec("150")},
			{UserID: f.charlie.ID, Amount: dec("0")},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(e.Payers) != 2 || len(e.Shares) != 3 {
		t.Fatalf("unexpected lines: %d payers, %d shares", len(e.Payers), len(e.Shares))
	}

	balances, err := f.balances.ComputeBalances(ctx, f.groupID, f.alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	for id, want := range map[string]string{f.alice.ID: "100", f.bob.ID: "-100", f.charlie.ID: "0"} {
		if got := balanceOf(t, balances, id).NetBalance; !got.Equal(dec(want)) {
			t.Errorf("%s: got %s, want %s", id, got, want)
		}
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name      string
		requester func(f *fixture) string
		input     func(f *fixture) CreateExpenseInput
		code      apperrors.ErrorCode
	}{
		{
			name: "empty description",
			input: func(f *fixture) CreateExpenseInput {
				return CreateExpenseInput{Description: "   ", Amount: dec("10")}
			},
			code: apperrors.CodeInvalidRequest,
		},
		{
			name: "description too long",
			input: func(f *fixture) CreateExpenseInput {
				return CreateExpenseInput{Description: strings.Repeat("x", MaxDescriptionLength+1), Amount: dec("10")}
			},
			code: apperrors.CodeInvalidRequest,
		},
		{
			name: "negative amount",
			input: func(f *fixture) CreateExpenseInput {
				return CreateExpenseInput{Description: "Taxi", Amount: dec("-10")}
			},
			code: apperrors.CodeInvalidAmount,
		},
		{
			name: "amount past the column limit",
			input: func(f *fixture) CreateExpenseInput {
				return CreateExpenseInput{Description: "Yacht", Amount: dec("100000000000000000000")}
			},
			code: apperrors.CodeInvalidAmount,
		},
		{
			name: "payers do not add up",
			input: func(f *fixture) CreateExpenseInput {
				return CreateExpenseInput{Description: "Taxi", Amount: dec("10"), Payers: []AmountInput{{UserID: f.alice.ID, Amount: dec("9.99")}}}
			},
			code: apperrors.CodeAmountMismatch,
		},
		{
			name: "duplicate payer",
			input: func(f *fixture) CreateExpenseInput {
				return CreateExpenseInput{Description: "Taxi", Amount: dec("10"), Payers: []AmountInput{
					{UserID: f.alice.ID, Amount: dec("5")},
					{UserID: f.alice.ID, Amount: dec("5")},
				}}
			},
			code: apperrors.CodeInvalidRequest,
		},
		{
			name: "payer outside group",
			input: func(f *fixture) CreateExpenseInput {
				return CreateExpenseInput{Description: "Taxi", Amount: dec("10"), Payers: []AmountInput{{UserID: f.outsider.ID, Amount: dec("10")}}}
			},
			code: apperrors.CodeInvalidRequest,
		},
		{
			name: "participant outside group",
			input: func(f *fixture) CreateExpenseInput {
				return CreateExpenseInput{Description: "Taxi", Amount: dec("10"), Participants: []string{f.alice.ID, f.outsider.ID}}
			},
			code: apperrors.CodeInvalidRequest,
		},
		{
			name: "custom without shares",
			input: func(f *fixture) CreateExpenseInput {
				return CreateExpenseInput{Description: "Taxi", Amount: dec("10"), Split: models.SplitModeCustom}
			},
			code: apperrors.CodeMissingRequiredField,
		},
		{
			name: "custom shares do not add up",
			input: func(f *fixture) CreateExpenseInput {
				return CreateExpenseInput{Description: "Taxi", Amount: dec("10"), Split: models.SplitModeCustom, Shares: []AmountInput{
					{UserID: f.alice.ID, Amount: dec("4")},
					{UserID: f.bob.ID, Amount: dec("5")},
				}}
			},
			code: apperrors.CodeAmountMismatch,
		},
		{
			name: "negative share",
			input: func(f *fixture) CreateExpenseInput {
				return CreateExpenseInput{Description: "Taxi", Amount: dec("10"), Split: models.SplitModeCustom, Shares: []AmountInput{
					{UserID: f.alice.ID, Amount: dec("15")},
					{UserID: f.bob.ID, Amount: dec("-5")},
				}}
			},
			code: apperrors.CodeInvalidAmount,
		},
		{
			name: "unknown split",
			input: func(f *fixture) CreateExpenseInput {
				return CreateExpenseInput{Description: "Taxi", Amount: dec("10"), Split: "PERCENT"}
			},
			code: apperrors.CodeInvalidFieldFormat,
		},
		{
			name:      "requester outside group",
			requester: func(f *fixture) string { return f.outsider.ID },
			input: func(f *fixture) CreateExpenseInput {
				return CreateExpenseInput{Description: "Taxi", Amount: dec("10")}
			},
			code: apperrors.CodeNotGroupMember,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requester := f.alice.ID
			if tt.requester != nil {
				requester = tt.requester(f)
			}
			_, err := f.expenses.Create(context.Background(), f.groupID, requester, tt.input(f))
			wantAppError(t, err, tt.code)
		})
	}

	if got := f.notifier.types(); len(got) != 0 {
		t.Errorf("rejected expenses must not publish, got %v", got)
	}
}

func TestCreateExpenseRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewExpenseService(&failingShareRepo{f.store.Expenses()}, f.store.Groups(), f.store.Currencies(), f.store, f.notifier)

	_, err := svc.Create(ctx, f.groupID, f.alice.ID, CreateExpenseInput{Description: "Dinner", Amount: dec("30")})
	wantAppError(t, err, apperrors.CodeDatabaseError)

	expenses, err := f.expenses.ListByGroup(ctx, f.groupID, f.alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(expenses) != 0 {
		t.Errorf("expected the partial expense to be rolled back, got %d", len(expenses))
	}
	if got := f.notifier.types(); len(got) != 0 {
		t.Errorf("failed writes must not publish, got %v", got)
	}
}

func TestListExpenses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addExpense(t, f.alice, "10")
	f.addExpense(t, f.bob, "20")

	got, err := f.expenses.ListByGroup(ctx, f.groupID, f.charlie.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 expenses, got %d", len(got))
	}
	if got[0].CreatedAt.Before(got[1].CreatedAt) {
		t.Error("expected newest first")
	}
	for _, e := range got {
		if len(e.Payers) == 0 || len(e.Shares) == 0 {
			t.Errorf("expense %s missing lines", e.ID)
		}
	}

	_, err = f.expenses.ListByGroup(ctx, f.groupID, f.outsider.ID)
	wantAppError(t, err, apperrors.CodeNotGroupMember)
	_, err = f.expenses.ListByGroup(ctx, "nope", f.alice.ID)
	wantAppError(t, err, apperrors.CodeInvalidUUID)
}
