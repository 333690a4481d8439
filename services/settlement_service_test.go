package services

import (
	"context"
	"testing"

	apperrors "github.com/ttiimmothy/expense-splitter/errors"
	"github.com/ttiimmothy/expense-splitter/models"
	"github.com/ttiimmothy/expense-splitter/notify"
)

func (f *fixture) settle(t *testing.T, from, to models.User, amount string) *models.Settlement {
	t.Helper()
	s, err := f.settlements.RecordSettlement(context.Background(), f.groupID, from.ID, RecordSettlementInput{
		FromUserID: from.ID,
		ToUserID:   to.ID,
		Amount:     dec(amount),
	})
	if err != nil {
		t.Fatalf("recording settlement: %v", err)
	}
	return s
}

func TestSuggestSettlements(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, f *fixture)
		want  func(f *fixture) []models.SettlementSuggestion
	}{
		{
			name:  "nothing owed",
			setup: func(t *testing.T, f *fixture) {},
			want:  func(f *fixture) []models.SettlementSuggestion { return nil },
		},
		{
			name: "single payer",
			setup: func(t *testing.T, f *fixture) {
				f.addExpense(t, f.alice, "60", f.alice, f.bob)
			},
			want: func(f *fixture) []models.SettlementSuggestion {
				return []models.SettlementSuggestion{{FromUserID: f.bob.ID, ToUserID: f.alice.ID, Amount: dec("30")}}
			},
		},
		{
			name: "chain collapses",
			setup: func(t *testing.T, f *fixture) {
				// Bob owes Alice 10, Charlie owes Bob 10.
				f.addExpense(t, f.alice, "10", f.bob)
				f.addExpense(t, f.bob, "10", f.charlie)
			},
			want: func(f *fixture) []models.SettlementSuggestion {
				return []models.SettlementSuggestion{{FromUserID: f.charlie.ID, ToUserID: f.alice.ID, Amount: dec("10")}}
			},
		},
		{
			name: "settled after payment",
			setup: func(t *testing.T, f *fixture) {
				f.addExpense(t, f.alice, "60", f.alice, f.bob)
				f.settle(t, f.bob, f.alice, "30")
			},
			want: func(f *fixture) []models.SettlementSuggestion { return nil },
		},
		{
			name: "partial payment",
			setup: func(t *testing.T, f *fixture) {
				f.addExpense(t, f.alice, "60", f.alice, f.bob)
				f.settle(t, f.bob, f.alice, "12.50")
			},
			want: func(f *fixture) []models.SettlementSuggestion {
				return []models.SettlementSuggestion{{FromUserID: f.bob.ID, ToUserID: f.alice.ID, Amount: dec("17.50")}}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(t, f)

			got, err := f.settlements.SuggestSettlements(context.Background(), f.groupID, f.alice.ID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got == nil {
				t.Fatal("expected an empty list, got nil")
			}

			want := tt.want(f)
			if len(got) != len(want) {
				t.Fatalf("expected %d suggestions, got %d: %+v", len(want), len(got), got)
			}
			for i := range want {
				if got[i].FromUserID != want[i].FromUserID || got[i].ToUserID != want[i].ToUserID || !got[i].Amount.Equal(want[i].Amount) {
					t.Errorf("suggestion %d mismatch: got %+v, want %+v", i, got[i], want[i])
				}
			}
		})
	}
}

func TestSuggestSettlementsAccessDenied(t *testing.T) {
	f := newFixture(t)
	_, err := f.settlements.SuggestSettlements(context.Background(), f.groupID, f.outsider.ID)
	wantAppError(t, err, apperrors.CodeNotGroupMember)
}

func TestSuggestionsConvergeWhenApplied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addExpense(t, f.alice, "100")
	f.addExpense(t, f.bob, "45.55", f.bob, f.charlie)
	f.addExpense(t, f.charlie, "19.99", f.alice, f.charlie)

	plan, err := f.settlements.SuggestSettlements(ctx, f.groupID, f.alice.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan) == 0 || len(plan) > 2 {
		t.Fatalf("expected between 1 and n-1 payments, got %d", len(plan))
	}

	for _, s := range plan {
		if _, err := f.settlements.RecordSettlement(ctx, f.groupID, f.alice.ID, RecordSettlementInput{
			FromUserID: s.FromUserID,
			ToUserID:   s.ToUserID,
			Amount:     s.Amount,
		}); err != nil {
			t.Fatalf("recording suggested payment: %v", err)
		}
	}

	balances, err := f.balances.ComputeBalances(ctx, f.groupID, f.alice.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, b := range balances {
		if !b.NetBalance.IsZero() {
			t.Errorf("%s should be settled, got %s", b.UserName, b.NetBalance)
		}
	}

	again, err := f.settlements.SuggestSettlements(ctx, f.groupID, f.alice.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("expected no further payments, got %+v", again)
	}
}

func TestRecordSettlement(t *testing.T) {
	f := newFixture(t)
	f.addExpense(t, f.alice, "60", f.alice, f.bob)
	f.notifier.reset()

	note := "  cash  "
	s, err := f.settlements.RecordSettlement(context.Background(), f.groupID, f.bob.ID, RecordSettlementInput{
		FromUserID: f.bob.ID,
		ToUserID:   f.alice.ID,
		Amount:     dec("30"),
		Note:       &note,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ID == "" || s.CreatedBy != f.bob.ID || s.GroupID != f.groupID {
		t.Errorf("unexpected settlement %+v", s)
	}
	if s.Note == nil || *s.Note != "cash" {
		t.Errorf("expected trimmed note, got %v", s.Note)
	}

	types := f.notifier.types()
	if len(types) != 1 || types[0] != notify.EventSettlementCreated {
		t.Errorf("expected one settlement-created event, got %v", types)
	}
}

func TestRecordSettlementValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name      string
		requester func(f *fixture) string
		input     func(f *fixture) RecordSettlementInput
		code      apperrors.ErrorCode
	}{
		{
			name:      "pay yourself",
			requester: func(f *fixture) string { return f.alice.ID },
			input: func(f *fixture) RecordSettlementInput {
				return RecordSettlementInput{FromUserID: f.alice.ID, ToUserID: f.alice.ID, Amount: dec("1")}
			},
			code: apperrors.CodeInvalidSettlement,
		},
		{
			name:      "zero amount",
			requester: func(f *fixture) string { return f.alice.ID },
			input: func(f *fixture) RecordSettlementInput {
				return RecordSettlementInput{FromUserID: f.bob.ID, ToUserID: f.alice.ID, Amount: dec("0")}
			},
			code: apperrors.CodeInvalidAmount,
		},
		{
			name:      "sub-cent amount",
			requester: func(f *fixture) string { return f.alice.ID },
			input: func(f *fixture) RecordSettlementInput {
				return RecordSettlementInput{FromUserID: f.bob.ID, ToUserID: f.alice.ID, Amount: dec("1.005")}
			},
			code: apperrors.CodeInvalidAmount,
		},
		{
			name:      "amount past the column limit",
			requester: func(f *fixture) string { return f.alice.ID },
			input: func(f *fixture) RecordSettlementInput {
				return RecordSettlementInput{FromUserID: f.bob.ID, ToUserID: f.alice.ID, Amount: dec("10000000000")}
			},
			code: apperrors.CodeInvalidAmount,
		},
		{
			name:      "stranger",
			requester: func(f *fixture) string { return f.alice.ID },
			input: func(f *fixture) RecordSettlementInput {
				return RecordSettlementInput{FromUserID: f.outsider.ID, ToUserID: f.alice.ID, Amount: dec("5")}
			},
			code: apperrors.CodeInvalidSettlement,
		},
		{
			name:      "requester outside group",
			requester: func(f *fixture) string { return f.outsider.ID },
			input: func(f *fixture) RecordSettlementInput {
				return RecordSettlementInput{FromUserID: f.bob.ID, ToUserID: f.alice.ID, Amount: dec("5")}
			},
			code: apperrors.CodeNotGroupMember,
		},
		{
			name:      "malformed party",
			requester: func(f *fixture) string { return f.alice.ID },
			input: func(f *fixture) RecordSettlementInput {
				return RecordSettlementInput{FromUserID: "bob", ToUserID: f.alice.ID, Amount: dec("5")}
			},
			code: apperrors.CodeInvalidUUID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.settlements.RecordSettlement(context.Background(), f.groupID, tt.requester(f), tt.input(f))
			wantAppError(t, err, tt.code)
		})
	}

	if got := f.notifier.types(); len(got) != 0 {
		t.Errorf("rejected settlements must not publish, got %v", got)
	}
}

func TestRecordSettlementWithDepartedMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addExpense(t, f.alice, "60", f.alice, f.charlie)
	if err := f.groups.RemoveMember(ctx, f.groupID, f.alice.ID, f.charlie.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := f.settlements.RecordSettlement(ctx, f.groupID, f.alice.ID, RecordSettlementInput{
		FromUserID: f.charlie.ID,
		ToUserID:   f.alice.ID,
		Amount:     dec("30"),
	}); err != nil {
		t.Fatalf("a past participant can still settle up: %v", err)
	}

	balances, err := f.balances.ComputeBalances(ctx, f.groupID, f.alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if b := balanceOf(t, balances, f.charlie.ID); !b.NetBalance.IsZero() {
		t.Errorf("expected Charlie settled, got %s", b.NetBalance)
	}
}

func TestListSettlements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.settlements.ListSettlements(ctx, f.groupID, f.alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected an empty list, got %v", empty)
	}

	first := f.settle(t, f.bob, f.alice, "5")
	second := f.settle(t, f.charlie, f.alice, "7")

	got, err := f.settlements.ListSettlements(ctx, f.groupID, f.bob.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 settlements, got %d", len(got))
	}
	if got[0].CreatedAt.Before(got[1].CreatedAt) {
		t.Error("expected newest first")
	}
	ids := map[string]bool{got[0].ID: true, got[1].ID: true}
	if !ids[first.ID] || !ids[second.ID] {
		t.Errorf("unexpected settlements %+v", got)
	}

	_, err = f.settlements.ListSettlements(ctx, f.groupID, f.outsider.ID)
	wantAppError(t, err, apperrors.CodeNotGroupMember)
}
