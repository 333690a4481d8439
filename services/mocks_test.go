package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ttiimmothy/expense-splitter/database"
	apperrors "github.com/ttiimmothy/expense-splitter/errors"
	"github.com/ttiimmothy/expense-splitter/models"
	"github.com/ttiimmothy/expense-splitter/notify"
	"github.com/ttiimmothy/expense-splitter/repository"
	"github.com/ttiimmothy/expense-splitter/repository/memory"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (n *recordingNotifier) Publish(_ context.Context, e notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return n.err
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	n.events = nil
	n.mu.Unlock()
}

func (n *recordingNotifier) types() []notify.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.EventType, len(n.events))
	for i, e := range n.events {
		out[i] = e.Type
	}
	return out
}

// failingGroupRepo reports a storage failure on membership checks.
type failingGroupRepo struct {
	repository.GroupRepository
}

func (f *failingGroupRepo) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	return false, errors.New("connection reset")
}

// failingShareRepo fails halfway through writing an expense.
type failingShareRepo struct {
	repository.ExpenseRepository
}

func (f *failingShareRepo) WithTx(tx database.Querier) repository.ExpenseRepository {
	return &failingShareRepo{ExpenseRepository: f.ExpenseRepository.WithTx(tx)}
}

func (f *failingShareRepo) CreateShare(ctx context.Context, share *models.ExpenseShare) error {
	return errors.New("disk full")
}

type fakeGenerator struct {
	prompt string
	text   string
	err    error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.text, f.err
}

type fixture struct {
	store    *memory.Store
	notifier *recordingNotifier

	balances    BalanceService
	settlements SettlementService
	expenses    ExpenseService
	groups      GroupService

	groupID                       string
	alice, bob, charlie, outsider models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	f := &fixture{store: store, notifier: &recordingNotifier{}}
	f.balances = NewBalanceService(store.Groups(), store.Users(), store.Expenses(), store.Settlements(), store.Currencies(), store)
	f.settlements = NewSettlementService(f.balances, store.Groups(), store.Users(), store.Settlements(), store.Currencies(), f.notifier)
	f.expenses = NewExpenseService(store.Expenses(), store.Groups(), store.Currencies(), store, f.notifier)
	f.groups = NewGroupService(store.Groups(), store.Users(), store.Currencies(), f.balances, store, f.notifier, "USD")

	f.alice = newUser(t, store, "alice", "Alice")
	f.bob = newUser(t, store, "bob", "Bob")
	f.charlie = newUser(t, store, "charlie", "Charlie")
	f.outsider = newUser(t, store, "dave", "Dave")

	group, err := f.groups.Create(ctx, f.alice.ID, "Trip", "usd")
	if err != nil {
		t.Fatalf("creating group: %v", err)
	}
	f.groupID = group.ID
	for _, u := range []models.User{f.bob, f.charlie} {
		if _, err := f.groups.AddMember(ctx, f.groupID, f.alice.ID, u.Email); err != nil {
			t.Fatalf("adding %s: %v", u.Name, err)
		}
	}
	f.notifier.reset()
	return f
}

func newUser(t *testing.T, store *memory.Store, key, name string) models.User {
	t.Helper()
	u := models.User{ID: memory.PersonIDFor(key), Email: key + "@example.com", Name: name}
	if err := store.Users().Create(context.Background(), &u); err != nil {
		t.Fatalf("creating user %s: %v", key, err)
	}
	return u
}

func wantAppError(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %s, got nil", code)
	}
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		t.Fatalf("expected *AppError %s, got %T: %v", code, err, err)
	}
	if appErr.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, appErr.Code, appErr.Message)
	}
}
