// Package memory is an in-process implementation of the repository
// interfaces. The settle CLI loads ledger files into it, and tests use it
// in place of PostgreSQL.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ttiimmothy/expense-splitter/database"
	apperrors "github.com/ttiimmothy/expense-splitter/errors"
	"github.com/ttiimmothy/expense-splitter/models"
	"github.com/ttiimmothy/expense-splitter/repository"
)

type state struct {
	users       map[string]models.User
	groups      map[string]models.Group
	members     map[string]map[string]models.GroupMember
	expenses    []models.Expense
	settlements []models.Settlement
	currencies  map[string]models.Currency
}

func (st *state) clone() *state {
	c := &state{
		users:       make(map[string]models.User, len(st.users)),
		groups:      make(map[string]models.Group, len(st.groups)),
		members:     make(map[string]map[string]models.GroupMember, len(st.members)),
		expenses:    append([]models.Expense(nil), st.expenses...),
		settlements: append([]models.Settlement(nil), st.settlements...),
		currencies:  make(map[string]models.Currency, len(st.currencies)),
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.groups {
		c.groups[k] = v
	}
	for g, ms := range st.members {
		inner := make(map[string]models.GroupMember, len(ms))
		for k, v := range ms {
			inner[k] = v
		}
		c.members[g] = inner
	}
	for k, v := range st.currencies {
		c.currencies[k] = v
	}
	return c
}

// Store holds every record in memory. It is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	st   *state
	now  func() time.Time
}

func NewStore() *Store {
	s := &Store{
		st: &state{
			users:      make(map[string]models.User),
			groups:     make(map[string]models.Group),
			members:    make(map[string]map[string]models.GroupMember),
			currencies: make(map[string]models.Currency),
		},
		now: time.Now,
	}
	for _, c := range []models.Currency{
		{Code: "USD", Name: "US Dollar", Symbol: "$", MinorUnits: 2},
		{Code: "EUR", Name: "Euro", Symbol: "€", MinorUnits: 2},
		{Code: "GBP", Name: "British Pound", Symbol: "£", MinorUnits: 2},
		{Code: "INR", Name: "Indian Rupee", Symbol: "₹", MinorUnits: 2},
		{Code: "JPY", Name: "Japanese Yen", Symbol: "¥", MinorUnits: 0},
		{Code: "KWD", Name: "Kuwaiti Dinar", Symbol: "KD", MinorUnits: 3},
	} {
		s.st.currencies[c.Code] = c
	}
	return s
}

// SetClock replaces the time source used for created_at stamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// WithTx runs fn with all-or-nothing semantics: if fn fails, every write it
// made is discarded. Transactions are serialized. The Querier passed to fn
// is nil; memory repositories ignore it.
func (s *Store) WithTx(ctx context.Context, fn func(database.Querier) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	saved := s.st.clone()
	s.mu.RUnlock()

	if err := fn(nil); err != nil {
		s.mu.Lock()
		s.st = saved
		s.mu.Unlock()
		return err
	}
	return nil
}

// ReadSnapshot runs fn with no transaction in progress. Writes made outside
// WithTx can still interleave with fn.
func (s *Store) ReadSnapshot(ctx context.Context, fn func(database.Querier) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(nil)
}

func (s *Store) Groups() repository.GroupRepository           { return &groupRepo{s} }
func (s *Store) Users() repository.UserRepository             { return &userRepo{s} }
func (s *Store) Expenses() repository.ExpenseRepository       { return &expenseRepo{s} }
func (s *Store) Settlements() repository.SettlementRepository { return &settlementRepo{s} }
func (s *Store) Currencies() repository.CurrencyRepository    { return &currencyRepo{s} }

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, apperrors.ErrNotFound)
}

type groupRepo struct{ s *Store }

func (r *groupRepo) WithTx(database.Querier) repository.GroupRepository { return r }

func (r *groupRepo) GetByID(ctx context.Context, id string) (*models.Group, error) {
	r.s.mu.RLock()
	g, ok := r.s.st.groups[id]
	r.s.mu.RUnlock()
	if !ok {
		return nil, notFound("group", id)
	}
	members, err := r.GetMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	g.Members = members
	return &g, nil
}

func (r *groupRepo) GetByUserID(_ context.Context, userID string) ([]models.Group, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	groups := []models.Group{}
	for id, g := range r.s.st.groups {
		if _, ok := r.s.st.members[id][userID]; ok {
			groups = append(groups, g)
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		if !groups[i].UpdatedAt.Equal(groups[j].UpdatedAt) {
			return groups[i].UpdatedAt.After(groups[j].UpdatedAt)
		}
		return groups[i].ID < groups[j].ID
	})
	return groups, nil
}

func (r *groupRepo) Create(_ context.Context, group *models.Group) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.groups[group.ID]; ok {
		return fmt.Errorf("creating group: duplicate key %s", group.ID)
	}
	now := r.s.now()
	group.CreatedAt, group.UpdatedAt = now, now
	stored := *group
	stored.Members = nil
	r.s.st.groups[group.ID] = stored
	return nil
}

func (r *groupRepo) AddMember(_ context.Context, groupID, userID string, role models.MemberRole) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.groups[groupID]; !ok {
		return notFound("group", groupID)
	}
	if _, ok := r.s.st.users[userID]; !ok {
		return notFound("user", userID)
	}
	ms := r.s.st.members[groupID]
	if ms == nil {
		ms = make(map[string]models.GroupMember)
		r.s.st.members[groupID] = ms
	}
	if _, ok := ms[userID]; ok {
		return nil
	}
	ms[userID] = models.GroupMember{GroupID: groupID, UserID: userID, Role: role, JoinedAt: r.s.now()}
	return nil
}

func (r *groupRepo) RemoveMember(_ context.Context, groupID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.st.members[groupID], userID)
	return nil
}

func (r *groupRepo) GetMembers(_ context.Context, groupID string) ([]models.GroupMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.GroupMember{}
	for _, m := range r.s.st.members[groupID] {
		u := r.s.st.users[m.UserID]
		m.User = &u
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return lessUser(*out[i].User, *out[j].User)
	})
	return out, nil
}

func (r *groupRepo) ListMembers(_ context.Context, groupID string) ([]models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	users := []models.User{}
	for userID := range r.s.st.members[groupID] {
		users = append(users, r.s.st.users[userID])
	}
	sortUsers(users)
	return users, nil
}

func (r *groupRepo) IsMember(_ context.Context, groupID, userID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.st.members[groupID][userID]
	return ok, nil
}

type userRepo struct{ s *Store }

func (r *userRepo) WithTx(database.Querier) repository.UserRepository { return r }

func (r *userRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.st.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.st.users {
		if u.Email != "" && strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, notFound("user with email", email)
}

func (r *userRepo) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	if existing, ok := r.s.st.users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
	} else {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.s.st.users[user.ID] = *user
	return nil
}

func (r *userRepo) FindInvolvedInGroup(_ context.Context, groupID string) ([]models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := make(map[string]bool)
	for userID := range r.s.st.members[groupID] {
		ids[userID] = true
	}
	for _, e := range r.s.st.expenses {
		if e.GroupID != groupID {
			continue
		}
		for _, p := range e.Payers {
			ids[p.UserID] = true
		}
		for _, sh := range e.Shares {
			ids[sh.UserID] = true
		}
	}
	for _, st := range r.s.st.settlements {
		if st.GroupID != groupID {
			continue
		}
		ids[st.FromUserID] = true
		ids[st.ToUserID] = true
	}

	users := []models.User{}
	for id := range ids {
		// Unknown ids are left out, as the SQL join would.
		if u, ok := r.s.st.users[id]; ok {
			users = append(users, u)
		}
	}
	sortUsers(users)
	return users, nil
}

type expenseRepo struct{ s *Store }

func (r *expenseRepo) WithTx(database.Querier) repository.ExpenseRepository { return r }

func (r *expenseRepo) GetByID(_ context.Context, id string) (*models.Expense, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, e := range r.s.st.expenses {
		if e.ID == id {
			e = copyExpense(e)
			return &e, nil
		}
	}
	return nil, notFound("expense", id)
}

func (r *expenseRepo) ListByGroup(_ context.Context, groupID string) ([]models.Expense, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Expense{}
	for _, e := range r.s.st.expenses {
		if e.GroupID == groupID {
			out = append(out, copyExpense(e))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *expenseRepo) Create(_ context.Context, expense *models.Expense) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.st.expenses {
		if e.ID == expense.ID {
			return fmt.Errorf("creating expense: duplicate key %s", expense.ID)
		}
	}
	expense.CreatedAt = r.s.now()
	stored := *expense
	stored.Payers = []models.ExpensePayer{}
	stored.Shares = []models.ExpenseShare{}
	r.s.st.expenses = append(r.s.st.expenses, stored)
	return nil
}

func (r *expenseRepo) CreatePayer(_ context.Context, payer *models.ExpensePayer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.st.expenses {
		if r.s.st.expenses[i].ID == payer.ExpenseID {
			e := &r.s.st.expenses[i]
			e.Payers = append(append([]models.ExpensePayer(nil), e.Payers...), *payer)
			return nil
		}
	}
	return notFound("expense", payer.ExpenseID)
}

func (r *expenseRepo) CreateShare(_ context.Context, share *models.ExpenseShare) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.st.expenses {
		if r.s.st.expenses[i].ID == share.ExpenseID {
			e := &r.s.st.expenses[i]
			e.Shares = append(append([]models.ExpenseShare(nil), e.Shares...), *share)
			return nil
		}
	}
	return notFound("expense", share.ExpenseID)
}

func (r *expenseRepo) GetPayersByExpenseIDs(_ context.Context, expenseIDs []string) (map[string][]models.ExpensePayer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	want := toSet(expenseIDs)
	result := make(map[string][]models.ExpensePayer)
	for _, e := range r.s.st.expenses {
		if want[e.ID] {
			result[e.ID] = append([]models.ExpensePayer(nil), e.Payers...)
		}
	}
	return result, nil
}

func (r *expenseRepo) GetSharesByExpenseIDs(_ context.Context, expenseIDs []string) (map[string][]models.ExpenseShare, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	want := toSet(expenseIDs)
	result := make(map[string][]models.ExpenseShare)
	for _, e := range r.s.st.expenses {
		if want[e.ID] {
			result[e.ID] = append([]models.ExpenseShare(nil), e.Shares...)
		}
	}
	return result, nil
}

type settlementRepo struct{ s *Store }

func (r *settlementRepo) WithTx(database.Querier) repository.SettlementRepository { return r }

func (r *settlementRepo) Create(_ context.Context, settlement *models.Settlement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	settlement.CreatedAt = r.s.now()
	r.s.st.settlements = append(r.s.st.settlements, *settlement)
	return nil
}

func (r *settlementRepo) ListByGroup(_ context.Context, groupID string) ([]models.Settlement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Settlement{}
	for _, st := range r.s.st.settlements {
		if st.GroupID == groupID {
			out = append(out, st)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type currencyRepo struct{ s *Store }

func (r *currencyRepo) GetAll(_ context.Context) ([]models.Currency, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Currency, 0, len(r.s.st.currencies))
	for _, c := range r.s.st.currencies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *currencyRepo) GetByCode(_ context.Context, code string) (*models.Currency, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.st.currencies[code]
	if !ok {
		return nil, notFound("currency", code)
	}
	return &c, nil
}

func copyExpense(e models.Expense) models.Expense {
	e.Payers = append([]models.ExpensePayer{}, e.Payers...)
	e.Shares = append([]models.ExpenseShare{}, e.Shares...)
	return e
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func lessUser(a, b models.User) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID < b.ID
}

func sortUsers(users []models.User) {
	sort.Slice(users, func(i, j int) bool { return lessUser(users[i], users[j]) })
}
