package memory

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ttiimmothy/expense-splitter/ledger"
	"github.com/ttiimmothy/expense-splitter/models"
)

// File is the on-disk ledger format. People are referred to by short keys;
// amounts are quoted strings so they are read exactly.
//
//	group = "Cabin weekend"
//	currency = "USD"
//	members = ["alice", "bob"]
//
//	[people.alice]
//	name = "Alice"
//
//	[[expenses]]
//	description = "Groceries"
//	amount = "90.00"
//	participants = ["alice", "bob", "charlie"]
//	[expenses.paid]
//	alice = "90.00"
type File struct {
	Group       string                `toml:"group"`
	Currency    string                `toml:"currency"`
	Members     []string              `toml:"members"`
	People      map[string]FilePerson `toml:"people"`
	Expenses    []FileExpense         `toml:"expenses"`
	Settlements []FileSettlement      `toml:"settlements"`
}

type FilePerson struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

type FileExpense struct {
	Description string `toml:"description"`
	Amount      string `toml:"amount"`
	// Split is EQUAL (default) or CUSTOM.
	Split        string            `toml:"split"`
	Participants []string          `toml:"participants"`
	Paid         map[string]string `toml:"paid"`
	Shares       map[string]string `toml:"shares"`
}

type FileSettlement struct {
	From   string `toml:"from"`
	To     string `toml:"to"`
	Amount string `toml:"amount"`
	Note   string `toml:"note"`
}

// Ledger is a ledger file loaded into a Store.
type Ledger struct {
	Store    *Store
	GroupID  string
	Currency string
	people   map[string]string
	owner    string
}

// PersonID resolves a person key from the file to its user ID.
func (l *Ledger) PersonID(key string) (string, bool) {
	id, ok := l.people[key]
	return id, ok
}

// OwnerID is the first listed member.
func (l *Ledger) OwnerID() string {
	return l.owner
}

// PersonIDFor derives the stable user ID for a person key.
func PersonIDFor(key string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("person/"+key)).String()
}

func groupIDFor(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("group/"+name)).String()
}

func LoadFile(path string) (*Ledger, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) (*Ledger, error) {
	var file File
	md, err := toml.NewDecoder(r).Decode(&file)
	if err != nil {
		return nil, fmt.Errorf("parsing ledger file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in ledger file: %s", strings.Join(keys, ", "))
	}
	return file.build()
}

func (f *File) build() (*Ledger, error) {
	if f.Group == "" {
		return nil, fmt.Errorf("ledger file: group is required")
	}
	if len(f.Members) == 0 {
		return nil, fmt.Errorf("ledger file: at least one member is required")
	}
	if f.Currency == "" {
		f.Currency = "USD"
	}
	f.Currency = strings.ToUpper(f.Currency)

	store := NewStore()
	// Records keep file order: each write is one second after the previous.
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	})

	ctx := context.Background()
	currency, err := store.Currencies().GetByCode(ctx, f.Currency)
	if err != nil {
		return nil, fmt.Errorf("ledger file: unsupported currency %q", f.Currency)
	}
	places := currency.MinorUnits

	l := &Ledger{
		Store:    store,
		GroupID:  groupIDFor(f.Group),
		Currency: currency.Code,
		people:   make(map[string]string, len(f.People)),
	}

	keys := make([]string, 0, len(f.People))
	for key := range f.People {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		p := f.People[key]
		name := p.Name
		if name == "" {
			name = key
		}
		u := &models.User{ID: PersonIDFor(key), Name: name, Email: p.Email}
		if err := store.Users().Create(ctx, u); err != nil {
			return nil, err
		}
		l.people[key] = u.ID
	}

	resolve := func(key, where string) (string, error) {
		id, ok := l.people[key]
		if !ok {
			return "", fmt.Errorf("ledger file: %s: unknown person %q", where, key)
		}
		return id, nil
	}
	amount := func(s, where string) (decimal.Decimal, error) {
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return decimal.Zero, fmt.Errorf("ledger file: %s: invalid amount %q", where, s)
		}
		if !ledger.FitsPrecision(d, places) {
			return decimal.Zero, fmt.Errorf("ledger file: %s: %s has more than %d decimal places", where, s, places)
		}
		if !ledger.WithinLimit(d) {
			return decimal.Zero, fmt.Errorf("ledger file: %s: %s is not less than %s", where, s, ledger.MaxAmount)
		}
		return d, nil
	}

	group := &models.Group{ID: l.GroupID, Name: f.Group, Currency: currency.Code}
	if err := store.Groups().Create(ctx, group); err != nil {
		return nil, err
	}
	memberIDs := make([]string, 0, len(f.Members))
	for i, key := range f.Members {
		id, err := resolve(key, "members")
		if err != nil {
			return nil, err
		}
		role := models.MemberRoleMember
		if i == 0 {
			role = models.MemberRoleOwner
		}
		if err := store.Groups().AddMember(ctx, l.GroupID, id, role); err != nil {
			return nil, err
		}
		memberIDs = append(memberIDs, id)
	}
	l.owner = memberIDs[0]

	for i, fe := range f.Expenses {
		where := fmt.Sprintf("expenses[%d]", i)
		e, err := buildExpense(fe, where, l.GroupID, memberIDs, places, resolve, amount)
		if err != nil {
			return nil, err
		}
		if err := store.Expenses().Create(ctx, e); err != nil {
			return nil, err
		}
		for j := range e.Payers {
			if err := store.Expenses().CreatePayer(ctx, &e.Payers[j]); err != nil {
				return nil, err
			}
		}
		for j := range e.Shares {
			if err := store.Expenses().CreateShare(ctx, &e.Shares[j]); err != nil {
				return nil, err
			}
		}
	}

	for i, fs := range f.Settlements {
		where := fmt.Sprintf("settlements[%d]", i)
		from, err := resolve(fs.From, where)
		if err != nil {
			return nil, err
		}
		to, err := resolve(fs.To, where)
		if err != nil {
			return nil, err
		}
		if from == to {
			return nil, fmt.Errorf("ledger file: %s: from and to are the same person", where)
		}
		amt, err := amount(fs.Amount, where)
		if err != nil {
			return nil, err
		}
		if !amt.IsPositive() {
			return nil, fmt.Errorf("ledger file: %s: amount must be positive", where)
		}
		s := &models.Settlement{
			ID:         uuid.New().String(),
			GroupID:    l.GroupID,
			FromUserID: from,
			ToUserID:   to,
			Amount:     amt,
			CreatedBy:  from,
		}
		if fs.Note != "" {
			note := fs.Note
			s.Note = &note
		}
		if err := store.Settlements().Create(ctx, s); err != nil {
			return nil, err
		}
	}

	return l, nil
}

func buildExpense(
	fe FileExpense,
	where, groupID string,
	memberIDs []string,
	places int32,
	resolve func(key, where string) (string, error),
	amount func(s, where string) (decimal.Decimal, error),
) (*models.Expense, error) {
	total, err := amount(fe.Amount, where)
	if err != nil {
		return nil, err
	}
	if !total.IsPositive() {
		return nil, fmt.Errorf("ledger file: %s: amount must be positive", where)
	}

	e := &models.Expense{
		ID:          uuid.New().String(),
		GroupID:     groupID,
		Description: fe.Description,
		Amount:      total,
		Split:       models.SplitModeEqual,
	}
	if strings.EqualFold(fe.Split, string(models.SplitModeCustom)) {
		e.Split = models.SplitModeCustom
	} else if fe.Split != "" && !strings.EqualFold(fe.Split, string(models.SplitModeEqual)) {
		return nil, fmt.Errorf("ledger file: %s: unknown split %q", where, fe.Split)
	}

	if len(fe.Paid) == 0 {
		return nil, fmt.Errorf("ledger file: %s: at least one payer is required", where)
	}
	paid := decimal.Zero
	for _, key := range sortedKeys(fe.Paid) {
		id, err := resolve(key, where+".paid")
		if err != nil {
			return nil, err
		}
		amt, err := amount(fe.Paid[key], where+".paid")
		if err != nil {
			return nil, err
		}
		if !amt.IsPositive() {
			return nil, fmt.Errorf("ledger file: %s.paid: %s must be positive", where, key)
		}
		paid = paid.Add(amt)
		e.Payers = append(e.Payers, models.ExpensePayer{
			ID: uuid.New().String(), ExpenseID: e.ID, UserID: id, Amount: amt,
		})
	}
	if err := requireSum(where+".paid", paid, total, places); err != nil {
		return nil, err
	}
	e.CreatedBy = e.Payers[0].UserID

	switch e.Split {
	case models.SplitModeCustom:
		if len(fe.Shares) == 0 {
			return nil, fmt.Errorf("ledger file: %s: custom split needs shares", where)
		}
		owed := decimal.Zero
		for _, key := range sortedKeys(fe.Shares) {
			id, err := resolve(key, where+".shares")
			if err != nil {
				return nil, err
			}
			amt, err := amount(fe.Shares[key], where+".shares")
			if err != nil {
				return nil, err
			}
			if amt.IsNegative() {
				return nil, fmt.Errorf("ledger file: %s.shares: %s must not be negative", where, key)
			}
			owed = owed.Add(amt)
			e.Shares = append(e.Shares, models.ExpenseShare{
				ID: uuid.New().String(), ExpenseID: e.ID, UserID: id, AmountOwed: amt,
			})
		}
		if err := requireSum(where+".shares", owed, total, places); err != nil {
			return nil, err
		}
	default:
		ids := memberIDs
		if len(fe.Participants) > 0 {
			ids = make([]string, 0, len(fe.Participants))
			for _, key := range fe.Participants {
				id, err := resolve(key, where+".participants")
				if err != nil {
					return nil, err
				}
				ids = append(ids, id)
			}
		}
		shares, err := ledger.SplitEqually(total, ids, places)
		if err != nil {
			return nil, fmt.Errorf("ledger file: %s: %w", where, err)
		}
		for i := range shares {
			shares[i].ID = uuid.New().String()
			shares[i].ExpenseID = e.ID
		}
		e.Shares = shares
	}

	return e, nil
}

func requireSum(where string, sum, total decimal.Decimal, places int32) error {
	if !sum.Equal(total) {
		return fmt.Errorf("ledger file: %s: amounts add up to %s, expected %s",
			where, sum.StringFixed(places), total.StringFixed(places))
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
