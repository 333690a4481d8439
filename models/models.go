package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type MemberRole string

const (
	MemberRoleOwner  MemberRole = "OWNER"
	MemberRoleMember MemberRole = "MEMBER"
)

type Group struct {
	ID        string        `json:"id" db:"id"`
	Name      string        `json:"name" db:"name"`
	Currency  string        `json:"currency" db:"currency"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
	Members   []GroupMember `json:"members,omitempty"`
}

type GroupMember struct {
	GroupID  string     `json:"group_id" db:"group_id"`
	UserID   string     `json:"user_id" db:"user_id"`
	Role     MemberRole `json:"role" db:"role"`
	JoinedAt time.Time  `json:"joined_at" db:"joined_at"`
	User     *User      `json:"user,omitempty"`
}

type Currency struct {
	Code       string `json:"code" db:"code"`
	Name       string `json:"name" db:"name"`
	Symbol     string `json:"symbol" db:"symbol"`
	MinorUnits int32  `json:"minor_units" db:"minor_units"`
}

type SplitMode string

const (
	SplitModeEqual  SplitMode = "EQUAL"
	SplitModeCustom SplitMode = "CUSTOM"
)

// Expense is the single shape for every shared cost: a one-payer expense is
// simply an expense whose Payers list has one entry.
type Expense struct {
	ID          string          `json:"id" db:"id"`
	GroupID     string          `json:"group_id" db:"group_id"`
	Description string          `json:"description" db:"description"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Split       SplitMode       `json:"split" db:"split"`
	CreatedBy   string          `json:"created_by" db:"created_by"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	Payers      []ExpensePayer  `json:"payers"`
	Shares      []ExpenseShare  `json:"shares"`
}

type ExpensePayer struct {
	ID        string          `json:"id" db:"id"`
	ExpenseID string          `json:"expense_id" db:"expense_id"`
	UserID    string          `json:"user_id" db:"user_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
}

type ExpenseShare struct {
	ID         string          `json:"id" db:"id"`
	ExpenseID  string          `json:"expense_id" db:"expense_id"`
	UserID     string          `json:"user_id" db:"user_id"`
	AmountOwed decimal.Decimal `json:"amount_owed" db:"amount_owed"`
}

// Settlement is a payment that already happened between two participants.
type Settlement struct {
	ID         string          `json:"id" db:"id"`
	GroupID    string          `json:"group_id" db:"group_id"`
	FromUserID string          `json:"from_user_id" db:"from_user_id"`
	ToUserID   string          `json:"to_user_id" db:"to_user_id"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	Note       *string         `json:"note,omitempty" db:"note"`
	CreatedBy  string          `json:"created_by" db:"created_by"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

type Balance struct {
	UserID          string          `json:"user_id"`
	UserName        string          `json:"user_name"`
	NetBalance      decimal.Decimal `json:"net_balance"`
	IsCurrentMember bool            `json:"is_current_member"`
}

type SettlementSuggestion struct {
	FromUserID   string          `json:"from_user_id"`
	FromUserName string          `json:"from_user_name"`
	ToUserID     string          `json:"to_user_id"`
	ToUserName   string          `json:"to_user_name"`
	Amount       decimal.Decimal `json:"amount"`
}

type GroupBalancesResponse struct {
	GroupID     string                 `json:"group_id"`
	Currency    string                 `json:"currency"`
	Balances    []Balance              `json:"balances"`
	Suggestions []SettlementSuggestion `json:"suggestions"`
}

type BalanceExplanation struct {
	GroupID     string `json:"group_id"`
	Explanation string `json:"explanation"`
}
