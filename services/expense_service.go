package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ttiimmothy/expense-splitter/database"
	apperrors "github.com/ttiimmothy/expense-splitter/errors"
	"github.com/ttiimmothy/expense-splitter/ledger"
	"github.com/ttiimmothy/expense-splitter/models"
	"github.com/ttiimmothy/expense-splitter/notify"
	"github.com/ttiimmothy/expense-splitter/repository"
)

type AmountInput struct {
	UserID string          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
}

type CreateExpenseInput struct {
	Description string           `json:"description"`
	Amount      decimal.Decimal  `json:"amount"`
	Split       models.SplitMode `json:"split"`
	// Payers defaults to the requester paying the whole amount.
	Payers []AmountInput `json:"payers"`
	// Participants is used by EQUAL splits and defaults to every current member.
	Participants []string `json:"participants"`
	// Shares is required for CUSTOM splits.
	Shares []AmountInput `json:"shares"`
}

type ExpenseService interface {
	Create(ctx context.Context, groupID, requesterID string, input CreateExpenseInput) (*models.Expense, error)
	ListByGroup(ctx context.Context, groupID, requesterID string) ([]models.Expense, error)
}

type expenseService struct {
	expenseRepo  repository.ExpenseRepository
	groupRepo    repository.GroupRepository
	currencyRepo repository.CurrencyRepository
	db           database.Transactor
	notifier     notify.Notifier
}

func NewExpenseService(
	expenseRepo repository.ExpenseRepository,
	groupRepo repository.GroupRepository,
	currencyRepo repository.CurrencyRepository,
	db database.Transactor,
	notifier notify.Notifier,
) ExpenseService {
	return &expenseService{
		expenseRepo:  expenseRepo,
		groupRepo:    groupRepo,
		currencyRepo: currencyRepo,
		db:           db,
		notifier:     notifier,
	}
}

func (s *expenseService) ListByGroup(ctx context.Context, groupID, requesterID string) ([]models.Expense, error) {
	if err := validateGroupRequest(groupID, requesterID); err != nil {
		return nil, err
	}
	if err := RequireGroupMembership(ctx, s.groupRepo, groupID, requesterID); err != nil {
		return nil, err
	}

	expenses, err := s.expenseRepo.ListByGroup(ctx, groupID)
	if err != nil {
		zap.L().Error("Failed to get group expenses", zap.String("group_id", groupID), zap.Error(err))
		return nil, apperrors.DatabaseError("getting expenses", err)
	}

	if expenses == nil {
		expenses = []models.Expense{}
	}
	return expenses, nil
}

func (s *expenseService) Create(ctx context.Context, groupID, requesterID string, input CreateExpenseInput) (*models.Expense, error) {
	if err := validateGroupRequest(groupID, requesterID); err != nil {
		return nil, err
	}
	if err := RequireGroupMembership(ctx, s.groupRepo, groupID, requesterID); err != nil {
		return nil, err
	}

	description := strings.TrimSpace(input.Description)
	if n := utf8.RuneCountInString(description); n < MinDescriptionLength || n > MaxDescriptionLength {
		return nil, apperrors.InvalidRequest(fmt.Sprintf("Description must be between %d and %d characters.", MinDescriptionLength, MaxDescriptionLength))
	}

	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			return nil, apperrors.GroupNotFound()
		}
		return nil, apperrors.DatabaseError("getting group", err)
	}
	places, err := currencyPlaces(ctx, s.currencyRepo, group.Currency)
	if err != nil {
		return nil, err
	}
	if err := validateAmount("amount", input.Amount, places); err != nil {
		return nil, err
	}

	members := make(map[string]bool, len(group.Members))
	memberIDs := make([]string, 0, len(group.Members))
	for _, m := range group.Members {
		members[m.UserID] = true
		memberIDs = append(memberIDs, m.UserID)
	}

	payerInputs := input.Payers
	if len(payerInputs) == 0 {
		payerInputs = []AmountInput{{UserID: requesterID, Amount: input.Amount}}
	}
	payers, err := validateLines("payer", payerInputs, members, places, false)
	if err != nil {
		return nil, err
	}
	if err := requireTotal("payer", payers, input.Amount, places); err != nil {
		return nil, err
	}

	split := input.Split
	if split == "" {
		split = models.SplitModeEqual
	}

	var shares []AmountInput
	switch split {
	case models.SplitModeEqual:
		participants := input.Participants
		if len(participants) == 0 {
			participants = memberIDs
		}
		for _, id := range participants {
			if err := ValidateUUID("participants", id); err != nil {
				return nil, err
			}
			if !members[id] {
				return nil, apperrors.InvalidRequest("Every participant must be a current group member.")
			}
		}
		equal, err := ledger.SplitEqually(input.Amount, participants, places)
		if err != nil {
			return nil, apperrors.InvalidRequest(err.Error())
		}
		for _, sh := range equal {
			shares = append(shares, AmountInput{UserID: sh.UserID, Amount: sh.AmountOwed})
		}
	case models.SplitModeCustom:
		if len(input.Shares) == 0 {
			return nil, apperrors.MissingRequiredField("shares")
		}
		shares, err = validateLines("share", input.Shares, members, places, true)
		if err != nil {
			return nil, err
		}
		if err := requireTotal("share", shares, input.Amount, places); err != nil {
			return nil, err
		}
	default:
		return nil, apperrors.InvalidFieldFormat("split", "EQUAL or CUSTOM")
	}

	expense := &models.Expense{
		ID:          uuid.New().String(),
		GroupID:     groupID,
		Description: description,
		Amount:      input.Amount,
		Split:       split,
		CreatedBy:   requesterID,
	}

	err = s.db.WithTx(ctx, func(q database.Querier) error {
		txRepo := s.expenseRepo.WithTx(q)
		if err := txRepo.Create(ctx, expense); err != nil {
			return apperrors.DatabaseError("creating expense", err)
		}

		for _, p := range payers {
			payer := models.ExpensePayer{
				ID:        uuid.New().String(),
				ExpenseID: expense.ID,
				UserID:    p.UserID,
				Amount:    p.Amount,
			}
			if err := txRepo.CreatePayer(ctx, &payer); err != nil {
				return apperrors.DatabaseError("creating expense payer", err)
			}
			expense.Payers = append(expense.Payers, payer)
		}

		for _, sh := range shares {
			share := models.ExpenseShare{
				ID:         uuid.New().String(),
				ExpenseID:  expense.ID,
				UserID:     sh.UserID,
				AmountOwed: sh.Amount,
			}
			if err := txRepo.CreateShare(ctx, &share); err != nil {
				return apperrors.DatabaseError("creating expense share", err)
			}
			expense.Shares = append(expense.Shares, share)
		}
		return nil
	})

	if err != nil {
		zap.L().Error("Failed to create expense transactionally", zap.String("group_id", groupID), zap.Error(err))
		return nil, err
	}

	zap.L().Info("Expense created successfully",
		zap.String("expense_id", expense.ID),
		zap.String("group_id", groupID),
		zap.String("amount", expense.Amount.StringFixed(places)),
		zap.String("split", string(split)))

	publishEvent(ctx, s.notifier, notify.NewEvent(notify.EventExpenseCreated, groupID, requesterID, expense.ID))
	return expense, nil
}

func validateAmount(field string, amount decimal.Decimal, places int32) error {
	if !amount.IsPositive() {
		return apperrors.InvalidAmount(fmt.Sprintf("%s must be greater than zero.", field))
	}
	if !ledger.FitsPrecision(amount, places) {
		return apperrors.InvalidAmount(fmt.Sprintf("%s has more than %d decimal places.", field, places))
	}
	if !ledger.WithinLimit(amount) {
		return apperrors.InvalidAmount(fmt.Sprintf("%s must be less than %s.", field, ledger.MaxAmount.String()))
	}
	return nil
}

// validateLines checks payer or share lines: members only, one line per
// user, amounts at currency precision. Shares may be zero; payments may not.
func validateLines(kind string, lines []AmountInput, members map[string]bool, places int32, allowZero bool) ([]AmountInput, error) {
	seen := make(map[string]bool, len(lines))
	for _, line := range lines {
		if err := ValidateUUID(kind+".user_id", line.UserID); err != nil {
			return nil, err
		}
		if !members[line.UserID] {
			return nil, apperrors.InvalidRequest(fmt.Sprintf("Every %s must be a current group member.", kind))
		}
		if seen[line.UserID] {
			return nil, apperrors.InvalidRequest(fmt.Sprintf("Each %s may appear only once.", kind))
		}
		seen[line.UserID] = true

		if allowZero && line.Amount.IsZero() {
			continue
		}
		if err := validateAmount(kind+" amount", line.Amount, places); err != nil {
			return nil, err
		}
	}
	return lines, nil
}

func requireTotal(kind string, lines []AmountInput, total decimal.Decimal, places int32) error {
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(line.Amount)
	}
	if !sum.Equal(total) {
		zap.L().Warn("Expense validation failed: amount mismatch",
			zap.String("kind", kind),
			zap.String("sum", sum.StringFixed(places)),
			zap.String("total", total.StringFixed(places)))
		return apperrors.AmountMismatch(sum.StringFixed(places), total.StringFixed(places), kind)
	}
	return nil
}
