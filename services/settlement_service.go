package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/ttiimmothy/expense-splitter/errors"
	"github.com/ttiimmothy/expense-splitter/models"
	"github.com/ttiimmothy/expense-splitter/notify"
	"github.com/ttiimmothy/expense-splitter/repository"
)

type RecordSettlementInput struct {
	FromUserID string          `json:"from_user_id"`
	ToUserID   string          `json:"to_user_id"`
	Amount     decimal.Decimal `json:"amount"`
	Note       *string         `json:"note,omitempty"`
}

type SettlementService interface {
	SuggestSettlements(ctx context.Context, groupID, requesterID string) ([]models.SettlementSuggestion, error)
	RecordSettlement(ctx context.Context, groupID, requesterID string, input RecordSettlementInput) (*models.Settlement, error)
	ListSettlements(ctx context.Context, groupID, requesterID string) ([]models.Settlement, error)
}

type settlementService struct {
	balances       BalanceService
	groupRepo      repository.GroupRepository
	userRepo       repository.UserRepository
	settlementRepo repository.SettlementRepository
	currencyRepo   repository.CurrencyRepository
	notifier       notify.Notifier
}

func NewSettlementService(
	balances BalanceService,
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	settlementRepo repository.SettlementRepository,
	currencyRepo repository.CurrencyRepository,
	notifier notify.Notifier,
) SettlementService {
	return &settlementService{
		balances:       balances,
		groupRepo:      groupRepo,
		userRepo:       userRepo,
		settlementRepo: settlementRepo,
		currencyRepo:   currencyRepo,
		notifier:       notifier,
	}
}

func (s *settlementService) requireMembership(ctx context.Context, groupID, userID string) error {
	return RequireGroupMembership(ctx, s.groupRepo, groupID, userID)
}

// SuggestSettlements returns the payments that would settle the group. An
// empty list means nobody owes anything.
func (s *settlementService) SuggestSettlements(ctx context.Context, groupID, requesterID string) ([]models.SettlementSuggestion, error) {
	resp, err := s.balances.GetGroupBalances(ctx, groupID, requesterID)
	if err != nil {
		return nil, err
	}
	return resp.Suggestions, nil
}

func (s *settlementService) RecordSettlement(ctx context.Context, groupID, requesterID string, input RecordSettlementInput) (*models.Settlement, error) {
	if err := validateGroupRequest(groupID, requesterID); err != nil {
		return nil, err
	}
	if err := ValidateUUID("from_user_id", input.FromUserID); err != nil {
		return nil, err
	}
	if err := ValidateUUID("to_user_id", input.ToUserID); err != nil {
		return nil, err
	}
	if input.FromUserID == input.ToUserID {
		return nil, apperrors.CannotSettleToSelf()
	}
	if err := s.requireMembership(ctx, groupID, requesterID); err != nil {
		return nil, err
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

	var note *string
	if input.Note != nil {
		trimmed := strings.TrimSpace(*input.Note)
		if utf8.RuneCountInString(trimmed) > MaxNoteLength {
			return nil, apperrors.InvalidRequest("Note is too long.")
		}
		if trimmed != "" {
			note = &trimmed
		}
	}

	involved, err := s.userRepo.FindInvolvedInGroup(ctx, groupID)
	if err != nil {
		return nil, apperrors.DatabaseError("finding involved participants", err)
	}
	known := make(map[string]bool, len(involved))
	for _, u := range involved {
		known[u.ID] = true
	}
	if !known[input.FromUserID] || !known[input.ToUserID] {
		return nil, apperrors.InvalidSettlement("Both parties must be members or past participants of the group.")
	}

	settlement := &models.Settlement{
		ID:         uuid.New().String(),
		GroupID:    groupID,
		FromUserID: input.FromUserID,
		ToUserID:   input.ToUserID,
		Amount:     input.Amount,
		Note:       note,
		CreatedBy:  requesterID,
	}
	if err := s.settlementRepo.Create(ctx, settlement); err != nil {
		zap.L().Error("Failed to record settlement", zap.String("group_id", groupID), zap.Error(err))
		return nil, apperrors.DatabaseError("creating settlement", err)
	}

	zap.L().Info("Settlement recorded",
		zap.String("settlement_id", settlement.ID),
		zap.String("group_id", groupID),
		zap.String("from_user_id", settlement.FromUserID),
		zap.String("to_user_id", settlement.ToUserID),
		zap.String("amount", settlement.Amount.StringFixed(places)))

	publishEvent(ctx, s.notifier, notify.NewEvent(notify.EventSettlementCreated, groupID, requesterID, settlement.ID))
	return settlement, nil
}

func (s *settlementService) ListSettlements(ctx context.Context, groupID, requesterID string) ([]models.Settlement, error) {
	if err := validateGroupRequest(groupID, requesterID); err != nil {
		return nil, err
	}
	if err := s.requireMembership(ctx, groupID, requesterID); err != nil {
		return nil, err
	}

	settlements, err := s.settlementRepo.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, apperrors.DatabaseError("listing settlements", err)
	}
	if settlements == nil {
		settlements = []models.Settlement{}
	}
	return settlements, nil
}
