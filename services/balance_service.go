package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ttiimmothy/expense-splitter/database"
	apperrors "github.com/ttiimmothy/expense-splitter/errors"
	"github.com/ttiimmothy/expense-splitter/ledger"
	"github.com/ttiimmothy/expense-splitter/metrics"
	"github.com/ttiimmothy/expense-splitter/models"
	"github.com/ttiimmothy/expense-splitter/repository"
)

type BalanceService interface {
	ComputeBalances(ctx context.Context, groupID, requesterID string) ([]models.Balance, error)
	GetGroupBalances(ctx context.Context, groupID, requesterID string) (*models.GroupBalancesResponse, error)
}

type balanceService struct {
	groupRepo      repository.GroupRepository
	userRepo       repository.UserRepository
	expenseRepo    repository.ExpenseRepository
	settlementRepo repository.SettlementRepository
	currencyRepo   repository.CurrencyRepository
	db             database.SnapshotReader
}

func NewBalanceService(
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	expenseRepo repository.ExpenseRepository,
	settlementRepo repository.SettlementRepository,
	currencyRepo repository.CurrencyRepository,
	db database.SnapshotReader,
) BalanceService {
	return &balanceService{
		groupRepo:      groupRepo,
		userRepo:       userRepo,
		expenseRepo:    expenseRepo,
		settlementRepo: settlementRepo,
		currencyRepo:   currencyRepo,
		db:             db,
	}
}

// groupLedger is one computed view of a group.
type groupLedger struct {
	group    *models.Group
	places   int32
	balances []models.Balance
}

func (s *balanceService) ComputeBalances(ctx context.Context, groupID, requesterID string) ([]models.Balance, error) {
	gl, err := s.compute(ctx, groupID, requesterID)
	if err != nil {
		return nil, err
	}
	return gl.balances, nil
}

func (s *balanceService) GetGroupBalances(ctx context.Context, groupID, requesterID string) (*models.GroupBalancesResponse, error) {
	gl, err := s.compute(ctx, groupID, requesterID)
	if err != nil {
		return nil, err
	}

	suggestions := ledger.PlanSettlements(gl.balances, gl.places)
	metrics.SuggestionsPlanned.Observe(float64(len(suggestions)))

	return &models.GroupBalancesResponse{
		GroupID:     gl.group.ID,
		Currency:    gl.group.Currency,
		Balances:    gl.balances,
		Suggestions: suggestions,
	}, nil
}

func (s *balanceService) compute(ctx context.Context, groupID, requesterID string) (gl *groupLedger, err error) {
	start := time.Now()
	defer func() {
		metrics.BalanceComputations.WithLabelValues(metrics.Outcome(err)).Inc()
		metrics.BalanceDuration.Observe(time.Since(start).Seconds())
	}()

	if err := validateGroupRequest(groupID, requesterID); err != nil {
		return nil, err
	}
	if err := RequireGroupMembership(ctx, s.groupRepo, groupID, requesterID); err != nil {
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

	snap, err := s.loadSnapshot(ctx, groupID)
	if err != nil {
		return nil, err
	}

	result, err := ledger.ComputeBalances(*snap, places)
	if err != nil {
		var unresolved *ledger.UnresolvedParticipantError
		var malformed *ledger.MalformedExpenseError
		if errors.As(err, &unresolved) || errors.As(err, &malformed) {
			zap.L().Error("Ledger integrity fault",
				zap.String("group_id", groupID),
				zap.Error(err))
			return nil, apperrors.DataIntegrityFault(err.Error(), err)
		}
		return nil, apperrors.InternalError(err)
	}

	if len(result.Mismatched) > 0 {
		metrics.LedgerMismatches.Add(float64(len(result.Mismatched)))
		zap.L().Warn("Expenses with shares not matching their amount",
			zap.String("group_id", groupID),
			zap.Strings("expense_ids", result.Mismatched))
	}

	zap.L().Debug("Computed group balances",
		zap.String("group_id", groupID),
		zap.Int("participants", len(result.Balances)),
		zap.Int("expenses", len(snap.Expenses)),
		zap.Int("settlements", len(snap.Settlements)))

	return &groupLedger{group: group, places: places, balances: result.Balances}, nil
}

// loadSnapshot reads everything the ledger needs from one consistent view,
// so a settlement recorded mid-read cannot unbalance the result.
func (s *balanceService) loadSnapshot(ctx context.Context, groupID string) (*ledger.Snapshot, error) {
	var snap ledger.Snapshot
	err := s.db.ReadSnapshot(ctx, func(q database.Querier) error {
		var err error
		if snap.Members, err = s.groupRepo.WithTx(q).ListMembers(ctx, groupID); err != nil {
			return apperrors.DatabaseError("listing group members", err)
		}
		if snap.Involved, err = s.userRepo.WithTx(q).FindInvolvedInGroup(ctx, groupID); err != nil {
			return apperrors.DatabaseError("finding involved participants", err)
		}
		if snap.Expenses, err = s.expenseRepo.WithTx(q).ListByGroup(ctx, groupID); err != nil {
			return apperrors.DatabaseError("listing expenses", err)
		}
		if snap.Settlements, err = s.settlementRepo.WithTx(q).ListByGroup(ctx, groupID); err != nil {
			return apperrors.DatabaseError("listing settlements", err)
		}
		return nil
	})
	if err != nil {
		if _, ok := apperrors.AsAppError(err); ok {
			return nil, err
		}
		return nil, apperrors.DatabaseError("reading group snapshot", err)
	}
	return &snap, nil
}

// currencyPlaces returns the number of minor-unit digits for code. Unknown
// codes fall back to two places.
func currencyPlaces(ctx context.Context, repo repository.CurrencyRepository, code string) (int32, error) {
	currency, err := repo.GetByCode(ctx, code)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			zap.L().Warn("Unknown group currency, using default precision", zap.String("currency", code))
			return ledger.DefaultPlaces, nil
		}
		return 0, apperrors.DatabaseError("getting currency", err)
	}
	return currency.MinorUnits, nil
}
