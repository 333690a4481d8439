package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ttiimmothy/expense-splitter/database"
	apperrors "github.com/ttiimmothy/expense-splitter/errors"
	"github.com/ttiimmothy/expense-splitter/models"
	"github.com/ttiimmothy/expense-splitter/notify"
	"github.com/ttiimmothy/expense-splitter/repository"
)

type GroupService interface {
	GetByID(ctx context.Context, groupID, userID string) (*models.Group, error)
	GetByUserID(ctx context.Context, userID string) ([]models.Group, error)
	Create(ctx context.Context, userID, name, currency string) (*models.Group, error)
	AddMember(ctx context.Context, groupID, userID, newMemberEmail string) (*models.User, error)
	RemoveMember(ctx context.Context, groupID, userID, memberToRemoveID string) error
}

type groupService struct {
	groupRepo       repository.GroupRepository
	userRepo        repository.UserRepository
	currencyRepo    repository.CurrencyRepository
	balances        BalanceService
	db              database.Transactor
	notifier        notify.Notifier
	defaultCurrency string
}

func NewGroupService(
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	currencyRepo repository.CurrencyRepository,
	balances BalanceService,
	db database.Transactor,
	notifier notify.Notifier,
	defaultCurrency string,
) GroupService {
	return &groupService{
		groupRepo:       groupRepo,
		userRepo:        userRepo,
		currencyRepo:    currencyRepo,
		balances:        balances,
		db:              db,
		notifier:        notifier,
		defaultCurrency: defaultCurrency,
	}
}

func (s *groupService) requireMembership(ctx context.Context, groupID, userID string) error {
	return RequireGroupMembership(ctx, s.groupRepo, groupID, userID)
}

func (s *groupService) GetByID(ctx context.Context, groupID, userID string) (*models.Group, error) {
	if err := validateGroupRequest(groupID, userID); err != nil {
		return nil, err
	}
	if err := s.requireMembership(ctx, groupID, userID); err != nil {
		return nil, err
	}

	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			return nil, apperrors.GroupNotFound()
		}
		return nil, apperrors.DatabaseError("getting group", err)
	}
	return group, nil
}

func (s *groupService) GetByUserID(ctx context.Context, userID string) ([]models.Group, error) {
	if err := ValidateUUID("user_id", userID); err != nil {
		return nil, err
	}

	groups, err := s.groupRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.DatabaseError("getting groups", err)
	}
	if groups == nil {
		groups = []models.Group{}
	}
	return groups, nil
}

func (s *groupService) Create(ctx context.Context, userID, name, currency string) (*models.Group, error) {
	if err := ValidateUUID("user_id", userID); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < MinGroupNameLength || n > MaxGroupNameLength {
		return nil, apperrors.InvalidRequest(fmt.Sprintf("Group name must be between %d and %d characters.", MinGroupNameLength, MaxGroupNameLength))
	}

	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	if _, err := s.currencyRepo.GetByCode(ctx, currency); err != nil {
		if apperrors.IsNotFoundError(err) {
			return nil, apperrors.InvalidFieldFormat("currency", "a supported ISO 4217 code")
		}
		return nil, apperrors.DatabaseError("getting currency", err)
	}

	group := &models.Group{
		ID:       uuid.New().String(),
		Name:     name,
		Currency: currency,
	}

	err := s.db.WithTx(ctx, func(q database.Querier) error {
		txRepo := s.groupRepo.WithTx(q)
		if err := txRepo.Create(ctx, group); err != nil {
			return apperrors.DatabaseError("creating group", err)
		}
		if err := txRepo.AddMember(ctx, group.ID, userID, models.MemberRoleOwner); err != nil {
			return apperrors.DatabaseError("adding creator to group", err)
		}
		return nil
	})
	if err != nil {
		zap.L().Error("Failed to create group", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	zap.L().Info("Group created",
		zap.String("group_id", group.ID),
		zap.String("owner_id", userID),
		zap.String("currency", currency))

	return s.groupRepo.GetByID(ctx, group.ID)
}

func (s *groupService) AddMember(ctx context.Context, groupID, userID, newMemberEmail string) (*models.User, error) {
	if err := validateGroupRequest(groupID, userID); err != nil {
		return nil, err
	}
	newMemberEmail = strings.TrimSpace(newMemberEmail)
	if newMemberEmail == "" {
		return nil, apperrors.MissingRequiredField("email")
	}
	if err := s.requireMembership(ctx, groupID, userID); err != nil {
		return nil, err
	}

	zap.L().Info("Adding member to group", zap.String("group_id", groupID), zap.String("requested_by", userID), zap.String("email", newMemberEmail))

	user, err := s.userRepo.GetByEmail(ctx, newMemberEmail)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			zap.L().Info("No user for invitation email", zap.String("email", newMemberEmail))
			return nil, apperrors.UserNotFoundByEmail(newMemberEmail)
		}
		zap.L().Error("User lookup failed for email", zap.String("email", newMemberEmail), zap.Error(err))
		return nil, apperrors.DatabaseError("finding user by email", err)
	}

	isMember, err := s.groupRepo.IsMember(ctx, groupID, user.ID)
	if err != nil {
		return nil, apperrors.DatabaseError("checking membership", err)
	}
	if isMember {
		return nil, apperrors.AlreadyMember()
	}

	if err := s.groupRepo.AddMember(ctx, groupID, user.ID, models.MemberRoleMember); err != nil {
		zap.L().Error("Failed to add member to group", zap.String("user_id", user.ID), zap.String("group_id", groupID), zap.Error(err))
		if apperrors.IsDuplicateError(err) {
			return nil, apperrors.AlreadyMember()
		}
		return nil, apperrors.DatabaseError("adding member", err)
	}

	zap.L().Info("Successfully added member to group", zap.String("user_id", user.ID), zap.String("group_id", groupID))
	publishEvent(ctx, s.notifier, notify.NewEvent(notify.EventMemberAdded, groupID, userID, user.ID))
	return user, nil
}

// RemoveMember takes a member out of the group. Their expenses and
// settlements stay, so a departed member keeps appearing in balances until
// everything they are part of nets to zero.
func (s *groupService) RemoveMember(ctx context.Context, groupID, userID, memberToRemoveID string) error {
	if err := validateGroupRequest(groupID, userID); err != nil {
		return err
	}
	if err := ValidateUUID("member_id", memberToRemoveID); err != nil {
		return err
	}
	if err := s.requireMembership(ctx, groupID, userID); err != nil {
		return err
	}

	isMember, err := s.groupRepo.IsMember(ctx, groupID, memberToRemoveID)
	if err != nil {
		return apperrors.DatabaseError("checking membership", err)
	}
	if !isMember {
		return apperrors.NotFound("Member")
	}

	balances, err := s.balances.ComputeBalances(ctx, groupID, userID)
	if err != nil {
		return err
	}
	for _, b := range balances {
		if b.UserID == memberToRemoveID && !b.NetBalance.IsZero() {
			zap.L().Warn("Removing member with an outstanding balance",
				zap.String("group_id", groupID),
				zap.String("member_id", memberToRemoveID),
				zap.String("net_balance", b.NetBalance.String()))
		}
	}

	if err := s.groupRepo.RemoveMember(ctx, groupID, memberToRemoveID); err != nil {
		return apperrors.DatabaseError("removing member", err)
	}

	zap.L().Info("Member removed from group", zap.String("group_id", groupID), zap.String("member_id", memberToRemoveID), zap.String("removed_by", userID))
	publishEvent(ctx, s.notifier, notify.NewEvent(notify.EventMemberRemoved, groupID, userID, memberToRemoveID))
	return nil
}
