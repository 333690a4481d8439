package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/ttiimmothy/expense-splitter/errors"
	"github.com/ttiimmothy/expense-splitter/models"
	"github.com/ttiimmothy/expense-splitter/repository"
)

type UserService interface {
	EnsureUser(ctx context.Context, userID, email, name string) (*models.User, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if err := ValidateUUID("user_id", userID); err != nil {
		return nil, err
	}

	zap.L().Debug("Getting user", zap.String("user_id", userID))
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			zap.L().Debug("User not found", zap.String("user_id", userID))
			return nil, apperrors.UserNotFound()
		}
		zap.L().Error("Failed to get user", zap.String("user_id", userID), zap.Error(err))
		return nil, apperrors.DatabaseError("getting user", err)
	}
	return user, nil
}

// EnsureUser returns the user's record, creating it from token claims on
// first sight.
func (s *userService) EnsureUser(ctx context.Context, userID, email, name string) (*models.User, error) {
	if err := ValidateUUID("user_id", userID); err != nil {
		return nil, err
	}

	zap.L().Debug("Ensuring user record exists", zap.String("user_id", userID), zap.String("email", email))
	user, err := s.userRepo.GetByID(ctx, userID)
	if err == nil {
		return user, nil
	}
	if !apperrors.IsNotFoundError(err) {
		return nil, apperrors.DatabaseError("getting user", err)
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperrors.MissingRequiredField("email")
	}

	zap.L().Info("User record not found, creating new record", zap.String("user_id", userID), zap.String("email", email))
	newUser := &models.User{
		ID:    userID,
		Email: email,
		Name:  strings.TrimSpace(name),
	}
	if newUser.Name == "" {
		newUser.Name = email
	}

	if err := s.userRepo.Create(ctx, newUser); err != nil {
		zap.L().Error("Failed to create user record", zap.String("user_id", userID), zap.Error(err))
		if apperrors.IsDuplicateError(err) {
			return nil, apperrors.Conflict("A different account already uses this email.")
		}
		return nil, apperrors.DatabaseError("creating user record", err)
	}

	zap.L().Info("User record created successfully", zap.String("user_id", userID))
	return newUser, nil
}
