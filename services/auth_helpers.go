package services

import (
	"context"

	"github.com/google/uuid"

	apperrors "github.com/ttiimmothy/expense-splitter/errors"
	"github.com/ttiimmothy/expense-splitter/repository"
)

func RequireGroupMembership(ctx context.Context, groupRepo repository.GroupRepository, groupID, userID string) error {
	isMember, err := groupRepo.IsMember(ctx, groupID, userID)
	if err != nil {
		return apperrors.DatabaseError("checking membership", err)
	}
	if !isMember {
		return apperrors.NotGroupMember()
	}
	return nil
}

// ValidateUUID rejects malformed identifiers before any lookup runs.
func ValidateUUID(fieldName, value string) error {
	if _, err := uuid.Parse(value); err != nil {
		return apperrors.InvalidUUID(fieldName)
	}
	return nil
}

func validateGroupRequest(groupID, requesterID string) error {
	if err := ValidateUUID("group_id", groupID); err != nil {
		return err
	}
	return ValidateUUID("user_id", requesterID)
}
