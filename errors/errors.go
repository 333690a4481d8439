package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// ErrNotFound is returned by repositories when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type ErrorCode string

const (
	CodeUnauthorized   ErrorCode = "AUTH_001"
	CodeTokenExpired   ErrorCode = "AUTH_002"
	CodeTokenInvalid   ErrorCode = "AUTH_003"
	CodeNotGroupMember ErrorCode = "AUTH_005"

	CodeInvalidRequest       ErrorCode = "VALIDATION_001"
	CodeMissingRequiredField ErrorCode = "VALIDATION_002"
	CodeInvalidFieldFormat   ErrorCode = "VALIDATION_003"
	CodeInvalidAmount        ErrorCode = "VALIDATION_004"
	CodeAmountMismatch       ErrorCode = "VALIDATION_005"
	CodeInvalidUUID          ErrorCode = "VALIDATION_007"

	CodeNotFound      ErrorCode = "NOT_FOUND_001"
	CodeUserNotFound  ErrorCode = "NOT_FOUND_002"
	CodeGroupNotFound ErrorCode = "NOT_FOUND_003"

	CodeConflict      ErrorCode = "CONFLICT_001"
	CodeAlreadyMember ErrorCode = "CONFLICT_003"

	CodeInvalidSettlement ErrorCode = "BUSINESS_005"

	CodeDataIntegrity ErrorCode = "INTEGRITY_001"

	CodeDatabaseError ErrorCode = "DATABASE_001"

	CodeAIServiceError ErrorCode = "EXTERNAL_003"

	CodeInternalError ErrorCode = "INTERNAL_001"
)

type ErrorType int

const (
	ErrorTypeUnauthorized ErrorType = iota
	ErrorTypeForbidden
	ErrorTypeBadRequest
	ErrorTypeNotFound
	ErrorTypeConflict
	ErrorTypeUnprocessable
	ErrorTypeInternal
	ErrorTypeServiceUnavailable
)

type AppError struct {
	Type    ErrorType `json:"-"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func TokenExpired() *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Code:    CodeTokenExpired,
		Message: "Your session has expired. Please log in again.",
	}
}

func TokenInvalid() *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Code:    CodeTokenInvalid,
		Message: "Invalid authentication token.",
	}
}

// NotGroupMember is the access-denied error for every group-scoped read and
// write. No partial result accompanies it.
func NotGroupMember() *AppError {
	return &AppError{
		Type:    ErrorTypeForbidden,
		Code:    CodeNotGroupMember,
		Message: "You are not a member of this group.",
	}
}

func InvalidRequest(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeBadRequest,
		Code:    CodeInvalidRequest,
		Message: message,
	}
}

func InvalidRequestWithDetails(message, details string) *AppError {
	return &AppError{
		Type:    ErrorTypeBadRequest,
		Code:    CodeInvalidRequest,
		Message: message,
		Details: details,
	}
}

func MissingRequiredField(fieldName string) *AppError {
	return &AppError{
		Type:    ErrorTypeBadRequest,
		Code:    CodeMissingRequiredField,
		Message: fmt.Sprintf("%s is required.", fieldName),
	}
}

func InvalidFieldFormat(fieldName, expectedFormat string) *AppError {
	return &AppError{
		Type:    ErrorTypeBadRequest,
		Code:    CodeInvalidFieldFormat,
		Message: fmt.Sprintf("Invalid format for %s.", fieldName),
		Details: fmt.Sprintf("Expected format: %s", expectedFormat),
	}
}

func InvalidUUID(fieldName string) *AppError {
	return &AppError{
		Type:    ErrorTypeBadRequest,
		Code:    CodeInvalidUUID,
		Message: fmt.Sprintf("Invalid %s format.", fieldName),
		Details: "Expected format: UUID",
	}
}

func InvalidAmount(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeBadRequest,
		Code:    CodeInvalidAmount,
		Message: message,
	}
}

func AmountMismatch(splitTotal, expectedTotal, splitType string) *AppError {
	return &AppError{
		Type:    ErrorTypeBadRequest,
		Code:    CodeAmountMismatch,
		Message: fmt.Sprintf("Sum of %s amounts (%s) does not equal total amount (%s).", splitType, splitTotal, expectedTotal),
	}
}

func NotFound(resourceType string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found.", resourceType),
	}
}

func UserNotFound() *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Code:    CodeUserNotFound,
		Message: "User not found.",
	}
}

func UserNotFoundByEmail(email string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Code:    CodeUserNotFound,
		Message: fmt.Sprintf("No user found with email '%s'.", email),
		Details: "Please check the email address or ask them to sign up first.",
	}
}

func GroupNotFound() *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Code:    CodeGroupNotFound,
		Message: "Group not found.",
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Code:    CodeConflict,
		Message: message,
	}
}

func AlreadyMember() *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Code:    CodeAlreadyMember,
		Message: "User is already a member of this group.",
	}
}

func CannotSettleToSelf() *AppError {
	return &AppError{
		Type:    ErrorTypeBadRequest,
		Code:    CodeInvalidSettlement,
		Message: "Cannot settle payment to yourself.",
	}
}

func InvalidSettlement(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnprocessable,
		Code:    CodeInvalidSettlement,
		Message: message,
	}
}

// DataIntegrityFault reports ledger data that cannot be reconciled, such as a
// payer or share holder that does not resolve to a known user.
func DataIntegrityFault(details string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    CodeDataIntegrity,
		Message: "Group ledger data is inconsistent. Please contact support.",
		Details: details,
		Err:     err,
	}
}

func DatabaseError(operation string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    CodeDatabaseError,
		Message: "A database error occurred. Please try again.",
		Details: operation,
		Err:     err,
	}
}

func AIServiceError(err error) *AppError {
	return &AppError{
		Type:    ErrorTypeServiceUnavailable,
		Code:    CodeAIServiceError,
		Message: "AI service is temporarily unavailable. Please try again later.",
		Err:     err,
	}
}

func InternalError(err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    CodeInternalError,
		Message: "An unexpected error occurred. Please try again.",
		Err:     err,
	}
}

func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

var httpStatus = map[ErrorType]int{
	ErrorTypeUnauthorized:       http.StatusUnauthorized,
	ErrorTypeForbidden:          http.StatusForbidden,
	ErrorTypeBadRequest:         http.StatusBadRequest,
	ErrorTypeNotFound:           http.StatusNotFound,
	ErrorTypeConflict:           http.StatusConflict,
	ErrorTypeUnprocessable:      http.StatusUnprocessableEntity,
	ErrorTypeServiceUnavailable: http.StatusServiceUnavailable,
}

func GetHTTPStatus(errType ErrorType) int {
	if status, ok := httpStatus[errType]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// IsNotFoundError reports whether a repository lookup matched nothing.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateError reports a unique-key violation from PostgreSQL or the
// in-memory store.
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return strings.Contains(err.Error(), "duplicate key")
}
