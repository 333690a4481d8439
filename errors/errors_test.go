package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{NotGroupMember(), http.StatusForbidden},
		{InvalidUUID("group_id"), http.StatusBadRequest},
		{TokenExpired(), http.StatusUnauthorized},
		{GroupNotFound(), http.StatusNotFound},
		{AlreadyMember(), http.StatusConflict},
		{InvalidSettlement("no"), http.StatusUnprocessableEntity},
		{AIServiceError(nil), http.StatusServiceUnavailable},
		{DataIntegrityFault("ghost payer", nil), http.StatusInternalServerError},
		{DatabaseError("listing", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := GetHTTPStatus(tt.err.Type); got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.err.Code, got, tt.want)
		}
	}
}

func TestAsAppErrorThroughWrapping(t *testing.T) {
	cause := errors.New("connection reset")
	wrapped := fmt.Errorf("loading snapshot: %w", DatabaseError("listing expenses", cause))

	appErr, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected to find the AppError")
	}
	if appErr.Code != CodeDatabaseError || appErr.Details != "listing expenses" {
		t.Errorf("unexpected error %+v", appErr)
	}
	if !errors.Is(wrapped, cause) {
		t.Error("cause should stay reachable")
	}
	if _, ok := AsAppError(cause); ok {
		t.Error("plain errors are not AppErrors")
	}
}

func TestIsNotFoundError(t *testing.T) {
	if !IsNotFoundError(fmt.Errorf("getting user: %w", pgx.ErrNoRows)) {
		t.Error("pgx no rows should be not found")
	}
	if !IsNotFoundError(fmt.Errorf("user u1: %w", ErrNotFound)) {
		t.Error("ErrNotFound should be not found")
	}
	if IsNotFoundError(errors.New("timeout")) || IsNotFoundError(nil) {
		t.Error("unexpected not found")
	}
}

func TestIsDuplicateError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	if !IsDuplicateError(fmt.Errorf("adding member: %w", pgErr)) {
		t.Error("unique violation should be a duplicate")
	}
	if IsDuplicateError(&pgconn.PgError{Code: "23503"}) {
		t.Error("foreign key violation is not a duplicate")
	}
	if !IsDuplicateError(errors.New("creating group: duplicate key g1")) {
		t.Error("memory store duplicates should be detected")
	}
	if IsDuplicateError(nil) {
		t.Error("nil is not a duplicate")
	}
}
