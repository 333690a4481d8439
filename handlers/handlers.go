package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	apperrors "github.com/ttiimmothy/expense-splitter/errors"
	"github.com/ttiimmothy/expense-splitter/middleware"
	"github.com/ttiimmothy/expense-splitter/services"
)

type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// EventStream serves live group events over a websocket.
type EventStream interface {
	ServeWS(w http.ResponseWriter, r *http.Request, groupID string) error
}

type Handlers struct {
	groupService       services.GroupService
	expenseService     services.ExpenseService
	settlementService  services.SettlementService
	balanceService     services.BalanceService
	userService        services.UserService
	explanationService services.ExplanationService
	events             EventStream
}

func NewHandlers(
	groupService services.GroupService,
	expenseService services.ExpenseService,
	settlementService services.SettlementService,
	balanceService services.BalanceService,
	userService services.UserService,
	explanationService services.ExplanationService,
	events EventStream,
) *Handlers {
	return &Handlers{
		groupService:       groupService,
		expenseService:     expenseService,
		settlementService:  settlementService,
		balanceService:     balanceService,
		userService:        userService,
		explanationService: explanationService,
		events:             events,
	}
}

func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Use(h.EnsureUser)

	r.Get("/me", h.GetCurrentUser)

	r.Route("/groups", func(r chi.Router) {
		r.Get("/", h.GetGroups)
		r.Post("/", h.CreateGroup)

		r.Route("/{groupID}", func(r chi.Router) {
			r.Get("/", h.GetGroup)
			r.Post("/members", h.AddMember)
			r.Delete("/members/{userID}", h.RemoveMember)

			r.Get("/balances", h.GetBalances)
			r.Get("/suggestions", h.GetSuggestions)
			r.Get("/settlements", h.GetSettlements)
			r.Post("/settlements", h.RecordSettlement)

			r.Get("/expenses", h.GetExpenses)
			r.Post("/expenses", h.CreateExpense)

			r.Get("/events", h.StreamEvents)

			r.Group(func(r chi.Router) {
				r.Use(httprate.LimitByIP(services.AIRateLimit, 1*time.Minute))
				r.Post("/balances/explain", h.ExplainBalances)
			})
		})
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Error("Failed to encode JSON response", zap.Error(err))
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.InvalidRequestWithDetails("Invalid request body. Please provide valid JSON.", err.Error())
	}
	return nil
}

func handleError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	if appErr, ok := apperrors.AsAppError(err); ok {
		status := apperrors.GetHTTPStatus(appErr.Type)

		if status >= 500 {
			zap.L().Error("App Error (Internal)",
				zap.String("code", string(appErr.Code)),
				zap.String("details", appErr.Details),
				zap.Error(appErr.Err))
		} else {
			zap.L().Debug("App Error (Client)",
				zap.String("code", string(appErr.Code)),
				zap.String("message", appErr.Message))
		}

		resp := ErrorResponse{Error: appErr.Message, Code: string(appErr.Code)}
		// Internal details stay in the logs.
		if status < 500 {
			resp.Details = appErr.Details
		}
		respondJSON(w, status, resp)
		return
	}

	zap.L().Error("Non-AppError returned (bug)",
		zap.Error(err),
		zap.String("error_type", fmt.Sprintf("%T", err)))

	respondJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error: "An unexpected error occurred. Please try again later.",
		Code:  string(apperrors.CodeInternalError),
	})
}

func getUserID(r *http.Request) (string, error) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		return "", apperrors.Unauthorized("User ID not found in authentication context")
	}
	return userID, nil
}

func getGroupID(r *http.Request) (string, error) {
	groupID := chi.URLParam(r, "groupID")
	if groupID == "" {
		return "", apperrors.MissingRequiredField("Group ID")
	}
	return groupID, nil
}

// requestIDs returns the authenticated user and the group in the path.
func requestIDs(r *http.Request) (userID, groupID string, err error) {
	if userID, err = getUserID(r); err != nil {
		return "", "", err
	}
	if groupID, err = getGroupID(r); err != nil {
		return "", "", err
	}
	return userID, groupID, nil
}
