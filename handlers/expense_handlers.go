package handlers

import (
	"net/http"
	"strings"

	apperrors "github.com/ttiimmothy/expense-splitter/errors"
	"github.com/ttiimmothy/expense-splitter/models"
	"github.com/ttiimmothy/expense-splitter/services"
)

func (h *Handlers) GetExpenses(w http.ResponseWriter, r *http.Request) {
	userID, groupID, err := requestIDs(r)
	if err != nil {
		handleError(w, err)
		return
	}

	expenses, err := h.expenseService.ListByGroup(r.Context(), groupID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, expenses)
}

func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) {
	userID, groupID, err := requestIDs(r)
	if err != nil {
		handleError(w, err)
		return
	}

	var req services.CreateExpenseInput
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		handleError(w, apperrors.MissingRequiredField("Description"))
		return
	}
	req.Split = models.SplitMode(strings.ToUpper(string(req.Split)))

	expense, err := h.expenseService.Create(r.Context(), groupID, userID, req)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, expense)
}
