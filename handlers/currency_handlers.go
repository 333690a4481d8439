package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/ttiimmothy/expense-splitter/errors"
	"github.com/ttiimmothy/expense-splitter/models"
	"github.com/ttiimmothy/expense-splitter/repository"
)

type CurrencyHandlers struct {
	currencyRepo repository.CurrencyRepository
}

func NewCurrencyHandlers(currencyRepo repository.CurrencyRepository) *CurrencyHandlers {
	return &CurrencyHandlers{
		currencyRepo: currencyRepo,
	}
}

func (h *CurrencyHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/currencies", h.GetCurrencies)
}

func (h *CurrencyHandlers) GetCurrencies(w http.ResponseWriter, r *http.Request) {
	currencies, err := h.currencyRepo.GetAll(r.Context())
	if err != nil {
		handleError(w, apperrors.DatabaseError("listing currencies", err))
		return
	}

	if currencies == nil {
		currencies = []models.Currency{}
	}

	respondJSON(w, http.StatusOK, currencies)
}
