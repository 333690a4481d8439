package handlers

import (
	"net/http"
)

func (h *Handlers) GetBalances(w http.ResponseWriter, r *http.Request) {
	userID, groupID, err := requestIDs(r)
	if err != nil {
		handleError(w, err)
		return
	}

	balances, err := h.balanceService.GetGroupBalances(r.Context(), groupID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, balances)
}

func (h *Handlers) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	userID, groupID, err := requestIDs(r)
	if err != nil {
		handleError(w, err)
		return
	}

	suggestions, err := h.settlementService.SuggestSettlements(r.Context(), groupID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, suggestions)
}
