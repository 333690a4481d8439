package handlers

import (
	"net/http"

	"github.com/ttiimmothy/expense-splitter/services"
)

func (h *Handlers) GetSettlements(w http.ResponseWriter, r *http.Request) {
	userID, groupID, err := requestIDs(r)
	if err != nil {
		handleError(w, err)
		return
	}

	settlements, err := h.settlementService.ListSettlements(r.Context(), groupID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, settlements)
}

func (h *Handlers) RecordSettlement(w http.ResponseWriter, r *http.Request) {
	userID, groupID, err := requestIDs(r)
	if err != nil {
		handleError(w, err)
		return
	}

	var req services.RecordSettlementInput
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	settlement, err := h.settlementService.RecordSettlement(r.Context(), groupID, userID, req)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, settlement)
}
