package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

func (h *Handlers) ExplainBalances(w http.ResponseWriter, r *http.Request) {
	userID, groupID, err := requestIDs(r)
	if err != nil {
		handleError(w, err)
		return
	}

	zap.L().Info("Balance explanation requested", zap.String("group_id", groupID), zap.String("user_id", userID))
	explanation, err := h.explanationService.ExplainBalances(r.Context(), groupID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, explanation)
}
