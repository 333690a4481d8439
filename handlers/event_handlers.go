package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

// StreamEvents upgrades to a websocket that receives the group's
// expense, settlement and membership events.
func (h *Handlers) StreamEvents(w http.ResponseWriter, r *http.Request) {
	userID, groupID, err := requestIDs(r)
	if err != nil {
		handleError(w, err)
		return
	}

	if _, err := h.groupService.GetByID(r.Context(), groupID, userID); err != nil {
		handleError(w, err)
		return
	}

	// The upgrader has already answered the request when this fails.
	if err := h.events.ServeWS(w, r, groupID); err != nil {
		zap.L().Warn("Websocket upgrade failed", zap.String("group_id", groupID), zap.Error(err))
		return
	}
	zap.L().Debug("Event stream opened", zap.String("group_id", groupID), zap.String("user_id", userID))
}
