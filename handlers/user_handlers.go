package handlers

import (
	"net/http"

	"github.com/ttiimmothy/expense-splitter/middleware"
)

// EnsureUser creates the caller's user record from token claims on first
// sight, so they can be invited to groups by email.
func (h *Handlers) EnsureUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := getUserID(r)
		if err != nil {
			handleError(w, err)
			return
		}
		email, _ := middleware.GetUserEmail(r.Context())
		name, _ := middleware.GetUserName(r.Context())

		if _, err := h.userService.EnsureUser(r.Context(), userID, email, name); err != nil {
			handleError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserID(r)
	if err != nil {
		handleError(w, err)
		return
	}

	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}
