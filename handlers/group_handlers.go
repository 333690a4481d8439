package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/ttiimmothy/expense-splitter/errors"
)

type CreateGroupRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

type AddMemberRequest struct {
	Email string `json:"email"`
}

func (h *Handlers) GetGroups(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserID(r)
	if err != nil {
		handleError(w, err)
		return
	}

	groups, err := h.groupService.GetByUserID(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, groups)
}

func (h *Handlers) GetGroup(w http.ResponseWriter, r *http.Request) {
	userID, groupID, err := requestIDs(r)
	if err != nil {
		handleError(w, err)
		return
	}

	group, err := h.groupService.GetByID(r.Context(), groupID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, group)
}

func (h *Handlers) CreateGroup(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserID(r)
	if err != nil {
		handleError(w, err)
		return
	}

	var req CreateGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		handleError(w, apperrors.MissingRequiredField("Group name"))
		return
	}

	group, err := h.groupService.Create(r.Context(), userID, req.Name, req.Currency)
	if err != nil {
		handleError(w, err)
		return
	}

	zap.L().Info("Group created", zap.String("group_id", group.ID), zap.String("creator_id", userID))

	respondJSON(w, http.StatusCreated, group)
}

func (h *Handlers) AddMember(w http.ResponseWriter, r *http.Request) {
	userID, groupID, err := requestIDs(r)
	if err != nil {
		handleError(w, err)
		return
	}

	var req AddMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	user, err := h.groupService.AddMember(r.Context(), groupID, userID, req.Email)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

func (h *Handlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, groupID, err := requestIDs(r)
	if err != nil {
		handleError(w, err)
		return
	}

	memberID := chi.URLParam(r, "userID")
	if memberID == "" {
		handleError(w, apperrors.MissingRequiredField("Member ID"))
		return
	}

	if err := h.groupService.RemoveMember(r.Context(), groupID, userID, memberID); err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Member removed successfully"})
}
