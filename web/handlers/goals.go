package handlers

import (
	"net/http"

	"github.com/keepsake-app/keepsake/pkg/types"
)

// ListGoals handles GET /api/goals.
func (h *APIHandlers) ListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.service.ListGoals(r.Context())
	if err != nil {
		respondStoreError(w, "failed to list goals", err)
		return
	}
	if goals == nil {
		goals = []types.FocusGoal{}
	}
	respondJSON(w, http.StatusOK, goals)
}

// CreateGoal handles POST /api/goals.
func (h *APIHandlers) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var req CreateGoalRequest
	if err := h.decodeValid(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	goal, err := h.service.AddGoal(r.Context(), req.Name)
	if err != nil {
		respondStoreError(w, "failed to create goal", err)
		return
	}
	respondJSON(w, http.StatusCreated, goal)
}

// DeleteGoal handles DELETE /api/goals/{id}.
func (h *APIHandlers) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteGoal(r.Context(), extractID(r, "id")); err != nil {
		respondStoreError(w, "failed to delete goal", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetActiveGoal handles GET /api/goals/active. Responds with null when no
// goal is active.
func (h *APIHandlers) GetActiveGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := h.service.ActiveGoal(r.Context())
	if err != nil {
		respondStoreError(w, "failed to get active goal", err)
		return
	}
	respondJSON(w, http.StatusOK, goal)
}

// SetActiveGoal handles PUT /api/goals/active. An empty id clears the
// selection.
func (h *APIHandlers) SetActiveGoal(w http.ResponseWriter, r *http.Request) {
	var req SetActiveGoalRequest
	if err := h.decodeValid(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.service.SetActiveGoal(r.Context(), req.ID); err != nil {
		respondStoreError(w, "failed to set active goal", err)
		return
	}

	goal, err := h.service.ActiveGoal(r.Context())
	if err != nil {
		respondStoreError(w, "failed to get active goal", err)
		return
	}
	respondJSON(w, http.StatusOK, goal)
}

// GetPreferences handles GET /api/preferences.
func (h *APIHandlers) GetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.service.GetPreferences(r.Context())
	if err != nil {
		respondStoreError(w, "failed to get preferences", err)
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}

// UpdatePreferences handles PATCH /api/preferences.
func (h *APIHandlers) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req UpdatePreferencesRequest
	if err := h.decodeValid(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	prefs, err := h.service.UpdatePreferences(r.Context(), req.Patch())
	if err != nil {
		respondStoreError(w, "failed to update preferences", err)
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}
