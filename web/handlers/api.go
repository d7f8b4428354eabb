package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/keepsake-app/keepsake/internal/config"
	"github.com/keepsake-app/keepsake/internal/importer"
	"github.com/keepsake-app/keepsake/internal/services"
	"github.com/keepsake-app/keepsake/internal/storage"
	"github.com/keepsake-app/keepsake/pkg/types"
)

// APIHandlers contains the HTTP handlers for the REST API.
type APIHandlers struct {
	service  *services.CaptureService
	config   *config.Config
	validate *validator.Validate
	importer *importer.Importer
}

// NewAPIHandlers creates an APIHandlers instance. The importer may be nil
// when Markdown import is disabled.
func NewAPIHandlers(service *services.CaptureService, cfg *config.Config, imp *importer.Importer) *APIHandlers {
	return &APIHandlers{
		service:  service,
		config:   cfg,
		validate: validator.New(),
		importer: imp,
	}
}

// decodeValid decodes a JSON body into dst and runs struct validation.
func (h *APIHandlers) decodeValid(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return h.validate.Struct(dst)
}

// CreateMemory handles POST /api/memories.
func (h *APIHandlers) CreateMemory(w http.ResponseWriter, r *http.Request) {
	var req CreateMemoryRequest
	if err := h.decodeValid(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	memory, err := h.service.AddMemory(r.Context(), req.Memory())
	if err != nil {
		respondStoreError(w, "failed to create memory", err)
		return
	}
	respondJSON(w, http.StatusCreated, memory)
}

// GetMemory handles GET /api/memories/{id}.
func (h *APIHandlers) GetMemory(w http.ResponseWriter, r *http.Request) {
	memory, err := h.service.GetMemory(r.Context(), extractID(r, "id"))
	if err != nil {
		respondStoreError(w, "failed to get memory", err)
		return
	}
	respondJSON(w, http.StatusOK, memory)
}

// ListMemories handles GET /api/memories with optional type filter, time
// window, and limit.
func (h *APIHandlers) ListMemories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := storage.ListOptions{
		ContentType: types.ContentType(q.Get("type")),
		Limit:       parseInt(q.Get("limit"), 100),
	}
	if opts.Limit > 1000 {
		opts.Limit = 1000
	}
	if after := q.Get("after"); after != "" {
		t, err := time.Parse(time.RFC3339, after)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid after timestamp", err)
			return
		}
		opts.CreatedAfter = t
	}
	if before := q.Get("before"); before != "" {
		t, err := time.Parse(time.RFC3339, before)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid before timestamp", err)
			return
		}
		opts.CreatedBefore = t
	}

	memories, err := h.service.ListMemories(r.Context(), opts)
	if err != nil {
		respondStoreError(w, "failed to list memories", err)
		return
	}
	if memories == nil {
		memories = []types.Memory{}
	}
	respondJSON(w, http.StatusOK, memories)
}

// UpdateMemory handles PATCH /api/memories/{id}.
func (h *APIHandlers) UpdateMemory(w http.ResponseWriter, r *http.Request) {
	var req UpdateMemoryRequest
	if err := h.decodeValid(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	id := extractID(r, "id")
	if err := h.service.UpdateMemory(r.Context(), id, req.Patch()); err != nil {
		respondStoreError(w, "failed to update memory", err)
		return
	}

	memory, err := h.service.GetMemory(r.Context(), id)
	if err != nil {
		respondStoreError(w, "failed to load updated memory", err)
		return
	}
	respondJSON(w, http.StatusOK, memory)
}

// DeleteMemory handles DELETE /api/memories/{id}.
func (h *APIHandlers) DeleteMemory(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteMemory(r.Context(), extractID(r, "id")); err != nil {
		respondStoreError(w, "failed to delete memory", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordView handles POST /api/memories/{id}/view.
func (h *APIHandlers) RecordView(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RecordView(r.Context(), extractID(r, "id")); err != nil {
		respondStoreError(w, "failed to record view", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Timeline handles GET /api/timeline.
func (h *APIHandlers) Timeline(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.Timeline(r.Context(), requestTime(r))
	if err != nil {
		respondStoreError(w, "failed to build timeline", err)
		return
	}
	respondJSON(w, http.StatusOK, groups)
}

// FocusTimeline handles GET /api/timeline/focus.
func (h *APIHandlers) FocusTimeline(w http.ResponseWriter, r *http.Request) {
	groups, goal, err := h.service.FocusTimeline(r.Context(), requestTime(r))
	if err != nil {
		respondStoreError(w, "failed to build focus timeline", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"goal":   goal,
		"groups": groups,
	})
}

// Suggestions handles GET /api/suggestions.
func (h *APIHandlers) Suggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.service.Suggestions(r.Context(), requestTime(r))
	if err != nil {
		respondStoreError(w, "failed to build suggestions", err)
		return
	}
	respondJSON(w, http.StatusOK, suggestions)
}

// Stats handles GET /api/stats.
func (h *APIHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	total, today, err := h.service.Stats(r.Context(), requestTime(r))
	if err != nil {
		respondStoreError(w, "failed to compute stats", err)
		return
	}
	respondJSON(w, http.StatusOK, StatsResponse{Total: total, Today: today})
}

// Health handles GET /api/health.
func (h *APIHandlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ImportMarkdown handles POST /api/import/markdown.
func (h *APIHandlers) ImportMarkdown(w http.ResponseWriter, r *http.Request) {
	if h.importer == nil {
		respondError(w, http.StatusNotFound, "markdown import is disabled", nil)
		return
	}

	var req ImportRequest
	if err := h.decodeValid(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := h.importer.Run(r.Context(), req.Path)
	if err != nil {
		respondError(w, http.StatusBadRequest, "import failed", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// requestTime resolves the reference clock for derived views. Clients in
// another timezone pass ?tz_offset= as minutes east of UTC so day bucketing
// follows their local calendar.
func requestTime(r *http.Request) time.Time {
	now := time.Now()
	if off := r.URL.Query().Get("tz_offset"); off != "" {
		minutes := parseInt(off, 0)
		if minutes >= -14*60 && minutes <= 14*60 {
			return now.In(time.FixedZone("client", minutes*60))
		}
	}
	return now
}
