// Package handlers provides the HTTP handlers and middleware for the
// Keepsake local API.
package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/keepsake-app/keepsake/internal/storage"
	"github.com/keepsake-app/keepsake/pkg/types"
)

// ErrorResponse is the standard error response format for the API.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// CreateMemoryRequest is the payload for POST /api/memories.
type CreateMemoryRequest struct {
	Content      string     `json:"content"`
	ContentType  string     `json:"content_type" validate:"required,oneof=text voice photo link screenshot"`
	AudioURI     string     `json:"audio_uri,omitempty" validate:"omitempty,uri"`
	ImageURI     string     `json:"image_uri,omitempty" validate:"omitempty,uri"`
	LinkURL      string     `json:"link_url,omitempty" validate:"omitempty,url"`
	LinkTitle    string     `json:"link_title,omitempty"`
	FocusTags    string     `json:"focus_tags,omitempty"`
	Latitude     *float64   `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude    *float64   `json:"longitude,omitempty" validate:"omitempty,longitude"`
	LocationName string     `json:"location_name,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

// Memory converts the request into a domain record. Deep validation
// (field-group matching per content type) happens in the store.
func (req *CreateMemoryRequest) Memory() *types.Memory {
	m := &types.Memory{
		Content:      req.Content,
		ContentType:  types.ContentType(req.ContentType),
		AudioURI:     req.AudioURI,
		ImageURI:     req.ImageURI,
		LinkURL:      req.LinkURL,
		LinkTitle:    req.LinkTitle,
		FocusTags:    req.FocusTags,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		LocationName: req.LocationName,
	}
	if req.CreatedAt != nil {
		m.CreatedAt = *req.CreatedAt
	}
	return m
}

// UpdateMemoryRequest is the payload for PATCH /api/memories/{id}.
// Absent fields are left untouched.
type UpdateMemoryRequest struct {
	Content      *string `json:"content,omitempty"`
	FocusTags    *string `json:"focus_tags,omitempty"`
	LocationName *string `json:"location_name,omitempty"`
	LinkTitle    *string `json:"link_title,omitempty"`
	LinkPreview  *string `json:"link_preview,omitempty"`
}

// Patch converts the request into a storage patch.
func (req *UpdateMemoryRequest) Patch() storage.MemoryUpdate {
	return storage.MemoryUpdate{
		Content:      req.Content,
		FocusTags:    req.FocusTags,
		LocationName: req.LocationName,
		LinkTitle:    req.LinkTitle,
		LinkPreview:  req.LinkPreview,
	}
}

// CreateGoalRequest is the payload for POST /api/goals.
type CreateGoalRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

// SetActiveGoalRequest is the payload for PUT /api/goals/active.
// An empty ID clears the selection.
type SetActiveGoalRequest struct {
	ID string `json:"id"`
}

// UpdatePreferencesRequest is the payload for PATCH /api/preferences.
type UpdatePreferencesRequest struct {
	DisplayName     *string `json:"display_name,omitempty" validate:"omitempty,min=1,max=64"`
	AvatarIndex     *int    `json:"avatar_index,omitempty" validate:"omitempty,min=0,max=2"`
	ThemeMode       *string `json:"theme_mode,omitempty" validate:"omitempty,oneof=light dark auto"`
	LocationEnabled *bool   `json:"location_enabled,omitempty"`
}

// Patch converts the request into a storage patch.
func (req *UpdatePreferencesRequest) Patch() storage.PreferencesUpdate {
	patch := storage.PreferencesUpdate{
		DisplayName:     req.DisplayName,
		AvatarIndex:     req.AvatarIndex,
		LocationEnabled: req.LocationEnabled,
	}
	if req.ThemeMode != nil {
		mode := types.ThemeMode(*req.ThemeMode)
		patch.ThemeMode = &mode
	}
	return patch
}

// ImportRequest is the payload for POST /api/import/markdown.
type ImportRequest struct {
	Path string `json:"path" validate:"required"`
}

// StatsResponse is the response format for GET /api/stats.
type StatsResponse struct {
	Total int `json:"total"`
	Today int `json:"today"`
}

// extractID pulls a path parameter from the request.
func extractID(r *http.Request, key string) string {
	return r.PathValue(key)
}

// parseInt parses an integer from a string, returning defaultValue on
// failure.
func parseInt(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return val
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers already sent, nothing more to do than log.
		log.Printf("handlers: encode response: %v", err)
	}
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errResp := ErrorResponse{
		Error: message,
		Code:  http.StatusText(statusCode),
	}
	if err != nil {
		errResp.Details = map[string]interface{}{
			"error": err.Error(),
		}
	}
	respondJSON(w, statusCode, errResp)
}

// respondStoreError maps store sentinels to HTTP status codes.
func respondStoreError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, message, err)
	case errors.Is(err, storage.ErrValidation):
		respondError(w, http.StatusBadRequest, message, err)
	default:
		respondError(w, http.StatusInternalServerError, message, err)
	}
}
