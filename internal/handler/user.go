package handler

import (
	"encoding/json"
	"net/http"

	"github.com/inkwell/inkwell/internal/auth"
)

// GetUserCreations handles GET /api/ai/user/get-user-creations.
func (h *AIHandler) GetUserCreations(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromContext(r.Context())
	if authCtx == nil {
		writeMessage(w, http.StatusUnauthorized, false, "Authentication required")
		return
	}

	creations, err := h.creations.ListUserCreations(r.Context(), authCtx.UserID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"creations": creations,
	})
}

// GetPublishedCreations handles GET /api/ai/user/get-published-creations.
func (h *AIHandler) GetPublishedCreations(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromContext(r.Context())
	if authCtx == nil {
		writeMessage(w, http.StatusUnauthorized, false, "Authentication required")
		return
	}

	creations, err := h.creations.ListPublishedCreations(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"creations": creations,
	})
}

type toggleLikeRequest struct {
	ID string `json:"id"`
}

// ToggleLike handles POST /api/ai/user/toggle-like.
func (h *AIHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromContext(r.Context())
	if authCtx == nil {
		writeMessage(w, http.StatusUnauthorized, false, "Authentication required")
		return
	}

	var req toggleLikeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}

	result, err := h.creations.ToggleLike(r.Context(), authCtx.UserID, req.ID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, true, result.Message)
}
