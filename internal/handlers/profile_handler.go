package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/linkup/backend/internal/middleware"
	"github.com/linkup/backend/internal/models"
	"github.com/linkup/backend/internal/services"
)

type ProfileHandler struct {
	profiles *services.ProfileService
	search   *services.SearchService
}

func NewProfileHandler(profiles *services.ProfileService, search *services.SearchService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, search: search}
}

func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	prof, err := h.profiles.GetProfile(ctx, userID)
	if err != nil {
		writeServiceError(w, err, "Failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(prof))
}

// UpdateProfile applies a partial edit. The profile document is written
// first; the denormalization sweep runs after it, so a 500 here can mean
// "profile saved, propagation incomplete" — retrying the same edit
// converges.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	var req models.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	prof, err := h.profiles.UpdateProfile(ctx, userID, &req)
	if err != nil {
		writeServiceError(w, err, "Failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(prof))
}

func (h *ProfileHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	results, err := h.search.SearchUsers(ctx, userID, r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err, "Failed to search users")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(results))
}
