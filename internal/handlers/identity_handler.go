package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/linkup/backend/internal/models"
	"github.com/linkup/backend/internal/services"
)

// IdentityHandler receives identity lifecycle hooks from the auth platform.
// Both endpoints always ack: the handlers log and swallow failures because
// there is no retry path for these events.
type IdentityHandler struct {
	profiles *services.ProfileService
}

func NewIdentityHandler(profiles *services.ProfileService) *IdentityHandler {
	return &IdentityHandler{profiles: profiles}
}

func (h *IdentityHandler) Created(w http.ResponseWriter, r *http.Request) {
	var ev services.IdentityEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if ev.UID == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("uid is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	h.profiles.OnIdentityCreated(ctx, ev)
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(nil))
}

func (h *IdentityHandler) Deleted(w http.ResponseWriter, r *http.Request) {
	var ev struct {
		UID string `json:"uid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if ev.UID == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("uid is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	h.profiles.OnIdentityDeleted(ctx, ev.UID)
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(nil))
}
