package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/linkup/backend/internal/models"
	"github.com/linkup/backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeServiceError maps the service taxonomy onto HTTP statuses. Internal
// and unrecognized errors get the generic fallback message so store error
// shapes never reach the client.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse(err.Error()))
	case errors.Is(err, services.ErrNotFound):
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse(err.Error()))
	case errors.Is(err, services.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, models.NewErrorResponse(err.Error()))
	default:
		log.Printf("[api] %s: %v", fallback, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse(fallback))
	}
}
