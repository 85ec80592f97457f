package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/linkup/backend/internal/middleware"
	"github.com/linkup/backend/internal/models"
	"github.com/linkup/backend/internal/services"
)

type FriendHandler struct {
	friendship *services.FriendshipService
}

func NewFriendHandler(friendship *services.FriendshipService) *FriendHandler {
	return &FriendHandler{friendship: friendship}
}

func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	var req models.SendFriendRequestInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if req.RecipientID == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("recipient_id is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	requestID, err := h.friendship.SendFriendRequest(ctx, userID, req.RecipientID)
	if err != nil {
		writeServiceError(w, err, "Failed to send friend request")
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(map[string]string{"request_id": requestID}))
}

func (h *FriendHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}
	senderID := chi.URLParam(r, "senderId")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.friendship.AcceptFriendRequest(ctx, userID, senderID); err != nil {
		writeServiceError(w, err, "Failed to accept friend request")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(nil))
}

func (h *FriendHandler) DeclineRequest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}
	senderID := chi.URLParam(r, "senderId")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.friendship.DeclineFriendRequest(ctx, userID, senderID); err != nil {
		writeServiceError(w, err, "Failed to decline friend request")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(nil))
}

func (h *FriendHandler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}
	friendID := chi.URLParam(r, "friendId")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.friendship.RemoveFriend(ctx, userID, friendID); err != nil {
		writeServiceError(w, err, "Failed to remove friend")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(nil))
}

func (h *FriendHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	friends, err := h.friendship.ListFriends(ctx, userID)
	if err != nil {
		writeServiceError(w, err, "Failed to list friends")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(friends))
}

func (h *FriendHandler) ListReceivedRequests(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	requests, err := h.friendship.ListReceivedRequests(ctx, userID)
	if err != nil {
		writeServiceError(w, err, "Failed to list friend requests")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(requests))
}

func (h *FriendHandler) ListSentRequests(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	requests, err := h.friendship.ListSentRequests(ctx, userID)
	if err != nil {
		writeServiceError(w, err, "Failed to list sent requests")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(requests))
}
