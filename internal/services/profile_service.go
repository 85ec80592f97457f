package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/linkup/backend/internal/models"
	"github.com/linkup/backend/internal/store"
)

// IdentityEvent is the payload of a principal-created event from the
// authentication platform (or the local user service in dev).
type IdentityEvent struct {
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// ProfileService owns the profile documents: creation and deletion on
// identity events, and edits with their two side effects (one-way
// displayName sync back to the identity source, and the denormalization
// sweep through FriendshipService).
type ProfileService struct {
	store      store.Store
	identity   IdentitySource
	friendship *FriendshipService
	now        func() time.Time
}

func NewProfileService(st store.Store, identity IdentitySource, friendship *FriendshipService) *ProfileService {
	return &ProfileService{
		store:      st,
		identity:   identity,
		friendship: friendship,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// OnIdentityCreated writes the profile document for a new principal.
// Failures are logged and swallowed: nothing waits synchronously on
// identity events and there is no retry path, an accepted at-most-once
// policy.
func (s *ProfileService) OnIdentityCreated(ctx context.Context, ev IdentityEvent) {
	if ev.UID == "" {
		log.Printf("[profile] identity-created event without uid, ignoring")
		return
	}

	now := s.now()
	p := &models.Profile{
		UID:              ev.UID,
		Email:            ev.Email,
		DisplayName:      ev.DisplayName,
		PhotoURL:         ev.PhotoURL,
		EmailLower:       strings.ToLower(ev.Email),
		DisplayNameLower: strings.ToLower(ev.DisplayName),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreateProfile(ctx, p); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			log.Printf("[profile] profile already exists uid=%s", ev.UID)
			return
		}
		log.Printf("[profile] create failed uid=%s err=%v", ev.UID, err)
		return
	}
	log.Printf("[profile] profile created uid=%s", ev.UID)
}

// OnIdentityDeleted removes the profile document. Request and friend
// mirrors referencing the uid are left dangling on purpose; readers treat
// them as stale.
func (s *ProfileService) OnIdentityDeleted(ctx context.Context, uid string) {
	if uid == "" {
		log.Printf("[profile] identity-deleted event without uid, ignoring")
		return
	}
	if err := s.store.DeleteProfile(ctx, uid); err != nil {
		log.Printf("[profile] delete failed uid=%s err=%v", uid, err)
		return
	}
	log.Printf("[profile] profile deleted uid=%s", uid)
}

func (s *ProfileService) GetProfile(ctx context.Context, uid string) (*models.Profile, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}
	p, err := s.store.GetProfile(ctx, uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: profile %s", ErrNotFound, uid)
		}
		return nil, mapStoreErr(err)
	}
	return p, nil
}

// UpdateProfile applies a partial edit to the profile document, recomputing
// the lowercase search fields, then runs both propagation paths: the
// displayName is pushed back to the identity source (it stays the system of
// record for the displayed name; failures are logged and swallowed), and
// changed display fields fan out to every denormalized copy. A sweep
// failure surfaces as ErrInternal after the profile doc itself is already
// updated; re-running the edit (or the sweep) converges.
func (s *ProfileService) UpdateProfile(ctx context.Context, uid string, req *models.UpdateProfileRequest) (*models.Profile, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}

	before, err := s.GetProfile(ctx, uid)
	if err != nil {
		return nil, err
	}

	changes := ProfileChanges{}
	now := s.now()
	set := map[string]interface{}{store.FieldUpdatedAt: now}
	if req.DisplayName != nil && *req.DisplayName != before.DisplayName {
		set[store.FieldDisplayName] = *req.DisplayName
		set[store.FieldDisplayNameLower] = strings.ToLower(*req.DisplayName)
		changes.DisplayName = req.DisplayName
	}
	if req.PhotoURL != nil && *req.PhotoURL != before.PhotoURL {
		set[store.FieldPhotoURL] = *req.PhotoURL
		changes.PhotoURL = req.PhotoURL
	}
	if changes.DisplayName == nil && changes.PhotoURL == nil {
		return before, nil
	}

	if err := s.store.UpdateProfile(ctx, uid, set); err != nil {
		return nil, mapStoreErr(err)
	}

	after := *before
	after.UpdatedAt = now
	if changes.DisplayName != nil {
		after.DisplayName = *changes.DisplayName
		after.DisplayNameLower = strings.ToLower(*changes.DisplayName)
	}
	if changes.PhotoURL != nil {
		after.PhotoURL = *changes.PhotoURL
	}

	if changes.DisplayName != nil {
		if err := s.identity.UpdateDisplayName(ctx, uid, *changes.DisplayName); err != nil {
			log.Printf("[profile] identity displayName sync failed uid=%s err=%v", uid, err)
		}
	}

	if err := s.friendship.UpdateUserData(ctx, uid, changes); err != nil {
		// Committed pages stay committed; the caller retries by re-running.
		return &after, err
	}
	return &after, nil
}
