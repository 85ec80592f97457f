package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/linkup/backend/internal/models"
	"github.com/linkup/backend/internal/store"
)

// FriendshipService implements the friend-request lifecycle (send, accept,
// decline, remove) and the denormalization sweep that keeps display
// snapshots in sync after a profile edit. Every multi-document mutation is
// one atomic batch; the sweep commits one page per batch.
type FriendshipService struct {
	store store.Store
	now   func() time.Time

	// sweepPageSize bounds each sweep page; one update per document keeps
	// it within the store's batch limit.
	sweepPageSize int
}

func NewFriendshipService(st store.Store) *FriendshipService {
	return &FriendshipService{
		store:         st,
		now:           func() time.Time { return time.Now().UTC() },
		sweepPageSize: store.MaxBatchOps,
	}
}

// ProfileChanges carries the display fields of a profile edit. Nil fields
// did not change.
type ProfileChanges struct {
	DisplayName *string
	PhotoURL    *string
}

// SendFriendRequest writes both request mirrors plus the relationship pair
// doc in one batch and returns the pair id as the request id. The pair doc
// is created with a fail-if-exists precondition, so a concurrent send in
// either direction (or a send between existing friends) loses at commit
// with ErrAlreadyExists even when both calls pass the existence check.
func (s *FriendshipService) SendFriendRequest(ctx context.Context, senderID, recipientID string) (string, error) {
	if senderID == "" || recipientID == "" {
		return "", fmt.Errorf("%w: sender and recipient are required", ErrInvalidArgument)
	}
	if senderID == recipientID {
		return "", fmt.Errorf("%w: cannot send a friend request to yourself", ErrInvalidArgument)
	}

	sender, err := s.store.GetProfile(ctx, senderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("%w: sender profile %s", ErrNotFound, senderID)
		}
		return "", mapStoreErr(err)
	}
	recipient, err := s.store.GetProfile(ctx, recipientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("%w: recipient profile %s", ErrNotFound, recipientID)
		}
		return "", mapStoreErr(err)
	}

	pairID := store.PairID(senderID, recipientID)

	// Pre-check for a clean error message; the create precondition below is
	// what actually closes the race window.
	if _, err := s.store.GetPair(ctx, pairID); err == nil {
		return "", fmt.Errorf("%w: a request is already pending or the users are already friends", ErrAlreadyExists)
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", mapStoreErr(err)
	}

	now := s.now()
	b := s.store.Batch()
	b.CreatePair(pairID, &models.RelationshipPair{
		SenderID:    senderID,
		RecipientID: recipientID,
		Status:      models.PairStatusPending,
		UpdatedAt:   now,
	})
	b.CreateSentRequest(&models.FriendRequest{
		SenderID:    senderID,
		RecipientID: recipientID,
		DisplayName: recipient.DisplayName,
		PhotoURL:    recipient.PhotoURL,
		Status:      models.RequestStatusPending,
		CreatedAt:   now,
	})
	b.CreateReceivedRequest(&models.FriendRequest{
		SenderID:    senderID,
		RecipientID: recipientID,
		DisplayName: sender.DisplayName,
		PhotoURL:    sender.PhotoURL,
		Status:      models.RequestStatusPending,
		CreatedAt:   now,
	})
	if err := b.Commit(ctx); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return "", fmt.Errorf("%w: a request is already pending or the users are already friends", ErrAlreadyExists)
		}
		return "", mapStoreErr(err)
	}

	log.Printf("[friendship] request sent sender=%s recipient=%s", senderID, recipientID)
	return pairID, nil
}

// AcceptFriendRequest converts a pending request into a friendship: both
// request mirrors are deleted and both friend mirrors created, with fresh
// profile snapshots, in one batch. A second accept finds no request and
// returns ErrNotFound, never a duplicate friendship.
func (s *FriendshipService) AcceptFriendRequest(ctx context.Context, currentUserID, senderID string) error {
	if currentUserID == "" || senderID == "" {
		return fmt.Errorf("%w: user ids are required", ErrInvalidArgument)
	}
	if currentUserID == senderID {
		return fmt.Errorf("%w: cannot accept your own request", ErrInvalidArgument)
	}

	current, err := s.store.GetProfile(ctx, currentUserID)
	if err != nil {
		return mapStoreErr(err)
	}
	sender, err := s.store.GetProfile(ctx, senderID)
	if err != nil {
		return mapStoreErr(err)
	}

	req, err := s.store.GetReceivedRequest(ctx, currentUserID, senderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: no pending friend request from %s", ErrNotFound, senderID)
		}
		return mapStoreErr(err)
	}
	if req.Status != models.RequestStatusPending {
		return fmt.Errorf("%w: no pending friend request from %s", ErrNotFound, senderID)
	}

	now := s.now()
	b := s.store.Batch()
	b.DeleteReceivedRequest(currentUserID, senderID)
	b.DeleteSentRequest(senderID, currentUserID)
	b.SetFriend(&models.Friend{
		OwnerID:     currentUserID,
		FriendID:    senderID,
		DisplayName: sender.DisplayName,
		PhotoURL:    sender.PhotoURL,
		Since:       now,
	})
	b.SetFriend(&models.Friend{
		OwnerID:     senderID,
		FriendID:    currentUserID,
		DisplayName: current.DisplayName,
		PhotoURL:    current.PhotoURL,
		Since:       now,
	})
	b.SetPair(store.PairID(currentUserID, senderID), &models.RelationshipPair{
		SenderID:    req.SenderID,
		RecipientID: req.RecipientID,
		Status:      models.PairStatusFriends,
		UpdatedAt:   now,
	})
	if err := b.Commit(ctx); err != nil {
		return mapStoreErr(err)
	}

	log.Printf("[friendship] request accepted user=%s sender=%s", currentUserID, senderID)
	return nil
}

// DeclineFriendRequest deletes both request mirrors and the pair doc in one
// batch. No friendship is created, and the pair becomes free for a new
// request in either direction.
func (s *FriendshipService) DeclineFriendRequest(ctx context.Context, currentUserID, senderID string) error {
	if currentUserID == "" || senderID == "" {
		return fmt.Errorf("%w: user ids are required", ErrInvalidArgument)
	}
	if currentUserID == senderID {
		return fmt.Errorf("%w: cannot decline your own request", ErrInvalidArgument)
	}

	if _, err := s.store.GetReceivedRequest(ctx, currentUserID, senderID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: no pending friend request from %s", ErrNotFound, senderID)
		}
		return mapStoreErr(err)
	}

	b := s.store.Batch()
	b.DeleteReceivedRequest(currentUserID, senderID)
	b.DeleteSentRequest(senderID, currentUserID)
	b.DeletePair(store.PairID(currentUserID, senderID))
	if err := b.Commit(ctx); err != nil {
		return mapStoreErr(err)
	}

	log.Printf("[friendship] request declined user=%s sender=%s", currentUserID, senderID)
	return nil
}

// RemoveFriend deletes both friend mirrors in one batch. Removal is
// idempotent: deleting mirrors that are already gone is a no-op success.
// The pair doc is only removed when it actually records a friendship, so a
// stray remove cannot clobber the lock of a pending request.
func (s *FriendshipService) RemoveFriend(ctx context.Context, currentUserID, friendID string) error {
	if currentUserID == "" || friendID == "" {
		return fmt.Errorf("%w: user ids are required", ErrInvalidArgument)
	}
	if currentUserID == friendID {
		return fmt.Errorf("%w: cannot remove yourself", ErrInvalidArgument)
	}

	pairID := store.PairID(currentUserID, friendID)
	b := s.store.Batch()
	b.DeleteFriend(currentUserID, friendID)
	b.DeleteFriend(friendID, currentUserID)

	pair, err := s.store.GetPair(ctx, pairID)
	switch {
	case err == nil && pair.Status == models.PairStatusFriends:
		b.DeletePair(pairID)
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return mapStoreErr(err)
	}

	if err := b.Commit(ctx); err != nil {
		return mapStoreErr(err)
	}

	log.Printf("[friendship] friend removed user=%s friend=%s", currentUserID, friendID)
	return nil
}

// UpdateUserData propagates changed display fields into every denormalized
// copy referencing userID: received mirrors where they are the sender, sent
// mirrors where they are the recipient, and friend edges pointing at them.
// Each fan-out pages in batch-limit-sized chunks and commits a page before
// fetching the next, so a crash mid-sweep leaves individually consistent
// documents behind; readers may observe a mix of old and new values while
// the sweep runs. Re-running it writes the same values again, so a failed
// sweep is retried safely by calling it again.
func (s *FriendshipService) UpdateUserData(ctx context.Context, userID string, changes ProfileChanges) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}

	set := map[string]interface{}{}
	if changes.DisplayName != nil {
		set[store.FieldDisplayName] = *changes.DisplayName
	}
	if changes.PhotoURL != nil {
		set[store.FieldPhotoURL] = *changes.PhotoURL
	}
	if len(set) == 0 {
		return nil
	}

	if err := s.sweepReceivedMirrors(ctx, userID, set); err != nil {
		return err
	}
	if err := s.sweepSentMirrors(ctx, userID, set); err != nil {
		return err
	}
	if err := s.sweepFriendEdges(ctx, userID, set); err != nil {
		return err
	}

	log.Printf("[friendship] denormalized copies refreshed user=%s fields=%d", userID, len(set))
	return nil
}

func (s *FriendshipService) sweepReceivedMirrors(ctx context.Context, userID string, set map[string]interface{}) error {
	after := ""
	for {
		page, err := s.store.ListRequestsFromSender(ctx, userID, after, s.sweepPageSize)
		if err != nil {
			return mapStoreErr(err)
		}
		if len(page) == 0 {
			return nil
		}
		b := s.store.Batch()
		for _, r := range page {
			b.UpdateReceivedRequest(r.RecipientID, r.SenderID, set)
		}
		if err := b.Commit(ctx); err != nil {
			return fmt.Errorf("%w: propagation batch failed: %v", ErrInternal, err)
		}
		after = page[len(page)-1].RecipientID
		if len(page) < s.sweepPageSize {
			return nil
		}
	}
}

func (s *FriendshipService) sweepSentMirrors(ctx context.Context, userID string, set map[string]interface{}) error {
	after := ""
	for {
		page, err := s.store.ListRequestsToRecipient(ctx, userID, after, s.sweepPageSize)
		if err != nil {
			return mapStoreErr(err)
		}
		if len(page) == 0 {
			return nil
		}
		b := s.store.Batch()
		for _, r := range page {
			b.UpdateSentRequest(r.SenderID, r.RecipientID, set)
		}
		if err := b.Commit(ctx); err != nil {
			return fmt.Errorf("%w: propagation batch failed: %v", ErrInternal, err)
		}
		after = page[len(page)-1].SenderID
		if len(page) < s.sweepPageSize {
			return nil
		}
	}
}

func (s *FriendshipService) sweepFriendEdges(ctx context.Context, userID string, set map[string]interface{}) error {
	after := ""
	for {
		page, err := s.store.ListFriendEdgesTo(ctx, userID, after, s.sweepPageSize)
		if err != nil {
			return mapStoreErr(err)
		}
		if len(page) == 0 {
			return nil
		}
		b := s.store.Batch()
		for _, f := range page {
			b.UpdateFriend(f.OwnerID, f.FriendID, set)
		}
		if err := b.Commit(ctx); err != nil {
			return fmt.Errorf("%w: propagation batch failed: %v", ErrInternal, err)
		}
		after = page[len(page)-1].OwnerID
		if len(page) < s.sweepPageSize {
			return nil
		}
	}
}

// ListFriends returns the caller's friend mirrors, newest first.
func (s *FriendshipService) ListFriends(ctx context.Context, userID string) ([]models.Friend, error) {
	fs, err := s.store.ListFriends(ctx, userID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return fs, nil
}

// ListReceivedRequests returns requests waiting on the caller.
func (s *FriendshipService) ListReceivedRequests(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	rs, err := s.store.ListReceivedRequests(ctx, userID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return rs, nil
}

// ListSentRequests returns requests the caller has sent.
func (s *FriendshipService) ListSentRequests(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	rs, err := s.store.ListSentRequests(ctx, userID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return rs, nil
}
