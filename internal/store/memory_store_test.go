package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/linkup/backend/internal/models"
)

func addProfile(t *testing.T, s *MemoryStore, uid, displayName, email string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, s.CreateProfile(context.Background(), &models.Profile{
		UID:              uid,
		Email:            email,
		DisplayName:      displayName,
		EmailLower:       strings.ToLower(email),
		DisplayNameLower: strings.ToLower(displayName),
		CreatedAt:        now,
		UpdatedAt:        now,
	}))
}

func TestPairID(t *testing.T) {
	require.Equal(t, "alice_bob", PairID("alice", "bob"))
	require.Equal(t, "alice_bob", PairID("bob", "alice"))
	require.Equal(t, "alice_alice", PairID("alice", "alice"))
}

func TestMemoryProfileCRUD(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	addProfile(t, s, "u1", "Ann", "ann@example.com")

	err := s.CreateProfile(ctx, &models.Profile{UID: "u1"})
	require.ErrorIs(t, err, ErrAlreadyExists)

	require.NoError(t, s.UpdateProfile(ctx, "u1", map[string]interface{}{
		FieldDisplayName:      "Ann Lee",
		FieldDisplayNameLower: "ann lee",
	}))
	p, err := s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "Ann Lee", p.DisplayName)
	require.Equal(t, "ann lee", p.DisplayNameLower)

	require.ErrorIs(t, s.UpdateProfile(ctx, "ghost", map[string]interface{}{FieldDisplayName: "x"}), ErrNotFound)

	require.NoError(t, s.DeleteProfile(ctx, "u1"))
	_, err = s.GetProfile(ctx, "u1")
	require.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing profile is a no-op.
	require.NoError(t, s.DeleteProfile(ctx, "u1"))
}

func TestMemorySearchProfilesByPrefix(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	addProfile(t, s, "u3", "carol", "carol@example.com")
	addProfile(t, s, "u1", "carl", "carl@example.com")
	addProfile(t, s, "u2", "carla", "carla@example.com")
	addProfile(t, s, "u4", "dave", "dave@example.com")

	got, err := s.SearchProfilesByPrefix(ctx, FieldDisplayNameLower, "car", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// Ordered by the searched field.
	require.Equal(t, "carl", got[0].DisplayName)
	require.Equal(t, "carla", got[1].DisplayName)
	require.Equal(t, "carol", got[2].DisplayName)

	got, err = s.SearchProfilesByPrefix(ctx, FieldDisplayNameLower, "car", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = s.SearchProfilesByPrefix(ctx, FieldEmailLower, "dave@", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "u4", got[0].UID)
}

func TestMemoryBatchAtomicOnCreateConflict(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	first := s.Batch()
	first.CreatePair("a_b", &models.RelationshipPair{SenderID: "a", RecipientID: "b", Status: models.PairStatusPending, UpdatedAt: now})
	require.NoError(t, first.Commit(ctx))

	// Second batch stages its mirrors before the conflicting pair create;
	// nothing from it may land.
	second := s.Batch()
	second.CreateSentRequest(&models.FriendRequest{SenderID: "b", RecipientID: "a", Status: models.RequestStatusPending, CreatedAt: now})
	second.CreateReceivedRequest(&models.FriendRequest{SenderID: "b", RecipientID: "a", Status: models.RequestStatusPending, CreatedAt: now})
	second.CreatePair("a_b", &models.RelationshipPair{SenderID: "b", RecipientID: "a", Status: models.PairStatusPending, UpdatedAt: now})
	require.ErrorIs(t, second.Commit(ctx), ErrAlreadyExists)

	_, err := s.GetSentRequest(ctx, "b", "a")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetReceivedRequest(ctx, "a", "b")
	require.ErrorIs(t, err, ErrNotFound)

	pair, err := s.GetPair(ctx, "a_b")
	require.NoError(t, err)
	require.Equal(t, "a", pair.SenderID)
}

func TestMemoryBatchUpdateMissingFails(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	b := s.Batch()
	b.UpdateFriend("a", "b", map[string]interface{}{FieldDisplayName: "x"})
	require.ErrorIs(t, b.Commit(ctx), ErrNotFound)
}

func TestMemoryBatchDeleteMissingIsNoop(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	b := s.Batch()
	b.DeleteFriend("a", "b")
	b.DeleteSentRequest("a", "b")
	b.DeleteReceivedRequest("b", "a")
	b.DeletePair("a_b")
	require.Equal(t, 4, b.Len())
	require.NoError(t, b.Commit(ctx))
}

func TestMemoryListRequestsNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Now().UTC()

	b := s.Batch()
	b.CreateReceivedRequest(&models.FriendRequest{SenderID: "old", RecipientID: "me", Status: models.RequestStatusPending, CreatedAt: base.Add(-time.Hour)})
	b.CreateReceivedRequest(&models.FriendRequest{SenderID: "new", RecipientID: "me", Status: models.RequestStatusPending, CreatedAt: base})
	require.NoError(t, b.Commit(ctx))

	got, err := s.ListReceivedRequests(ctx, "me")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "new", got[0].SenderID)
	require.Equal(t, "old", got[1].SenderID)
}

func TestMemoryFanOutCursorPaging(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	owners := []string{"o1", "o2", "o3", "o4", "o5"}
	b := s.Batch()
	for _, o := range owners {
		b.SetFriend(&models.Friend{OwnerID: o, FriendID: "hub", DisplayName: "Hub", Since: now})
	}
	require.NoError(t, b.Commit(ctx))

	var seen []string
	after := ""
	for {
		page, err := s.ListFriendEdgesTo(ctx, "hub", after, 2)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, f := range page {
			seen = append(seen, f.OwnerID)
		}
		after = page[len(page)-1].OwnerID
		if len(page) < 2 {
			break
		}
	}
	require.Equal(t, owners, seen)
}

func TestMemoryRequestFanOutCursors(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	b := s.Batch()
	for _, r := range []string{"r1", "r2", "r3"} {
		b.CreateReceivedRequest(&models.FriendRequest{SenderID: "hub", RecipientID: r, Status: models.RequestStatusPending, CreatedAt: now})
	}
	for _, snd := range []string{"s1", "s2"} {
		b.CreateSentRequest(&models.FriendRequest{SenderID: snd, RecipientID: "hub", Status: models.RequestStatusPending, CreatedAt: now})
	}
	require.NoError(t, b.Commit(ctx))

	page, err := s.ListRequestsFromSender(ctx, "hub", "", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "r1", page[0].RecipientID)

	page, err = s.ListRequestsFromSender(ctx, "hub", page[1].RecipientID, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "r3", page[0].RecipientID)

	page, err = s.ListRequestsToRecipient(ctx, "hub", "", 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "s1", page[0].SenderID)
	require.Equal(t, "s2", page[1].SenderID)
}

func TestMemoryBatchUpdatesMirrors(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	b := s.Batch()
	b.SetFriend(&models.Friend{OwnerID: "a", FriendID: "b", DisplayName: "Old", Since: now})
	b.CreateSentRequest(&models.FriendRequest{SenderID: "a", RecipientID: "c", DisplayName: "Old", Status: models.RequestStatusPending, CreatedAt: now})
	require.NoError(t, b.Commit(ctx))

	b = s.Batch()
	b.UpdateFriend("a", "b", map[string]interface{}{FieldDisplayName: "New", FieldPhotoURL: "p"})
	b.UpdateSentRequest("a", "c", map[string]interface{}{FieldDisplayName: "New"})
	require.NoError(t, b.Commit(ctx))

	f, err := s.GetFriend(ctx, "a", "b")
	require.NoError(t, err)
	require.Equal(t, "New", f.DisplayName)
	require.Equal(t, "p", f.PhotoURL)

	r, err := s.GetSentRequest(ctx, "a", "c")
	require.NoError(t, err)
	require.Equal(t, "New", r.DisplayName)
}
