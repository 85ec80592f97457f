package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/linkup/backend/internal/models"
	"github.com/linkup/backend/internal/store"
)

func seedProfile(t *testing.T, st *store.MemoryStore, uid, displayName string) {
	t.Helper()
	now := time.Now().UTC()
	err := st.CreateProfile(context.Background(), &models.Profile{
		UID:              uid,
		Email:            uid + "@example.com",
		DisplayName:      displayName,
		PhotoURL:         "https://photos.example.com/" + uid + ".jpg",
		EmailLower:       strings.ToLower(uid) + "@example.com",
		DisplayNameLower: strings.ToLower(displayName),
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	require.NoError(t, err)
}

func TestSendFriendRequest_Validation(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewFriendshipService(st)
	ctx := context.Background()

	_, err := svc.SendFriendRequest(ctx, "", "bob")
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.SendFriendRequest(ctx, "alice", "alice")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSendFriendRequest_MissingProfiles(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewFriendshipService(st)
	ctx := context.Background()

	seedProfile(t, st, "alice", "Alice")

	_, err := svc.SendFriendRequest(ctx, "alice", "bob")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.SendFriendRequest(ctx, "ghost", "alice")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSendFriendRequest_WritesBothMirrorsAndPair(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewFriendshipService(st)
	ctx := context.Background()

	seedProfile(t, st, "alice", "Alice")
	seedProfile(t, st, "bob", "Bob")

	requestID, err := svc.SendFriendRequest(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Equal(t, store.PairID("alice", "bob"), requestID)

	// Sender's mirror carries a snapshot of the recipient.
	sent, err := st.GetSentRequest(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Equal(t, "Bob", sent.DisplayName)
	require.Equal(t, models.RequestStatusPending, sent.Status)

	// Recipient's mirror carries a snapshot of the sender.
	recv, err := st.GetReceivedRequest(ctx, "bob", "alice")
	require.NoError(t, err)
	require.Equal(t, "Alice", recv.DisplayName)
	require.Equal(t, models.RequestStatusPending, recv.Status)

	pair, err := st.GetPair(ctx, requestID)
	require.NoError(t, err)
	require.Equal(t, models.PairStatusPending, pair.Status)
	require.Equal(t, "alice", pair.SenderID)
}

func TestSendFriendRequest_DuplicateEitherDirection(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewFriendshipService(st)
	ctx := context.Background()

	seedProfile(t, st, "alice", "Alice")
	seedProfile(t, st, "bob", "Bob")

	_, err := svc.SendFriendRequest(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = svc.SendFriendRequest(ctx, "alice", "bob")
	require.ErrorIs(t, err, ErrAlreadyExists)

	// The reverse direction maps to the same pair doc and loses too.
	_, err = svc.SendFriendRequest(ctx, "bob", "alice")
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestSendFriendRequest_PairDocClosesRace(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewFriendshipService(st)
	ctx := context.Background()

	seedProfile(t, st, "alice", "Alice")
	seedProfile(t, st, "bob", "Bob")

	// Simulate a concurrent send that committed between this caller's
	// existence check and its batch commit: the pair doc already exists, so
	// the create precondition rejects the batch.
	b := st.Batch()
	b.CreatePair(store.PairID("alice", "bob"), &models.RelationshipPair{
		SenderID:    "bob",
		RecipientID: "alice",
		Status:      models.PairStatusPending,
		UpdatedAt:   time.Now().UTC(),
	})
	require.NoError(t, b.Commit(ctx))

	_, err := svc.SendFriendRequest(ctx, "alice", "bob")
	require.ErrorIs(t, err, ErrAlreadyExists)

	// The losing send left no mirrors behind.
	_, err = st.GetSentRequest(ctx, "alice", "bob")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.GetReceivedRequest(ctx, "bob", "alice")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAcceptFriendRequest(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewFriendshipService(st)
	ctx := context.Background()

	seedProfile(t, st, "alice", "Alice")
	seedProfile(t, st, "bob", "Bob")

	_, err := svc.SendFriendRequest(ctx, "alice", "bob")
	require.NoError(t, err)

	require.NoError(t, svc.AcceptFriendRequest(ctx, "bob", "alice"))

	// Request mirrors are gone.
	_, err = st.GetSentRequest(ctx, "alice", "bob")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.GetReceivedRequest(ctx, "bob", "alice")
	require.ErrorIs(t, err, store.ErrNotFound)

	// Both friend mirrors exist with the counterpart's snapshot.
	af, err := st.GetFriend(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Equal(t, "Bob", af.DisplayName)

	bf, err := st.GetFriend(ctx, "bob", "alice")
	require.NoError(t, err)
	require.Equal(t, "Alice", bf.DisplayName)

	pair, err := st.GetPair(ctx, store.PairID("alice", "bob"))
	require.NoError(t, err)
	require.Equal(t, models.PairStatusFriends, pair.Status)

	// A second accept finds no pending request.
	err = svc.AcceptFriendRequest(ctx, "bob", "alice")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAcceptFriendRequest_NoRequest(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewFriendshipService(st)
	ctx := context.Background()

	seedProfile(t, st, "alice", "Alice")
	seedProfile(t, st, "bob", "Bob")

	err := svc.AcceptFriendRequest(ctx, "bob", "alice")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeclineFriendRequest_FreesThePair(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewFriendshipService(st)
	ctx := context.Background()

	seedProfile(t, st, "alice", "Alice")
	seedProfile(t, st, "bob", "Bob")

	_, err := svc.SendFriendRequest(ctx, "alice", "bob")
	require.NoError(t, err)

	require.NoError(t, svc.DeclineFriendRequest(ctx, "bob", "alice"))

	_, err = st.GetSentRequest(ctx, "alice", "bob")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.GetReceivedRequest(ctx, "bob", "alice")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.GetPair(ctx, store.PairID("alice", "bob"))
	require.ErrorIs(t, err, store.ErrNotFound)

	// No friendship was created and a fresh request in either direction
	// goes through.
	_, err = st.GetFriend(ctx, "bob", "alice")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.SendFriendRequest(ctx, "bob", "alice")
	require.NoError(t, err)
}

func TestDeclineFriendRequest_NoRequest(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewFriendshipService(st)
	ctx := context.Background()

	seedProfile(t, st, "alice", "Alice")

	err := svc.DeclineFriendRequest(ctx, "alice", "bob")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveFriend(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewFriendshipService(st)
	ctx := context.Background()

	seedProfile(t, st, "alice", "Alice")
	seedProfile(t, st, "bob", "Bob")

	_, err := svc.SendFriendRequest(ctx, "alice", "bob")
	require.NoError(t, err)
	require.NoError(t, svc.AcceptFriendRequest(ctx, "bob", "alice"))

	require.NoError(t, svc.RemoveFriend(ctx, "alice", "bob"))

	_, err = st.GetFriend(ctx, "alice", "bob")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.GetFriend(ctx, "bob", "alice")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.GetPair(ctx, store.PairID("alice", "bob"))
	require.ErrorIs(t, err, store.ErrNotFound)

	// Removal is idempotent.
	require.NoError(t, svc.RemoveFriend(ctx, "alice", "bob"))

	// The pair is free again.
	_, err = svc.SendFriendRequest(ctx, "bob", "alice")
	require.NoError(t, err)
}

func TestRemoveFriend_LeavesPendingPairAlone(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewFriendshipService(st)
	ctx := context.Background()

	seedProfile(t, st, "alice", "Alice")
	seedProfile(t, st, "bob", "Bob")

	_, err := svc.SendFriendRequest(ctx, "alice", "bob")
	require.NoError(t, err)

	// A stray remove while the request is still pending must not delete
	// the pair doc guarding it.
	require.NoError(t, svc.RemoveFriend(ctx, "alice", "bob"))

	pair, err := st.GetPair(ctx, store.PairID("alice", "bob"))
	require.NoError(t, err)
	require.Equal(t, models.PairStatusPending, pair.Status)
}

func TestUpdateUserData_PropagatesToAllMirrors(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewFriendshipService(st)
	ctx := context.Background()

	seedProfile(t, st, "ann", "Ann")
	seedProfile(t, st, "bob", "Bob")
	seedProfile(t, st, "cara", "Cara")
	seedProfile(t, st, "dan", "Dan")

	// ann -> bob pending, cara -> ann pending, ann and dan are friends.
	_, err := svc.SendFriendRequest(ctx, "ann", "bob")
	require.NoError(t, err)
	_, err = svc.SendFriendRequest(ctx, "cara", "ann")
	require.NoError(t, err)
	_, err = svc.SendFriendRequest(ctx, "ann", "dan")
	require.NoError(t, err)
	require.NoError(t, svc.AcceptFriendRequest(ctx, "dan", "ann"))

	name := "Ann Lee"
	photo := "https://photos.example.com/ann-2.jpg"
	require.NoError(t, svc.UpdateUserData(ctx, "ann", ProfileChanges{DisplayName: &name, PhotoURL: &photo}))

	// Bob's received mirror shows the new snapshot.
	recv, err := st.GetReceivedRequest(ctx, "bob", "ann")
	require.NoError(t, err)
	require.Equal(t, "Ann Lee", recv.DisplayName)
	require.Equal(t, photo, recv.PhotoURL)

	// Ann's incoming request lives in cara's sent mirror.
	sent, err := st.GetSentRequest(ctx, "cara", "ann")
	require.NoError(t, err)
	require.Equal(t, "Ann Lee", sent.DisplayName)

	// Dan's friend edge shows the new snapshot.
	f, err := st.GetFriend(ctx, "dan", "ann")
	require.NoError(t, err)
	require.Equal(t, "Ann Lee", f.DisplayName)
	require.Equal(t, photo, f.PhotoURL)

	// Ann's own copies of other people are untouched.
	f, err = st.GetFriend(ctx, "ann", "dan")
	require.NoError(t, err)
	require.Equal(t, "Dan", f.DisplayName)
}

func TestUpdateUserData_NoChangesIsNoop(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewFriendshipService(st)

	require.NoError(t, svc.UpdateUserData(context.Background(), "ann", ProfileChanges{}))
}

func TestUpdateUserData_NoMatchesSucceeds(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewFriendshipService(st)

	name := "Nobody Knows Me"
	err := svc.UpdateUserData(context.Background(), "loner", ProfileChanges{DisplayName: &name})
	require.NoError(t, err)
}

func TestUpdateUserData_PagesThroughLargeFanOut(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewFriendshipService(st)
	svc.sweepPageSize = 2
	ctx := context.Background()

	seedProfile(t, st, "hub", "Hub")
	peers := []string{"p1", "p2", "p3", "p4", "p5"}
	for _, p := range peers {
		seedProfile(t, st, p, "Peer "+p)
		_, err := svc.SendFriendRequest(ctx, "hub", p)
		require.NoError(t, err)
		require.NoError(t, svc.AcceptFriendRequest(ctx, p, "hub"))
	}

	name := "Hub Prime"
	require.NoError(t, svc.UpdateUserData(ctx, "hub", ProfileChanges{DisplayName: &name}))

	for _, p := range peers {
		f, err := st.GetFriend(ctx, p, "hub")
		require.NoError(t, err)
		require.Equal(t, "Hub Prime", f.DisplayName, "edge owned by %s", p)
	}
}

func TestUpdateUserData_Idempotent(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewFriendshipService(st)
	ctx := context.Background()

	seedProfile(t, st, "ann", "Ann")
	seedProfile(t, st, "bob", "Bob")
	_, err := svc.SendFriendRequest(ctx, "ann", "bob")
	require.NoError(t, err)

	name := "Ann Lee"
	require.NoError(t, svc.UpdateUserData(ctx, "ann", ProfileChanges{DisplayName: &name}))
	require.NoError(t, svc.UpdateUserData(ctx, "ann", ProfileChanges{DisplayName: &name}))

	recv, err := st.GetReceivedRequest(ctx, "bob", "ann")
	require.NoError(t, err)
	require.Equal(t, "Ann Lee", recv.DisplayName)
}

func TestListFriendsAndRequests(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewFriendshipService(st)
	ctx := context.Background()

	seedProfile(t, st, "alice", "Alice")
	seedProfile(t, st, "bob", "Bob")
	seedProfile(t, st, "cara", "Cara")

	_, err := svc.SendFriendRequest(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = svc.SendFriendRequest(ctx, "cara", "alice")
	require.NoError(t, err)
	require.NoError(t, svc.AcceptFriendRequest(ctx, "bob", "alice"))

	friends, err := svc.ListFriends(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, friends, 1)
	require.Equal(t, "bob", friends[0].FriendID)

	received, err := svc.ListReceivedRequests(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, received, 1)
	require.Equal(t, "cara", received[0].SenderID)

	sent, err := svc.ListSentRequests(ctx, "cara")
	require.NoError(t, err)
	require.Len(t, sent, 1)
	require.Equal(t, "alice", sent[0].RecipientID)
}
