package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/linkup/backend/internal/models"
)

const (
	usersCollection         = "users"
	sentCollection          = "friend_requests_sent"
	receivedCollection      = "friend_requests_received"
	friendsCollection       = "friends"
	relationshipsCollection = "relationships"
)

// FirestoreStore keeps each participant's social state under their own
// users/{uid} subtree (request mirrors and friend edges as subcollections)
// so rendering a user never needs a cross-partition join. The singleton
// relationships/{pair} docs live in a top-level collection.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(ctx context.Context, projectID, credentialsJSON string) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore: connect: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) userRef(uid string) *firestore.DocumentRef {
	return s.client.Collection(usersCollection).Doc(uid)
}

func (s *FirestoreStore) sentRef(senderID, recipientID string) *firestore.DocumentRef {
	return s.userRef(senderID).Collection(sentCollection).Doc(recipientID)
}

func (s *FirestoreStore) receivedRef(recipientID, senderID string) *firestore.DocumentRef {
	return s.userRef(recipientID).Collection(receivedCollection).Doc(senderID)
}

func (s *FirestoreStore) friendRef(ownerID, friendID string) *firestore.DocumentRef {
	return s.userRef(ownerID).Collection(friendsCollection).Doc(friendID)
}

func (s *FirestoreStore) pairRef(pairID string) *firestore.DocumentRef {
	return s.client.Collection(relationshipsCollection).Doc(pairID)
}

// fromStatus maps gRPC status codes onto the store sentinels so callers
// never see Firestore error shapes.
func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return ErrNotFound
	case codes.AlreadyExists:
		return ErrAlreadyExists
	}
	return err
}

func (s *FirestoreStore) CreateProfile(ctx context.Context, p *models.Profile) error {
	_, err := s.userRef(p.UID).Create(ctx, p)
	return fromStatus(err)
}

func (s *FirestoreStore) GetProfile(ctx context.Context, uid string) (*models.Profile, error) {
	snap, err := s.userRef(uid).Get(ctx)
	if err != nil {
		return nil, fromStatus(err)
	}
	var p models.Profile
	if err := snap.DataTo(&p); err != nil {
		return nil, err
	}
	p.UID = snap.Ref.ID
	return &p, nil
}

func (s *FirestoreStore) UpdateProfile(ctx context.Context, uid string, set map[string]interface{}) error {
	_, err := s.userRef(uid).Update(ctx, toFirestoreUpdates(set))
	return fromStatus(err)
}

func (s *FirestoreStore) DeleteProfile(ctx context.Context, uid string) error {
	_, err := s.userRef(uid).Delete(ctx)
	return fromStatus(err)
}

func (s *FirestoreStore) SearchProfilesByPrefix(ctx context.Context, field, prefix string, limit int) ([]models.Profile, error) {
	iter := s.client.Collection(usersCollection).
		Where(field, ">=", prefix).
		Where(field, "<=", prefix+prefixUpperBound).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var out []models.Profile
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fromStatus(err)
		}
		var p models.Profile
		if err := snap.DataTo(&p); err != nil {
			return nil, err
		}
		p.UID = snap.Ref.ID
		out = append(out, p)
	}
	return out, nil
}

func (s *FirestoreStore) GetPair(ctx context.Context, pairID string) (*models.RelationshipPair, error) {
	snap, err := s.pairRef(pairID).Get(ctx)
	if err != nil {
		return nil, fromStatus(err)
	}
	var p models.RelationshipPair
	if err := snap.DataTo(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *FirestoreStore) GetSentRequest(ctx context.Context, senderID, recipientID string) (*models.FriendRequest, error) {
	return requestFromRef(ctx, s.sentRef(senderID, recipientID))
}

func (s *FirestoreStore) GetReceivedRequest(ctx context.Context, recipientID, senderID string) (*models.FriendRequest, error) {
	return requestFromRef(ctx, s.receivedRef(recipientID, senderID))
}

func requestFromRef(ctx context.Context, ref *firestore.DocumentRef) (*models.FriendRequest, error) {
	snap, err := ref.Get(ctx)
	if err != nil {
		return nil, fromStatus(err)
	}
	var r models.FriendRequest
	if err := snap.DataTo(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *FirestoreStore) GetFriend(ctx context.Context, ownerID, friendID string) (*models.Friend, error) {
	snap, err := s.friendRef(ownerID, friendID).Get(ctx)
	if err != nil {
		return nil, fromStatus(err)
	}
	var f models.Friend
	if err := snap.DataTo(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *FirestoreStore) ListSentRequests(ctx context.Context, senderID string) ([]models.FriendRequest, error) {
	return collectRequests(s.userRef(senderID).Collection(sentCollection).
		OrderBy("createdAt", firestore.Desc).Documents(ctx))
}

func (s *FirestoreStore) ListReceivedRequests(ctx context.Context, recipientID string) ([]models.FriendRequest, error) {
	return collectRequests(s.userRef(recipientID).Collection(receivedCollection).
		OrderBy("createdAt", firestore.Desc).Documents(ctx))
}

func (s *FirestoreStore) ListFriends(ctx context.Context, ownerID string) ([]models.Friend, error) {
	return collectFriends(s.userRef(ownerID).Collection(friendsCollection).
		OrderBy("since", firestore.Desc).Documents(ctx))
}

// The sweep queries are collection-group queries: the mirrors describing a
// given user live under every other user's subtree.

func (s *FirestoreStore) ListRequestsFromSender(ctx context.Context, senderID, afterRecipientID string, limit int) ([]models.FriendRequest, error) {
	q := s.client.CollectionGroup(receivedCollection).
		Where("senderId", "==", senderID).
		OrderBy("recipientId", firestore.Asc).
		Limit(limit)
	if afterRecipientID != "" {
		q = q.StartAfter(afterRecipientID)
	}
	return collectRequests(q.Documents(ctx))
}

func (s *FirestoreStore) ListRequestsToRecipient(ctx context.Context, recipientID, afterSenderID string, limit int) ([]models.FriendRequest, error) {
	q := s.client.CollectionGroup(sentCollection).
		Where("recipientId", "==", recipientID).
		OrderBy("senderId", firestore.Asc).
		Limit(limit)
	if afterSenderID != "" {
		q = q.StartAfter(afterSenderID)
	}
	return collectRequests(q.Documents(ctx))
}

func (s *FirestoreStore) ListFriendEdgesTo(ctx context.Context, friendID, afterOwnerID string, limit int) ([]models.Friend, error) {
	q := s.client.CollectionGroup(friendsCollection).
		Where("friendId", "==", friendID).
		OrderBy("ownerId", firestore.Asc).
		Limit(limit)
	if afterOwnerID != "" {
		q = q.StartAfter(afterOwnerID)
	}
	return collectFriends(q.Documents(ctx))
}

func collectRequests(iter *firestore.DocumentIterator) ([]models.FriendRequest, error) {
	defer iter.Stop()
	var out []models.FriendRequest
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fromStatus(err)
		}
		var r models.FriendRequest
		if err := snap.DataTo(&r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func collectFriends(iter *firestore.DocumentIterator) ([]models.Friend, error) {
	defer iter.Stop()
	var out []models.Friend
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fromStatus(err)
		}
		var f models.Friend
		if err := snap.DataTo(&f); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func toFirestoreUpdates(set map[string]interface{}) []firestore.Update {
	ups := make([]firestore.Update, 0, len(set))
	for k, v := range set {
		ups = append(ups, firestore.Update{Path: k, Value: v})
	}
	return ups
}

func (s *FirestoreStore) Batch() Batch {
	return &firestoreBatch{s: s, wb: s.client.Batch()}
}

type firestoreBatch struct {
	s  *FirestoreStore
	wb *firestore.WriteBatch
	n  int
}

func (b *firestoreBatch) add() { b.n++ }

func (b *firestoreBatch) CreatePair(pairID string, p *models.RelationshipPair) {
	b.wb.Create(b.s.pairRef(pairID), p)
	b.add()
}

func (b *firestoreBatch) SetPair(pairID string, p *models.RelationshipPair) {
	b.wb.Set(b.s.pairRef(pairID), p)
	b.add()
}

func (b *firestoreBatch) DeletePair(pairID string) {
	b.wb.Delete(b.s.pairRef(pairID))
	b.add()
}

func (b *firestoreBatch) CreateSentRequest(r *models.FriendRequest) {
	b.wb.Create(b.s.sentRef(r.SenderID, r.RecipientID), r)
	b.add()
}

func (b *firestoreBatch) CreateReceivedRequest(r *models.FriendRequest) {
	b.wb.Create(b.s.receivedRef(r.RecipientID, r.SenderID), r)
	b.add()
}

func (b *firestoreBatch) DeleteSentRequest(senderID, recipientID string) {
	b.wb.Delete(b.s.sentRef(senderID, recipientID))
	b.add()
}

func (b *firestoreBatch) DeleteReceivedRequest(recipientID, senderID string) {
	b.wb.Delete(b.s.receivedRef(recipientID, senderID))
	b.add()
}

func (b *firestoreBatch) UpdateSentRequest(senderID, recipientID string, set map[string]interface{}) {
	b.wb.Update(b.s.sentRef(senderID, recipientID), toFirestoreUpdates(set))
	b.add()
}

func (b *firestoreBatch) UpdateReceivedRequest(recipientID, senderID string, set map[string]interface{}) {
	b.wb.Update(b.s.receivedRef(recipientID, senderID), toFirestoreUpdates(set))
	b.add()
}

func (b *firestoreBatch) SetFriend(f *models.Friend) {
	b.wb.Set(b.s.friendRef(f.OwnerID, f.FriendID), f)
	b.add()
}

func (b *firestoreBatch) DeleteFriend(ownerID, friendID string) {
	b.wb.Delete(b.s.friendRef(ownerID, friendID))
	b.add()
}

func (b *firestoreBatch) UpdateFriend(ownerID, friendID string, set map[string]interface{}) {
	b.wb.Update(b.s.friendRef(ownerID, friendID), toFirestoreUpdates(set))
	b.add()
}

func (b *firestoreBatch) Len() int {
	return b.n
}

func (b *firestoreBatch) Commit(ctx context.Context) error {
	if b.n == 0 {
		return nil
	}
	_, err := b.wb.Commit(ctx)
	return fromStatus(err)
}
