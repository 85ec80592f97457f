package store

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linkup/backend/internal/models"
)

// MongoStore is the self-hosted backend. Each document kind gets its own
// collection with a composite _id (owner before counterpart), so the unique
// primary key gives Create* its fail-if-exists semantics and the atomic
// batch is a session transaction.
type MongoStore struct {
	client   *mongo.Client
	db       *mongo.Database
	profiles *mongo.Collection
	sent     *mongo.Collection
	received *mongo.Collection
	friends  *mongo.Collection
	pairs    *mongo.Collection
}

func NewMongoStore(ctx context.Context, mongoURI, dbName string) (*MongoStore, error) {
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS12,
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI).SetTLSConfig(tlsCfg))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	s := &MongoStore{
		client:   client,
		db:       db,
		profiles: db.Collection("profiles"),
		sent:     db.Collection("friend_requests_sent"),
		received: db.Collection("friend_requests_received"),
		friends:  db.Collection("friends"),
		pairs:    db.Collection("relationships"),
	}

	// Best-effort indexes for the search and sweep queries.
	_, _ = s.profiles.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "display_name_lower", Value: 1}}},
		{Keys: bson.D{{Key: "email_lower", Value: 1}}},
	})
	_, _ = s.received.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "recipient_id", Value: 1}},
	})
	_, _ = s.sent.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "sender_id", Value: 1}},
	})
	_, _ = s.friends.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "friend_id", Value: 1}, {Key: "owner_id", Value: 1}},
	})

	return s, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func mirrorID(ownerID, counterpartID string) string {
	return ownerID + ":" + counterpartID
}

// bsonFieldNames translates the shared update-field names to this backend's
// snake_case layout.
var bsonFieldNames = map[string]string{
	FieldEmail:            "email",
	FieldDisplayName:      "display_name",
	FieldPhotoURL:         "photo_url",
	FieldEmailLower:       "email_lower",
	FieldDisplayNameLower: "display_name_lower",
	FieldUpdatedAt:        "updated_at",
}

func toBsonSet(set map[string]interface{}) bson.M {
	out := bson.M{}
	for k, v := range set {
		if name, ok := bsonFieldNames[k]; ok {
			k = name
		}
		out[k] = v
	}
	return out
}

func fromMongoErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadyExists
	}
	return err
}

type mongoRequestDoc struct {
	ID                   string `bson:"_id"`
	models.FriendRequest `bson:",inline"`
}

type mongoFriendDoc struct {
	ID            string `bson:"_id"`
	models.Friend `bson:",inline"`
}

type mongoPairDoc struct {
	ID                      string `bson:"_id"`
	models.RelationshipPair `bson:",inline"`
}

func (s *MongoStore) CreateProfile(ctx context.Context, p *models.Profile) error {
	_, err := s.profiles.InsertOne(ctx, p)
	return fromMongoErr(err)
}

func (s *MongoStore) GetProfile(ctx context.Context, uid string) (*models.Profile, error) {
	var p models.Profile
	if err := s.profiles.FindOne(ctx, bson.M{"_id": uid}).Decode(&p); err != nil {
		return nil, fromMongoErr(err)
	}
	return &p, nil
}

func (s *MongoStore) UpdateProfile(ctx context.Context, uid string, set map[string]interface{}) error {
	res, err := s.profiles.UpdateOne(ctx, bson.M{"_id": uid}, bson.M{"$set": toBsonSet(set)})
	if err != nil {
		return fromMongoErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteProfile(ctx context.Context, uid string) error {
	_, err := s.profiles.DeleteOne(ctx, bson.M{"_id": uid})
	return fromMongoErr(err)
}

func (s *MongoStore) SearchProfilesByPrefix(ctx context.Context, field, prefix string, limit int) ([]models.Profile, error) {
	name, ok := bsonFieldNames[field]
	if !ok {
		return nil, fmt.Errorf("mongo: unknown search field %q", field)
	}
	cur, err := s.profiles.Find(ctx,
		bson.M{name: bson.M{"$gte": prefix, "$lte": prefix + prefixUpperBound}},
		options.Find().SetSort(bson.D{{Key: name, Value: 1}}).SetLimit(int64(limit)))
	if err != nil {
		return nil, fromMongoErr(err)
	}
	defer cur.Close(ctx)

	var out []models.Profile
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) GetPair(ctx context.Context, pairID string) (*models.RelationshipPair, error) {
	var d mongoPairDoc
	if err := s.pairs.FindOne(ctx, bson.M{"_id": pairID}).Decode(&d); err != nil {
		return nil, fromMongoErr(err)
	}
	return &d.RelationshipPair, nil
}

func (s *MongoStore) GetSentRequest(ctx context.Context, senderID, recipientID string) (*models.FriendRequest, error) {
	return s.requestByID(ctx, s.sent, mirrorID(senderID, recipientID))
}

func (s *MongoStore) GetReceivedRequest(ctx context.Context, recipientID, senderID string) (*models.FriendRequest, error) {
	return s.requestByID(ctx, s.received, mirrorID(recipientID, senderID))
}

func (s *MongoStore) requestByID(ctx context.Context, col *mongo.Collection, id string) (*models.FriendRequest, error) {
	var d mongoRequestDoc
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return nil, fromMongoErr(err)
	}
	return &d.FriendRequest, nil
}

func (s *MongoStore) GetFriend(ctx context.Context, ownerID, friendID string) (*models.Friend, error) {
	var d mongoFriendDoc
	if err := s.friends.FindOne(ctx, bson.M{"_id": mirrorID(ownerID, friendID)}).Decode(&d); err != nil {
		return nil, fromMongoErr(err)
	}
	return &d.Friend, nil
}

func (s *MongoStore) ListSentRequests(ctx context.Context, senderID string) ([]models.FriendRequest, error) {
	return s.findRequests(ctx, s.sent, bson.M{"sender_id": senderID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (s *MongoStore) ListReceivedRequests(ctx context.Context, recipientID string) ([]models.FriendRequest, error) {
	return s.findRequests(ctx, s.received, bson.M{"recipient_id": recipientID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (s *MongoStore) ListFriends(ctx context.Context, ownerID string) ([]models.Friend, error) {
	return s.findFriends(ctx, bson.M{"owner_id": ownerID},
		options.Find().SetSort(bson.D{{Key: "since", Value: -1}}))
}

func (s *MongoStore) ListRequestsFromSender(ctx context.Context, senderID, afterRecipientID string, limit int) ([]models.FriendRequest, error) {
	filter := bson.M{"sender_id": senderID}
	if afterRecipientID != "" {
		filter["recipient_id"] = bson.M{"$gt": afterRecipientID}
	}
	return s.findRequests(ctx, s.received, filter,
		options.Find().SetSort(bson.D{{Key: "recipient_id", Value: 1}}).SetLimit(int64(limit)))
}

func (s *MongoStore) ListRequestsToRecipient(ctx context.Context, recipientID, afterSenderID string, limit int) ([]models.FriendRequest, error) {
	filter := bson.M{"recipient_id": recipientID}
	if afterSenderID != "" {
		filter["sender_id"] = bson.M{"$gt": afterSenderID}
	}
	return s.findRequests(ctx, s.sent, filter,
		options.Find().SetSort(bson.D{{Key: "sender_id", Value: 1}}).SetLimit(int64(limit)))
}

func (s *MongoStore) ListFriendEdgesTo(ctx context.Context, friendID, afterOwnerID string, limit int) ([]models.Friend, error) {
	filter := bson.M{"friend_id": friendID}
	if afterOwnerID != "" {
		filter["owner_id"] = bson.M{"$gt": afterOwnerID}
	}
	return s.findFriends(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "owner_id", Value: 1}}).SetLimit(int64(limit)))
}

func (s *MongoStore) findRequests(ctx context.Context, col *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]models.FriendRequest, error) {
	cur, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fromMongoErr(err)
	}
	defer cur.Close(ctx)

	var out []models.FriendRequest
	for cur.Next(ctx) {
		var d mongoRequestDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, d.FriendRequest)
	}
	return out, cur.Err()
}

func (s *MongoStore) findFriends(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Friend, error) {
	cur, err := s.friends.Find(ctx, filter, opts)
	if err != nil {
		return nil, fromMongoErr(err)
	}
	defer cur.Close(ctx)

	var out []models.Friend
	for cur.Next(ctx) {
		var d mongoFriendDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, d.Friend)
	}
	return out, cur.Err()
}

func (s *MongoStore) Batch() Batch {
	return &mongoBatch{s: s}
}

type mongoBatch struct {
	s   *MongoStore
	ops []func(ctx context.Context) error
}

func (b *mongoBatch) insert(col *mongo.Collection, doc interface{}) {
	b.ops = append(b.ops, func(ctx context.Context) error {
		_, err := col.InsertOne(ctx, doc)
		return err
	})
}

func (b *mongoBatch) replace(col *mongo.Collection, id string, doc interface{}) {
	b.ops = append(b.ops, func(ctx context.Context) error {
		_, err := col.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
		return err
	})
}

func (b *mongoBatch) delete(col *mongo.Collection, id string) {
	b.ops = append(b.ops, func(ctx context.Context) error {
		_, err := col.DeleteOne(ctx, bson.M{"_id": id})
		return err
	})
}

func (b *mongoBatch) update(col *mongo.Collection, id string, set map[string]interface{}) {
	b.ops = append(b.ops, func(ctx context.Context) error {
		res, err := col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": toBsonSet(set)})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (b *mongoBatch) CreatePair(pairID string, p *models.RelationshipPair) {
	b.insert(b.s.pairs, mongoPairDoc{ID: pairID, RelationshipPair: *p})
}

func (b *mongoBatch) SetPair(pairID string, p *models.RelationshipPair) {
	b.replace(b.s.pairs, pairID, mongoPairDoc{ID: pairID, RelationshipPair: *p})
}

func (b *mongoBatch) DeletePair(pairID string) {
	b.delete(b.s.pairs, pairID)
}

func (b *mongoBatch) CreateSentRequest(r *models.FriendRequest) {
	b.insert(b.s.sent, mongoRequestDoc{ID: mirrorID(r.SenderID, r.RecipientID), FriendRequest: *r})
}

func (b *mongoBatch) CreateReceivedRequest(r *models.FriendRequest) {
	b.insert(b.s.received, mongoRequestDoc{ID: mirrorID(r.RecipientID, r.SenderID), FriendRequest: *r})
}

func (b *mongoBatch) DeleteSentRequest(senderID, recipientID string) {
	b.delete(b.s.sent, mirrorID(senderID, recipientID))
}

func (b *mongoBatch) DeleteReceivedRequest(recipientID, senderID string) {
	b.delete(b.s.received, mirrorID(recipientID, senderID))
}

func (b *mongoBatch) UpdateSentRequest(senderID, recipientID string, set map[string]interface{}) {
	b.update(b.s.sent, mirrorID(senderID, recipientID), set)
}

func (b *mongoBatch) UpdateReceivedRequest(recipientID, senderID string, set map[string]interface{}) {
	b.update(b.s.received, mirrorID(recipientID, senderID), set)
}

func (b *mongoBatch) SetFriend(f *models.Friend) {
	b.replace(b.s.friends, mirrorID(f.OwnerID, f.FriendID), mongoFriendDoc{ID: mirrorID(f.OwnerID, f.FriendID), Friend: *f})
}

func (b *mongoBatch) DeleteFriend(ownerID, friendID string) {
	b.delete(b.s.friends, mirrorID(ownerID, friendID))
}

func (b *mongoBatch) UpdateFriend(ownerID, friendID string, set map[string]interface{}) {
	b.update(b.s.friends, mirrorID(ownerID, friendID), set)
}

func (b *mongoBatch) Len() int {
	return len(b.ops)
}

func (b *mongoBatch) Commit(ctx context.Context) error {
	if len(b.ops) == 0 {
		return nil
	}
	session, err := b.s.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, op := range b.ops {
			if err := op(sc); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return fromMongoErr(err)
}
