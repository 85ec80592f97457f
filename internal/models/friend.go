package models

import "time"

const (
	// RequestStatusPending is the only status a stored request ever carries;
	// accepted and declined requests are deleted, not retained.
	RequestStatusPending = "pending"

	PairStatusPending = "pending"
	PairStatusFriends = "friends"
)

// FriendRequest is one mirror of a directional friend request. The same
// logical request is stored twice: under the sender's friend_requests_sent
// subtree and under the recipient's friend_requests_received subtree, both
// written in one batch. DisplayName and PhotoURL are a denormalized snapshot
// of the counterpart as seen by the mirror's owner (the recipient on the
// sent mirror, the sender on the received mirror).
type FriendRequest struct {
	SenderID    string    `json:"sender_id" firestore:"senderId" bson:"sender_id"`
	RecipientID string    `json:"recipient_id" firestore:"recipientId" bson:"recipient_id"`
	DisplayName string    `json:"display_name,omitempty" firestore:"displayName" bson:"display_name,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty" firestore:"photoUrl" bson:"photo_url,omitempty"`
	Status      string    `json:"status" firestore:"status" bson:"status"`
	CreatedAt   time.Time `json:"created_at" firestore:"createdAt" bson:"created_at"`
}

// Friend is one mirror of a symmetric friendship edge, stored under OwnerID.
// The mirror under the other participant points back; the two are created
// and deleted together.
type Friend struct {
	OwnerID     string    `json:"-" firestore:"ownerId" bson:"owner_id"`
	FriendID    string    `json:"friend_id" firestore:"friendId" bson:"friend_id"`
	DisplayName string    `json:"display_name,omitempty" firestore:"displayName" bson:"display_name,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty" firestore:"photoUrl" bson:"photo_url,omitempty"`
	Since       time.Time `json:"since" firestore:"since" bson:"since"`
}

// RelationshipPair is the singleton document per unordered user pair. It is
// created with a fail-if-exists precondition in the same batch as the
// request mirrors, which makes concurrent sends (in either direction, or
// while a friendship already exists) lose at commit instead of both
// passing the existence check.
type RelationshipPair struct {
	SenderID    string    `json:"sender_id" firestore:"senderId" bson:"sender_id"`
	RecipientID string    `json:"recipient_id" firestore:"recipientId" bson:"recipient_id"`
	Status      string    `json:"status" firestore:"status" bson:"status"`
	UpdatedAt   time.Time `json:"updated_at" firestore:"updatedAt" bson:"updated_at"`
}

// SendFriendRequestInput is the request body for the send endpoint.
type SendFriendRequestInput struct {
	RecipientID string `json:"recipient_id"`
}
