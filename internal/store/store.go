package store

import (
	"context"
	"errors"

	"github.com/linkup/backend/internal/models"
)

var (
	ErrNotFound      = errors.New("store: document not found")
	ErrAlreadyExists = errors.New("store: document already exists")
)

// MaxBatchOps is the largest number of writes a single atomic batch may
// carry. It matches the Firestore commit limit; the other backends honor it
// so the propagation sweep pages identically everywhere.
const MaxBatchOps = 500

// prefixUpperBound closes a lexicographic prefix range: every string with
// the given prefix sorts between prefix and prefix+prefixUpperBound.
const prefixUpperBound = ""

// Document field names accepted by the Update* batch calls and by
// SearchProfilesByPrefix. Backends translate them to their own layout.
const (
	FieldEmail            = "email"
	FieldDisplayName      = "displayName"
	FieldPhotoURL         = "photoUrl"
	FieldEmailLower       = "emailLower"
	FieldDisplayNameLower = "displayNameLower"
	FieldUpdatedAt        = "updatedAt"
)

// PairID returns the deterministic id of the relationship document for an
// unordered user pair.
func PairID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "_" + b
}

// Store is the document-store adapter the services are written against.
// Implementations: Firestore (production), MongoDB (self-hosted), in-memory
// (tests and credential-less dev runs).
type Store interface {
	CreateProfile(ctx context.Context, p *models.Profile) error
	GetProfile(ctx context.Context, uid string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, uid string, set map[string]interface{}) error
	DeleteProfile(ctx context.Context, uid string) error

	// SearchProfilesByPrefix runs a prefix range query over one of the
	// lowercase index fields, ordered by that field.
	SearchProfilesByPrefix(ctx context.Context, field, prefix string, limit int) ([]models.Profile, error)

	GetPair(ctx context.Context, pairID string) (*models.RelationshipPair, error)
	GetSentRequest(ctx context.Context, senderID, recipientID string) (*models.FriendRequest, error)
	GetReceivedRequest(ctx context.Context, recipientID, senderID string) (*models.FriendRequest, error)
	GetFriend(ctx context.Context, ownerID, friendID string) (*models.Friend, error)

	ListSentRequests(ctx context.Context, senderID string) ([]models.FriendRequest, error)
	ListReceivedRequests(ctx context.Context, recipientID string) ([]models.FriendRequest, error)
	ListFriends(ctx context.Context, ownerID string) ([]models.Friend, error)

	// Fan-out queries for the propagation sweep: every mirror whose
	// denormalized snapshot describes the given user, across all owners.
	// Results are ordered by the cursor id and resume strictly after it.
	ListRequestsFromSender(ctx context.Context, senderID, afterRecipientID string, limit int) ([]models.FriendRequest, error)
	ListRequestsToRecipient(ctx context.Context, recipientID, afterSenderID string, limit int) ([]models.FriendRequest, error)
	ListFriendEdgesTo(ctx context.Context, friendID, afterOwnerID string, limit int) ([]models.Friend, error)

	Batch() Batch
}

// Batch accumulates writes and commits them all-or-nothing. Create* calls
// fail the whole commit with ErrAlreadyExists when the target document
// already exists; Update* calls fail it with ErrNotFound when the target is
// gone; Delete* calls on absent documents are no-ops.
type Batch interface {
	CreatePair(pairID string, p *models.RelationshipPair)
	SetPair(pairID string, p *models.RelationshipPair)
	DeletePair(pairID string)

	CreateSentRequest(r *models.FriendRequest)
	CreateReceivedRequest(r *models.FriendRequest)
	DeleteSentRequest(senderID, recipientID string)
	DeleteReceivedRequest(recipientID, senderID string)
	UpdateSentRequest(senderID, recipientID string, set map[string]interface{})
	UpdateReceivedRequest(recipientID, senderID string, set map[string]interface{})

	SetFriend(f *models.Friend)
	DeleteFriend(ownerID, friendID string)
	UpdateFriend(ownerID, friendID string, set map[string]interface{})

	Len() int
	Commit(ctx context.Context) error
}
