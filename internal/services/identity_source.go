package services

import (
	"context"

	fbauth "firebase.google.com/go/v4/auth"
)

// IdentitySource pushes profile edits back to the authentication platform,
// which stays the system of record for the displayed name.
type IdentitySource interface {
	UpdateDisplayName(ctx context.Context, uid, displayName string) error
}

// FirebaseIdentitySource syncs display names into Firebase Auth user
// records.
type FirebaseIdentitySource struct {
	auth *fbauth.Client
}

func NewFirebaseIdentitySource(client *fbauth.Client) *FirebaseIdentitySource {
	return &FirebaseIdentitySource{auth: client}
}

func (s *FirebaseIdentitySource) UpdateDisplayName(ctx context.Context, uid, displayName string) error {
	_, err := s.auth.UpdateUser(ctx, uid, (&fbauth.UserToUpdate{}).DisplayName(displayName))
	return err
}

// NoopIdentitySource is used when the server runs without Firebase (local
// auth mode); the profile store is then the only holder of the name.
type NoopIdentitySource struct{}

func (NoopIdentitySource) UpdateDisplayName(ctx context.Context, uid, displayName string) error {
	return nil
}
