package models

import "time"

// Profile is the canonical per-identity record, keyed by the auth UID.
// EmailLower and DisplayNameLower are derived copies kept for prefix search;
// they are recomputed whenever the source field changes and stay empty while
// the source field is empty.
type Profile struct {
	UID              string    `json:"uid" firestore:"uid" bson:"_id"`
	Email            string    `json:"email,omitempty" firestore:"email" bson:"email,omitempty"`
	DisplayName      string    `json:"display_name,omitempty" firestore:"displayName" bson:"display_name,omitempty"`
	PhotoURL         string    `json:"photo_url,omitempty" firestore:"photoUrl" bson:"photo_url,omitempty"`
	EmailLower       string    `json:"-" firestore:"emailLower" bson:"email_lower,omitempty"`
	DisplayNameLower string    `json:"-" firestore:"displayNameLower" bson:"display_name_lower,omitempty"`
	CreatedAt        time.Time `json:"created_at" firestore:"createdAt" bson:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" firestore:"updatedAt" bson:"updated_at"`
}

// Public returns the subset of the profile that is safe to share with other
// authenticated users.
func (p *Profile) Public() PublicProfile {
	return PublicProfile{
		UID:         p.UID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		PhotoURL:    p.PhotoURL,
	}
}

type PublicProfile struct {
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// UpdateProfileRequest carries a partial profile edit. Nil fields are left
// untouched.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	PhotoURL    *string `json:"photo_url"`
}
