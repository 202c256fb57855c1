package entity

import (
	"time"
)

// AuthMethod records how an account authenticates.
type AuthMethod string

const (
	// AuthPassword covers accounts created through the OTP signup flow;
	// they hold a bcrypt hash (initially of a generated temporary password).
	AuthPassword AuthMethod = "password"
	// AuthFederated covers accounts created through a Google login.
	AuthFederated AuthMethod = "federated"
)

// User is the aggregate root for the identity domain. Email is the unique
// key, case-sensitive as received. PasswordHash is empty for federated
// accounts.
type User struct {
	Email         string
	Name          string
	ProfilePicURL string
	AuthMethod    AuthMethod
	PasswordHash  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UserPatch names the optional fields an upsert may set. A nil field leaves
// the stored value untouched; insert-only fields apply solely when the row
// is created.
type UserPatch struct {
	Name          *string
	ProfilePicURL *string
	AuthMethod    *AuthMethod

	// Applied only on insert, never on conflict.
	InsertAuthMethod   AuthMethod
	InsertPasswordHash string
}

// Apply merges the patch into u in memory. Mirrors the SQL upsert so tests
// can run against a map-backed repository.
func (p UserPatch) Apply(u *User) {
	if p.Name != nil && *p.Name != "" {
		u.Name = *p.Name
	}
	if p.ProfilePicURL != nil {
		u.ProfilePicURL = *p.ProfilePicURL
	}
	if p.AuthMethod != nil {
		u.AuthMethod = *p.AuthMethod
	}
}
