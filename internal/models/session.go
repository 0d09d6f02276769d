package models

import (
	"time"
)

// Role values recognised by the role gate.
const (
	RoleAdmin     = "admin"
	RoleStaff     = "staff"
	RoleDeveloper = "developer"
)

// User is a staff member able to sign in. Users are stored outside the
// organization tree so a sign-in can resolve the tenant.
type User struct {
	ID             string    `json:"-"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Role           string    `json:"role"`
	OrganizationID string    `json:"organizationId"`
	PasswordHash   string    `json:"passwordHash"`
	CreatedAt      Timestamp `json:"createdAt"`
}

// Session represents a signed-in user's session.
// The token is opaque to callers; the claims inside carry the user and tenant.
type Session struct {
	Token     string
	TokenID   string
	User      User
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
