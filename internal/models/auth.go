package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents the JWT payload for access tokens. The volatile fields
// are refreshed from the database on every authenticated request.
type JWTClaims struct {
	UserID         string   `json:"userId"`
	Email          string   `json:"email"`
	Name           string   `json:"name"`
	Role           UserRole `json:"role"`
	ProfilePicture string   `json:"profilePicture,omitempty"`
	Active         bool     `json:"active"`
	Verified       bool     `json:"verified"`
	IsSubscribed   bool     `json:"isSubscribed"`
	SessionID      string   `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Session is the single active sign-in registered for a user.
type Session struct {
	UserID    string    `db:"user_id" json:"userId"`
	Token     string    `db:"session_token" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Subscription is a paid plan keyed by email.
type Subscription struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	IsSubscribed bool       `db:"is_subscribed" json:"isSubscribed"`
	ExpiresAt    *time.Time `db:"expires_at" json:"expiresAt,omitempty"`
}

// ActiveAt reports whether the subscription is flagged and unexpired at now.
func (s *Subscription) ActiveAt(now time.Time) bool {
	if s == nil || !s.IsSubscribed || s.ExpiresAt == nil {
		return false
	}
	return s.ExpiresAt.After(now)
}
