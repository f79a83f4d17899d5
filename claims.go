package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload of the server session artifact minted after
// a verified identity token exchange.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID         string `json:"uid,omitempty"`
	Email       string `json:"email,omitempty"`
	Name        string `json:"name,omitempty"`
	Picture     string `json:"picture,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Provider    string `json:"prv,omitempty"`
}

// UserID returns the user id, falling back to the subject claim.
func (c *SessionClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Expires returns the expiration time or zero when absent.
func (c *SessionClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// SessionUser rebuilds the user snapshot carried by the claims.
func (c *SessionClaims) SessionUser() *User {
	return &User{
		UID:         c.UserID(),
		Email:       c.Email,
		DisplayName: c.Name,
		PhotoURL:    c.Picture,
		PhoneNumber: c.PhoneNumber,
	}
}
