package user

import (
	"errors"
	"time"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash *string   `json:"-"` // never expose hash in JSON; nil for Google-only accounts
	GoogleID     *string   `json:"googleId,omitempty"`
	FirstName    *string   `json:"firstName,omitempty"`
	LastName     *string   `json:"lastName,omitempty"`
	Avatar       *string   `json:"avatar,omitempty"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Public returns a copy safe to hand back to clients. The hash is already
// hidden from JSON; dropping it here keeps the value itself out of responses
// that get cached or logged.
func (u User) Public() User {
	u.PasswordHash = nil
	return u
}

// HasPassword reports whether the account can authenticate with a password.
func (u User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

var (
	ErrNotFound      = errors.New("user not found")
	ErrEmailTaken    = errors.New("user already exists")
	ErrGoogleIDTaken = errors.New("google account already linked")
)
