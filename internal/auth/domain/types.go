package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session not found")
)

// Session is an authenticated operator session. Token is the signed cookie
// value handed to the browser; it is never persisted.
type Session struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Token     string    `json:"-"`
}

type LoginInput struct {
	Email             string
	EncryptedPassword string
	IP                string
	UserAgent         string
}

// SessionStore persists sessions for their TTL.
type SessionStore interface {
	Save(ctx context.Context, s Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

// Resolver maps a cookie token to its live session.
type Resolver interface {
	Resolve(ctx context.Context, token string) (Session, error)
}

type Service interface {
	Resolver
	Login(ctx context.Context, in LoginInput) (Session, error)
	Logout(ctx context.Context, token string) error
}
