package auth

import (
	"context"
	"time"
)

// UserRepository port for the identity provider's user records
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, username string) (*User, error)
	UpdatePassword(ctx context.Context, username, passwordHash string) error
	UpdateLockState(ctx context.Context, username string, failedAttempts int, lockedUntil time.Time) error
}

// SessionRepository port, keyed by credential with a username index
type SessionRepository interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, credential string) (*Session, error)
	Delete(ctx context.Context, credential string) error
	DeleteByUsername(ctx context.Context, username string) error
}
