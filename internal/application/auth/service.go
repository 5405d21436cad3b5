package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hackwithabx/CDAC-Dependency-check/internal/application"
	"github.com/hackwithabx/CDAC-Dependency-check/internal/domain/audit"
	domain "github.com/hackwithabx/CDAC-Dependency-check/internal/domain/auth"
)

// Service implements the identity and session use-cases. It is safe for
// concurrent use.
type Service struct {
	Users    domain.UserRepository
	Sessions domain.SessionRepository
	Audit    audit.Repository
	Clock    application.Clock

	SessionTTL    time.Duration
	ResetTTL      time.Duration
	MaxAttempts   int
	LockoutWindow time.Duration

	mu     sync.Mutex
	resets map[string]time.Time // username → reset challenge expiry
}

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	Credential string      `json:"access_token"`
	Username   string      `json:"username"`
	Role       domain.Role `json:"role"`
	ExpiresAt  time.Time   `json:"expires_at"`
}

// Register creates a user with role "user". Admin accounts are seeded,
// never self-registered.
func (s *Service) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	u := &domain.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		CreatedAt:    s.Clock.Now(),
	}
	return s.Users.Create(ctx, u)
}

// SeedAdmin ensures the configured admin account exists. Existing
// accounts are left untouched.
func (s *Service) SeedAdmin(ctx context.Context, username, password string) error {
	if _, err := s.Users.Get(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrUnknownUser) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}
	return s.Users.Create(ctx, &domain.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		CreatedAt:    s.Clock.Now(),
	})
}

// Login verifies the password and issues a fresh credential. Prior
// credentials for the user stay valid until their own expiry.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	now := s.Clock.Now()

	u, err := s.Users.Get(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownUser) {
			// Same error as a wrong password: no account enumeration here.
			return LoginResult{}, domain.ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if u.LockedUntil.After(now) {
		return LoginResult{}, domain.ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.recordFailure(ctx, u, now)
		return LoginResult{}, domain.ErrInvalidCredentials
	}

	if u.FailedAttempts > 0 {
		if err := s.Users.UpdateLockState(ctx, u.Username, 0, time.Time{}); err != nil {
			log.Printf("resetting lock state for %s: %v", u.Username, err)
		}
	}

	sess := &domain.Session{
		Credential: uuid.NewString(),
		Username:   u.Username,
		Role:       u.Role,
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.SessionTTL),
	}
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return LoginResult{}, err
	}

	s.record(ctx, "Login successful", u.Username, "login")

	return LoginResult{
		Credential: sess.Credential,
		Username:   u.Username,
		Role:       u.Role,
		ExpiresAt:  sess.ExpiresAt,
	}, nil
}

func (s *Service) recordFailure(ctx context.Context, u *domain.User, now time.Time) {
	attempts := u.FailedAttempts + 1
	lockedUntil := u.LockedUntil
	if s.MaxAttempts > 0 && attempts >= s.MaxAttempts {
		lockedUntil = now.Add(s.LockoutWindow)
		attempts = 0
	}
	if err := s.Users.UpdateLockState(ctx, u.Username, attempts, lockedUntil); err != nil {
		log.Printf("recording failed login for %s: %v", u.Username, err)
	}
}

// Validate resolves a credential into an identity. Expired sessions are
// deleted on sight.
func (s *Service) Validate(ctx context.Context, credential string) (domain.Identity, error) {
	if credential == "" {
		return domain.Identity{}, domain.ErrInvalidToken
	}
	sess, err := s.Sessions.Get(ctx, credential)
	if err != nil {
		return domain.Identity{}, err
	}
	if s.Clock.Now().After(sess.ExpiresAt) {
		_ = s.Sessions.Delete(ctx, credential)
		return domain.Identity{}, domain.ErrExpired
	}
	return domain.Identity{Username: sess.Username, Role: sess.Role}, nil
}

// Logout revokes a single credential. Unknown credentials are not an
// error; logout is idempotent from the client's point of view.
func (s *Service) Logout(ctx context.Context, credential string) error {
	err := s.Sessions.Delete(ctx, credential)
	if errors.Is(err, domain.ErrInvalidToken) {
		return nil
	}
	return err
}

// RequestPasswordReset opens a reset challenge for the username. Unlike
// login this reports unknown usernames, matching the behaviour the web
// client depends on.
func (s *Service) RequestPasswordReset(ctx context.Context, username string) error {
	if _, err := s.Users.Get(ctx, username); err != nil {
		return err
	}
	s.mu.Lock()
	if s.resets == nil {
		s.resets = make(map[string]time.Time)
	}
	s.resets[username] = s.Clock.Now().Add(s.ResetTTL)
	s.mu.Unlock()
	return nil
}

// CompletePasswordReset sets a new password and revokes every
// outstanding credential for the username, forcing re-login.
func (s *Service) CompletePasswordReset(ctx context.Context, username, newPassword string) error {
	if newPassword == "" {
		return domain.ErrInvalidCredentials
	}

	s.mu.Lock()
	expiry, ok := s.resets[username]
	if ok && s.Clock.Now().After(expiry) {
		delete(s.resets, username)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return domain.ErrNoResetRequested
	}

	if _, err := s.Users.Get(ctx, username); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.Users.UpdatePassword(ctx, username, string(hash)); err != nil {
		return err
	}
	if err := s.Sessions.DeleteByUsername(ctx, username); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.resets, username)
	s.mu.Unlock()

	s.record(ctx, "Password reset completed", username, "password_reset")
	return nil
}

// record writes an audit entry; audit failures never fail the caller.
func (s *Service) record(ctx context.Context, event, username, actionType string) {
	if s.Audit == nil {
		return
	}
	e := &audit.Entry{
		Event:      event,
		Username:   username,
		ActionType: actionType,
		CreatedAt:  s.Clock.Now(),
	}
	if err := s.Audit.Save(ctx, e); err != nil {
		log.Printf("audit log write failed: %v", err)
	}
}
