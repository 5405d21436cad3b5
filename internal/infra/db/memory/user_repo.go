package memory

import (
	"context"
	"sync"
	"time"

	domain "github.com/hackwithabx/CDAC-Dependency-check/internal/domain/auth"
)

type UserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*domain.User)}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[u.Username]; ok {
		return domain.ErrUserExists
	}
	cp := *u
	r.users[u.Username] = &cp
	return nil
}

func (r *UserRepository) Get(ctx context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUnknownUser
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[username]
	if !ok {
		return domain.ErrUnknownUser
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *UserRepository) UpdateLockState(ctx context.Context, username string, failedAttempts int, lockedUntil time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[username]
	if !ok {
		return domain.ErrUnknownUser
	}
	u.FailedAttempts = failedAttempts
	u.LockedUntil = lockedUntil
	return nil
}

var _ domain.UserRepository = (*UserRepository)(nil)
