package memory

import (
	"context"
	"sync"

	domain "github.com/hackwithabx/CDAC-Dependency-check/internal/domain/auth"
)

type SessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[string]*domain.Session)}
}

func (r *SessionRepository) Save(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *s
	r.sessions[s.Credential] = &cp
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, credential string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[credential]
	if !ok {
		return nil, domain.ErrInvalidToken
	}
	cp := *s
	return &cp, nil
}

func (r *SessionRepository) Delete(ctx context.Context, credential string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[credential]; !ok {
		return domain.ErrInvalidToken
	}
	delete(r.sessions, credential)
	return nil
}

func (r *SessionRepository) DeleteByUsername(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for cred, s := range r.sessions {
		if s.Username == username {
			delete(r.sessions, cred)
		}
	}
	return nil
}

var _ domain.SessionRepository = (*SessionRepository)(nil)
