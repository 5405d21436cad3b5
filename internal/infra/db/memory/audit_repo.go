package memory

import (
	"context"
	"sync"

	domain "github.com/hackwithabx/CDAC-Dependency-check/internal/domain/audit"
)

type AuditRepository struct {
	mu      sync.Mutex
	nextID  int64
	entries []*domain.Entry
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{nextID: 1}
}

func (r *AuditRepository) Save(ctx context.Context, e *domain.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *e
	cp.ID = r.nextID
	r.nextID++
	r.entries = append(r.entries, &cp)
	e.ID = cp.ID
	return nil
}

func (r *AuditRepository) ListByUser(ctx context.Context, username string, limit int) ([]*domain.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	var out []*domain.Entry
	// newest first
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].Username == username {
			cp := *r.entries[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

var _ domain.Repository = (*AuditRepository)(nil)
