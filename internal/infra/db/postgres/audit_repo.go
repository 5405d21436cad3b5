package postgres

import (
	"context"
	"database/sql"

	domain "github.com/hackwithabx/CDAC-Dependency-check/internal/domain/audit"
)

type AuditRepository struct{ db *sql.DB }

func NewAuditRepository(db *sql.DB) *AuditRepository { return &AuditRepository{db: db} }

func (r *AuditRepository) Save(ctx context.Context, e *domain.Entry) error {
	const q = `
INSERT INTO audit_logs (event, username, action_type, created_at)
VALUES ($1,$2,$3,$4)
RETURNING id;`
	return r.db.QueryRowContext(ctx, q, e.Event, e.Username, e.ActionType, e.CreatedAt).Scan(&e.ID)
}

func (r *AuditRepository) ListByUser(ctx context.Context, username string, limit int) ([]*domain.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, event, username, action_type, created_at
FROM audit_logs WHERE username=$1 ORDER BY created_at DESC, id DESC LIMIT $2;`
	rows, err := r.db.QueryContext(ctx, q, username, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Entry
	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(&e.ID, &e.Event, &e.Username, &e.ActionType, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

var _ domain.Repository = (*AuditRepository)(nil)
