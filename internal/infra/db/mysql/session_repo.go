package mysql

import (
	"context"
	"database/sql"
	"errors"

	domain "github.com/hackwithabx/CDAC-Dependency-check/internal/domain/auth"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Save(ctx context.Context, s *domain.Session) error {
	const q = `
INSERT INTO sessions (credential, username, role, issued_at, expires_at)
VALUES (?,?,?,?,?);`
	_, err := r.db.ExecContext(ctx, q,
		s.Credential, s.Username, string(s.Role), s.IssuedAt, s.ExpiresAt,
	)
	return err
}

func (r *SessionRepository) Get(ctx context.Context, credential string) (*domain.Session, error) {
	const q = `
SELECT credential, username, role, issued_at, expires_at
FROM sessions WHERE credential=? LIMIT 1;`
	var s domain.Session
	var role string
	err := r.db.QueryRowContext(ctx, q, credential).Scan(
		&s.Credential, &s.Username, &role, &s.IssuedAt, &s.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	s.Role = domain.Role(role)
	return &s, nil
}

func (r *SessionRepository) Delete(ctx context.Context, credential string) error {
	const q = `DELETE FROM sessions WHERE credential=?;`
	res, err := r.db.ExecContext(ctx, q, credential)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrInvalidToken
	}
	return nil
}

func (r *SessionRepository) DeleteByUsername(ctx context.Context, username string) error {
	const q = `DELETE FROM sessions WHERE username=?;`
	_, err := r.db.ExecContext(ctx, q, username)
	return err
}

var _ domain.SessionRepository = (*SessionRepository)(nil)
