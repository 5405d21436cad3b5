package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	driver "github.com/go-sql-driver/mysql"

	domain "github.com/hackwithabx/CDAC-Dependency-check/internal/domain/auth"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	const q = `
INSERT INTO users (username, password_hash, role, failed_attempts, locked_until, created_at)
VALUES (?,?,?,?,?,?);`
	_, err := r.db.ExecContext(ctx, q,
		u.Username, u.PasswordHash, string(u.Role),
		u.FailedAttempts, nullTime(u.LockedUntil), u.CreatedAt,
	)
	var me *driver.MySQLError
	if errors.As(err, &me) && me.Number == 1062 { // duplicate key
		return domain.ErrUserExists
	}
	return err
}

func (r *UserRepository) Get(ctx context.Context, username string) (*domain.User, error) {
	const q = `
SELECT username, password_hash, role, failed_attempts, locked_until, created_at
FROM users WHERE username=? LIMIT 1;`
	var u domain.User
	var role string
	var locked sql.NullTime
	err := r.db.QueryRowContext(ctx, q, username).Scan(
		&u.Username, &u.PasswordHash, &role, &u.FailedAttempts, &locked, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUnknownUser
	}
	if err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	if locked.Valid {
		u.LockedUntil = locked.Time
	}
	return &u, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	const q = `UPDATE users SET password_hash=? WHERE username=?;`
	res, err := r.db.ExecContext(ctx, q, passwordHash, username)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrUnknownUser
	}
	return nil
}

func (r *UserRepository) UpdateLockState(ctx context.Context, username string, failedAttempts int, lockedUntil time.Time) error {
	const q = `UPDATE users SET failed_attempts=?, locked_until=? WHERE username=?;`
	_, err := r.db.ExecContext(ctx, q, failedAttempts, nullTime(lockedUntil), username)
	return err
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

var _ domain.UserRepository = (*UserRepository)(nil)
