package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	domain "github.com/hackwithabx/CDAC-Dependency-check/internal/domain/scans"
)

type ScanRepository struct{ db *sql.DB }

func NewScanRepository(db *sql.DB) *ScanRepository { return &ScanRepository{db: db} }

const scanColumns = `scan_id, owner, filename, uploaded_at, pci_dss, status, risk_level, source_present`

func (r *ScanRepository) Save(ctx context.Context, j *domain.ScanJob) error {
	const q = `
INSERT INTO scan_jobs (scan_id, owner, filename, uploaded_at, pci_dss, status, risk_level, source_present)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`
	_, err := r.db.ExecContext(ctx, q,
		j.ScanID, j.Owner, j.Filename, j.UploadedAt, j.PCIDSS,
		string(j.Status), string(j.RiskLevel), j.SourcePresent,
	)
	return err
}

func (r *ScanRepository) Get(ctx context.Context, id domain.ScanID) (*domain.ScanJob, error) {
	const q = `SELECT ` + scanColumns + ` FROM scan_jobs WHERE scan_id=$1 LIMIT 1;`
	j, err := scanRow(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return j, err
}

func (r *ScanRepository) List(ctx context.Context, owner string, limit int) ([]*domain.ScanJob, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + scanColumns + ` FROM scan_jobs`
	args := []any{}
	if owner != "" {
		q += ` WHERE owner=$1 ORDER BY uploaded_at DESC, scan_id DESC LIMIT $2;`
		args = append(args, owner, limit)
	} else {
		q += ` ORDER BY uploaded_at DESC, scan_id DESC LIMIT $1;`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRows(rows)
}

func (r *ScanRepository) UpdateStatus(ctx context.Context, id domain.ScanID, status domain.Status, risk domain.RiskLevel) error {
	const q = `UPDATE scan_jobs SET status=$1, risk_level=$2 WHERE scan_id=$3;`
	res, err := r.db.ExecContext(ctx, q, string(status), string(risk), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ScanRepository) MarkSourceDeleted(ctx context.Context, id domain.ScanID) error {
	const q = `UPDATE scan_jobs SET source_present=FALSE WHERE scan_id=$1 AND source_present=TRUE;`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return domain.ErrSourceDeleted
	}
	return nil
}

func (r *ScanRepository) Stats(ctx context.Context, owner string) (domain.Stats, error) {
	totalsQ := `SELECT COUNT(*), MAX(uploaded_at) FROM scan_jobs`
	riskQ := `SELECT risk_level, COUNT(*) FROM scan_jobs WHERE status='completed'`
	args := []any{}
	if owner != "" {
		totalsQ += ` WHERE owner=$1`
		riskQ += ` AND owner=$1`
		args = append(args, owner)
	}
	riskQ += ` GROUP BY risk_level;`

	var stats domain.Stats
	var latest sql.NullTime
	if err := r.db.QueryRowContext(ctx, totalsQ, args...).Scan(&stats.TotalScans, &latest); err != nil {
		return domain.Stats{}, err
	}
	if latest.Valid {
		t := latest.Time
		stats.LatestScanDate = &t
	}

	stats.RiskCounts = map[domain.RiskLevel]int{
		domain.RiskLow: 0, domain.RiskMedium: 0, domain.RiskHigh: 0, domain.RiskCritical: 0,
	}
	rows, err := r.db.QueryContext(ctx, riskQ, args...)
	if err != nil {
		return domain.Stats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var level string
		var n int
		if err := rows.Scan(&level, &n); err != nil {
			return domain.Stats{}, err
		}
		stats.RiskCounts[domain.RiskLevel(level)] = n
	}
	return stats, rows.Err()
}

func (r *ScanRepository) Paginate(ctx context.Context, owner string, page, pageSize int) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	var q, countQ string
	var args, countArgs []any
	if owner != "" {
		q = `SELECT ` + scanColumns + ` FROM scan_jobs WHERE owner=$1 ORDER BY uploaded_at DESC, scan_id DESC LIMIT $2 OFFSET $3;`
		args = []any{owner, pageSize, offset}
		countQ = `SELECT COUNT(*) FROM scan_jobs WHERE owner=$1;`
		countArgs = []any{owner}
	} else {
		q = `SELECT ` + scanColumns + ` FROM scan_jobs ORDER BY uploaded_at DESC, scan_id DESC LIMIT $1 OFFSET $2;`
		args = []any{pageSize, offset}
		countQ = `SELECT COUNT(*) FROM scan_jobs;`
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("querying scan jobs: %w", err)
	}
	defer rows.Close()

	jobs, err := collectRows(rows)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("scanning rows: %w", err)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, countQ, countArgs...).Scan(&total); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("getting total count: %w", err)
	}

	return domain.PaginatedResult{
		Data:       jobs,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (*domain.ScanJob, error) {
	var j domain.ScanJob
	var status, risk string
	var uploaded time.Time
	if err := row.Scan(&j.ScanID, &j.Owner, &j.Filename, &uploaded, &j.PCIDSS, &status, &risk, &j.SourcePresent); err != nil {
		return nil, err
	}
	j.UploadedAt = uploaded
	j.Status = domain.Status(status)
	j.RiskLevel = domain.RiskLevel(risk)
	return &j, nil
}

func collectRows(rows *sql.Rows) ([]*domain.ScanJob, error) {
	var out []*domain.ScanJob
	for rows.Next() {
		j, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

var _ domain.Repository = (*ScanRepository)(nil)
