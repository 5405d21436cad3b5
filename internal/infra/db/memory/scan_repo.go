// Package memory provides thread-safe in-memory repositories for
// testing and development.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	domain "github.com/hackwithabx/CDAC-Dependency-check/internal/domain/scans"
)

type ScanRepository struct {
	mu   sync.Mutex
	jobs map[domain.ScanID]*domain.ScanJob
}

func NewScanRepository() *ScanRepository {
	return &ScanRepository{jobs: make(map[domain.ScanID]*domain.ScanJob)}
}

func (r *ScanRepository) Save(ctx context.Context, j *domain.ScanJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *j
	r.jobs[j.ScanID] = &cp
	return nil
}

func (r *ScanRepository) Get(ctx context.Context, id domain.ScanID) (*domain.ScanJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	// Copy so callers cannot mutate the stored job.
	cp := *j
	return &cp, nil
}

func (r *ScanRepository) List(ctx context.Context, owner string, limit int) ([]*domain.ScanJob, error) {
	r.mu.Lock()
	out := r.snapshot(owner)
	r.mu.Unlock()

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ScanRepository) UpdateStatus(ctx context.Context, id domain.ScanID, status domain.Status, risk domain.RiskLevel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	j.Status = status
	j.RiskLevel = risk
	return nil
}

func (r *ScanRepository) MarkSourceDeleted(ctx context.Context, id domain.ScanID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !j.SourcePresent {
		return domain.ErrSourceDeleted
	}
	j.SourcePresent = false
	return nil
}

func (r *ScanRepository) Stats(ctx context.Context, owner string) (domain.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := domain.Stats{
		RiskCounts: map[domain.RiskLevel]int{
			domain.RiskLow: 0, domain.RiskMedium: 0, domain.RiskHigh: 0, domain.RiskCritical: 0,
		},
	}
	for _, j := range r.jobs {
		if owner != "" && j.Owner != owner {
			continue
		}
		stats.TotalScans++
		if stats.LatestScanDate == nil || j.UploadedAt.After(*stats.LatestScanDate) {
			t := j.UploadedAt
			stats.LatestScanDate = &t
		}
		if j.Status == domain.StatusCompleted {
			stats.RiskCounts[j.RiskLevel]++
		}
	}
	return stats, nil
}

func (r *ScanRepository) Paginate(ctx context.Context, owner string, page, pageSize int) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	r.mu.Lock()
	all := r.snapshot(owner)
	r.mu.Unlock()

	total := int64(len(all))
	start := (page - 1) * pageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}

	return domain.PaginatedResult{
		Data:       all[start:end],
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// snapshot copies the scoped jobs, newest first. Caller holds the lock.
func (r *ScanRepository) snapshot(owner string) []*domain.ScanJob {
	out := make([]*domain.ScanJob, 0, len(r.jobs))
	for _, j := range r.jobs {
		if owner != "" && j.Owner != owner {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].UploadedAt.Equal(out[k].UploadedAt) {
			return out[i].ScanID > out[k].ScanID
		}
		return out[i].UploadedAt.After(out[k].UploadedAt)
	})
	return out
}

var _ domain.Repository = (*ScanRepository)(nil)
