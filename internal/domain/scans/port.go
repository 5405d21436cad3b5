package scans

import (
	"context"
	"io"
)

// Repository port (interface untuk persistence)
type Repository interface {
	Save(ctx context.Context, j *ScanJob) error
	Get(ctx context.Context, id ScanID) (*ScanJob, error)
	// List returns jobs ordered by uploaded_at descending. An empty owner
	// means all owners (admin scope).
	List(ctx context.Context, owner string, limit int) ([]*ScanJob, error)
	UpdateStatus(ctx context.Context, id ScanID, status Status, risk RiskLevel) error
	MarkSourceDeleted(ctx context.Context, id ScanID) error
	Stats(ctx context.Context, owner string) (Stats, error)

	// tambahan paginate
	Paginate(ctx context.Context, owner string, page, pageSize int) (PaginatedResult, error)
}

// ArtifactStore port: report artifacts and source archives live under
// disjoint keys so deleting a source can never touch its report.
type ArtifactStore interface {
	PutSource(ctx context.Context, id ScanID, filename string, r io.Reader, size int64) error
	GetSource(ctx context.Context, id ScanID) (io.ReadCloser, error)
	DeleteSource(ctx context.Context, id ScanID) error
	PutReport(ctx context.Context, id ScanID, r io.Reader, size int64, contentType string) error
	GetReport(ctx context.Context, id ScanID) (io.ReadCloser, error)
}

// Engine port (interface untuk the external scanning engine). Submit
// hands a created job to the engine and returns once accepted; the
// engine drives progress through a ProgressSink.
type Engine interface {
	Submit(ctx context.Context, req ScanRequest) error
}

// ProgressSink receives status transitions reported by the engine.
type ProgressSink interface {
	ReportProgress(ctx context.Context, id ScanID, status Status, risk RiskLevel) error
}
