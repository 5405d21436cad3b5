package scans

import (
	"time"
)

// ID tipe untuk ScanJob
type ScanID string

// Status enum
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further status transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// RiskLevel enum, set only on completed jobs
type RiskLevel string

const (
	RiskNone     RiskLevel = ""
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Aggregate Root: ScanJob
type ScanJob struct {
	ScanID        ScanID    `json:"scan_id"`
	Owner         string    `json:"owner"`
	Filename      string    `json:"filename"`
	UploadedAt    time.Time `json:"uploaded_at"`
	PCIDSS        bool      `json:"pci_dss"`
	Status        Status    `json:"status"`
	RiskLevel     RiskLevel `json:"risk_level,omitempty"`
	SourcePresent bool      `json:"source_present"`
}

// TransitionTo advances the job's status. Transitions are monotonic:
// pending → processing → completed|failed. Re-reporting the current
// terminal state is a no-op so the engine can retry idempotently.
// A risk level is accepted only together with StatusCompleted.
func (j *ScanJob) TransitionTo(next Status, risk RiskLevel) error {
	if j.Status == next && j.Status.Terminal() {
		return nil
	}
	if !validTransition(j.Status, next) {
		return ErrInvalidTransition
	}
	if next == StatusCompleted {
		if risk == RiskNone {
			return ErrInvalidTransition
		}
	} else if risk != RiskNone {
		return ErrInvalidTransition
	}
	j.Status = next
	j.RiskLevel = risk
	return nil
}

func validTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// ParseStatus validates an externally supplied status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return Status(s), nil
	}
	return "", ErrInvalidTransition
}

// ParseRiskLevel validates an externally supplied risk level string.
// The empty string is valid and means "not set".
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch RiskLevel(s) {
	case RiskNone, RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return RiskLevel(s), nil
	}
	return RiskNone, ErrInvalidTransition
}

// Stats is the dashboard aggregate over a set of jobs.
type Stats struct {
	TotalScans     int               `json:"total_scans"`
	LatestScanDate *time.Time        `json:"latest_scan_date,omitempty"`
	RiskCounts     map[RiskLevel]int `json:"risk_counts"`
}
