package audit

import "time"

// Entry represents a persisted audit log record
type Entry struct {
	ID         int64     `json:"id"`
	Event      string    `json:"event"`
	Username   string    `json:"username"`
	ActionType string    `json:"action_type"` // login | scan | report_download | source_delete | password_reset
	CreatedAt  time.Time `json:"created_at"`
}
