package models

import "time"

// IngestionStatus is the lifecycle state of one import attempt.
type IngestionStatus string

const (
	IngestionPending IngestionStatus = "PENDING"
	IngestionSuccess IngestionStatus = "SUCCESS"
	IngestionFailed  IngestionStatus = "FAILED"
)

// IngestionLog records the outcome of one import attempt. It is created
// PENDING before any row is written and completed exactly once.
type IngestionLog struct {
	ID            string          `json:"id"`
	Filename      string          `json:"filename"`
	Checksum      string          `json:"checksum"`
	Source        string          `json:"source"`
	RowsProcessed int             `json:"rows_processed"`
	Status        IngestionStatus `json:"status"`
	ErrorLog      string          `json:"error_log,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

// Report is an uploaded document kept as-is, such as a scorecard PDF.
type Report struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Filename    string    `json:"filename"`
	PeriodMonth time.Time `json:"period_month"`
	SizeBytes   int64     `json:"size_bytes"`
	Checksum    string    `json:"checksum"`
	Content     []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
