// Package storage persists secdash records in SQLite or PostgreSQL.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/good-yellow-bee/secdash/internal/models"
)

var (
	// ErrConflict is returned when a write violates a unique constraint.
	ErrConflict = errors.New("already exists")
	// ErrNotFound is returned by updates that match no row.
	ErrNotFound = errors.New("not found")
	// ErrInvalidFilter is returned when a filter expression does not compile.
	ErrInvalidFilter = errors.New("invalid filter")
)

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error
	// EnsureAdminUser creates default admin if no users exist.
	EnsureAdminUser() error
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	Users() UserRepository
	Tokens() TokenRepository
	Ingestions() IngestionRepository
	Detections() DetectionRepository
	Findings() FindingRepository
	Phishing() PhishingRepository
	Advisories() AdvisoryRepository
	OpenItems() OpenItemRepository
	Snapshots() SnapshotRepository
	Reports() ReportRepository
}

// ListFilter narrows a list query. Zero values mean "no filter".
type ListFilter struct {
	Start       *time.Time
	End         *time.Time
	Search      string
	Severities  []string
	Statuses    []string
	Titles      []string
	SensorTypes []string
	// Expression is a filter in the query DSL, e.g. `host contains "srv"`.
	Expression string

	// Detection policy, applied only by DetectionRepository.
	ExcludeFalsePositives bool
	ExcludeSeverities     []string

	Page     int
	PageSize int // 0 returns every row
}

// UserRepository defines operations for user management.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.User, error)
	Count(ctx context.Context) (int64, error)
}

// TokenRepository defines operations for refresh token management.
type TokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id string) error
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// IngestionRepository records import attempts.
type IngestionRepository interface {
	Create(ctx context.Context, log *models.IngestionLog) error
	Complete(ctx context.Context, id string, status models.IngestionStatus, rows int, errorLog string) error
	GetByID(ctx context.Context, id string) (*models.IngestionLog, error)
	List(ctx context.Context, limit, offset int) ([]*models.IngestionLog, int64, error)
}

// DetectionRepository stores detections keyed by feed and external id.
type DetectionRepository interface {
	Upsert(ctx context.Context, d *models.Detection) (*models.Detection, error)
	List(ctx context.Context, feed models.Feed, f ListFilter) ([]models.Detection, int64, error)
}

// FindingRepository stores findings keyed by feed and external key.
type FindingRepository interface {
	Upsert(ctx context.Context, f *models.Finding) (*models.Finding, error)
	List(ctx context.Context, feed models.Feed, f ListFilter) ([]models.Finding, int64, error)
}

// PhishingRepository stores phishing reports.
type PhishingRepository interface {
	Upsert(ctx context.Context, r *models.PhishingReport) (*models.PhishingReport, error)
	List(ctx context.Context, f ListFilter) ([]models.PhishingReport, int64, error)
}

// AdvisoryRepository stores threat advisories.
type AdvisoryRepository interface {
	Upsert(ctx context.Context, a *models.Advisory) (*models.Advisory, error)
	List(ctx context.Context, f ListFilter) ([]models.Advisory, int64, error)
}

// OpenItemRepository stores tracker items keyed by issue key.
type OpenItemRepository interface {
	Upsert(ctx context.Context, item *models.OpenItem) (*models.OpenItem, error)
	List(ctx context.Context, f ListFilter) ([]models.OpenItem, int64, error)
}

// SnapshotRepository stores one metric snapshot per tool and period month.
// Every upsert fully replaces the stored metrics for that month.
type SnapshotRepository interface {
	UpsertEmail(ctx context.Context, m *models.EmailMetrics) (*models.EmailMetrics, error)
	UpsertPerimeter(ctx context.Context, m *models.PerimeterMetrics) (*models.PerimeterMetrics, error)
	UpsertXDR(ctx context.Context, m *models.XDRMetrics) (*models.XDRMetrics, error)
	UpsertScorecard(ctx context.Context, m *models.ScorecardSnapshot) (*models.ScorecardSnapshot, error)

	// List methods return snapshots with start <= month <= end, oldest first.
	ListEmail(ctx context.Context, start, end *time.Time) ([]models.EmailMetrics, error)
	ListPerimeter(ctx context.Context, start, end *time.Time) ([]models.PerimeterMetrics, error)
	ListXDR(ctx context.Context, start, end *time.Time) ([]models.XDRMetrics, error)
	ListScorecard(ctx context.Context, start, end *time.Time) ([]models.ScorecardSnapshot, error)
}

// ReportRepository stores uploaded documents. Checksums are unique.
type ReportRepository interface {
	Create(ctx context.Context, r *models.Report) error
	GetByID(ctx context.Context, id string) (*models.Report, error)
	List(ctx context.Context) ([]*models.Report, error)
}
