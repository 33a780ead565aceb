package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/good-yellow-bee/secdash/internal/models"
)

// SQLStorage implements Storage on database/sql.
type SQLStorage struct {
	dialect Dialect
	dsn     string
	db      *DB

	users      *userRepo
	tokens     *tokenRepo
	ingestions *ingestionRepo
	detections *detectionRepo
	findings   *findingRepo
	phishing   *phishingRepo
	advisories *advisoryRepo
	openItems  *openItemRepo
	snapshots  *snapshotRepo
	reports    *reportRepo
}

// New creates storage for a driver ("sqlite" or "postgres"). For SQLite
// dsn is a file path; for PostgreSQL it is a connection URL.
func New(driver, dsn string) (*SQLStorage, error) {
	d, err := NewDialect(driver)
	if err != nil {
		return nil, err
	}
	return &SQLStorage{dialect: d, dsn: dsn}, nil
}

// NewSQLiteStorage creates storage backed by the SQLite file at path.
func NewSQLiteStorage(path string) *SQLStorage {
	return &SQLStorage{dialect: sqliteDialect{}, dsn: path}
}

// Open initializes the database connection.
func (s *SQLStorage) Open() error {
	ctx := context.Background()

	dsn := s.dsn
	if s.dialect.Name() == "sqlite" && !strings.HasPrefix(dsn, "file:") {
		dsn = fmt.Sprintf("file:%s?_time_format=sqlite&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dsn)
	}

	db, err := sql.Open(s.dialect.DriverName(), dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if s.dialect.Name() == "sqlite" {
		db.SetMaxOpenConns(1) // SQLite is single-writer
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	if s.dialect.Name() == "sqlite" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
			db.Close()
			return fmt.Errorf("execute PRAGMA journal_mode: %w", err)
		}
	}

	s.db = &DB{DB: db, dialect: s.dialect}

	s.users = &userRepo{db: s.db}
	s.tokens = &tokenRepo{db: s.db}
	s.ingestions = &ingestionRepo{db: s.db}
	s.detections = &detectionRepo{db: s.db}
	s.findings = &findingRepo{db: s.db}
	s.phishing = &phishingRepo{db: s.db}
	s.advisories = &advisoryRepo{db: s.db}
	s.openItems = &openItemRepo{db: s.db}
	s.snapshots = &snapshotRepo{db: s.db}
	s.reports = &reportRepo{db: s.db}

	return nil
}

// Close closes the database connection.
func (s *SQLStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *SQLStorage) DB() *sql.DB {
	if s.db == nil {
		return nil
	}
	return s.db.DB
}

// Dialect returns the configured SQL dialect.
func (s *SQLStorage) Dialect() Dialect {
	return s.dialect
}

// Ping checks the database connection.
func (s *SQLStorage) Ping(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not open")
	}
	return s.db.PingContext(ctx)
}

// Migrate runs database migrations.
func (s *SQLStorage) Migrate() error {
	return runMigrations(context.Background(), s.db)
}

// EnsureAdminUser creates default admin if no users exist.
func (s *SQLStorage) EnsureAdminUser() error {
	ctx := context.Background()
	count, err := s.Users().Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	password := generateRandomPassword(16)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	admin := &models.User{
		ID:           uuid.New().String(),
		Username:     "admin",
		Email:        "admin@localhost",
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Users().Create(ctx, admin); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	fmt.Printf("\n")
	fmt.Printf("===========================================\n")
	fmt.Printf("  DEFAULT ADMIN USER CREATED\n")
	fmt.Printf("  Username: admin\n")
	fmt.Printf("  Password: %s\n", password)
	fmt.Printf("  CHANGE THIS PASSWORD IMMEDIATELY!\n")
	fmt.Printf("===========================================\n")
	fmt.Printf("\n")

	return nil
}

func (s *SQLStorage) Users() UserRepository           { return s.users }
func (s *SQLStorage) Tokens() TokenRepository         { return s.tokens }
func (s *SQLStorage) Ingestions() IngestionRepository { return s.ingestions }
func (s *SQLStorage) Detections() DetectionRepository { return s.detections }
func (s *SQLStorage) Findings() FindingRepository     { return s.findings }
func (s *SQLStorage) Phishing() PhishingRepository    { return s.phishing }
func (s *SQLStorage) Advisories() AdvisoryRepository  { return s.advisories }
func (s *SQLStorage) OpenItems() OpenItemRepository   { return s.openItems }
func (s *SQLStorage) Snapshots() SnapshotRepository   { return s.snapshots }
func (s *SQLStorage) Reports() ReportRepository       { return s.reports }

func generateRandomPassword(length int) string {
	b := make([]byte, length)
	_, _ = rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)[:length]
}
