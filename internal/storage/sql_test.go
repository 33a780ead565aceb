package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/secdash/internal/models"
)

func setupTestDB(t *testing.T) (*SQLStorage, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "secdash-test-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}

	store := NewSQLiteStorage(filepath.Join(tmpDir, "test.db"))
	if err := store.Open(); err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("open database: %v", err)
	}

	if err := store.Migrate(); err != nil {
		store.Close()
		os.RemoveAll(tmpDir)
		t.Fatalf("migrate database: %v", err)
	}

	cleanup := func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}

	return store, cleanup
}

func i64(v int64) *int64 { return &v }

func f64(v float64) *float64 { return &v }

func TestSQLStorage_Migrate(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	tables := []string{
		"users", "refresh_tokens", "ingestion_logs", "detections", "findings",
		"phishing_reports", "advisories", "open_items", "reports",
		"email_metrics", "perimeter_metrics", "xdr_metrics", "scorecard_snapshots",
		"schema_migrations",
	}
	for _, table := range tables {
		var count int
		err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
		if err != nil {
			t.Errorf("table %s should exist: %v", table, err)
		}
	}

	// Running again is a no-op.
	if err := store.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	var version int
	if err := store.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version); err != nil {
		t.Fatal(err)
	}
	if version != len(migrations) {
		t.Errorf("version = %d, want %d", version, len(migrations))
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	if _, err := New("oracle", "x"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestUserRepository_CRUD(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     "testuser",
		Email:        "test@example.com",
		PasswordHash: "hashed-password",
		Role:         models.RoleOperator,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := store.Users().Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	got, err := store.Users().GetByUsername(ctx, user.Username)
	if err != nil {
		t.Fatalf("get user by username: %v", err)
	}
	if got == nil || got.ID != user.ID {
		t.Fatalf("user = %+v, want id %s", got, user.ID)
	}

	dup := *user
	dup.ID = uuid.New().String()
	if err := store.Users().Create(ctx, &dup); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate create error = %v, want ErrConflict", err)
	}

	user.Role = models.RoleViewer
	if err := store.Users().Update(ctx, user); err != nil {
		t.Fatalf("update user: %v", err)
	}
	got, _ = store.Users().GetByID(ctx, user.ID)
	if got.Role != models.RoleViewer {
		t.Errorf("role = %v, want viewer", got.Role)
	}

	if err := store.Users().Delete(ctx, user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if err := store.Users().Delete(ctx, user.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
	got, _ = store.Users().GetByID(ctx, user.ID)
	if got != nil {
		t.Error("user should be deleted")
	}
}

func TestTokenRepository(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	user := &models.User{ID: uuid.New().String(), Username: "u", Email: "u@x", PasswordHash: "h",
		Role: models.RoleViewer, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := store.Users().Create(ctx, user); err != nil {
		t.Fatal(err)
	}

	token, plain, err := models.NewRefreshToken(user.ID, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Tokens().Create(ctx, token); err != nil {
		t.Fatalf("create token: %v", err)
	}

	got, err := store.Tokens().GetByTokenHash(ctx, models.HashToken(plain))
	if err != nil || got == nil {
		t.Fatalf("get token: %v %v", got, err)
	}
	if !got.IsValid() {
		t.Error("fresh token should be valid")
	}

	if err := store.Tokens().RevokeAllForUser(ctx, user.ID); err != nil {
		t.Fatal(err)
	}
	got, _ = store.Tokens().GetByTokenHash(ctx, token.TokenHash)
	if got.IsValid() || got.RevokedAt == nil {
		t.Errorf("token should be revoked: %+v", got)
	}
}

func TestEnsureAdminUser(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.EnsureAdminUser(); err != nil {
		t.Fatalf("ensure admin user: %v", err)
	}
	admin, err := store.Users().GetByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("get admin: %v", err)
	}
	if admin == nil || admin.Role != models.RoleAdmin {
		t.Fatalf("admin = %+v", admin)
	}

	count1, _ := store.Users().Count(ctx)
	if err := store.EnsureAdminUser(); err != nil {
		t.Fatalf("second ensure admin user: %v", err)
	}
	count2, _ := store.Users().Count(ctx)
	if count1 != count2 {
		t.Errorf("user count changed from %d to %d", count1, count2)
	}
}

func TestIngestionRepository_Lifecycle(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	log := &models.IngestionLog{Filename: "Falcon_X_20250630.csv", Checksum: "abc", Source: "falcon"}
	if err := store.Ingestions().Create(ctx, log); err != nil {
		t.Fatalf("create log: %v", err)
	}
	if log.ID == "" || log.Status != models.IngestionPending {
		t.Fatalf("log = %+v", log)
	}

	if err := store.Ingestions().Complete(ctx, log.ID, models.IngestionSuccess, 12, ""); err != nil {
		t.Fatalf("complete log: %v", err)
	}
	if err := store.Ingestions().Complete(ctx, log.ID, models.IngestionFailed, 0, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second complete error = %v, want ErrNotFound", err)
	}

	got, err := store.Ingestions().GetByID(ctx, log.ID)
	if err != nil || got == nil {
		t.Fatalf("get log: %v %v", got, err)
	}
	if got.Status != models.IngestionSuccess || got.RowsProcessed != 12 || got.CompletedAt == nil {
		t.Errorf("log = %+v", got)
	}

	logs, total, err := store.Ingestions().List(ctx, 10, 0)
	if err != nil || total != 1 || len(logs) != 1 {
		t.Errorf("list = %d/%d %v", len(logs), total, err)
	}
}

func TestDetectionRepository_UpsertIsIdempotent(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	d := &models.Detection{
		Feed: models.FeedFalcon, ExternalID: "ldt:1", Title: "Mimikatz",
		Severity: "High", Tactic: "Credential Access", Hostname: "srv-01",
	}
	first, err := store.Detections().Upsert(ctx, d)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	d.Severity = "Critical"
	second, err := store.Detections().Upsert(ctx, d)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("id changed: %s -> %s", first.ID, second.ID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("created_at changed: %v -> %v", first.CreatedAt, second.CreatedAt)
	}

	list, total, err := store.Detections().List(ctx, models.FeedFalcon, ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(list) != 1 {
		t.Fatalf("total = %d, want 1", total)
	}
	if list[0].Severity != "Critical" {
		t.Errorf("severity = %q, want Critical", list[0].Severity)
	}
}

func TestDetectionRepository_ListFilters(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	june := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	july := time.Date(2025, 7, 15, 8, 0, 0, 0, time.UTC)
	rows := []models.Detection{
		{Feed: models.FeedSecureworks, ExternalID: "a", Severity: "High", Hostname: "web-01", DetectedAt: &june},
		{Feed: models.FeedSecureworks, ExternalID: "b", Severity: "Informational", Hostname: "web-02", DetectedAt: &june},
		{Feed: models.FeedSecureworks, ExternalID: "c", Severity: "Low", Hostname: "db-01", FalsePositive: true, DetectedAt: &july},
		{Feed: models.FeedSecureworks, ExternalID: "d", Severity: "Low", Hostname: "db-02", DetectedAt: &july},
		{Feed: models.FeedFalcon, ExternalID: "a", Severity: "High", Hostname: "web-01", DetectedAt: &june},
	}
	for i := range rows {
		if _, err := store.Detections().Upsert(ctx, &rows[i]); err != nil {
			t.Fatal(err)
		}
	}

	policy := ListFilter{ExcludeFalsePositives: true, ExcludeSeverities: []string{"Informational"}}

	tests := []struct {
		name   string
		filter ListFilter
		want   int64
	}{
		{"all", ListFilter{}, 4},
		{"policy", policy, 2},
		{"search", ListFilter{Search: "WEB"}, 2},
		{"severity", ListFilter{Severities: []string{"low"}}, 2},
		{"date range", ListFilter{Start: &july}, 2},
		{"expression", ListFilter{Expression: `host startsWith "db"`}, 2},
		{"expression and policy", ListFilter{Expression: `host startsWith "db"`, ExcludeFalsePositives: true}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, total, err := store.Detections().List(ctx, models.FeedSecureworks, tt.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if total != tt.want {
				t.Errorf("total = %d, want %d", total, tt.want)
			}
		})
	}

	page, total, err := store.Detections().List(ctx, models.FeedSecureworks, ListFilter{Page: 2, PageSize: 3})
	if err != nil {
		t.Fatal(err)
	}
	if total != 4 || len(page) != 1 {
		t.Errorf("page 2 = %d rows of %d, want 1 of 4", len(page), total)
	}

	if _, _, err := store.Detections().List(ctx, models.FeedSecureworks, ListFilter{Expression: `nope == 1`}); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("bad expression error = %v, want ErrInvalidFilter", err)
	}
}

func TestFindingRepository(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	f := &models.Finding{Feed: models.FeedTenable, ExternalKey: "19506|10.0.0.1|0", Title: "Scan Info", Severity: "Info", Score: f64(0)}
	if _, err := store.Findings().Upsert(ctx, f); err != nil {
		t.Fatal(err)
	}
	f2 := &models.Finding{Feed: models.FeedTenable, ExternalKey: "1|10.0.0.2|443", Title: "TLS", Severity: "High", Score: f64(7.5)}
	if _, err := store.Findings().Upsert(ctx, f2); err != nil {
		t.Fatal(err)
	}

	list, total, err := store.Findings().List(ctx, models.FeedTenable, ListFilter{Expression: `score >= 7.0`})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || list[0].Title != "TLS" || list[0].Score == nil || *list[0].Score != 7.5 {
		t.Errorf("list = %+v", list)
	}

	other, _, _ := store.Findings().List(ctx, models.FeedAWS, ListFilter{})
	if len(other) != 0 {
		t.Errorf("aws findings = %d, want 0", len(other))
	}
}

func TestSnapshotRepository_ReplacesPeriod(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	period := models.Period{Month: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), Quarter: "Q3 2025", Label: "092025"}
	first, err := store.Snapshots().UpsertEmail(ctx, &models.EmailMetrics{
		Period: period, InboundEmails: i64(1000), BlockedProofpoint: i64(200), SpamBlocked: i64(5),
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second, err := store.Snapshots().UpsertEmail(ctx, &models.EmailMetrics{
		Period: period, InboundEmails: i64(1100),
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("id changed: %s -> %s", first.ID, second.ID)
	}

	list, err := store.Snapshots().ListEmail(ctx, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("snapshots = %d, want 1", len(list))
	}
	got := list[0]
	if got.InboundEmails == nil || *got.InboundEmails != 1100 {
		t.Errorf("inbound = %v, want 1100", got.InboundEmails)
	}
	if got.SpamBlocked != nil {
		t.Errorf("spam = %v, want nil after full replace", *got.SpamBlocked)
	}
	if got.Quarter != "Q3 2025" || !got.Month.Equal(period.Month) {
		t.Errorf("period = %+v", got.Period)
	}
}

func TestSnapshotRepository_ListRangeAndScorecard(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	for m := time.July; m <= time.September; m++ {
		p := models.Period{Month: time.Date(2025, m, 1, 0, 0, 0, 0, time.UTC), Quarter: "Q3 2025"}
		_, err := store.Snapshots().UpsertScorecard(ctx, &models.ScorecardSnapshot{
			Period:       p,
			OverallScore: f64(float64(80 + int(m))),
			Factors:      []models.ScorecardFactor{{Name: "DNS Health", Score: f64(90), Grade: "A"}},
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	list, err := store.Snapshots().ListScorecard(ctx, &start, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("snapshots = %d, want 2", len(list))
	}
	if list[0].Month.Month() != time.August || list[1].Month.Month() != time.September {
		t.Errorf("order = %v, %v", list[0].Month, list[1].Month)
	}
	if len(list[0].Factors) != 1 || list[0].Factors[0].Grade != "A" {
		t.Errorf("factors = %+v", list[0].Factors)
	}
}

func TestReportRepository_DuplicateChecksum(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	rep := &models.Report{Source: "netgear_scorecard_pdf", Filename: "a.pdf", SizeBytes: 3, Checksum: "c1", Content: []byte("pdf")}
	if err := store.Reports().Create(ctx, rep); err != nil {
		t.Fatal(err)
	}
	dup := &models.Report{Source: "netgear_scorecard_pdf", Filename: "b.pdf", SizeBytes: 3, Checksum: "c1"}
	if err := store.Reports().Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate error = %v, want ErrConflict", err)
	}

	got, err := store.Reports().GetByID(ctx, rep.ID)
	if err != nil || got == nil || string(got.Content) != "pdf" {
		t.Errorf("get = %+v %v", got, err)
	}
}

func TestOpenItemAndAdvisoryUpsert(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	for _, status := range []string{"Open", "In Progress"} {
		if _, err := store.OpenItems().Upsert(ctx, &models.OpenItem{IssueKey: "SEC-1", Summary: "Rotate keys", Status: status}); err != nil {
			t.Fatal(err)
		}
	}
	items, total, err := store.OpenItems().List(ctx, ListFilter{})
	if err != nil || total != 1 || items[0].Status != "In Progress" {
		t.Errorf("open items = %+v %v", items, err)
	}

	if _, err := store.Advisories().Upsert(ctx, &models.Advisory{ExternalKey: "adv-1", Title: "CVE-2025-1", Severity: "Critical"}); err != nil {
		t.Fatal(err)
	}
	advs, _, err := store.Advisories().List(ctx, ListFilter{Severities: []string{"critical"}})
	if err != nil || len(advs) != 1 {
		t.Errorf("advisories = %+v %v", advs, err)
	}

	if _, err := store.Phishing().Upsert(ctx, &models.PhishingReport{ExternalKey: "p1", Subject: "Invoice", Verdict: "Malicious"}); err != nil {
		t.Fatal(err)
	}
	reports, _, err := store.Phishing().List(ctx, ListFilter{Statuses: []string{"malicious"}})
	if err != nil || len(reports) != 1 {
		t.Errorf("phishing = %+v %v", reports, err)
	}
}
