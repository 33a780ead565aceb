package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Migration represents a database migration. Up holds statements
// separated by semicolons, written with SQLite type names.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				username TEXT UNIQUE NOT NULL,
				email TEXT UNIQUE NOT NULL,
				password_hash TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'viewer',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			CREATE TABLE IF NOT EXISTS refresh_tokens (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				token_hash TEXT UNIQUE NOT NULL,
				expires_at DATETIME NOT NULL,
				created_at DATETIME NOT NULL,
				revoked BOOLEAN NOT NULL DEFAULT FALSE,
				revoked_at DATETIME
			);

			CREATE TABLE IF NOT EXISTS ingestion_logs (
				id TEXT PRIMARY KEY,
				filename TEXT NOT NULL,
				checksum TEXT NOT NULL,
				source TEXT NOT NULL,
				rows_processed INTEGER NOT NULL DEFAULT 0,
				status TEXT NOT NULL,
				error_log TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL,
				completed_at DATETIME
			);

			CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user ON refresh_tokens(user_id);
			CREATE INDEX IF NOT EXISTS idx_ingestion_logs_created ON ingestion_logs(created_at)
		`,
	},
	{
		Version: 2,
		Name:    "detections_and_findings",
		Up: `
			CREATE TABLE IF NOT EXISTS detections (
				id TEXT PRIMARY KEY,
				feed TEXT NOT NULL,
				external_id TEXT NOT NULL,
				title TEXT NOT NULL DEFAULT '',
				severity TEXT NOT NULL DEFAULT '',
				tactic TEXT NOT NULL DEFAULT '',
				technique TEXT NOT NULL DEFAULT '',
				hostname TEXT NOT NULL DEFAULT '',
				filename TEXT NOT NULL DEFAULT '',
				process TEXT NOT NULL DEFAULT '',
				command_line TEXT NOT NULL DEFAULT '',
				sensor_type TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT '',
				false_positive BOOLEAN NOT NULL DEFAULT FALSE,
				timestamp_text TEXT NOT NULL DEFAULT '',
				detected_at DATETIME,
				source_file TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				UNIQUE (feed, external_id)
			);

			CREATE TABLE IF NOT EXISTS findings (
				id TEXT PRIMARY KEY,
				feed TEXT NOT NULL,
				external_key TEXT NOT NULL,
				title TEXT NOT NULL,
				severity TEXT NOT NULL DEFAULT '',
				category TEXT NOT NULL DEFAULT '',
				asset TEXT NOT NULL DEFAULT '',
				score REAL,
				cve TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT '',
				first_seen_text TEXT NOT NULL DEFAULT '',
				observed_at DATETIME,
				source_file TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				UNIQUE (feed, external_key)
			);

			CREATE INDEX IF NOT EXISTS idx_detections_feed_detected ON detections(feed, detected_at);
			CREATE INDEX IF NOT EXISTS idx_findings_feed_observed ON findings(feed, observed_at)
		`,
	},
	{
		Version: 3,
		Name:    "reports_and_trackers",
		Up: `
			CREATE TABLE IF NOT EXISTS phishing_reports (
				id TEXT PRIMARY KEY,
				external_key TEXT UNIQUE NOT NULL,
				subject TEXT NOT NULL,
				sender TEXT NOT NULL DEFAULT '',
				reporter TEXT NOT NULL DEFAULT '',
				verdict TEXT NOT NULL DEFAULT '',
				reported_text TEXT NOT NULL DEFAULT '',
				reported_at DATETIME,
				source_file TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			CREATE TABLE IF NOT EXISTS advisories (
				id TEXT PRIMARY KEY,
				external_key TEXT UNIQUE NOT NULL,
				title TEXT NOT NULL,
				severity TEXT NOT NULL DEFAULT '',
				cves TEXT NOT NULL DEFAULT '',
				vendor TEXT NOT NULL DEFAULT '',
				summary TEXT NOT NULL DEFAULT '',
				published_text TEXT NOT NULL DEFAULT '',
				published_at DATETIME,
				source_file TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			CREATE TABLE IF NOT EXISTS open_items (
				id TEXT PRIMARY KEY,
				issue_key TEXT UNIQUE NOT NULL,
				summary TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT '',
				priority TEXT NOT NULL DEFAULT '',
				assignee TEXT NOT NULL DEFAULT '',
				created_text TEXT NOT NULL DEFAULT '',
				due_text TEXT NOT NULL DEFAULT '',
				opened_at DATETIME,
				source_file TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			CREATE TABLE IF NOT EXISTS reports (
				id TEXT PRIMARY KEY,
				source TEXT NOT NULL,
				filename TEXT NOT NULL,
				period_month DATETIME,
				size_bytes INTEGER NOT NULL,
				checksum TEXT UNIQUE NOT NULL,
				content BLOB,
				created_at DATETIME NOT NULL
			)
		`,
	},
	{
		Version: 4,
		Name:    "metric_snapshots",
		Up: `
			CREATE TABLE IF NOT EXISTS email_metrics (
				id TEXT PRIMARY KEY,
				period_month DATETIME UNIQUE NOT NULL,
				period_quarter TEXT NOT NULL,
				report_label TEXT NOT NULL,
				inbound_emails INTEGER,
				outbound_emails INTEGER,
				blocked_proofpoint INTEGER,
				spam_blocked INTEGER,
				phishing_blocked INTEGER,
				malware_blocked INTEGER,
				quarantined INTEGER,
				source_file TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			CREATE TABLE IF NOT EXISTS perimeter_metrics (
				id TEXT PRIMARY KEY,
				period_month DATETIME UNIQUE NOT NULL,
				period_quarter TEXT NOT NULL,
				report_label TEXT NOT NULL,
				blocked_connections INTEGER,
				intrusion_attempts INTEGER,
				blocked_web_requests INTEGER,
				vpn_sessions INTEGER,
				ddos_events INTEGER,
				source_file TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			CREATE TABLE IF NOT EXISTS xdr_metrics (
				id TEXT PRIMARY KEY,
				period_month DATETIME UNIQUE NOT NULL,
				period_quarter TEXT NOT NULL,
				report_label TEXT NOT NULL,
				total_alerts INTEGER,
				critical_alerts INTEGER,
				high_alerts INTEGER,
				investigations INTEGER,
				true_positives INTEGER,
				false_positives INTEGER,
				endpoints_monitored INTEGER,
				mttr_hours REAL,
				source_file TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			CREATE TABLE IF NOT EXISTS scorecard_snapshots (
				id TEXT PRIMARY KEY,
				period_month DATETIME UNIQUE NOT NULL,
				period_quarter TEXT NOT NULL,
				report_label TEXT NOT NULL,
				overall_score REAL,
				overall_grade TEXT NOT NULL DEFAULT '',
				factors_json TEXT NOT NULL DEFAULT '[]',
				source_file TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)
		`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(ctx context.Context, db *DB) error {
	_, err := db.ExecContext(ctx, db.dialect.DDL(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`))
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	err = db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", m.Version, err)
		}

		for _, stmt := range splitStatements(m.Up) {
			if _, err := tx.ExecContext(ctx, db.dialect.DDL(stmt)); err != nil {
				tx.Rollback()
				return fmt.Errorf("execute migration %d (%s): %w", m.Version, m.Name, err)
			}
		}

		_, err = tx.ExecContext(ctx,
			db.dialect.Rebind("INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)"),
			m.Version, m.Name, time.Now().UTC(),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

func splitStatements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}
