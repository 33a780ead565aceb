package storage

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestPostgresRebind(t *testing.T) {
	d := postgresDialect{}
	got := d.Rebind(`SELECT * FROM t WHERE a = ? AND lower(b) LIKE ? ESCAPE '\' AND c = '?' AND d IN (?, ?)`)
	want := `SELECT * FROM t WHERE a = $1 AND lower(b) LIKE $2 ESCAPE '\' AND c = '?' AND d IN ($3, $4)`
	if got != want {
		t.Errorf("Rebind() = %q, want %q", got, want)
	}
}

func TestPostgresDDL(t *testing.T) {
	got := postgresDialect{}.DDL("created_at DATETIME NOT NULL, score REAL, content BLOB")
	want := "created_at TIMESTAMPTZ NOT NULL, score DOUBLE PRECISION, content BYTEA"
	if got != want {
		t.Errorf("DDL() = %q, want %q", got, want)
	}
	for _, m := range migrations {
		if strings.Contains(postgresDialect{}.DDL(m.Up), "DATETIME") {
			t.Errorf("migration %d still has DATETIME after rewrite", m.Version)
		}
	}
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	if !(postgresDialect{}).IsUniqueViolation(pgErr) {
		t.Error("postgres 23505 should be a unique violation")
	}
	if (postgresDialect{}).IsUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("foreign key violation is not a unique violation")
	}
	if !(sqliteDialect{}).IsUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: reports.checksum (2067)")) {
		t.Error("sqlite unique message should match")
	}
}

func TestNewDialect(t *testing.T) {
	for in, want := range map[string]string{"": "sqlite", "sqlite": "sqlite", "postgres": "postgres", "pgx": "postgres"} {
		d, err := NewDialect(in)
		if err != nil || d.Name() != want {
			t.Errorf("NewDialect(%q) = %v, %v; want %s", in, d, err, want)
		}
	}
}

func TestUpsertStatement(t *testing.T) {
	u := upsertSpec{table: "open_items", key: []string{"issue_key"}, columns: []string{"issue_key", "summary"}}
	want := "INSERT INTO open_items (id, issue_key, summary, created_at, updated_at) VALUES (?, ?, ?, ?, ?) " +
		"ON CONFLICT (issue_key) DO UPDATE SET summary = excluded.summary, updated_at = excluded.updated_at"
	if got := u.statement(); got != want {
		t.Errorf("statement() = %q\nwant %q", got, want)
	}
}
