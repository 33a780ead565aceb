package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	// PostgreSQL driver registered as "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure-Go SQLite driver registered as "sqlite".
	_ "modernc.org/sqlite"
)

// Dialect abstracts the SQL differences between the supported backends.
// Queries are written with "?" placeholders and SQLite type names; the
// dialect rewrites both for its backend.
type Dialect interface {
	// Name is the configured driver name ("sqlite" or "postgres").
	Name() string
	// DriverName returns the database/sql driver name.
	DriverName() string
	// Rebind rewrites "?" placeholders for the backend.
	Rebind(query string) string
	// DDL rewrites a schema statement for the backend.
	DDL(stmt string) string
	// IsUniqueViolation reports whether err is a unique constraint failure.
	IsUniqueViolation(err error) bool
}

// NewDialect returns the dialect for a configured driver name.
func NewDialect(driver string) (Dialect, error) {
	switch driver {
	case "", "sqlite":
		return sqliteDialect{}, nil
	case "postgres", "postgresql", "pgx":
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string               { return "sqlite" }
func (sqliteDialect) DriverName() string         { return "sqlite" }
func (sqliteDialect) Rebind(query string) string { return query }
func (sqliteDialect) DDL(stmt string) string     { return stmt }

func (sqliteDialect) IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type postgresDialect struct{}

func (postgresDialect) Name() string       { return "postgres" }
func (postgresDialect) DriverName() string { return "pgx" }

// Rebind numbers placeholders as $1, $2, ... skipping quoted literals.
func (postgresDialect) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 16)

	n := 0
	quoted := false
	for _, r := range query {
		switch {
		case r == '\'':
			quoted = !quoted
			b.WriteRune(r)
		case r == '?' && !quoted:
			n++
			fmt.Fprintf(&b, "$%d", n)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

var postgresTypes = strings.NewReplacer(
	" DATETIME", " TIMESTAMPTZ",
	" BLOB", " BYTEA",
	" REAL", " DOUBLE PRECISION",
)

func (postgresDialect) DDL(stmt string) string {
	return postgresTypes.Replace(stmt)
}

func (postgresDialect) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
