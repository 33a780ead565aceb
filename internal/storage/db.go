package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/good-yellow-bee/secdash/internal/metrics"
)

// DB wraps *sql.DB and rebinds every query for its dialect.
type DB struct {
	*sql.DB
	dialect Dialect
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	defer db.observe(query, time.Now())
	result, err := db.DB.ExecContext(ctx, db.dialect.Rebind(query), args...)
	if err != nil {
		metrics.StorageErrors.WithLabelValues(operation(query), db.dialect.Name()).Inc()
	}
	return result, err
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	defer db.observe(query, time.Now())
	rows, err := db.DB.QueryContext(ctx, db.dialect.Rebind(query), args...)
	if err != nil {
		metrics.StorageErrors.WithLabelValues(operation(query), db.dialect.Name()).Inc()
	}
	return rows, err
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	defer db.observe(query, time.Now())
	return db.DB.QueryRowContext(ctx, db.dialect.Rebind(query), args...)
}

func (db *DB) observe(query string, start time.Time) {
	metrics.StorageQueryDuration.WithLabelValues(operation(query), db.dialect.Name()).Observe(time.Since(start).Seconds())
}

// operation is the leading SQL keyword, lowercased.
func operation(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}

// conflict maps unique violations to ErrConflict.
func (db *DB) conflict(err error) error {
	if db.dialect.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	v := nf.Float64
	return &v
}

func nullInt(i *int64) any {
	if i == nil {
		return nil
	}
	return *i
}

func intPtr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}
