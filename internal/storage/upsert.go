package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// upsertSpec describes a create-or-replace keyed by a natural unique
// constraint. Columns are the data columns, key columns included.
type upsertSpec struct {
	table   string
	key     []string
	columns []string
}

// statement renders INSERT ... ON CONFLICT (key) DO UPDATE. Every data
// column is overwritten; id and created_at keep their stored values.
func (u upsertSpec) statement() string {
	cols := make([]string, 0, len(u.columns)+3)
	cols = append(cols, "id")
	cols = append(cols, u.columns...)
	cols = append(cols, "created_at", "updated_at")

	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")

	isKey := make(map[string]bool, len(u.key))
	for _, k := range u.key {
		isKey[k] = true
	}
	sets := make([]string, 0, len(u.columns)+1)
	for _, c := range u.columns {
		if !isKey[c] {
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}
	sets = append(sets, "updated_at = excluded.updated_at")

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		u.table, strings.Join(cols, ", "), marks,
		strings.Join(u.key, ", "), strings.Join(sets, ", "),
	)
}

func (u upsertSpec) lookup() string {
	conds := make([]string, len(u.key))
	for i, k := range u.key {
		conds[i] = k + " = ?"
	}
	return fmt.Sprintf("SELECT id, created_at, updated_at FROM %s WHERE %s", u.table, strings.Join(conds, " AND "))
}

// stored identity of an upserted row.
type stored struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// upsert writes values (one per data column, in order) and reads back
// the identity of the stored row. keyValues must follow u.key.
func (db *DB) upsert(ctx context.Context, u upsertSpec, values []any, keyValues []any) (stored, error) {
	if len(values) != len(u.columns) {
		return stored{}, fmt.Errorf("upsert %s: %d values for %d columns", u.table, len(values), len(u.columns))
	}

	now := time.Now().UTC()
	args := make([]any, 0, len(values)+3)
	args = append(args, uuid.New().String())
	args = append(args, values...)
	args = append(args, now, now)

	if _, err := db.ExecContext(ctx, u.statement(), args...); err != nil {
		return stored{}, fmt.Errorf("upsert %s: %w", u.table, db.conflict(err))
	}

	var s stored
	err := db.QueryRowContext(ctx, u.lookup(), keyValues...).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return stored{}, fmt.Errorf("upsert %s: row missing after write", u.table)
	}
	if err != nil {
		return stored{}, fmt.Errorf("read back %s: %w", u.table, err)
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}
