package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/secdash/internal/models"
)

type ingestionRepo struct {
	db *DB
}

const ingestionColumns = `id, filename, checksum, source, rows_processed, status, error_log, created_at, completed_at`

func (r *ingestionRepo) Create(ctx context.Context, l *models.IngestionLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	if l.Status == "" {
		l.Status = models.IngestionPending
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO ingestion_logs ("+ingestionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		l.ID, l.Filename, l.Checksum, l.Source, l.RowsProcessed, l.Status, l.ErrorLog,
		l.CreatedAt.UTC(), nullTime(l.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert ingestion log: %w", r.db.conflict(err))
	}
	return nil
}

// Complete finalizes a pending log. A log is completed once; later calls
// report ErrNotFound.
func (r *ingestionRepo) Complete(ctx context.Context, id string, status models.IngestionStatus, rows int, errorLog string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE ingestion_logs
		SET status = ?, rows_processed = ?, error_log = ?, completed_at = ?
		WHERE id = ? AND status = ?
	`, status, rows, errorLog, time.Now().UTC(), id, models.IngestionPending)
	if err != nil {
		return fmt.Errorf("complete ingestion log: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("pending ingestion log %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanIngestion(row interface{ Scan(...any) error }) (*models.IngestionLog, error) {
	l := &models.IngestionLog{}
	var completed sql.NullTime
	err := row.Scan(&l.ID, &l.Filename, &l.Checksum, &l.Source, &l.RowsProcessed,
		&l.Status, &l.ErrorLog, &l.CreatedAt, &completed)
	if err != nil {
		return nil, err
	}
	l.CompletedAt = timePtr(completed)
	return l, nil
}

func (r *ingestionRepo) GetByID(ctx context.Context, id string) (*models.IngestionLog, error) {
	l, err := scanIngestion(r.db.QueryRowContext(ctx,
		"SELECT "+ingestionColumns+" FROM ingestion_logs WHERE id = ?", id))
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ingestion log: %w", err)
	}
	return l, nil
}

func (r *ingestionRepo) List(ctx context.Context, limit, offset int) ([]*models.IngestionLog, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ingestion_logs").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ingestion logs: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+ingestionColumns+" FROM ingestion_logs ORDER BY created_at DESC, id LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query ingestion logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.IngestionLog
	for rows.Next() {
		l, err := scanIngestion(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan ingestion log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, total, rows.Err()
}
