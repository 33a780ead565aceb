package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/secdash/internal/models"
)

type reportRepo struct {
	db *DB
}

// Create stores a report. A second report with the same checksum
// returns ErrConflict.
func (r *reportRepo) Create(ctx context.Context, rep *models.Report) error {
	if rep.ID == "" {
		rep.ID = uuid.New().String()
	}
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = time.Now().UTC()
	}

	var period any
	if !rep.PeriodMonth.IsZero() {
		period = rep.PeriodMonth.UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reports (id, source, filename, period_month, size_bytes, checksum, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rep.ID, rep.Source, rep.Filename, period, rep.SizeBytes, rep.Checksum, rep.Content, rep.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert report: %w", r.db.conflict(err))
	}
	return nil
}

func (r *reportRepo) GetByID(ctx context.Context, id string) (*models.Report, error) {
	rep := &models.Report{}
	var period sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, source, filename, period_month, size_bytes, checksum, content, created_at
		FROM reports WHERE id = ?
	`, id).Scan(&rep.ID, &rep.Source, &rep.Filename, &period, &rep.SizeBytes, &rep.Checksum, &rep.Content, &rep.CreatedAt)
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	if period.Valid {
		rep.PeriodMonth = period.Time.UTC()
	}
	return rep, nil
}

// List returns report metadata, newest first, without content.
func (r *reportRepo) List(ctx context.Context) ([]*models.Report, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source, filename, period_month, size_bytes, checksum, created_at
		FROM reports ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.Report
	for rows.Next() {
		rep := &models.Report{}
		var period sql.NullTime
		if err := rows.Scan(&rep.ID, &rep.Source, &rep.Filename, &period, &rep.SizeBytes, &rep.Checksum, &rep.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		if period.Valid {
			rep.PeriodMonth = period.Time.UTC()
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}
