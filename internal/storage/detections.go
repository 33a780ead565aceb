package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/good-yellow-bee/secdash/internal/models"
	"github.com/good-yellow-bee/secdash/internal/query"
)

type detectionRepo struct {
	db *DB
}

var detectionUpsert = upsertSpec{
	table: "detections",
	key:   []string{"feed", "external_id"},
	columns: []string{
		"feed", "external_id", "title", "severity", "tactic", "technique",
		"hostname", "filename", "process", "command_line", "sensor_type",
		"status", "false_positive", "timestamp_text", "detected_at", "source_file",
	},
}

var detectionList = listSpec{
	table: "detections",
	columns: []string{
		"id", "feed", "external_id", "title", "severity", "tactic", "technique",
		"hostname", "filename", "process", "command_line", "sensor_type",
		"status", "false_positive", "timestamp_text", "detected_at", "source_file",
		"created_at", "updated_at",
	},
	fields:        query.DetectionFields,
	dateColumns:   []string{"detected_at", "created_at"},
	searchColumns: []string{"title", "hostname", "filename", "process", "command_line", "tactic", "technique"},
	severity:      "severity",
	status:        "status",
	title:         "title",
	sensorType:    "sensor_type",
	orderBy:       "created_at",
	orderDesc:     true,
}

// Upsert replaces the detection with the same feed and external id.
func (r *detectionRepo) Upsert(ctx context.Context, d *models.Detection) (*models.Detection, error) {
	s, err := r.db.upsert(ctx, detectionUpsert, []any{
		d.Feed, d.ExternalID, d.Title, d.Severity, d.Tactic, d.Technique,
		d.Hostname, d.Filename, d.Process, d.CommandLine, d.SensorType,
		d.Status, d.FalsePositive, d.TimestampText, nullTime(d.DetectedAt), d.SourceFile,
	}, []any{d.Feed, d.ExternalID})
	if err != nil {
		return nil, err
	}

	out := *d
	out.ID, out.CreatedAt, out.UpdatedAt = s.ID, s.CreatedAt, s.UpdatedAt
	return &out, nil
}

// List returns one page of a feed's detections, newest first, with
// the policy exclusions from f applied in SQL.
func (r *detectionRepo) List(ctx context.Context, feed models.Feed, f ListFilter) ([]models.Detection, int64, error) {
	base := []*query.Predicate{query.Simple("feed", query.Equal, string(feed))}
	if f.ExcludeFalsePositives {
		base = append(base, query.Simple("false_positive", query.Equal, false))
	}
	base = append(base, query.NotEqualAny("severity", f.ExcludeSeverities))

	rows, total, err := r.db.list(ctx, detectionList, f, base...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []models.Detection{}
	for rows.Next() {
		var d models.Detection
		var detectedAt sql.NullTime
		err := rows.Scan(
			&d.ID, &d.Feed, &d.ExternalID, &d.Title, &d.Severity, &d.Tactic, &d.Technique,
			&d.Hostname, &d.Filename, &d.Process, &d.CommandLine, &d.SensorType,
			&d.Status, &d.FalsePositive, &d.TimestampText, &detectedAt, &d.SourceFile,
			&d.CreatedAt, &d.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan detection: %w", err)
		}
		d.DetectedAt = timePtr(detectedAt)
		out = append(out, d)
	}
	return out, total, rows.Err()
}
