package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/good-yellow-bee/secdash/internal/models"
	"github.com/good-yellow-bee/secdash/internal/query"
)

type findingRepo struct {
	db *DB
}

var findingUpsert = upsertSpec{
	table: "findings",
	key:   []string{"feed", "external_key"},
	columns: []string{
		"feed", "external_key", "title", "severity", "category", "asset",
		"score", "cve", "status", "first_seen_text", "observed_at", "source_file",
	},
}

var findingList = listSpec{
	table: "findings",
	columns: []string{
		"id", "feed", "external_key", "title", "severity", "category", "asset",
		"score", "cve", "status", "first_seen_text", "observed_at", "source_file",
		"created_at", "updated_at",
	},
	fields:        query.FindingFields,
	dateColumns:   []string{"observed_at", "created_at"},
	searchColumns: []string{"title", "asset", "category", "cve"},
	severity:      "severity",
	status:        "status",
	title:         "title",
	orderBy:       "created_at",
	orderDesc:     true,
}

// Upsert replaces the finding with the same feed and external key.
func (r *findingRepo) Upsert(ctx context.Context, f *models.Finding) (*models.Finding, error) {
	s, err := r.db.upsert(ctx, findingUpsert, []any{
		f.Feed, f.ExternalKey, f.Title, f.Severity, f.Category, f.Asset,
		nullFloat(f.Score), f.CVE, f.Status, f.FirstSeenText, nullTime(f.ObservedAt), f.SourceFile,
	}, []any{f.Feed, f.ExternalKey})
	if err != nil {
		return nil, err
	}

	out := *f
	out.ID, out.CreatedAt, out.UpdatedAt = s.ID, s.CreatedAt, s.UpdatedAt
	return &out, nil
}

// List returns one page of a feed's findings, newest first.
func (r *findingRepo) List(ctx context.Context, feed models.Feed, f ListFilter) ([]models.Finding, int64, error) {
	rows, total, err := r.db.list(ctx, findingList, f, query.Simple("feed", query.Equal, string(feed)))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []models.Finding{}
	for rows.Next() {
		var fd models.Finding
		var score sql.NullFloat64
		var observed sql.NullTime
		err := rows.Scan(
			&fd.ID, &fd.Feed, &fd.ExternalKey, &fd.Title, &fd.Severity, &fd.Category, &fd.Asset,
			&score, &fd.CVE, &fd.Status, &fd.FirstSeenText, &observed, &fd.SourceFile,
			&fd.CreatedAt, &fd.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan finding: %w", err)
		}
		fd.Score = floatPtr(score)
		fd.ObservedAt = timePtr(observed)
		out = append(out, fd)
	}
	return out, total, rows.Err()
}
