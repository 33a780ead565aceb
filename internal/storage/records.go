package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/good-yellow-bee/secdash/internal/models"
	"github.com/good-yellow-bee/secdash/internal/query"
)

type phishingRepo struct {
	db *DB
}

var phishingUpsert = upsertSpec{
	table: "phishing_reports",
	key:   []string{"external_key"},
	columns: []string{
		"external_key", "subject", "sender", "reporter", "verdict",
		"reported_text", "reported_at", "source_file",
	},
}

var phishingList = listSpec{
	table: "phishing_reports",
	columns: []string{
		"id", "external_key", "subject", "sender", "reporter", "verdict",
		"reported_text", "reported_at", "source_file", "created_at", "updated_at",
	},
	fields:        query.PhishingFields,
	dateColumns:   []string{"reported_at", "created_at"},
	searchColumns: []string{"subject", "sender", "reporter"},
	status:        "verdict",
	title:         "subject",
	orderBy:       "created_at",
	orderDesc:     true,
}

func (r *phishingRepo) Upsert(ctx context.Context, p *models.PhishingReport) (*models.PhishingReport, error) {
	s, err := r.db.upsert(ctx, phishingUpsert, []any{
		p.ExternalKey, p.Subject, p.Sender, p.Reporter, p.Verdict,
		p.ReportedText, nullTime(p.ReportedAt), p.SourceFile,
	}, []any{p.ExternalKey})
	if err != nil {
		return nil, err
	}
	out := *p
	out.ID, out.CreatedAt, out.UpdatedAt = s.ID, s.CreatedAt, s.UpdatedAt
	return &out, nil
}

func (r *phishingRepo) List(ctx context.Context, f ListFilter) ([]models.PhishingReport, int64, error) {
	rows, total, err := r.db.list(ctx, phishingList, f)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []models.PhishingReport{}
	for rows.Next() {
		var p models.PhishingReport
		var reported sql.NullTime
		err := rows.Scan(&p.ID, &p.ExternalKey, &p.Subject, &p.Sender, &p.Reporter, &p.Verdict,
			&p.ReportedText, &reported, &p.SourceFile, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("scan phishing report: %w", err)
		}
		p.ReportedAt = timePtr(reported)
		out = append(out, p)
	}
	return out, total, rows.Err()
}

type advisoryRepo struct {
	db *DB
}

var advisoryUpsert = upsertSpec{
	table: "advisories",
	key:   []string{"external_key"},
	columns: []string{
		"external_key", "title", "severity", "cves", "vendor", "summary",
		"published_text", "published_at", "source_file",
	},
}

var advisoryList = listSpec{
	table: "advisories",
	columns: []string{
		"id", "external_key", "title", "severity", "cves", "vendor", "summary",
		"published_text", "published_at", "source_file", "created_at", "updated_at",
	},
	fields:        query.AdvisoryFields,
	dateColumns:   []string{"published_at", "created_at"},
	searchColumns: []string{"title", "summary", "cves", "vendor"},
	severity:      "severity",
	title:         "title",
	orderBy:       "created_at",
	orderDesc:     true,
}

func (r *advisoryRepo) Upsert(ctx context.Context, a *models.Advisory) (*models.Advisory, error) {
	s, err := r.db.upsert(ctx, advisoryUpsert, []any{
		a.ExternalKey, a.Title, a.Severity, a.CVEs, a.Vendor, a.Summary,
		a.PublishedText, nullTime(a.PublishedAt), a.SourceFile,
	}, []any{a.ExternalKey})
	if err != nil {
		return nil, err
	}
	out := *a
	out.ID, out.CreatedAt, out.UpdatedAt = s.ID, s.CreatedAt, s.UpdatedAt
	return &out, nil
}

func (r *advisoryRepo) List(ctx context.Context, f ListFilter) ([]models.Advisory, int64, error) {
	rows, total, err := r.db.list(ctx, advisoryList, f)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []models.Advisory{}
	for rows.Next() {
		var a models.Advisory
		var published sql.NullTime
		err := rows.Scan(&a.ID, &a.ExternalKey, &a.Title, &a.Severity, &a.CVEs, &a.Vendor, &a.Summary,
			&a.PublishedText, &published, &a.SourceFile, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("scan advisory: %w", err)
		}
		a.PublishedAt = timePtr(published)
		out = append(out, a)
	}
	return out, total, rows.Err()
}

type openItemRepo struct {
	db *DB
}

var openItemUpsert = upsertSpec{
	table: "open_items",
	key:   []string{"issue_key"},
	columns: []string{
		"issue_key", "summary", "status", "priority", "assignee",
		"created_text", "due_text", "opened_at", "source_file",
	},
}

var openItemList = listSpec{
	table: "open_items",
	columns: []string{
		"id", "issue_key", "summary", "status", "priority", "assignee",
		"created_text", "due_text", "opened_at", "source_file", "created_at", "updated_at",
	},
	fields:        query.OpenItemFields,
	dateColumns:   []string{"opened_at", "created_at"},
	searchColumns: []string{"issue_key", "summary", "assignee"},
	severity:      "priority",
	status:        "status",
	title:         "summary",
	orderBy:       "issue_key",
}

func (r *openItemRepo) Upsert(ctx context.Context, item *models.OpenItem) (*models.OpenItem, error) {
	s, err := r.db.upsert(ctx, openItemUpsert, []any{
		item.IssueKey, item.Summary, item.Status, item.Priority, item.Assignee,
		item.CreatedText, item.DueText, nullTime(item.OpenedAt), item.SourceFile,
	}, []any{item.IssueKey})
	if err != nil {
		return nil, err
	}
	out := *item
	out.ID, out.CreatedAt, out.UpdatedAt = s.ID, s.CreatedAt, s.UpdatedAt
	return &out, nil
}

func (r *openItemRepo) List(ctx context.Context, f ListFilter) ([]models.OpenItem, int64, error) {
	rows, total, err := r.db.list(ctx, openItemList, f)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []models.OpenItem{}
	for rows.Next() {
		var it models.OpenItem
		var opened sql.NullTime
		err := rows.Scan(&it.ID, &it.IssueKey, &it.Summary, &it.Status, &it.Priority, &it.Assignee,
			&it.CreatedText, &it.DueText, &opened, &it.SourceFile, &it.CreatedAt, &it.UpdatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("scan open item: %w", err)
		}
		it.OpenedAt = timePtr(opened)
		out = append(out, it)
	}
	return out, total, rows.Err()
}
