package ingest

import (
	"context"
	"strings"

	"github.com/good-yellow-bee/secdash/internal/models"
	"github.com/good-yellow-bee/secdash/internal/storage"
)

func newTenableImporter(store storage.Storage) Importer {
	return &tableImporter{
		source: SourceTenable,
		columns: []Column{
			{Field: "plugin", Candidates: []string{"Plugin ID", "Plugin"}},
			{Field: "title", Candidates: []string{"Plugin Name", "Name", "Title"}, Required: true},
			{Field: "severity", Candidates: []string{"Severity", "Risk"}, Required: true},
			{Field: "family", Candidates: []string{"Family", "Plugin Family"}},
			{Field: "asset", Candidates: []string{"Host", "IP Address", "DNS Name", "Asset"}},
			{Field: "port", Candidates: []string{"Port"}},
			{Field: "cve", Candidates: []string{"CVE"}},
			{Field: "score", Candidates: []string{"CVSS", "VPR", "Score"}},
			{Field: "first_seen", Candidates: []string{"First Discovered", "First Seen"}},
			{Field: "status", Candidates: []string{"State", "Status"}},
		},
		store: func(ctx context.Context, r record) (string, error) {
			title, severity := r.get("title"), r.get("severity")
			if title == "" || severity == "" {
				return "missing plugin name or severity", nil
			}
			plugin := r.get("plugin")
			if plugin == "" {
				plugin = title
			}
			f := &models.Finding{
				Feed:          models.FeedTenable,
				ExternalKey:   strings.Join([]string{plugin, r.get("asset"), r.get("port")}, "|"),
				Title:         title,
				Severity:      severity,
				Category:      r.get("family"),
				Asset:         r.get("asset"),
				Score:         optionalNumber(r.get("score")),
				CVE:           r.get("cve"),
				Status:        r.get("status"),
				FirstSeenText: r.get("first_seen"),
				ObservedAt:    OptionalDate(r.get("first_seen")),
				SourceFile:    r.doc.Filename,
			}
			_, err := store.Findings().Upsert(ctx, f)
			return "", err
		},
	}
}

func newAWSImporter(store storage.Storage) Importer {
	return &tableImporter{
		source: SourceAWSSecurityHub,
		columns: []Column{
			{Field: "id", Candidates: []string{"Finding ID", "Id"}},
			{Field: "title", Candidates: []string{"Title"}, Required: true},
			{Field: "severity", Candidates: []string{"Severity Label", "Severity"}, Required: true},
			{Field: "product", Candidates: []string{"Product Type", "Product Name", "Product"}},
			{Field: "asset", Candidates: []string{"Resource ID", "Resource"}},
			{Field: "status", Candidates: []string{"Workflow Status", "Compliance Status", "Status"}},
			{Field: "time", Candidates: []string{"Created At", "Created", "First Observed"}},
		},
		store: func(ctx context.Context, r record) (string, error) {
			title, severity := r.get("title"), r.get("severity")
			if title == "" || severity == "" {
				return "missing title or severity", nil
			}
			f := &models.Finding{
				Feed:          models.FeedAWS,
				ExternalKey:   r.key("id"),
				Title:         title,
				Severity:      severity,
				Category:      r.get("product"),
				Asset:         r.get("asset"),
				Status:        r.get("status"),
				FirstSeenText: r.get("time"),
				ObservedAt:    OptionalDate(r.get("time")),
				SourceFile:    r.doc.Filename,
			}
			_, err := store.Findings().Upsert(ctx, f)
			return "", err
		},
	}
}

func newNetgearIssuesImporter(store storage.Storage) Importer {
	return &tableImporter{
		source: SourceNetgearFullIssues,
		columns: []Column{
			{Field: "title", Candidates: []string{"Issue", "Finding", "Title"}, Required: true},
			{Field: "severity", Candidates: []string{"Severity"}, Required: true},
			{Field: "factor", Candidates: []string{"Factor", "Category"}},
			{Field: "impact", Candidates: []string{"Score Impact", "Impact"}},
			{Field: "asset", Candidates: []string{"Asset", "Domain", "IP", "Host"}},
			{Field: "first_seen", Candidates: []string{"First Seen", "Date"}},
			{Field: "status", Candidates: []string{"Status"}},
		},
		store: func(ctx context.Context, r record) (string, error) {
			title, severity := r.get("title"), r.get("severity")
			if title == "" || severity == "" {
				return "missing issue or severity", nil
			}
			f := &models.Finding{
				Feed:          models.FeedNetgear,
				ExternalKey:   sanitizeKey(title, r.get("asset")),
				Title:         title,
				Severity:      severity,
				Category:      r.get("factor"),
				Asset:         r.get("asset"),
				Score:         optionalNumber(r.get("impact")),
				Status:        r.get("status"),
				FirstSeenText: r.get("first_seen"),
				ObservedAt:    OptionalDate(r.get("first_seen")),
				SourceFile:    r.doc.Filename,
			}
			_, err := store.Findings().Upsert(ctx, f)
			return "", err
		},
	}
}
