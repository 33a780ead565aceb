package ingest

import (
	"context"

	"github.com/good-yellow-bee/secdash/internal/models"
	"github.com/good-yellow-bee/secdash/internal/storage"
)

func newPhishingImporter(store storage.Storage) Importer {
	return &tableImporter{
		source: SourcePhishing,
		columns: []Column{
			{Field: "id", Candidates: []string{"Report ID", "Message ID"}},
			{Field: "subject", Candidates: []string{"Subject", "Title"}, Required: true},
			{Field: "sender", Candidates: []string{"Sender", "From"}},
			{Field: "reporter", Candidates: []string{"Reporter", "Reported By", "Recipient"}},
			{Field: "verdict", Candidates: []string{"Verdict", "Classification", "Disposition", "Status"}},
			{Field: "time", Candidates: []string{"Reported At", "Reported Date", "Date", "Received", "Reported"}},
		},
		store: func(ctx context.Context, r record) (string, error) {
			subject := r.get("subject")
			if subject == "" {
				return "missing subject", nil
			}
			p := &models.PhishingReport{
				ExternalKey:  r.key("id"),
				Subject:      subject,
				Sender:       r.get("sender"),
				Reporter:     r.get("reporter"),
				Verdict:      r.get("verdict"),
				ReportedText: r.get("time"),
				ReportedAt:   OptionalDate(r.get("time")),
				SourceFile:   r.doc.Filename,
			}
			_, err := store.Phishing().Upsert(ctx, p)
			return "", err
		},
	}
}

func newAdvisoryImporter(store storage.Storage) Importer {
	return &tableImporter{
		source: SourceThreatAdvisory,
		columns: []Column{
			{Field: "id", Candidates: []string{"Advisory ID", "ID"}},
			{Field: "title", Candidates: []string{"Title", "Advisory", "Subject", "Name"}, Required: true},
			{Field: "severity", Candidates: []string{"Severity", "Risk", "Priority"}},
			{Field: "cves", Candidates: []string{"CVE"}},
			{Field: "vendor", Candidates: []string{"Vendor", "Source"}},
			{Field: "summary", Candidates: []string{"Summary", "Description"}},
			{Field: "published", Candidates: []string{"Published", "Date", "Released"}},
		},
		store: func(ctx context.Context, r record) (string, error) {
			title := r.get("title")
			if title == "" {
				return "missing title", nil
			}
			key := r.get("id")
			if key == "" {
				key = sanitizeKey(title)
			}
			a := &models.Advisory{
				ExternalKey:   key,
				Title:         title,
				Severity:      r.get("severity"),
				CVEs:          r.get("cves"),
				Vendor:        r.get("vendor"),
				Summary:       r.get("summary"),
				PublishedText: r.get("published"),
				PublishedAt:   OptionalDate(r.get("published")),
				SourceFile:    r.doc.Filename,
			}
			_, err := store.Advisories().Upsert(ctx, a)
			return "", err
		},
	}
}

func newOpenItemsImporter(store storage.Storage) Importer {
	return &tableImporter{
		source: SourceOpenItems,
		columns: []Column{
			{Field: "key", Candidates: []string{"Issue Key", "Key", "ID"}, Required: true},
			{Field: "summary", Candidates: []string{"Summary", "Title", "Subject"}, Required: true},
			{Field: "status", Candidates: []string{"Status"}},
			{Field: "priority", Candidates: []string{"Priority", "Severity"}},
			{Field: "assignee", Candidates: []string{"Assignee", "Owner"}},
			{Field: "created", Candidates: []string{"Created"}},
			{Field: "due", Candidates: []string{"Due Date", "Due", "Updated"}},
		},
		store: func(ctx context.Context, r record) (string, error) {
			key := sanitizeKey(r.get("key"))
			if key == "" {
				return "missing issue key", nil
			}
			summary := r.get("summary")
			if summary == "" {
				return "missing summary", nil
			}
			item := &models.OpenItem{
				IssueKey:    key,
				Summary:     summary,
				Status:      r.get("status"),
				Priority:    r.get("priority"),
				Assignee:    r.get("assignee"),
				CreatedText: r.get("created"),
				DueText:     r.get("due"),
				OpenedAt:    OptionalDate(r.get("created")),
				SourceFile:  r.doc.Filename,
			}
			_, err := store.OpenItems().Upsert(ctx, item)
			return "", err
		},
	}
}
