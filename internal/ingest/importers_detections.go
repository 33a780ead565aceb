package ingest

import (
	"context"

	"github.com/good-yellow-bee/secdash/internal/models"
	"github.com/good-yellow-bee/secdash/internal/storage"
)

func newFalconImporter(store storage.Storage) Importer {
	return &tableImporter{
		source: SourceFalcon,
		columns: []Column{
			{Field: "id", Candidates: []string{"Detection ID", "Composite ID", "ID"}},
			{Field: "title", Candidates: []string{"Title", "Detect Name", "Detection Name", "Description"}},
			{Field: "severity", Candidates: []string{"Severity", "Max Severity"}, Required: true},
			{Field: "tactic", Candidates: []string{"Tactic"}},
			{Field: "technique", Candidates: []string{"Technique"}},
			{Field: "host", Candidates: []string{"Hostname", "Host Name", "Computer Name", "Device"}},
			{Field: "file", Candidates: []string{"File Name", "Filename"}},
			{Field: "process", Candidates: []string{"Process", "Image"}},
			{Field: "command", Candidates: []string{"Command Line", "CommandLine"}},
			{Field: "sensor", Candidates: []string{"Sensor Type", "Platform"}},
			{Field: "time", Candidates: []string{"Timestamp", "Detect Time", "First Seen", "Created"}},
			{Field: "status", Candidates: []string{"Status"}},
			{Field: "false_positive", Candidates: []string{"False Positive"}},
		},
		store: func(ctx context.Context, r record) (string, error) {
			severity := r.get("severity")
			if severity == "" {
				return "missing severity", nil
			}
			title := r.get("title")
			if title == "" {
				title = r.get("technique")
			}
			d := &models.Detection{
				Feed:          models.FeedFalcon,
				ExternalID:    r.key("id"),
				Title:         title,
				Severity:      severity,
				Tactic:        r.get("tactic"),
				Technique:     r.get("technique"),
				Hostname:      r.get("host"),
				Filename:      r.get("file"),
				Process:       r.get("process"),
				CommandLine:   r.get("command"),
				SensorType:    r.get("sensor"),
				Status:        r.get("status"),
				FalsePositive: isFalsePositive(r.get("false_positive"), r.get("status")),
				TimestampText: r.get("time"),
				DetectedAt:    OptionalDate(r.get("time")),
				SourceFile:    r.doc.Filename,
			}
			_, err := store.Detections().Upsert(ctx, d)
			return "", err
		},
	}
}

func newSecureworksImporter(store storage.Storage) Importer {
	return &tableImporter{
		source: SourceSecureworks,
		columns: []Column{
			{Field: "id", Candidates: []string{"Alert ID", "ID"}},
			{Field: "title", Candidates: []string{"Title", "Summary", "Subject", "Name"}},
			{Field: "severity", Candidates: []string{"Severity"}, Required: true},
			{Field: "category", Candidates: []string{"Category", "Tactic", "Type"}},
			{Field: "host", Candidates: []string{"Hostname", "Host", "Entity"}},
			{Field: "sensor", Candidates: []string{"Sensor Type", "Sensor"}},
			{Field: "time", Candidates: []string{"Created", "Detected", "Date", "Timestamp"}},
			{Field: "status", Candidates: []string{"Status"}},
			{Field: "false_positive", Candidates: []string{"False Positive"}},
		},
		store: func(ctx context.Context, r record) (string, error) {
			severity := r.get("severity")
			if severity == "" {
				return "missing severity", nil
			}
			d := &models.Detection{
				Feed:          models.FeedSecureworks,
				ExternalID:    r.key("id"),
				Title:         r.get("title"),
				Severity:      severity,
				Tactic:        r.get("category"),
				Hostname:      r.get("host"),
				SensorType:    r.get("sensor"),
				Status:        r.get("status"),
				FalsePositive: isFalsePositive(r.get("false_positive"), r.get("status")),
				TimestampText: r.get("time"),
				DetectedAt:    OptionalDate(r.get("time")),
				SourceFile:    r.doc.Filename,
			}
			_, err := store.Detections().Upsert(ctx, d)
			return "", err
		},
	}
}
