// Package batch exports stored feed records and runs file imports in
// parallel for the admin CLI.
package batch

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/good-yellow-bee/secdash/internal/models"
)

// ExportFormat defines the output format for exports.
type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
)

// ParseExportFormat parses a string to ExportFormat.
func ParseExportFormat(s string) (ExportFormat, bool) {
	switch s {
	case "json":
		return ExportJSON, true
	case "csv":
		return ExportCSV, true
	default:
		return "", false
	}
}

// Exporter writes feed records in one format.
type Exporter struct {
	format ExportFormat
	writer io.Writer
}

// NewExporter creates an exporter for the given format.
func NewExporter(format ExportFormat, w io.Writer) *Exporter {
	return &Exporter{
		format: format,
		writer: w,
	}
}

// ExportDetections writes detections or alerts.
func (e *Exporter) ExportDetections(items []models.Detection) error {
	if e.format != ExportCSV {
		return e.json(items)
	}
	rows := make([][]string, 0, len(items))
	for _, d := range items {
		rows = append(rows, []string{
			string(d.Feed), d.ExternalID, d.Title, d.Severity, d.Tactic, d.Technique,
			d.Hostname, d.SensorType, d.Status, strconv.FormatBool(d.FalsePositive),
			timeText(d.DetectedAt, d.TimestampText), d.SourceFile,
		})
	}
	return e.csv([]string{
		"feed", "external_id", "title", "severity", "tactic", "technique",
		"hostname", "sensor_type", "status", "false_positive", "detected_at", "source_file",
	}, rows)
}

// ExportFindings writes vulnerabilities, cloud findings or scorecard issues.
func (e *Exporter) ExportFindings(items []models.Finding) error {
	if e.format != ExportCSV {
		return e.json(items)
	}
	rows := make([][]string, 0, len(items))
	for _, f := range items {
		score := ""
		if f.Score != nil {
			score = strconv.FormatFloat(*f.Score, 'f', -1, 64)
		}
		rows = append(rows, []string{
			string(f.Feed), f.ExternalKey, f.Title, f.Severity, f.Category, f.Asset,
			score, f.CVE, f.Status, timeText(f.ObservedAt, f.FirstSeenText), f.SourceFile,
		})
	}
	return e.csv([]string{
		"feed", "external_key", "title", "severity", "category", "asset",
		"score", "cve", "status", "observed_at", "source_file",
	}, rows)
}

// ExportPhishing writes phishing reports.
func (e *Exporter) ExportPhishing(items []models.PhishingReport) error {
	if e.format != ExportCSV {
		return e.json(items)
	}
	rows := make([][]string, 0, len(items))
	for _, p := range items {
		rows = append(rows, []string{
			p.ExternalKey, p.Subject, p.Sender, p.Reporter, p.Verdict,
			timeText(p.ReportedAt, p.ReportedText), p.SourceFile,
		})
	}
	return e.csv([]string{"external_key", "subject", "sender", "reporter", "verdict", "reported_at", "source_file"}, rows)
}

// ExportAdvisories writes threat advisories.
func (e *Exporter) ExportAdvisories(items []models.Advisory) error {
	if e.format != ExportCSV {
		return e.json(items)
	}
	rows := make([][]string, 0, len(items))
	for _, a := range items {
		rows = append(rows, []string{
			a.ExternalKey, a.Title, a.Severity, a.CVEs, a.Vendor,
			timeText(a.PublishedAt, a.PublishedText), a.SourceFile,
		})
	}
	return e.csv([]string{"external_key", "title", "severity", "cves", "vendor", "published_at", "source_file"}, rows)
}

// ExportOpenItems writes tracker items.
func (e *Exporter) ExportOpenItems(items []models.OpenItem) error {
	if e.format != ExportCSV {
		return e.json(items)
	}
	rows := make([][]string, 0, len(items))
	for _, o := range items {
		rows = append(rows, []string{
			o.IssueKey, o.Summary, o.Status, o.Priority, o.Assignee,
			timeText(o.OpenedAt, o.CreatedText), o.DueText, o.SourceFile,
		})
	}
	return e.csv([]string{"issue_key", "summary", "status", "priority", "assignee", "opened_at", "due", "source_file"}, rows)
}

func (e *Exporter) json(v any) error {
	encoder := json.NewEncoder(e.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (e *Exporter) csv(header []string, rows [][]string) error {
	w := csv.NewWriter(e.writer)
	w.Write(header)
	for _, row := range rows {
		w.Write(row)
	}
	w.Flush()
	return w.Error()
}

// timeText prefers the parsed time and falls back to the raw export text.
func timeText(t *time.Time, raw string) string {
	if t != nil {
		return t.UTC().Format(time.RFC3339)
	}
	return raw
}
