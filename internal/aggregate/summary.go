package aggregate

import (
	"time"

	"github.com/good-yellow-bee/secdash/internal/models"
)

// ParseFunc parses free-text dates, normally ingest.ParseDate.
type ParseFunc func(string) (time.Time, bool)

// DetectionStats is the chart payload for a detection or alert feed.
type DetectionStats struct {
	Total      int      `json:"total"`
	BySeverity []Bucket `json:"by_severity"`
	ByTactic   []Bucket `json:"by_tactic"`
	ByHost     []Bucket `json:"by_host"`
	ByStatus   []Bucket `json:"by_status"`
	Daily      []Bucket `json:"daily"`
}

// DetectionDate resolves the chart date of d: parsed timestamp text,
// then the stored structured date, then the creation time.
func DetectionDate(parse ParseFunc, d models.Detection) time.Time {
	return FirstDate(
		Parsed(parse, d.TimestampText),
		Stored(d.DetectedAt),
		Always(d.CreatedAt),
	)
}

// SummarizeDetections applies the policy and computes every chart.
func SummarizeDetections(ds []models.Detection, p Policy, parse ParseFunc) DetectionStats {
	kept := p.Filter(ds)
	top := p.TopTactics
	if top <= 0 {
		top = DefaultPolicy().TopTactics
	}

	return DetectionStats{
		Total:      len(kept),
		BySeverity: CountBy(kept, func(d models.Detection) string { return d.Severity }),
		ByTactic: CollapseTop(
			CountBy(kept, func(d models.Detection) string { return d.Tactic }),
			top, OthersBucket,
		),
		ByHost:   CollapseTop(CountBy(kept, func(d models.Detection) string { return d.Hostname }), 10, OthersBucket),
		ByStatus: CountBy(kept, func(d models.Detection) string { return d.Status }),
		Daily: Daily(kept, func(d models.Detection) time.Time {
			return DetectionDate(parse, d)
		}),
	}
}

// FindingStats is the chart payload for a finding feed.
type FindingStats struct {
	Total      int              `json:"total"`
	BySeverity []Bucket         `json:"by_severity"`
	ByCategory []Bucket         `json:"by_category"`
	ByStatus   []Bucket         `json:"by_status"`
	Daily      []Bucket         `json:"daily"`
	Top        []models.Finding `json:"top"`
}

// FindingDate resolves the chart date of f like DetectionDate.
func FindingDate(parse ParseFunc, f models.Finding) time.Time {
	return FirstDate(
		Parsed(parse, f.FirstSeenText),
		Stored(f.ObservedAt),
		Always(f.CreatedAt),
	)
}

// SummarizeFindings computes charts plus the ten highest ranked findings.
func SummarizeFindings(fs []models.Finding, parse ParseFunc) FindingStats {
	ranked := make([]models.Finding, len(fs))
	copy(ranked, fs)
	SortFindings(ranked)
	if len(ranked) > 10 {
		ranked = ranked[:10]
	}

	return FindingStats{
		Total:      len(fs),
		BySeverity: CountBy(fs, func(f models.Finding) string { return f.Severity }),
		ByCategory: CountBy(fs, func(f models.Finding) string { return f.Category }),
		ByStatus:   CountBy(fs, func(f models.Finding) string { return f.Status }),
		Daily: Daily(fs, func(f models.Finding) time.Time {
			return FindingDate(parse, f)
		}),
		Top: ranked,
	}
}

// SortFindings orders findings by severity rank then score.
func SortFindings(fs []models.Finding) {
	SortByRank(fs,
		func(f models.Finding) string { return f.Severity },
		func(f models.Finding) float64 {
			if f.Score == nil {
				return 0
			}
			return *f.Score
		},
	)
}

// PhishingStats is the chart payload for phishing reports.
type PhishingStats struct {
	Total      int      `json:"total"`
	ByVerdict  []Bucket `json:"by_verdict"`
	ByReporter []Bucket `json:"by_reporter"`
	Daily      []Bucket `json:"daily"`
}

// SummarizePhishing computes phishing charts.
func SummarizePhishing(rs []models.PhishingReport, parse ParseFunc) PhishingStats {
	return PhishingStats{
		Total:      len(rs),
		ByVerdict:  CountBy(rs, func(r models.PhishingReport) string { return r.Verdict }),
		ByReporter: CollapseTop(CountBy(rs, func(r models.PhishingReport) string { return r.Reporter }), 10, OthersBucket),
		Daily: Daily(rs, func(r models.PhishingReport) time.Time {
			return FirstDate(Parsed(parse, r.ReportedText), Stored(r.ReportedAt), Always(r.CreatedAt))
		}),
	}
}

// FieldTrends compares every metric of the latest snapshot with the one
// before it. Snapshots are ordered oldest first.
func FieldTrends(series [][]models.MetricField) map[string]Trend {
	out := make(map[string]Trend)
	if len(series) == 0 {
		return out
	}

	current := series[len(series)-1]
	previous := make(map[string]*float64)
	if len(series) > 1 {
		for _, f := range series[len(series)-2] {
			previous[f.Name] = f.Value
		}
	}

	for _, f := range current {
		out[f.Name] = Delta(f.Value, previous[f.Name])
	}
	return out
}
