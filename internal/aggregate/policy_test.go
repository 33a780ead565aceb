package aggregate

import (
	"testing"
	"time"

	"github.com/good-yellow-bee/secdash/internal/models"
)

func TestPolicyKeep(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name string
		d    models.Detection
		keep bool
	}{
		{"plain", models.Detection{Feed: models.FeedFalcon, Severity: "High"}, true},
		{"false positive", models.Detection{Feed: models.FeedFalcon, Severity: "High", FalsePositive: true}, false},
		{"secureworks informational", models.Detection{Feed: models.FeedSecureworks, Severity: "informational"}, false},
		{"falcon informational", models.Detection{Feed: models.FeedFalcon, Severity: "Informational"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Keep(&tt.d); got != tt.keep {
				t.Errorf("Keep() = %v, want %v", got, tt.keep)
			}
		})
	}
}

func TestSummarizeDetections(t *testing.T) {
	created := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	tactics := []string{"A", "A", "B", "C", "D", "E", "F", "G"}
	var ds []models.Detection
	for _, tactic := range tactics {
		ds = append(ds, models.Detection{Feed: models.FeedFalcon, Severity: "High", Tactic: tactic, CreatedAt: created})
	}
	ds = append(ds, models.Detection{Feed: models.FeedFalcon, Severity: "Low", Tactic: "A", FalsePositive: true, CreatedAt: created})

	never := func(string) (time.Time, bool) { return time.Time{}, false }
	stats := SummarizeDetections(ds, DefaultPolicy(), never)

	if stats.Total != 8 {
		t.Errorf("Total = %d, want 8", stats.Total)
	}
	if len(stats.ByTactic) != 6 {
		t.Fatalf("ByTactic = %v, want 6 buckets", stats.ByTactic)
	}
	if stats.ByTactic[0] != (Bucket{"A", 2}) {
		t.Errorf("top tactic = %v", stats.ByTactic[0])
	}
	if stats.ByTactic[5] != (Bucket{OthersBucket, 2}) {
		t.Errorf("others = %v, want 2", stats.ByTactic[5])
	}
	if len(stats.BySeverity) != 1 || stats.BySeverity[0].Value != 8 {
		t.Errorf("BySeverity = %v", stats.BySeverity)
	}
	if len(stats.Daily) != 1 || stats.Daily[0].Name != "2025-06-01" {
		t.Errorf("Daily = %v", stats.Daily)
	}
}

func TestFieldTrends(t *testing.T) {
	prev := []models.MetricField{{Name: "inbound", Value: ptr(100)}, {Name: "spam", Value: nil}}
	cur := []models.MetricField{{Name: "spam", Value: ptr(10)}, {Name: "inbound", Value: ptr(150)}}

	trends := FieldTrends([][]models.MetricField{prev, cur})
	if got := trends["inbound"]; got.Change != 50 || got.Direction != DirectionUp {
		t.Errorf("inbound trend = %+v", got)
	}
	if got := trends["spam"]; got.Direction != DirectionNone {
		t.Errorf("spam trend = %+v, want none", got)
	}
}
