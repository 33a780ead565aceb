package aggregate

import (
	"strings"

	"github.com/good-yellow-bee/secdash/internal/models"
)

// Policy holds the business rules applied to every detection read.
type Policy struct {
	TopTactics            int                 `yaml:"top_tactics"`
	ExcludeFalsePositives bool                `yaml:"exclude_false_positives"`
	ExcludedSeverities    map[string][]string `yaml:"excluded_severities"`
}

// DefaultPolicy returns the stock dashboard rules.
func DefaultPolicy() Policy {
	return Policy{
		TopTactics:            5,
		ExcludeFalsePositives: true,
		ExcludedSeverities: map[string][]string{
			string(models.FeedSecureworks): {"Informational"},
		},
	}
}

// Excluded returns the severities hidden for feed.
func (p Policy) Excluded(feed models.Feed) []string {
	return p.ExcludedSeverities[string(feed)]
}

// Keep reports whether d survives the policy.
func (p Policy) Keep(d *models.Detection) bool {
	if p.ExcludeFalsePositives && d.FalsePositive {
		return false
	}
	for _, s := range p.Excluded(d.Feed) {
		if strings.EqualFold(s, d.Severity) {
			return false
		}
	}
	return true
}

// Filter returns the detections that survive the policy.
func (p Policy) Filter(ds []models.Detection) []models.Detection {
	out := make([]models.Detection, 0, len(ds))
	for i := range ds {
		if p.Keep(&ds[i]) {
			out = append(out, ds[i])
		}
	}
	return out
}
