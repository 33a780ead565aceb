package aggregate

import (
	"math"
	"sort"
	"strings"
)

// Direction of a period-over-period change.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionNone Direction = "none"
)

// Trend compares one metric across two periods.
type Trend struct {
	Change    float64   `json:"change"`
	Direction Direction `json:"direction"`
	Percent   *float64  `json:"percent,omitempty"`
}

// Delta compares current with previous. A missing value on either
// side is reported as no trend.
func Delta(current, previous *float64) Trend {
	if current == nil || previous == nil {
		return Trend{Direction: DirectionNone}
	}

	change := *current - *previous
	t := Trend{Change: change, Direction: DirectionNone}
	switch {
	case change > 0:
		t.Direction = DirectionUp
	case change < 0:
		t.Direction = DirectionDown
	}
	if *previous != 0 {
		pct := math.Round(change/math.Abs(*previous)*10000) / 100
		t.Percent = &pct
	}
	return t
}

var severityRanks = map[string]int{
	"CRITICAL": 4,
	"HIGH":     3,
	"MEDIUM":   2,
	"LOW":      1,
}

// SeverityRank maps a severity label to its sort rank; unknown labels
// rank 0.
func SeverityRank(severity string) int {
	return severityRanks[strings.ToUpper(strings.TrimSpace(severity))]
}

// SortByRank orders items by descending severity rank, then by
// descending score. Items with equal keys keep their order.
func SortByRank[T any](items []T, severity func(T) string, score func(T) float64) {
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := SeverityRank(severity(items[i])), SeverityRank(severity(items[j]))
		if ri != rj {
			return ri > rj
		}
		return score(items[i]) > score(items[j])
	})
}
