// Package aggregate computes the grouped counts, daily series and
// period-over-period trends served by the dashboard.
package aggregate

import (
	"sort"
	"strings"
	"time"
)

// UnknownBucket is the bucket name for records with an empty key.
const UnknownBucket = "Unknown"

// OthersBucket collects everything past the top n in CollapseTop.
const OthersBucket = "Others"

// Bucket is one named count.
type Bucket struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// CountBy counts records per key, sorted by descending count. Ties keep
// the order in which the key first appeared.
func CountBy[T any](records []T, key func(T) string) []Bucket {
	index := make(map[string]int)
	var buckets []Bucket

	for _, r := range records {
		k := strings.TrimSpace(key(r))
		if k == "" {
			k = UnknownBucket
		}
		if i, ok := index[k]; ok {
			buckets[i].Value++
			continue
		}
		index[k] = len(buckets)
		buckets = append(buckets, Bucket{Name: k, Value: 1})
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Value > buckets[j].Value
	})
	if buckets == nil {
		buckets = []Bucket{}
	}
	return buckets
}

// CollapseTop keeps the first n buckets and sums the rest into one
// bucket named label. Input with n or fewer buckets is returned as is.
func CollapseTop(buckets []Bucket, n int, label string) []Bucket {
	if n <= 0 || len(buckets) <= n {
		return buckets
	}

	out := make([]Bucket, 0, n+1)
	out = append(out, buckets[:n]...)
	rest := Bucket{Name: label}
	for _, b := range buckets[n:] {
		rest.Value += b.Value
	}
	return append(out, rest)
}

// Daily counts records per UTC calendar day, ascending by day.
func Daily[T any](records []T, date func(T) time.Time) []Bucket {
	counts := make(map[string]int)
	for _, r := range records {
		counts[date(r).UTC().Format("2006-01-02")]++
	}

	days := make([]string, 0, len(counts))
	for d := range counts {
		days = append(days, d)
	}
	sort.Strings(days)

	out := make([]Bucket, len(days))
	for i, d := range days {
		out[i] = Bucket{Name: d, Value: counts[d]}
	}
	return out
}

// DateSource yields a candidate date for a record.
type DateSource func() (time.Time, bool)

// FirstDate returns the first source that yields a date. The last
// resort is the zero time, which callers avoid by ending the chain
// with a source that always succeeds.
func FirstDate(sources ...DateSource) time.Time {
	for _, s := range sources {
		if t, ok := s(); ok {
			return t
		}
	}
	return time.Time{}
}

// Parsed adapts a text parser into a DateSource.
func Parsed(parse func(string) (time.Time, bool), text string) DateSource {
	return func() (time.Time, bool) {
		if strings.TrimSpace(text) == "" {
			return time.Time{}, false
		}
		return parse(text)
	}
}

// Stored yields a structured date when one is set.
func Stored(t *time.Time) DateSource {
	return func() (time.Time, bool) {
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return *t, true
	}
}

// Always yields t.
func Always(t time.Time) DateSource {
	return func() (time.Time, bool) { return t, true }
}
