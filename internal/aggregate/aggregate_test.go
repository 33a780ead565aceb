package aggregate

import (
	"reflect"
	"testing"
	"time"
)

func TestCountBy(t *testing.T) {
	severities := []string{"Critical", "Critical", "High", ""}
	got := CountBy(severities, func(s string) string { return s })
	want := []Bucket{{"Critical", 2}, {"High", 1}, {"Unknown", 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CountBy() = %v, want %v", got, want)
	}
}

func TestCountBy_StableTies(t *testing.T) {
	got := CountBy([]string{"b", "a", "c", "a"}, func(s string) string { return s })
	want := []Bucket{{"a", 2}, {"b", 1}, {"c", 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CountBy() = %v, want %v", got, want)
	}
}

func TestCountBy_Empty(t *testing.T) {
	got := CountBy([]string(nil), func(s string) string { return s })
	if got == nil || len(got) != 0 {
		t.Errorf("CountBy(nil) = %v, want empty slice", got)
	}
}

func TestCollapseTop(t *testing.T) {
	seven := []Bucket{{"a", 9}, {"b", 8}, {"c", 7}, {"d", 6}, {"e", 5}, {"f", 2}, {"g", 1}}
	got := CollapseTop(seven, 5, OthersBucket)
	if len(got) != 6 {
		t.Fatalf("len = %d, want 6", len(got))
	}
	if got[5] != (Bucket{OthersBucket, 3}) {
		t.Errorf("others = %v, want {Others 3}", got[5])
	}

	four := seven[:4]
	if got := CollapseTop(four, 5, OthersBucket); len(got) != 4 {
		t.Errorf("len = %d, want 4 with no Others bucket", len(got))
	}
	five := seven[:5]
	if got := CollapseTop(five, 5, OthersBucket); len(got) != 5 {
		t.Errorf("len = %d, want 5 with no Others bucket", len(got))
	}
}

func TestDaily(t *testing.T) {
	dates := []time.Time{
		time.Date(2025, 6, 30, 23, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 1, 1, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 30, 1, 0, 0, 0, time.UTC),
	}
	got := Daily(dates, func(d time.Time) time.Time { return d })
	want := []Bucket{{"2025-06-01", 1}, {"2025-06-30", 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Daily() = %v, want %v", got, want)
	}
}

func TestFirstDate(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	stored := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	parse := func(s string) (time.Time, bool) {
		if s == "good" {
			return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), true
		}
		return time.Time{}, false
	}

	tests := []struct {
		name   string
		text   string
		stored *time.Time
		want   time.Time
	}{
		{"parsed text wins", "good", &stored, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"stored date next", "bad", &stored, stored},
		{"created last", "", nil, created},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FirstDate(Parsed(parse, tt.text), Stored(tt.stored), Always(created))
			if !got.Equal(tt.want) {
				t.Errorf("FirstDate() = %v, want %v", got, tt.want)
			}
		})
	}
}
