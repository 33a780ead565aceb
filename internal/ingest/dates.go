package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateStrategy attempts to parse text into a UTC time.
type DateStrategy func(text string) (time.Time, bool)

// FirstOf composes strategies; the first success wins.
func FirstOf(strategies ...DateStrategy) DateStrategy {
	return func(text string) (time.Time, bool) {
		for _, s := range strategies {
			if t, ok := s(text); ok {
				return t, true
			}
		}
		return time.Time{}, false
	}
}

var vendorDatePattern = regexp.MustCompile(`^(\d{1,2})/([A-Za-z]{3})/(\d{2}|\d{4})\s+(\d{1,2}):(\d{2})\s*([AaPp][Mm])$`)

var monthAbbrev = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseVendorDate handles the "D/Mon/YY h:mm AM" format used by several
// exports. Two-digit years below 50 map to 20xx, the rest to 19xx.
func ParseVendorDate(text string) (time.Time, bool) {
	m := vendorDatePattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return time.Time{}, false
	}

	day, _ := strconv.Atoi(m[1])
	month, ok := monthAbbrev[strings.ToLower(m[2])]
	if !ok {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(m[3])
	if len(m[3]) == 2 {
		if year < 50 {
			year += 2000
		} else {
			year += 1900
		}
	}
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])
	if hour < 1 || hour > 12 || minute > 59 {
		return time.Time{}, false
	}

	pm := strings.EqualFold(m[6], "pm")
	switch {
	case hour == 12 && !pm:
		hour = 0
	case hour != 12 && pm:
		hour += 12
	}

	t := time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}

var genericLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04 PM",
	"1/2/2006",
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006 15:04",
	"2 Jan 2006",
	"02-Jan-2006",
	"02-Jan-06",
	time.RFC1123,
	time.RFC1123Z,
	"2006-01-02 15:04:05 MST",
}

// ParseLayouts returns a strategy trying each layout in turn. Values
// without a zone are taken as UTC.
func ParseLayouts(layouts ...string) DateStrategy {
	return func(text string) (time.Time, bool) {
		text = strings.TrimSpace(text)
		if text == "" {
			return time.Time{}, false
		}
		for _, layout := range layouts {
			if t, err := time.ParseInLocation(layout, text, time.UTC); err == nil {
				return t.UTC(), true
			}
		}
		return time.Time{}, false
	}
}

var defaultDateChain = FirstOf(
	ParseVendorDate,
	ParseLayouts(genericLayouts...),
)

// ParseDate runs the default strategy chain: vendor format first, then
// the generic layouts.
func ParseDate(text string) (time.Time, bool) {
	return defaultDateChain(text)
}

// OptionalDate returns a pointer to the parsed date, or nil.
func OptionalDate(text string) *time.Time {
	t, ok := ParseDate(text)
	if !ok {
		return nil
	}
	return &t
}

// Resolve returns the parsed text or the first non-zero fallback.
// It never fails; with no usable fallback it returns the current time.
func Resolve(text string, fallbacks ...time.Time) time.Time {
	if t, ok := ParseDate(text); ok {
		return t
	}
	for _, f := range fallbacks {
		if !f.IsZero() {
			return f.UTC()
		}
	}
	return time.Now().UTC()
}
