package ingest

import (
	"sort"
	"strings"
)

// NotFound is returned by ResolveColumn when no header matches.
const NotFound = -1

// ResolveColumn returns the index of the first header whose lowercase
// text contains a candidate, trying candidates in priority order.
func ResolveColumn(headers []string, candidates ...string) int {
	lowered := make([]string, len(headers))
	for i, h := range headers {
		lowered[i] = strings.ToLower(strings.TrimSpace(h))
	}

	for _, c := range candidates {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		for i, h := range lowered {
			if strings.Contains(h, c) {
				return i
			}
		}
	}
	return NotFound
}

// Row is one parsed CSV line.
type Row []string

// Get returns the field at idx, or "" when idx is NotFound or past the
// end of a short row.
func (r Row) Get(idx int) string {
	if idx < 0 || idx >= len(r) {
		return ""
	}
	return r[idx]
}

// Column describes one logical field an importer reads.
type Column struct {
	Field      string
	Candidates []string
	Required   bool
}

// Columns maps logical field names to header indexes.
type Columns map[string]int

// Index returns the resolved index for field, or NotFound.
func (c Columns) Index(field string) int {
	idx, ok := c[field]
	if !ok {
		return NotFound
	}
	return idx
}

// Value reads field from row.
func (c Columns) Value(row Row, field string) string {
	return row.Get(c.Index(field))
}

// Has reports whether field was found in the header.
func (c Columns) Has(field string) bool {
	return c.Index(field) != NotFound
}

// ResolveColumns resolves every column against headers. Missing
// required columns are reported together in one ValidationError.
func ResolveColumns(headers []string, specs []Column) (Columns, error) {
	cols := make(Columns, len(specs))
	var missing []string

	for _, spec := range specs {
		idx := ResolveColumn(headers, spec.Candidates...)
		cols[spec.Field] = idx
		if idx == NotFound && spec.Required {
			missing = append(missing, spec.Candidates[0])
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, validationf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}
