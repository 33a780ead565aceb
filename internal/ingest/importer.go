package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/good-yellow-bee/secdash/internal/storage"
)

// Document is one uploaded file after classification. For CSV sources
// Lines holds the non-blank lines and Rows their parsed fields; both are
// empty for binary sources.
type Document struct {
	Filename       string
	Classification Classification
	Content        []byte
	Checksum       string
	Lines          []string
	Rows           []Row

	columns Columns
}

// NewDocument classifies filename and splits content into rows unless
// the file is binary.
func NewDocument(filename string, content []byte) *Document {
	sum := sha256.Sum256(content)
	doc := &Document{
		Filename:       filename,
		Classification: Classify(filename),
		Content:        content,
		Checksum:       hex.EncodeToString(sum[:]),
	}
	if doc.Classification.FileType != "pdf" {
		doc.Lines = SplitLines(string(content))
		doc.Rows = make([]Row, len(doc.Lines))
		for i, line := range doc.Lines {
			doc.Rows[i] = ParseRow(line)
		}
	}
	return doc
}

// Header returns the first row, or nil for an empty document.
func (d *Document) Header() Row {
	if len(d.Rows) == 0 {
		return nil
	}
	return d.Rows[0]
}

// Outcome is the result of running an importer over a document.
type Outcome struct {
	Count  int
	Errors []RowError
}

func (o *Outcome) skip(line int, format string, args ...any) {
	o.Errors = append(o.Errors, RowError{Line: line, Reason: fmt.Sprintf(format, args...)})
}

// Importer turns the rows of one source into stored records.
type Importer interface {
	Source() Source
	// Prepare validates the document before anything is written.
	Prepare(doc *Document) error
	// Import writes the document. Rows that cannot be read are recorded
	// in the outcome and skipped. On error the returned outcome still
	// reports the rows written before the failure.
	Import(ctx context.Context, doc *Document) (*Outcome, error)
}

// Registry holds one importer per source.
type Registry struct {
	importers map[Source]Importer
}

// NewRegistry builds the importers for every registered source.
func NewRegistry(store storage.Storage) *Registry {
	r := &Registry{importers: make(map[Source]Importer)}
	for _, imp := range []Importer{
		newFalconImporter(store),
		newSecureworksImporter(store),
		newTenableImporter(store),
		newAWSImporter(store),
		newNetgearIssuesImporter(store),
		newPhishingImporter(store),
		newAdvisoryImporter(store),
		newOpenItemsImporter(store),
		newPerimeterImporter(store),
		newXDRImporter(store),
		newScorecardReportImporter(store),
		newScorecardPDFImporter(store),
	} {
		r.Register(imp)
	}
	return r
}

// Register adds or replaces the importer for imp.Source().
func (r *Registry) Register(imp Importer) {
	r.importers[imp.Source()] = imp
}

// Get returns the importer for source.
func (r *Registry) Get(source Source) (Importer, bool) {
	imp, ok := r.importers[source]
	return imp, ok
}

// Sources lists the registered sources in sorted order.
func (r *Registry) Sources() []Source {
	out := make([]Source, 0, len(r.importers))
	for s := range r.importers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// record is one data row handed to a table importer.
type record struct {
	doc  *Document
	cols Columns
	row  Row
	raw  string
	line int
}

func (r record) get(field string) string {
	return r.cols.Value(r.row, field)
}

// key returns the first non-empty field, or a hash of the raw line.
func (r record) key(fields ...string) string {
	for _, f := range fields {
		if v := r.get(f); v != "" {
			return v
		}
	}
	return lineHash(r.raw)
}

// rowFunc stores one record. A non-empty skip reason rejects the row;
// an error aborts the import.
type rowFunc func(ctx context.Context, r record) (skip string, err error)

// tableImporter reads a CSV with a header row and resolves its columns
// once per document.
type tableImporter struct {
	source  Source
	columns []Column
	store   rowFunc
}

func (t *tableImporter) Source() Source { return t.source }

func (t *tableImporter) Prepare(doc *Document) error {
	if len(doc.Rows) < 2 {
		return validationf("file %s has no data rows", doc.Filename)
	}
	cols, err := ResolveColumns(doc.Header(), t.columns)
	if err != nil {
		return err
	}
	doc.columns = cols
	return nil
}

func (t *tableImporter) Import(ctx context.Context, doc *Document) (*Outcome, error) {
	if doc.columns == nil {
		if err := t.Prepare(doc); err != nil {
			return &Outcome{}, err
		}
	}

	out := &Outcome{}
	for i := 1; i < len(doc.Rows); i++ {
		rec := record{doc: doc, cols: doc.columns, row: doc.Rows[i], raw: doc.Lines[i], line: i + 1}
		skip, err := t.store(ctx, rec)
		if err != nil {
			return out, stepFailed(fmt.Sprintf("store %s row %d", t.source, rec.line), err)
		}
		if skip != "" {
			out.skip(rec.line, "%s", skip)
			continue
		}
		out.Count++
	}
	return out, nil
}

func lineHash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// sanitizeKey keeps [A-Za-z0-9_-] and folds every other run of
// characters into a single underscore.
func sanitizeKey(parts ...string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.Join(parts, "|") {
		ok := r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			pending = b.Len() > 0
			continue
		}
		if pending {
			b.WriteByte('_')
			pending = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1", "x":
		return true
	}
	return false
}

// isFalsePositive reads the false-positive flag column, falling back to
// the status text.
func isFalsePositive(flag, status string) bool {
	if truthy(flag) {
		return true
	}
	s := strings.ToLower(status)
	return strings.Contains(s, "false positive") || strings.Contains(s, "false_positive")
}

// parseNumber accepts "1,234", "12.5%", " 7 " and similar report values.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func optionalNumber(s string) *float64 {
	v, ok := parseNumber(s)
	if !ok {
		return nil
	}
	return &v
}
