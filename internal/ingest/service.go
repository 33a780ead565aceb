package ingest

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/good-yellow-bee/secdash/internal/metrics"
	"github.com/good-yellow-bee/secdash/internal/models"
	"github.com/good-yellow-bee/secdash/internal/storage"
)

// MaxReportedErrors is how many row errors a Result carries.
const MaxReportedErrors = 5

// Result is returned to the uploader of a file.
type Result struct {
	Count       int      `json:"count"`
	IngestionID string   `json:"ingestionId,omitempty"`
	Errors      []string `json:"errors,omitempty"`
	Source      Source   `json:"source"`
	Period      *Period  `json:"period,omitempty"`
}

// Service runs uploads through classification, validation and the
// source importer, recording every attempt in the ingestion log.
type Service struct {
	store    storage.Storage
	registry *Registry
	listener Listener
}

// Listener is told about every ingestion that reached the log.
type Listener interface {
	IngestionCompleted(ctx context.Context, entry *models.IngestionLog)
}

// NewService creates a service with the default importer registry.
func NewService(store storage.Storage) *Service {
	return &Service{store: store, registry: NewRegistry(store)}
}

// NewServiceWithRegistry creates a service with a custom registry.
func NewServiceWithRegistry(store storage.Storage, registry *Registry) *Service {
	return &Service{store: store, registry: registry}
}

// SetListener registers l to receive completed ingestions.
func (s *Service) SetListener(l Listener) {
	s.listener = l
}

// Registry returns the importer registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Import classifies filename and imports content with the matching importer.
func (s *Service) Import(ctx context.Context, filename string, content []byte) (*Result, error) {
	return s.ImportAs(ctx, "", filename, content)
}

// ImportAs is Import restricted to one source. An empty source accepts
// any registered source.
func (s *Service) ImportAs(ctx context.Context, source Source, filename string, content []byte) (*Result, error) {
	start := time.Now()
	doc := NewDocument(filename, content)
	c := doc.Classification
	label := string(c.Source)
	if label == "" {
		label = "unknown"
	}

	imp, err := s.validate(doc, source)
	if err != nil {
		metrics.IngestImportsTotal.WithLabelValues(label, "rejected").Inc()
		return nil, err
	}

	entry := &models.IngestionLog{
		Filename: filename,
		Checksum: doc.Checksum,
		Source:   string(c.Source),
		Status:   models.IngestionPending,
	}
	if err := s.store.Ingestions().Create(ctx, entry); err != nil {
		metrics.IngestImportsTotal.WithLabelValues(label, "error").Inc()
		return nil, newImportError(filename, "", 0, stepFailed("record the ingestion", err))
	}

	// A started import runs to completion even if the caller goes away.
	runCtx := context.WithoutCancel(ctx)
	outcome, importErr := imp.Import(runCtx, doc)
	if outcome == nil {
		outcome = &Outcome{}
	}

	status := models.IngestionFailed
	if importErr == nil && outcome.Count > 0 {
		status = models.IngestionSuccess
	}
	messages := make([]string, 0, len(outcome.Errors)+1)
	for _, e := range outcome.Errors {
		messages = append(messages, e.String())
	}
	errorLog := messages
	if importErr != nil {
		errorLog = append(errorLog, importErr.Error())
	}

	if err := s.store.Ingestions().Complete(runCtx, entry.ID, status, outcome.Count, strings.Join(errorLog, "; ")); err != nil {
		log.Printf("ingest: complete log %s: %v", entry.ID, err)
	}
	if s.listener != nil {
		done := time.Now().UTC()
		entry.Status = status
		entry.RowsProcessed = outcome.Count
		entry.ErrorLog = strings.Join(errorLog, "; ")
		entry.CompletedAt = &done
		s.listener.IngestionCompleted(runCtx, entry)
	}

	metrics.IngestRowsTotal.WithLabelValues(label).Add(float64(outcome.Count))
	metrics.IngestRowErrorsTotal.WithLabelValues(label).Add(float64(len(outcome.Errors)))
	metrics.IngestDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

	if importErr != nil {
		metrics.IngestImportsTotal.WithLabelValues(label, "error").Inc()
		log.Printf("ingest: %s failed after %d rows: %v", filename, outcome.Count, importErr)
		return nil, newImportError(filename, entry.ID, outcome.Count, importErr)
	}
	metrics.IngestImportsTotal.WithLabelValues(label, strings.ToLower(string(status))).Inc()
	log.Printf("ingest: %s source=%s rows=%d errors=%d status=%s", filename, c.Source, outcome.Count, len(outcome.Errors), status)

	if len(messages) > MaxReportedErrors {
		messages = messages[:MaxReportedErrors]
	}
	result := &Result{
		Count:       outcome.Count,
		IngestionID: entry.ID,
		Source:      c.Source,
		Period:      c.Period,
	}
	if len(messages) > 0 {
		result.Errors = messages
	}
	return result, nil
}

// validate runs every check that must pass before a log is created.
func (s *Service) validate(doc *Document, source Source) (Importer, error) {
	c := doc.Classification
	if !c.Valid {
		return nil, &ValidationError{Message: c.Error}
	}
	if source != "" && c.Source != source {
		return nil, validationf("file %s is a %s export, not %s", doc.Filename, c.Source, source)
	}

	imp, ok := s.registry.Get(c.Source)
	if !ok {
		return nil, validationf("no importer registered for %s", c.Source)
	}

	// Data row checks belong to the importer: metric files may have no header.
	if c.FileType == "csv" && len(doc.Rows) == 0 {
		return nil, validationf("file %s is empty", doc.Filename)
	}
	if err := imp.Prepare(doc); err != nil {
		return nil, err
	}
	return imp, nil
}
