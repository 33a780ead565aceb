// Package imports provides HTTP handlers for file uploads and filename
// classification.
package imports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/secdash/internal/api/middleware"
	"github.com/good-yellow-bee/secdash/internal/ingest"
	"github.com/good-yellow-bee/secdash/internal/storage"
)

// DefaultMaxUploadBytes bounds an upload when no limit is configured.
const DefaultMaxUploadBytes = 32 << 20

// Importer runs an uploaded file through the ingestion pipeline.
type Importer interface {
	ImportAs(ctx context.Context, source ingest.Source, filename string, content []byte) (*ingest.Result, error)
}

// Handler handles import endpoints.
type Handler struct {
	importer  Importer
	sources   map[ingest.Source]bool
	maxUpload int64
}

// NewHandler creates an import handler. sources lists the sources the
// per-tool endpoint accepts.
func NewHandler(importer Importer, sources []ingest.Source, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	known := make(map[ingest.Source]bool, len(sources))
	for _, s := range sources {
		known[s] = true
	}
	return &Handler{importer: importer, sources: known, maxUpload: maxUpload}
}

// ImportResponse is the body of every import response.
type ImportResponse struct {
	Success     bool     `json:"success"`
	Count       int      `json:"count"`
	IngestionID string   `json:"ingestionId,omitempty"`
	Errors      []string `json:"errors,omitempty"`
	Error       string   `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ImportResponse{Success: false, Error: message})
}

// Import handles POST /api/v1/import - any registered source.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "")
}

// ImportSource handles POST /api/v1/import/{source} - the classified
// source must match the path.
func (h *Handler) ImportSource(w http.ResponseWriter, r *http.Request) {
	source := ingest.Source(chi.URLParam(r, "source"))
	if !h.sources[source] {
		fail(w, http.StatusBadRequest, fmt.Sprintf("unknown source %q", source))
		return
	}
	h.handle(w, r, source)
}

func (h *Handler) handle(w http.ResponseWriter, r *http.Request, source ingest.Source) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(w, http.StatusBadRequest, fmt.Sprintf("file exceeds %d bytes", h.maxUpload))
			return
		}
		fail(w, http.StatusBadRequest, "expected multipart form with a file field")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		fail(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		log.Printf("import: read upload %s: %v", header.Filename, err)
		fail(w, http.StatusBadRequest, "could not read file")
		return
	}

	result, err := h.importer.ImportAs(r.Context(), source, header.Filename, content)
	switch {
	case err == nil:
	case ingest.IsValidation(err):
		fail(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, storage.ErrConflict):
		fail(w, http.StatusConflict, storage.ErrConflict.Error())
		return
	default:
		log.Printf("[%s] import error: %s: %v", middleware.RequestID(r.Context()), header.Filename, err)
		resp := ImportResponse{Success: false, Error: "internal server error"}
		var ie *ingest.ImportError
		if errors.As(err, &ie) {
			resp.Error += ": " + ie.Summary()
			resp.Count = ie.Rows
			resp.IngestionID = ie.IngestionID
		}
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	writeJSON(w, http.StatusOK, ImportResponse{
		Success:     true,
		Count:       result.Count,
		IngestionID: result.IngestionID,
		Errors:      result.Errors,
	})
}

// RuleResponse describes one accepted filename pattern.
type RuleResponse struct {
	Source      ingest.Source `json:"source"`
	Description string        `json:"description"`
	Example     string        `json:"example"`
	Pattern     string        `json:"pattern"`
}

// Classify handles GET /api/v1/classify?filename= - dry-run of the
// filename classifier.
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]string{"code": "BAD_REQUEST", "message": "filename is required"},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": ingest.Classify(filename)})
}

// Rules handles GET /api/v1/import/rules - the filename registry.
func (h *Handler) Rules(w http.ResponseWriter, r *http.Request) {
	rules := ingest.Rules()
	out := make([]RuleResponse, len(rules))
	for i, rule := range rules {
		out[i] = RuleResponse{
			Source:      rule.Source,
			Description: rule.Description,
			Example:     rule.Example,
			Pattern:     rule.Pattern.String(),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}
