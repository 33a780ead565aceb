// Package dashboard provides the read endpoints behind the dashboard
// charts and tables.
package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/good-yellow-bee/secdash/internal/aggregate"
	"github.com/good-yellow-bee/secdash/internal/ingest"
	"github.com/good-yellow-bee/secdash/internal/models"
	"github.com/good-yellow-bee/secdash/internal/query"
	"github.com/good-yellow-bee/secdash/internal/storage"
)

// Response helpers (local to avoid import cycle with api package)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiResponse struct {
	Data  any       `json:"data,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

const (
	errCodeBadRequest    = "BAD_REQUEST"
	errCodeNotFound      = "NOT_FOUND"
	errCodeInternalError = "INTERNAL_ERROR"

	defaultPageSize = 50
	maxPageSize     = 1000
	maxFilterLength = 1000
)

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Error: &apiError{Code: code, Message: message}})
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(apiResponse{Data: data})
}

// Handler serves dashboard reads.
type Handler struct {
	store  storage.Storage
	policy aggregate.Policy
	parse  aggregate.ParseFunc
}

// NewHandler creates a dashboard handler applying policy to detection reads.
func NewHandler(store storage.Storage, policy aggregate.Policy) *Handler {
	return &Handler{store: store, policy: policy, parse: ingest.ParseDate}
}

// Page wraps one page of a list.
type Page struct {
	Items      any   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
}

func newPage(items any, total int64, f storage.ListFilter) *Page {
	p := &Page{Items: items, Total: total, Page: f.Page, PerPage: f.PageSize}
	if total > 0 && f.PageSize > 0 {
		p.TotalPages = int(math.Ceil(float64(total) / float64(f.PageSize)))
	} else if total > 0 {
		p.TotalPages = 1
	}
	return p
}

// params are the query parameters shared by every list endpoint.
type params struct {
	filter    storage.ListFilter
	chartOnly bool
}

// parseParams reads start, end, search, the comma-separated filters,
// pagination, chartDataOnly and the filter expression.
func parseParams(r *http.Request) (*params, error) {
	q := r.URL.Query()
	p := &params{}
	f := &p.filter

	if s := q.Get("start"); s != "" {
		t, err := query.ParseBound(s)
		if err != nil {
			return nil, fmt.Errorf("invalid start: %w", err)
		}
		f.Start = &t
	}
	if s := q.Get("end"); s != "" {
		t, err := query.ParseBound(s)
		if err != nil {
			return nil, fmt.Errorf("invalid end: %w", err)
		}
		// A bare date covers the whole day.
		if len(strings.TrimSpace(s)) == len("2006-01-02") {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.End = &t
	}
	if f.Start != nil && f.End != nil && f.Start.After(*f.End) {
		return nil, errors.New("start must be before end")
	}

	f.Search = strings.TrimSpace(q.Get("search"))
	f.Severities = splitList(q.Get("severity"))
	f.Statuses = splitList(q.Get("status"))
	f.Titles = splitList(q.Get("title"))
	f.SensorTypes = splitList(q.Get("sensorType"))

	expr := q.Get("filter")
	if len(expr) > maxFilterLength {
		return nil, fmt.Errorf("filter expression too long (max %d chars)", maxFilterLength)
	}
	f.Expression = expr

	p.chartOnly = q.Get("chartDataOnly") == "true"
	if p.chartOnly {
		return p, nil
	}

	f.Page = 1
	if s := q.Get("page"); s != "" {
		page, err := strconv.Atoi(s)
		if err != nil || page < 1 {
			return nil, errors.New("invalid page number")
		}
		f.Page = page
	}
	f.PageSize = defaultPageSize
	if s := q.Get("pageSize"); s != "" {
		size, err := strconv.Atoi(s)
		if err != nil || size < 1 || size > maxPageSize {
			return nil, fmt.Errorf("pageSize must be between 1 and %d", maxPageSize)
		}
		f.PageSize = size
	}
	return p, nil
}

// unpaged returns the filter with pagination removed, for stats.
func (p *params) unpaged() storage.ListFilter {
	f := p.filter
	f.Page, f.PageSize = 0, 0
	return f
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// withPolicy applies the detection read policy for feed.
func (h *Handler) withPolicy(f storage.ListFilter, feed models.Feed) storage.ListFilter {
	f.ExcludeFalsePositives = h.policy.ExcludeFalsePositives
	f.ExcludeSeverities = h.policy.Excluded(feed)
	return f
}

// fail maps a read error to a response.
func fail(w http.ResponseWriter, what string, err error) {
	if errors.Is(err, storage.ErrInvalidFilter) {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}
	log.Printf("%s query error: %v", what, err)
	jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
}

func badRequest(w http.ResponseWriter, err error) {
	jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
}
