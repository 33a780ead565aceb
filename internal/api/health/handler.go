// Package health serves the liveness and readiness endpoints.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/secdash/pkg/config"
)

// DefaultTimeout bounds each readiness check.
const DefaultTimeout = 3 * time.Second

// Checker reports whether one dependency is usable.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// Check is the outcome of one checker.
type Check struct {
	Status    string `json:"status"` // ok or fail
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// Response is the body of every health endpoint.
type Response struct {
	Status  string           `json:"status"`
	Version string           `json:"version,omitempty"`
	Checks  map[string]Check `json:"checks,omitempty"`
}

// Handler serves /health, /health/live and /health/ready.
type Handler struct {
	mu       sync.RWMutex
	checkers []Checker
	timeout  time.Duration
}

// NewHandler returns a Handler with no checkers.
func NewHandler() *Handler {
	return &Handler{timeout: DefaultTimeout}
}

// RegisterChecker adds a readiness dependency.
func (h *Handler) RegisterChecker(c Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers = append(h.checkers, c)
}

// Health reports that the process is up and which build it runs.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	write(w, http.StatusOK, Response{Status: "ok", Version: config.Info().Version})
}

// Live reports that the process can serve requests.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	write(w, http.StatusOK, Response{Status: "live"})
}

// Ready runs every checker concurrently and answers 503 if any fails.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checkers := append([]Checker(nil), h.checkers...)
	h.mu.RUnlock()

	results := h.run(r.Context(), checkers)

	resp := Response{Status: "ready", Checks: make(map[string]Check, len(results))}
	status := http.StatusOK
	for i, c := range checkers {
		resp.Checks[c.Name()] = results[i]
		if results[i].Status != "ok" {
			resp.Status = "not_ready"
			status = http.StatusServiceUnavailable
		}
	}
	write(w, status, resp)
}

func (h *Handler) run(ctx context.Context, checkers []Checker) []Check {
	results := make([]Check, len(checkers))
	var g errgroup.Group
	for i, c := range checkers {
		i, c := i, c
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, h.timeout)
			defer cancel()

			start := time.Now()
			err := c.Check(cctx)
			results[i] = Check{Status: "ok", LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				results[i].Status = "fail"
				results[i].Error = err.Error()
			}
			return nil
		})
	}
	g.Wait()
	return results
}

func write(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
