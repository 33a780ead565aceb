package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

// slowPinger blocks until its context ends.
type slowPinger struct{}

func (slowPinger) Ping(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		pingers    map[string]Pinger
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{
			name:       "no checkers",
			wantCode:   http.StatusOK,
			wantStatus: "ready",
		},
		{
			name:       "healthy",
			pingers:    map[string]Pinger{"sqlite": fakePinger{}},
			wantCode:   http.StatusOK,
			wantStatus: "ready",
			wantChecks: map[string]string{"sqlite": "ok"},
		},
		{
			name:       "one of two down",
			pingers:    map[string]Pinger{"sqlite": fakePinger{}, "postgres": fakePinger{err: errors.New("connection refused")}},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "not_ready",
			wantChecks: map[string]string{"sqlite": "ok", "postgres": "fail"},
		},
		{
			name:       "not initialized",
			pingers:    map[string]Pinger{"database": nil},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "not_ready",
			wantChecks: map[string]string{"database": "fail"},
		},
		{
			name:       "timeout",
			pingers:    map[string]Pinger{"database": slowPinger{}},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "not_ready",
			wantChecks: map[string]string{"database": "fail"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler()
			h.timeout = 20 * time.Millisecond
			for name, p := range tt.pingers {
				h.RegisterChecker(NewDatabaseChecker(name, p))
			}

			rec := httptest.NewRecorder()
			h.Ready(rec, httptest.NewRequest("GET", "/health/ready", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			resp := decode(t, rec)
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", resp.Status, tt.wantStatus)
			}
			if len(resp.Checks) != len(tt.wantChecks) {
				t.Fatalf("checks = %+v", resp.Checks)
			}
			for name, want := range tt.wantChecks {
				got := resp.Checks[name]
				if got.Status != want {
					t.Errorf("%s = %+v, want %s", name, got, want)
				}
				if want == "fail" && got.Error == "" {
					t.Errorf("%s failure without error text", name)
				}
			}
		})
	}
}

func TestLiveAndHealth(t *testing.T) {
	h := NewHandler()
	h.RegisterChecker(NewDatabaseChecker("sqlite", fakePinger{err: errors.New("down")}))

	tests := []struct {
		path   string
		fn     http.HandlerFunc
		status string
	}{
		{"/health", h.Health, "ok"},
		{"/health/live", h.Live, "live"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		tt.fn(rec, httptest.NewRequest("GET", tt.path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", tt.path, rec.Code)
		}
		if got := rec.Header().Get("Cache-Control"); got != "no-store" {
			t.Errorf("%s Cache-Control = %q", tt.path, got)
		}
		resp := decode(t, rec)
		if resp.Status != tt.status || resp.Checks != nil {
			t.Errorf("%s response = %+v", tt.path, resp)
		}
		if tt.path == "/health" && resp.Version == "" {
			t.Error("health should report the version")
		}
	}
}
