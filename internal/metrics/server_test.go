package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func scrape(t *testing.T, s *Server, method string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest(method, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	return rec.Code, string(body)
}

func TestServer_ServesDefaultRegistry(t *testing.T) {
	IngestImportsTotal.WithLabelValues("falcon", "success").Inc()
	AuthLockoutsTotal.Inc()
	SetBuildInfo("test", "abc", "now")

	code, body := scrape(t, NewServer("127.0.0.1:0"), http.MethodGet)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	for _, want := range []string{
		`secdash_ingest_imports_total{source="falcon",status="success"}`,
		`secdash_auth_lockouts_total`,
		`secdash_build_info{build_time="now",commit="abc",version="test"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

func TestServer_CustomGathererAndRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "only_here_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()
	s := NewServerFor("127.0.0.1:0", reg)

	code, body := scrape(t, s, http.MethodGet)
	if code != http.StatusOK || !strings.Contains(body, "only_here_total 1") {
		t.Errorf("scrape = %d %q", code, body)
	}
	if strings.Contains(body, "secdash_ingest_imports_total") {
		t.Error("custom registry should not expose default collectors")
	}

	if code, _ := scrape(t, s, http.MethodPost); code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", code)
	}
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET / status = %d, want 404", rec.Code)
	}
}

func TestServer_Run(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	s := NewServerFor(addr, prometheus.NewRegistry())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		if resp, err = http.Get("http://" + addr + "/metrics"); err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("scrape running server: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	// A taken address is reported.
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer busy.Close()
	if err := NewServerFor(busy.Addr().String(), prometheus.NewRegistry()).Run(context.Background()); err == nil {
		t.Error("expected error for address in use")
	}
}
