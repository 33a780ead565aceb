package notifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/good-yellow-bee/secdash/internal/models"
)

// mockNotifier records events and can be configured to fail.
type mockNotifier struct {
	mu        sync.Mutex
	name      string
	shouldErr bool
	events    []*Event
}

func (m *mockNotifier) Name() string {
	return m.name
}

func (m *mockNotifier) Send(ctx context.Context, ev *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	if m.shouldErr {
		return errors.New("mock send error")
	}
	return nil
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func failedEvent(name string) *Event {
	return &Event{Filename: name, Source: "falcon", Status: models.IngestionFailed, Time: time.Now()}
}

func TestEventFromLog(t *testing.T) {
	done := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	var errs []string
	for i := 1; i <= 7; i++ {
		errs = append(errs, "row "+string(rune('0'+i))+": missing severity")
	}
	entry := &models.IngestionLog{
		ID:            "log-1",
		Filename:      "Falcon_Detections_20250630.csv",
		Source:        "falcon",
		Status:        models.IngestionSuccess,
		RowsProcessed: 12,
		ErrorLog:      strings.Join(errs, "; "),
		CompletedAt:   &done,
	}

	ev := EventFromLog(entry)
	if ev.IngestionID != "log-1" || ev.Rows != 12 || !ev.Time.Equal(done) {
		t.Errorf("event = %+v", ev)
	}
	if len(ev.Errors) != maxEventErrors+1 {
		t.Fatalf("errors = %d, want %d", len(ev.Errors), maxEventErrors+1)
	}
	if ev.Errors[0] != "row 1: missing severity" {
		t.Errorf("first error = %q", ev.Errors[0])
	}
	if last := ev.Errors[maxEventErrors]; last != "... and 2 more" {
		t.Errorf("last error = %q", last)
	}
	if ev.Failed() {
		t.Error("successful import reported as failed")
	}

	empty := EventFromLog(&models.IngestionLog{Status: models.IngestionFailed})
	if len(empty.Errors) != 0 {
		t.Errorf("errors from empty log = %v", empty.Errors)
	}
}

func TestDispatcherWants(t *testing.T) {
	partial := &Event{Status: models.IngestionSuccess, Errors: []string{"row 2: bad date"}}
	clean := &Event{Status: models.IngestionSuccess}

	tests := []struct {
		name      string
		rowErrors bool
		ev        *Event
		want      bool
	}{
		{"failed always sent", false, failedEvent("a.csv"), true},
		{"row errors off", false, partial, false},
		{"row errors on", true, partial, true},
		{"clean import", true, clean, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(Config{RowErrors: tt.rowErrors})
			if got := d.Wants(tt.ev); got != tt.want {
				t.Errorf("Wants() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDispatcherFansOut(t *testing.T) {
	d := NewDispatcher(Config{})
	ok := &mockNotifier{name: "ok"}
	bad := &mockNotifier{name: "bad", shouldErr: true}
	d.Register(ok)
	d.Register(bad)
	if d.Len() != 2 {
		t.Fatalf("Len() = %d", d.Len())
	}

	if err := d.Dispatch(context.Background(), failedEvent("a.csv")); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if err := d.Dispatch(context.Background(), &Event{Status: models.IngestionSuccess}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	d.Close()

	if ok.count() != 1 || bad.count() != 1 {
		t.Errorf("sends = %d/%d, want 1/1", ok.count(), bad.count())
	}
	if err := d.Dispatch(context.Background(), failedEvent("b.csv")); err == nil {
		t.Error("expected error after Close")
	}
}

func TestDispatcherRateLimit(t *testing.T) {
	d := NewDispatcher(Config{PerMinute: 2})
	m := &mockNotifier{name: "mock"}
	d.Register(m)

	var limited int
	for i := 0; i < 5; i++ {
		if err := d.Dispatch(context.Background(), failedEvent("a.csv")); errors.Is(err, ErrRateLimited) {
			limited++
		}
	}
	d.Close()

	if m.count() != 2 {
		t.Errorf("sent = %d, want 2", m.count())
	}
	if limited != 3 {
		t.Errorf("limited = %d, want 3", limited)
	}
}

func TestDispatcherIngestionCompleted(t *testing.T) {
	d := NewDispatcher(Config{})
	m := &mockNotifier{name: "mock"}
	d.Register(m)

	ctx, cancel := context.WithCancel(context.Background())
	d.IngestionCompleted(ctx, &models.IngestionLog{Filename: "x.csv", Status: models.IngestionFailed, ErrorLog: "boom"})
	cancel()
	d.Close()

	if m.count() != 1 {
		t.Fatalf("sent = %d, want 1", m.count())
	}
	if got := m.events[0].Errors; len(got) != 1 || got[0] != "boom" {
		t.Errorf("errors = %v", got)
	}
}

func TestValidateWebhook(t *testing.T) {
	tests := []struct {
		url     string
		wantErr string
	}{
		{"", "required"},
		{"http://hooks.slack.com/services/xxx", "HTTPS"},
		{"http://localhost.example.com/hook", "HTTPS"},
		{"://bad", "invalid"},
		{"https://hooks.slack.com/services/T00/B00/xxx", ""},
		{"http://127.0.0.1:8080/hook", ""},
	}
	for _, tt := range tests {
		err := validateWebhook(tt.url)
		if tt.wantErr == "" {
			if err != nil {
				t.Errorf("validateWebhook(%q) error = %v", tt.url, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("validateWebhook(%q) error = %v, want %q", tt.url, err, tt.wantErr)
		}
	}
}

func TestNew(t *testing.T) {
	d, err := New(Config{
		SlackWebhook: "https://hooks.slack.com/services/T00/B00/xxx",
		TeamsWebhook: "https://example.webhook.office.com/webhookb2/xxx",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if d.Len() != 2 {
		t.Errorf("Len() = %d, want 2", d.Len())
	}

	if d, err := New(Config{}); err != nil || d.Len() != 0 {
		t.Errorf("New(empty) = %v, %v", d, err)
	}
	if _, err := New(Config{TeamsWebhook: "http://example.com/hook"}); err == nil {
		t.Error("expected error for plain http teams webhook")
	}
}
