// Package notifier posts ingestion outcomes to chat webhooks.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/good-yellow-bee/secdash/internal/metrics"
	"github.com/good-yellow-bee/secdash/internal/models"
)

// maxEventErrors caps the error lines carried into a message.
const maxEventErrors = 5

// Event describes one finished ingestion.
type Event struct {
	IngestionID string
	Filename    string
	Source      string
	Status      models.IngestionStatus
	Rows        int
	Errors      []string
	Time        time.Time
}

// EventFromLog builds an Event from a completed ingestion log entry.
func EventFromLog(entry *models.IngestionLog) *Event {
	ev := &Event{
		IngestionID: entry.ID,
		Filename:    entry.Filename,
		Source:      entry.Source,
		Status:      entry.Status,
		Rows:        entry.RowsProcessed,
		Time:        time.Now().UTC(),
	}
	if entry.CompletedAt != nil {
		ev.Time = *entry.CompletedAt
	}
	for _, e := range strings.Split(entry.ErrorLog, "; ") {
		if e = strings.TrimSpace(e); e != "" {
			ev.Errors = append(ev.Errors, e)
		}
	}
	if n := len(ev.Errors); n > maxEventErrors {
		ev.Errors = append(ev.Errors[:maxEventErrors], fmt.Sprintf("... and %d more", n-maxEventErrors))
	}
	return ev
}

// Failed reports whether nothing from the file was stored.
func (e *Event) Failed() bool {
	return e.Status == models.IngestionFailed
}

// Notifier is a single delivery channel.
type Notifier interface {
	// Name returns the notifier name (e.g., "slack").
	Name() string
	// Send delivers one event.
	Send(ctx context.Context, ev *Event) error
}

// Config selects webhooks and controls which events are sent and how
// often.
type Config struct {
	SlackWebhook string `yaml:"slack_webhook"`
	TeamsWebhook string `yaml:"teams_webhook"`
	// RowErrors also sends successful imports that skipped rows.
	RowErrors bool `yaml:"row_errors"`
	// PerMinute caps messages across all notifiers. Zero disables the cap.
	PerMinute int `yaml:"per_minute"`
	// Timeout bounds one delivery.
	Timeout time.Duration `yaml:"-"`
}

// ErrRateLimited is returned when an event is dropped by the rate limit.
var ErrRateLimited = errors.New("notification rate limited")

// Dispatcher fans events out to its notifiers in the background.
type Dispatcher struct {
	mu        sync.RWMutex
	notifiers []Notifier
	config    Config
	limiter   *rate.Limiter
	wg        sync.WaitGroup
	closed    bool
}

// NewDispatcher creates a dispatcher with no notifiers.
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	d := &Dispatcher{config: cfg}
	if cfg.PerMinute > 0 {
		d.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.PerMinute)), cfg.PerMinute)
	}
	return d
}

// New creates a dispatcher with a notifier for each configured webhook.
func New(cfg Config) (*Dispatcher, error) {
	d := NewDispatcher(cfg)
	if cfg.SlackWebhook != "" {
		n, err := NewSlackNotifier(cfg.SlackWebhook)
		if err != nil {
			return nil, err
		}
		d.Register(n)
	}
	if cfg.TeamsWebhook != "" {
		n, err := NewTeamsNotifier(cfg.TeamsWebhook)
		if err != nil {
			return nil, err
		}
		d.Register(n)
	}
	return d, nil
}

// Register adds a notifier.
func (d *Dispatcher) Register(n Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifiers = append(d.notifiers, n)
}

// Len returns the number of registered notifiers.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.notifiers)
}

// Wants reports whether ev passes the configured filter.
func (d *Dispatcher) Wants(ev *Event) bool {
	if ev.Failed() {
		return true
	}
	return d.config.RowErrors && len(ev.Errors) > 0
}

// IngestionCompleted queues a notification for entry. It never blocks
// on delivery.
func (d *Dispatcher) IngestionCompleted(ctx context.Context, entry *models.IngestionLog) {
	if err := d.Dispatch(ctx, EventFromLog(entry)); err != nil && !errors.Is(err, ErrRateLimited) {
		log.Printf("notifier: %v", err)
	}
}

// Dispatch sends ev to every notifier in the background. Events that
// fail the filter are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *Event) error {
	if !d.Wants(ev) {
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return errors.New("dispatcher closed")
	}
	if len(d.notifiers) == 0 {
		return nil
	}
	if d.limiter != nil && !d.limiter.Allow() {
		metrics.NotificationsTotal.WithLabelValues("all", "dropped").Inc()
		return ErrRateLimited
	}

	sendCtx := context.WithoutCancel(ctx)
	for _, n := range d.notifiers {
		d.wg.Add(1)
		go func(n Notifier) {
			defer d.wg.Done()
			ctx, cancel := context.WithTimeout(sendCtx, d.config.Timeout)
			defer cancel()
			if err := n.Send(ctx, ev); err != nil {
				metrics.NotificationsTotal.WithLabelValues(n.Name(), "failed").Inc()
				log.Printf("notifier: %s: %s: %v", n.Name(), ev.Filename, err)
				return
			}
			metrics.NotificationsTotal.WithLabelValues(n.Name(), "sent").Inc()
		}(n)
	}
	return nil
}

// Close waits for in-flight deliveries. Later events are rejected.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
	return nil
}

// title is the one-line headline shared by every message format.
func title(ev *Event) string {
	if ev.Failed() {
		return fmt.Sprintf("Import failed: %s", ev.Filename)
	}
	return fmt.Sprintf("Import finished with errors: %s", ev.Filename)
}

func sourceLabel(ev *Event) string {
	if ev.Source == "" {
		return "unknown"
	}
	return ev.Source
}

// truncate truncates a string to max length with ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
