package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/good-yellow-bee/secdash/internal/models"
)

func TestTeamsNotifier_Send(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	n, err := NewTeamsNotifier(server.URL)
	if err != nil {
		t.Fatalf("NewTeamsNotifier() error = %v", err)
	}
	if n.Name() != "teams" {
		t.Errorf("Name() = %q", n.Name())
	}
	if err := n.Send(context.Background(), failedEvent("AWS_Security_Hub_prod_20250630.csv")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if received["type"] != "message" {
		t.Errorf("type = %v", received["type"])
	}
	attachments, ok := received["attachments"].([]any)
	if !ok || len(attachments) != 1 {
		t.Fatalf("attachments = %v", received["attachments"])
	}
	att := attachments[0].(map[string]any)
	if att["contentType"] != "application/vnd.microsoft.card.adaptive" {
		t.Errorf("contentType = %v", att["contentType"])
	}
}

func TestTeamsNotifier_Payload(t *testing.T) {
	n, err := NewTeamsNotifier("https://example.webhook.office.com/webhookb2/xxx")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		ev        *Event
		wantStyle string
		wantLen   int
	}{
		{"failed", &Event{Filename: "a.csv", Status: models.IngestionFailed, Errors: []string{"boom"}, IngestionID: "log-1"}, "attention", 4},
		{"partial", &Event{Filename: "a.csv", Status: models.IngestionSuccess}, "warning", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := n.buildPayload(tt.ev).Attachments[0].Content
			if len(card.Body) != tt.wantLen {
				t.Errorf("body = %d elements, want %d", len(card.Body), tt.wantLen)
			}
			header := card.Body[0].(container)
			if header.Style != tt.wantStyle {
				t.Errorf("style = %q, want %q", header.Style, tt.wantStyle)
			}
			if text := header.Items[0].(textBlock).Text; !strings.Contains(text, "a.csv") {
				t.Errorf("header text = %q", text)
			}
		})
	}
}
