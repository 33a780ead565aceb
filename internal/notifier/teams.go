package notifier

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// TeamsNotifier posts events to a Microsoft Teams incoming webhook as an
// Adaptive Card.
type TeamsNotifier struct {
	webhookURL string
	httpClient *http.Client
}

// NewTeamsNotifier creates a Teams notifier.
func NewTeamsNotifier(webhookURL string) (*TeamsNotifier, error) {
	if err := validateWebhook(webhookURL); err != nil {
		return nil, fmt.Errorf("invalid teams config: %w", err)
	}
	return &TeamsNotifier{webhookURL: webhookURL, httpClient: newHTTPClient()}, nil
}

// Name returns "teams".
func (t *TeamsNotifier) Name() string {
	return "teams"
}

// Send posts ev to Teams.
func (t *TeamsNotifier) Send(ctx context.Context, ev *Event) error {
	return postJSON(ctx, t.httpClient, t.webhookURL, "teams", t.buildPayload(ev))
}

type teamsMessage struct {
	Type        string            `json:"type"`
	Attachments []teamsAttachment `json:"attachments"`
}

type teamsAttachment struct {
	ContentType string       `json:"contentType"`
	ContentURL  *string      `json:"contentUrl"`
	Content     adaptiveCard `json:"content"`
}

type adaptiveCard struct {
	Schema  string `json:"$schema"`
	Type    string `json:"type"`
	Version string `json:"version"`
	Body    []any  `json:"body"`
}

type textBlock struct {
	Type   string `json:"type"`
	Text   string `json:"text"`
	Size   string `json:"size,omitempty"`
	Weight string `json:"weight,omitempty"`
	Color  string `json:"color,omitempty"`
	Wrap   bool   `json:"wrap,omitempty"`
}

type factSet struct {
	Type  string `json:"type"`
	Facts []fact `json:"facts"`
}

type fact struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

type container struct {
	Type  string `json:"type"`
	Style string `json:"style,omitempty"`
	Items []any  `json:"items"`
}

func (t *TeamsNotifier) buildPayload(ev *Event) teamsMessage {
	style := "warning"
	if ev.Failed() {
		style = "attention"
	}

	body := []any{
		container{
			Type:  "Container",
			Style: style,
			Items: []any{
				textBlock{Type: "TextBlock", Text: title(ev), Size: "Large", Weight: "Bolder", Wrap: true},
			},
		},
		factSet{
			Type: "FactSet",
			Facts: []fact{
				{Title: "Source", Value: sourceLabel(ev)},
				{Title: "Status", Value: string(ev.Status)},
				{Title: "Rows", Value: fmt.Sprintf("%d", ev.Rows)},
				{Title: "Time", Value: ev.Time.Format("2006-01-02 15:04:05 MST")},
			},
		},
	}
	if len(ev.Errors) > 0 {
		body = append(body, textBlock{
			Type: "TextBlock",
			Text: "- " + strings.Join(ev.Errors, "\n- "),
			Wrap: true,
		})
	}
	if ev.IngestionID != "" {
		body = append(body, textBlock{
			Type:  "TextBlock",
			Text:  "_Ingestion " + ev.IngestionID + "_",
			Wrap:  true,
			Color: "light",
		})
	}

	return teamsMessage{
		Type: "message",
		Attachments: []teamsAttachment{
			{
				ContentType: "application/vnd.microsoft.card.adaptive",
				Content: adaptiveCard{
					Schema:  "http://adaptivecards.io/schemas/adaptive-card.json",
					Type:    "AdaptiveCard",
					Version: "1.4",
					Body:    body,
				},
			},
		},
	}
}
