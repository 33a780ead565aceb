package notifier

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// SlackNotifier posts events to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
}

// NewSlackNotifier creates a Slack notifier.
func NewSlackNotifier(webhookURL string) (*SlackNotifier, error) {
	if err := validateWebhook(webhookURL); err != nil {
		return nil, fmt.Errorf("invalid slack config: %w", err)
	}
	return &SlackNotifier{webhookURL: webhookURL, httpClient: newHTTPClient()}, nil
}

// Name returns "slack".
func (s *SlackNotifier) Name() string {
	return "slack"
}

// Send posts ev as a Block Kit message.
func (s *SlackNotifier) Send(ctx context.Context, ev *Event) error {
	return postJSON(ctx, s.httpClient, s.webhookURL, "slack", s.buildPayload(ev))
}

type slackMessage struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

func (s *SlackNotifier) buildPayload(ev *Event) slackMessage {
	emoji := "\U0001F7E1" // yellow circle
	if ev.Failed() {
		emoji = "\U0001F534" // red circle
	}
	headline := title(ev)

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: emoji + " " + truncate(headline, 150), Emoji: true},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Source:*\n%s", sourceLabel(ev))},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Status:*\n%s", ev.Status)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Rows:*\n%d", ev.Rows)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Time:*\n%s", ev.Time.Format("2006-01-02 15:04:05 MST"))},
			},
		},
	}

	if len(ev.Errors) > 0 {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "```" + truncate(strings.Join(ev.Errors, "\n"), 2900) + "```"},
		})
	}
	if ev.IngestionID != "" {
		blocks = append(blocks, slackBlock{
			Type:     "context",
			Elements: []slackText{{Type: "mrkdwn", Text: "Ingestion " + ev.IngestionID}},
		})
	}

	return slackMessage{Text: headline, Blocks: blocks}
}
