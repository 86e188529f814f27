package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/v-momentum/momentum/internal/models"
)

// SlackConfig holds Slack webhook configuration.
type SlackConfig struct {
	WebhookURL string // Slack incoming webhook URL
}

// Validate validates the Slack configuration.
func (c *SlackConfig) Validate() error {
	if c.WebhookURL == "" {
		return fmt.Errorf("webhook URL is required")
	}
	if !strings.HasPrefix(c.WebhookURL, "https://") {
		return fmt.Errorf("webhook URL must use HTTPS")
	}
	return nil
}

// SlackNotifier posts alerts to a Slack incoming webhook.
type SlackNotifier struct {
	config     SlackConfig
	httpClient *http.Client
}

// NewSlackNotifier creates a new Slack notifier.
func NewSlackNotifier(config SlackConfig) (*SlackNotifier, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid slack config: %w", err)
	}

	return &SlackNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Send posts an alert event to Slack.
func (s *SlackNotifier) Send(ctx context.Context, rule *models.AlertRule, event *models.AlertEvent) error {
	payload := s.buildPayload(rule, event)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("slack API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return nil
}

// slackMessage represents the Slack webhook payload.
type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

// slackBlock represents a Slack Block Kit block.
type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

// slackText represents text in Slack Block Kit.
type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// buildPayload builds the Slack Block Kit message payload.
func (s *SlackNotifier) buildPayload(rule *models.AlertRule, event *models.AlertEvent) slackMessage {
	emoji := severityEmoji(event.Severity)
	data := EventToTemplateData(rule, event)

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{
				Type:  "plain_text",
				Text:  fmt.Sprintf("%s V-Momentum-Pro Alert: %s", emoji, rule.Name),
				Emoji: true,
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Severity:*\n%s %s", emoji, strings.ToUpper(string(event.Severity))),
				},
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Site:*\n%s", event.SiteID),
				},
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Current:*\n%s", data.CurrentValue),
				},
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Previous:*\n%s", data.PreviousValue),
				},
			},
		},
		{
			Type: "section",
			Text: &slackText{
				Type: "mrkdwn",
				Text: fmt.Sprintf("*Change:* %s", data.ChangeLabel),
			},
		},
	}

	if rule.Description != "" {
		blocks = append(blocks, slackBlock{
			Type: "context",
			Elements: []slackText{
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("Rule: %s", rule.Description),
				},
			},
		})
	}

	return slackMessage{Blocks: blocks}
}

// severityEmoji returns an emoji for the severity level.
func severityEmoji(severity models.Severity) string {
	switch severity {
	case models.SeverityCritical:
		return "\U0001F534" // red circle
	case models.SeverityWarning:
		return "\U0001F7E0" // orange circle
	case models.SeverityInfo:
		return "\U0001F535" // blue circle
	default:
		return "⚪" // white circle
	}
}
