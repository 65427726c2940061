// Package slack mirrors complaint notifications to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/grievance/internal/complaint"
)

const (
	maxMessageLen = 3000
	httpTimeout   = 10 * time.Second
)

// Notifier posts notification events to a Slack webhook.
type Notifier struct {
	webhookURL string
	linkBase   string
	client     *http.Client
}

var _ complaint.Publisher = (*Notifier)(nil)

// New creates a new Slack notifier. If webhookURL is empty, Publish is a no-op.
// linkBase is prepended to a notification's related link, e.g. "https://grievance.example.edu".
func New(webhookURL, linkBase string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		linkBase:   strings.TrimRight(linkBase, "/"),
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Publish posts a notification event to the configured Slack webhook.
// Events of other types, and every event when no webhook URL is configured, are ignored.
func (n *Notifier) Publish(ctx context.Context, ev complaint.Event) error {
	if n.webhookURL == "" || ev.Type != complaint.EventNotification {
		return nil
	}

	var note complaint.Notification
	switch p := ev.Payload.(type) {
	case complaint.Notification:
		note = p
	case *complaint.Notification:
		if p == nil {
			return fmt.Errorf("slack: nil notification payload")
		}
		note = *p
	default:
		return fmt.Errorf("slack: unexpected payload %T", ev.Payload)
	}

	body, err := json.Marshal(n.buildMessage(&note))
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func (n *Notifier) buildMessage(note *complaint.Notification) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(note),
			{"type": "divider"},
			messageBlock(note),
			{"type": "divider"},
			n.contextBlock(note),
		},
	}
}

func headerBlock(note *complaint.Notification) map[string]any {
	text := fmt.Sprintf("%s Complaint update", typeEmoji(note.Type))

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func messageBlock(note *complaint.Notification) map[string]any {
	text := truncate(note.Message, maxMessageLen)
	if text == "" {
		text = "_No message._"
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": text,
		},
	}
}

func (n *Notifier) contextBlock(note *complaint.Notification) map[string]any {
	ts := note.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	// The recipient is the complaint owner, who may have filed anonymously,
	// so the shared channel never sees who the notification was for.
	parts := []string{"grievance", ts.UTC().Format("2006-01-02 15:04 UTC")}
	if note.RelatedLink != "" {
		parts = append(parts, fmt.Sprintf("<%s%s|view complaint>", n.linkBase, note.RelatedLink))
	}

	return map[string]any{
		"type": "context",
		"elements": []map[string]any{
			{
				"type": "mrkdwn",
				"text": strings.Join(parts, " • "),
			},
		},
	}
}

func typeEmoji(t complaint.NotificationType) string {
	switch t {
	case complaint.NotificationError:
		return "\U0001f534" // red circle
	case complaint.NotificationWarning:
		return "\U0001f7e1" // yellow circle
	case complaint.NotificationSuccess:
		return "\U0001f7e2" // green circle
	default:
		return "\U0001f535" // blue circle
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
