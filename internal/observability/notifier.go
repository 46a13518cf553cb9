package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/opensonata/sonata-verify/pkg/models"
)

// Notification policies.
const (
	NotifyOnFailure = "failure"
	NotifyAlways    = "always"
)

// slackTimeout bounds a single webhook request.
const slackTimeout = 10 * time.Second

// Notifier sends a run report to an external channel.
type Notifier interface {
	Notify(ctx context.Context, report *models.Report) error
}

// slackNotifier posts run reports to a Slack webhook.
type slackNotifier struct {
	webhookURL string
	policy     string
	client     *http.Client
}

// NewSlackNotifier creates a Notifier that posts to the given Slack webhook.
// With the failure policy only runs that recorded errors are sent.
func NewSlackNotifier(webhookURL, policy string) Notifier {
	if policy == "" {
		policy = NotifyOnFailure
	}
	return &slackNotifier{
		webhookURL: webhookURL,
		policy:     policy,
		client:     &http.Client{Timeout: slackTimeout},
	}
}

type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Notify posts the report unless the policy filters it out.
func (s *slackNotifier) Notify(ctx context.Context, report *models.Report) error {
	if report == nil || (s.policy != NotifyAlways && report.Errors == 0) {
		return nil
	}

	body, err := json.Marshal(s.buildMessage(report))
	if err != nil {
		return fmt.Errorf("marshaling slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *slackNotifier) buildMessage(report *models.Report) slackMessage {
	status := "passed"
	if report.Errors > 0 {
		status = "FAILED"
	}

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: "SonATA test signal verification " + status},
		},
		{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: fmt.Sprintf(
				"run `%s` since %s\n*Warnings:* %d *Errors:* %d",
				report.RunID,
				report.Since.UTC().Format("2006-01-02 15:04:05 UTC"),
				report.Warnings,
				report.Errors,
			)},
		},
	}

	for _, f := range report.Findings {
		blocks = append(blocks, slackBlock{Type: "divider"})
		text := fmt.Sprintf("%s *[%s]* %s\n_%s_",
			severityEmoji(f.Severity),
			strings.ToUpper(string(f.Severity)),
			f.Message,
			f.Check,
		)
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: text},
		})
	}

	return slackMessage{Blocks: blocks}
}

func severityEmoji(severity models.Severity) string {
	switch severity {
	case models.SeverityError:
		return "\U0001f534"
	case models.SeverityWarning:
		return "\U0001f7e1"
	default:
		return "❓"
	}
}
