// Package alert delivers best-effort webhook notifications about submission
// outcomes. Delivery failures are logged and dropped; they never influence
// the caller-visible result of a submission.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/opsportal/downtime-pipeline/internal/domain"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultUsername = "OpsPortal"

	// StatusSuccessful marks the success-path message.
	StatusSuccessful = "Successful"
	// ReportIDNotApplicable is the sentinel used when allocation never completed.
	ReportIDNotApplicable = "N/A"
)

// Config holds webhook dispatcher configuration.
type Config struct {
	Enabled    bool
	WebhookURL string
	Username   string        // display name, default "OpsPortal"
	Timeout    time.Duration // request timeout
}

// Dispatcher sends pre-formatted text payloads to an incoming webhook.
type Dispatcher struct {
	config     Config
	httpClient *http.Client
}

// NewDispatcher creates a webhook dispatcher.
func NewDispatcher(config Config) *Dispatcher {
	if config.Username == "" {
		config.Username = defaultUsername
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	return &Dispatcher{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Message is the outcome summary of one submission attempt.
type Message struct {
	ReportID   string
	IssueTitle string
	Window     string
	Duration   string
	Categories []string
	Status     string
	Caller     domain.Caller
	OccurredAt time.Time
}

// SuccessMessage builds the success-path message for a committed submission.
func SuccessMessage(reportID string, records []domain.CategoryRecord, caller domain.Caller) Message {
	msg := Message{
		ReportID:   reportID,
		Status:     StatusSuccessful,
		Caller:     caller,
		OccurredAt: time.Now(),
	}
	if len(records) == 0 {
		return msg
	}

	first := records[0]
	msg.IssueTitle = first.IssueTitle
	msg.Window = fmt.Sprintf("%s - %s", first.StartDateTime, first.EndDateTime)
	msg.Duration = first.Duration
	for _, rec := range records {
		msg.Categories = append(msg.Categories, rec.Category)
	}
	return msg
}

// FailureMessage builds the failure-path message. It is structurally
// identical to the success message with the status set to the triggering
// error; the report id falls back to a sentinel if allocation never ran.
func FailureMessage(reportID, issueTitle string, cause error, caller domain.Caller) Message {
	if reportID == "" {
		reportID = ReportIDNotApplicable
	}
	return Message{
		ReportID:   reportID,
		IssueTitle: issueTitle,
		Status:     fmt.Sprintf("Failed: %v", cause),
		Caller:     caller,
		OccurredAt: time.Now(),
	}
}

// Notify renders and delivers the message. Fire-and-forget: every failure is
// logged and swallowed. The context should be detached from the request so a
// disconnected caller cannot cancel the delivery.
func (d *Dispatcher) Notify(ctx context.Context, msg Message) {
	if !d.config.Enabled || d.config.WebhookURL == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	if err := d.send(ctx, msg); err != nil {
		slog.Error("alert delivery failed",
			"report_id", msg.ReportID,
			"webhook", maskWebhookURL(d.config.WebhookURL),
			"error", err,
		)
		recordAlertDelivery("failed")
		return
	}

	slog.Debug("alert delivered", "report_id", msg.ReportID)
	recordAlertDelivery("delivered")
}

func (d *Dispatcher) send(ctx context.Context, msg Message) error {
	payload := webhookPayload{
		Username: d.config.Username,
		Text:     renderText(msg),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

type webhookPayload struct {
	Text     string `json:"text"`
	Username string `json:"username,omitempty"`
}

// renderText formats the message as the webhook's text payload. Success and
// failure share one structure so readers can diff them at a glance.
func renderText(msg Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### Downtime Report %s\n\n", msg.ReportID)
	fmt.Fprintf(&b, "Status: %s\n", msg.Status)
	if msg.IssueTitle != "" {
		fmt.Fprintf(&b, "Issue: %s\n", msg.IssueTitle)
	}
	if msg.Window != "" {
		fmt.Fprintf(&b, "Window: %s\n", msg.Window)
	}
	if msg.Duration != "" {
		fmt.Fprintf(&b, "Duration: %s\n", msg.Duration)
	}
	if len(msg.Categories) > 0 {
		fmt.Fprintf(&b, "Categories: %s\n", strings.Join(msg.Categories, ", "))
	}
	fmt.Fprintf(&b, "Reported by: %s (%s)\n", msg.Caller.UserName, msg.Caller.UserID)
	fmt.Fprintf(&b, "Source: %s %s\n", msg.Caller.IPAddress, msg.Caller.UserAgent)
	fmt.Fprintf(&b, "At: %s\n", msg.OccurredAt.Format(time.RFC3339))
	return b.String()
}

// maskWebhookURL hides part of the URL for logging.
func maskWebhookURL(url string) string {
	if len(url) > 40 {
		return url[:20] + "..." + url[len(url)-10:]
	}
	return url
}
