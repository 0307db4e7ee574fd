package alert

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opsportal/downtime-pipeline/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecords() []domain.CategoryRecord {
	return []domain.CategoryRecord{
		{
			ReportID:      "DT000007R",
			Category:      "Network",
			IssueTitle:    "Gateway Timeout",
			StartDateTime: "2024-01-01 16:00:00",
			EndDateTime:   "2024-01-01 17:00:00",
			Duration:      "01:00:00",
		},
		{
			ReportID: "DT000007R",
			Category: "Database",
		},
	}
}

func TestNotify_DeliversWebhookPayload(t *testing.T) {
	received := make(chan webhookPayload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var payload webhookPayload
		require.NoError(t, json.Unmarshal(body, &payload))
		received <- payload
	}))
	defer srv.Close()

	d := NewDispatcher(Config{Enabled: true, WebhookURL: srv.URL})

	caller := domain.Caller{UserID: "u-42", UserName: "S. Rahman", IPAddress: "10.0.0.7", UserAgent: "portal-ui/2.1"}
	d.Notify(context.Background(), SuccessMessage("DT000007R", testRecords(), caller))

	select {
	case payload := <-received:
		assert.Equal(t, "OpsPortal", payload.Username)
		assert.Contains(t, payload.Text, "DT000007R")
		assert.Contains(t, payload.Text, "Status: Successful")
		assert.Contains(t, payload.Text, "Gateway Timeout")
		assert.Contains(t, payload.Text, "Network, Database")
		assert.Contains(t, payload.Text, "2024-01-01 16:00:00 - 2024-01-01 17:00:00")
		assert.Contains(t, payload.Text, "S. Rahman (u-42)")
	case <-time.After(2 * time.Second):
		t.Fatal("webhook never received the payload")
	}
}

func TestNotify_DisabledIsNoOp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("disabled dispatcher must not call the webhook")
	}))
	defer srv.Close()

	d := NewDispatcher(Config{Enabled: false, WebhookURL: srv.URL})
	d.Notify(context.Background(), SuccessMessage("DT000001R", nil, domain.Caller{}))
}

func TestNotify_ServerErrorIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDispatcher(Config{Enabled: true, WebhookURL: srv.URL})

	// Must not panic or surface anything to the caller.
	d.Notify(context.Background(), FailureMessage("DT000001R", "Gateway Timeout", errors.New("insert failed"), domain.Caller{}))
}

func TestNotify_UnreachableWebhookIsSwallowed(t *testing.T) {
	d := NewDispatcher(Config{
		Enabled:    true,
		WebhookURL: "http://127.0.0.1:1",
		Timeout:    200 * time.Millisecond,
	})

	d.Notify(context.Background(), SuccessMessage("DT000001R", nil, domain.Caller{}))
}

func TestFailureMessage_FallsBackToSentinelReportID(t *testing.T) {
	msg := FailureMessage("", "Gateway Timeout", errors.New("report counter: sequence unavailable"), domain.Caller{})

	assert.Equal(t, ReportIDNotApplicable, msg.ReportID)
	assert.Contains(t, msg.Status, "Failed:")
	assert.Contains(t, msg.Status, "sequence unavailable")
}

func TestSuccessMessage_EmptyRecords(t *testing.T) {
	msg := SuccessMessage("DT000001R", nil, domain.Caller{})

	assert.Equal(t, StatusSuccessful, msg.Status)
	assert.Empty(t, msg.Categories)
	assert.Empty(t, msg.Window)
}

func TestRenderText_FailureOmitsEmptySections(t *testing.T) {
	text := renderText(FailureMessage("DT000003R", "Gateway Timeout", errors.New("commit failed"), domain.Caller{UserID: "u-1"}))

	assert.Contains(t, text, "### Downtime Report DT000003R")
	assert.Contains(t, text, "Status: Failed: commit failed")
	assert.Contains(t, text, "Issue: Gateway Timeout")
	assert.NotContains(t, text, "Window:")
	assert.NotContains(t, text, "Duration:")
	assert.NotContains(t, text, "Categories:")
}

func TestMaskWebhookURL(t *testing.T) {
	short := "https://chat.example.com/hooks/abc"
	assert.Equal(t, short, maskWebhookURL(short))

	long := "https://chat.example.com/hooks/aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	masked := maskWebhookURL(long)
	assert.NotEqual(t, long, masked)
	assert.Contains(t, masked, "...")
}
