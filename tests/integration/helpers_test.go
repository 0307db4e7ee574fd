//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/opsportal/downtime-pipeline/internal/testutil"
	"github.com/stretchr/testify/require"
)

const submitPath = "/api/v1/downtime-reports"

// validSubmission returns a complete submission payload. Pass mutators to
// adjust individual fields per test.
func validSubmission(mutators ...func(map[string]interface{})) map[string]interface{} {
	payload := map[string]interface{}{
		"issueTitle":           "Gateway Timeout",
		"impactedService":      "Payments API",
		"impactType":           "Full Outage",
		"modality":             "Unplanned",
		"startTime":            "2024-01-01T10:00:00Z",
		"endTime":              "2024-01-01T11:00:00Z",
		"concern":              "Customer facing",
		"reason":               "Connection pool exhaustion",
		"resolution":           "Pool size increased",
		"systemUnavailability": "Full",
		"trackedBy":            "s.rahman",
		"categories":           []string{"Network"},
	}
	for _, mutate := range mutators {
		mutate(payload)
	}
	return payload
}

func withCategories(categories ...string) func(map[string]interface{}) {
	return func(m map[string]interface{}) {
		m["categories"] = categories
	}
}

type submitResult struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	DowntimeID      string `json:"downtimeId"`
	CategoriesCount int    `json:"categoriesCount"`
	Error           string `json:"error"`
}

// submitReport posts a payload and requires a committed 200 response.
func submitReport(t *testing.T, client *testutil.Client, payload map[string]interface{}) submitResult {
	t.Helper()

	resp, err := client.POST(submitPath, payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result submitResult
	testutil.DecodeJSON(t, resp, &result)
	require.True(t, result.Success)
	require.NotEmpty(t, result.DowntimeID)
	return result
}

// countRows counts rows in a table, optionally filtered by report id.
func countRows(t *testing.T, table, reportID string) int {
	t.Helper()

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
	args := []interface{}{}
	if reportID != "" {
		query += " WHERE report_id = $1"
		args = append(args, reportID)
	}

	var count int
	err := testDB.QueryRow(context.Background(), query, args...).Scan(&count)
	require.NoError(t, err)
	return count
}

// waitForAlert blocks until the fake webhook receives a payload.
func waitForAlert(t *testing.T) string {
	t.Helper()
	select {
	case text := <-webhookHits:
		return text
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for alert webhook")
		panic("unreachable")
	}
}

// drainAlerts empties the webhook channel so a test starts clean.
func drainAlerts() {
	for {
		select {
		case <-webhookHits:
		default:
			return
		}
	}
}
