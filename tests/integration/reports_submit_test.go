//go:build integration

package integration

import (
	"context"
	"net/http"
	"regexp"
	"testing"

	"github.com/opsportal/downtime-pipeline/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_CommitsOneRowPerCategory(t *testing.T) {
	drainAlerts()
	client := testClient.As("u-1001", "S. Rahman")

	result := submitReport(t, client, validSubmission(withCategories("Network", "Database", "API")))

	assert.Regexp(t, regexp.MustCompile(`^DT\d{6}R$`), result.DowntimeID)
	assert.Equal(t, 3, result.CategoriesCount)

	assert.Equal(t, 3, countRows(t, "downtime_reports", result.DowntimeID))

	// The persisted rows carry storage-zone wall clock and derived fields.
	var start, end, duration, reportDate string
	err := testDB.QueryRow(context.Background(), `
		SELECT start_datetime, end_datetime, duration, report_date
		FROM downtime_reports
		WHERE report_id = $1 AND category = 'Network'
	`, result.DowntimeID).Scan(&start, &end, &duration, &reportDate)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01 16:00:00", start)
	assert.Equal(t, "2024-01-01 17:00:00", end)
	assert.Equal(t, "01:00:00", duration)
	assert.Equal(t, "2024-01-01", reportDate)

	text := waitForAlert(t)
	assert.Contains(t, text, result.DowntimeID)
	assert.Contains(t, text, "Successful")
}

func TestSubmit_WritesNotificationsAndAudit(t *testing.T) {
	drainAlerts()
	client := testClient.As("u-1002", "J. Ahmed")

	adminBefore := countRows(t, "admin_notifications", "")
	userBefore := countRows(t, "user_notifications", "")

	result := submitReport(t, client, validSubmission())

	assert.Equal(t, adminBefore+1, countRows(t, "admin_notifications", ""))
	assert.Equal(t, userBefore+1, countRows(t, "user_notifications", ""))

	var adminID, adminStatus string
	err := testDB.QueryRow(context.Background(), `
		SELECT notification_id, status FROM admin_notifications ORDER BY id DESC LIMIT 1
	`).Scan(&adminID, &adminStatus)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^AN\d{4}N$`), adminID)
	assert.Equal(t, "Unread", adminStatus)

	var userID string
	err = testDB.QueryRow(context.Background(), `
		SELECT notification_id FROM user_notifications ORDER BY id DESC LIMIT 1
	`).Scan(&userID)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^UN\d{4}N$`), userID)

	// The audit row names the authenticated actor and the report.
	var actor, action, description string
	err = testDB.QueryRow(context.Background(), `
		SELECT actor, action, description FROM audit_log ORDER BY id DESC LIMIT 1
	`).Scan(&actor, &action, &description)
	require.NoError(t, err)
	assert.Equal(t, "u-1002", actor)
	assert.Equal(t, "downtime_report_submitted", action)
	assert.Contains(t, description, result.DowntimeID)

	waitForAlert(t)
}

func TestSubmit_ValidationFailureWritesNothing(t *testing.T) {
	drainAlerts()

	reportsBefore := countRows(t, "downtime_reports", "")
	adminBefore := countRows(t, "admin_notifications", "")
	auditBefore := countRows(t, "audit_log", "")

	payload := validSubmission()
	delete(payload, "issueTitle")
	delete(payload, "categories")

	resp, err := testClient.POST(submitPath, payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var result submitResult
	testutil.DecodeJSON(t, resp, &result)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "issueTitle")
	assert.Contains(t, result.Message, "categories")
	assert.Empty(t, result.DowntimeID)

	// 400 path is side-effect free: no rows anywhere, no alert.
	assert.Equal(t, reportsBefore, countRows(t, "downtime_reports", ""))
	assert.Equal(t, adminBefore, countRows(t, "admin_notifications", ""))
	assert.Equal(t, auditBefore, countRows(t, "audit_log", ""))
	assert.Empty(t, webhookHits)
}

func TestSubmit_CategoryWindowOverride(t *testing.T) {
	drainAlerts()
	client := testClient.As("u-1003", "")

	payload := validSubmission(withCategories("Network", "Database"))
	payload["categoryTimes"] = map[string]interface{}{
		"Database": map[string]string{
			"startTime": "2024-01-01T10:15:00Z",
			"endTime":   "2024-01-01T10:45:00Z",
		},
	}

	result := submitReport(t, client, payload)

	var duration string
	err := testDB.QueryRow(context.Background(), `
		SELECT duration FROM downtime_reports WHERE report_id = $1 AND category = 'Database'
	`, result.DowntimeID).Scan(&duration)
	require.NoError(t, err)
	assert.Equal(t, "00:30:00", duration)

	err = testDB.QueryRow(context.Background(), `
		SELECT duration FROM downtime_reports WHERE report_id = $1 AND category = 'Network'
	`, result.DowntimeID).Scan(&duration)
	require.NoError(t, err)
	assert.Equal(t, "01:00:00", duration)

	waitForAlert(t)
}

func TestSubmit_BadCategoryWindowAbortsWholeReport(t *testing.T) {
	drainAlerts()

	reportsBefore := countRows(t, "downtime_reports", "")

	payload := validSubmission(withCategories("Network", "Database"))
	payload["categoryTimes"] = map[string]interface{}{
		"Database": map[string]string{
			"startTime": "2024-01-01T11:00:00Z",
			"endTime":   "2024-01-01T10:00:00Z",
		},
	}

	resp, err := testClient.POST(submitPath, payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// One bad category window voids every row of the submission.
	assert.Equal(t, reportsBefore, countRows(t, "downtime_reports", ""))

	// Allocation already ran, so this failure is alerted.
	text := waitForAlert(t)
	assert.Contains(t, text, "Failed")
}

func TestSubmit_ResubmissionAllocatesFreshID(t *testing.T) {
	drainAlerts()
	client := testClient.As("u-1004", "")

	first := submitReport(t, client, validSubmission())
	second := submitReport(t, client, validSubmission())

	assert.NotEqual(t, first.DowntimeID, second.DowntimeID)
	assert.Equal(t, 1, countRows(t, "downtime_reports", first.DowntimeID))
	assert.Equal(t, 1, countRows(t, "downtime_reports", second.DowntimeID))

	waitForAlert(t)
	waitForAlert(t)
}

func TestGetReport_ReturnsPersistedCategories(t *testing.T) {
	drainAlerts()
	client := testClient.As("u-1005", "")

	result := submitReport(t, client, validSubmission(withCategories("Network", "Database")))

	resp, err := client.GET(submitPath + "/" + result.DowntimeID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report struct {
		ReportID   string `json:"report_id"`
		Categories []struct {
			Category   string `json:"category"`
			IssueTitle string `json:"issueTitle"`
			Duration   string `json:"duration"`
		} `json:"categories"`
	}
	testutil.DecodeJSON(t, resp, &report)
	assert.Equal(t, result.DowntimeID, report.ReportID)
	require.Len(t, report.Categories, 2)
	assert.Equal(t, "Gateway Timeout", report.Categories[0].IssueTitle)

	waitForAlert(t)
}

func TestGetReport_UnknownID(t *testing.T) {
	resp, err := testClient.GET(submitPath + "/DT999999R")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTopIssues_CountsDistinctReports(t *testing.T) {
	drainAlerts()
	client := testClient.As("u-1006", "")

	// Two reports with the same title but multiple categories each: the
	// count is per distinct report, not per row.
	title := "Recurring Cache Stampede"
	for i := 0; i < 2; i++ {
		payload := validSubmission(withCategories("Network", "Database"))
		payload["issueTitle"] = title
		submitReport(t, client, payload)
	}

	resp, err := client.GET(submitPath + "/top-issues")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Issues []struct {
			IssueTitle  string `json:"issueTitle"`
			ReportCount int64  `json:"reportCount"`
		} `json:"issues"`
	}
	testutil.DecodeJSON(t, resp, &result)

	found := false
	for _, issue := range result.Issues {
		if issue.IssueTitle == title {
			found = true
			assert.Equal(t, int64(2), issue.ReportCount)
		}
	}
	assert.True(t, found, "expected %q in top issues", title)

	waitForAlert(t)
	waitForAlert(t)
}
