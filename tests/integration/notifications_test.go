//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/opsportal/downtime-pipeline/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifications_ListAndMarkRead(t *testing.T) {
	drainAlerts()
	client := testClient.As("u-2001", "")

	submitReport(t, client, validSubmission())

	resp, err := client.GET("/api/v1/notifications/admin/")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Notifications []struct {
			NotificationID string `json:"notificationId"`
			Title          string `json:"title"`
			Status         string `json:"status"`
		} `json:"notifications"`
	}
	testutil.DecodeJSON(t, resp, &list)
	require.NotEmpty(t, list.Notifications)

	// Newest first: the head is the notification we just caused.
	latest := list.Notifications[0]
	assert.Equal(t, "Unread", latest.Status)
	assert.NotEmpty(t, latest.Title)

	resp, err = client.POST("/api/v1/notifications/admin/"+latest.NotificationID+"/read", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = client.GET("/api/v1/notifications/admin/")
	require.NoError(t, err)
	testutil.DecodeJSON(t, resp, &list)
	assert.Equal(t, "Read", list.Notifications[0].Status)

	waitForAlert(t)
}

func TestNotifications_MarkReadUnknownID(t *testing.T) {
	resp, err := testClient.POST("/api/v1/notifications/user/UN9999N/read", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNotifications_UnknownStream(t *testing.T) {
	resp, err := testClient.GET("/api/v1/notifications/operators/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
