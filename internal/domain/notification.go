package domain

import (
	"fmt"
	"time"
)

// NotificationStream selects which audience a notification targets.
// Each stream has its own identifier counter and its own table.
type NotificationStream string

const (
	StreamAdmin NotificationStream = "admin"
	StreamUser  NotificationStream = "user"
)

// IsValid reports whether the stream is one of the known audiences.
func (s NotificationStream) IsValid() bool {
	return s == StreamAdmin || s == StreamUser
}

// Prefix returns the identifier prefix of the stream.
func (s NotificationStream) Prefix() string {
	if s == StreamAdmin {
		return "AN"
	}
	return "UN"
}

// NotificationIDSuffix terminates every notification identifier.
const NotificationIDSuffix = "N"

// FormatNotificationID renders a per-stream sequence value as a
// notification identifier, e.g. AN0042N.
func FormatNotificationID(stream NotificationStream, seq int64) string {
	return fmt.Sprintf("%s%04d%s", stream.Prefix(), seq, NotificationIDSuffix)
}

// NotificationStatus is the read state of a notification row.
type NotificationStatus string

const (
	NotificationUnread NotificationStatus = "Unread"
	NotificationRead   NotificationStatus = "Read"
)

// Notification is one row in a stream's notification table.
type Notification struct {
	NotificationID string             `json:"notificationId"`
	Stream         NotificationStream `json:"stream"`
	Title          string             `json:"title"`
	Status         NotificationStatus `json:"status"`
	CreatedAt      time.Time          `json:"createdAt"`
}
