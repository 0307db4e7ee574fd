package domain

import "time"

// ActionReportSubmitted is the audit action recorded for every
// committed submission.
const ActionReportSubmitted = "downtime_report_submitted"

// AuditEntry is one append-only provenance row. It is written in the
// same transaction as the report it describes.
type AuditEntry struct {
	Actor         string    `json:"actor"`
	Action        string    `json:"action"`
	Description   string    `json:"description"`
	CorrelationID string    `json:"correlationId,omitempty"`
	IPAddress     string    `json:"ipAddress,omitempty"`
	UserAgent     string    `json:"userAgent,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Caller is the request identity propagated by the upstream gateway.
// All fields may be empty; the pipeline never authenticates callers.
type Caller struct {
	UserID        string
	UserName      string
	CorrelationID string
	IPAddress     string
	UserAgent     string
}
