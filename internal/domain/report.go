// Package domain holds the core types of the downtime report pipeline:
// the submitted report aggregate, the denormalized per-category rows it
// expands into, notifications and audit entries.
package domain

import (
	"fmt"
	"time"
)

// Report identifier format: DT000123R.
const (
	ReportIDPrefix = "DT"
	ReportIDSuffix = "R"
)

// FormatReportID renders a sequence value as a report identifier.
func FormatReportID(seq int64) string {
	return fmt.Sprintf("%s%06d%s", ReportIDPrefix, seq, ReportIDSuffix)
}

// TimeWindow is an optional per-category override of the aggregate
// downtime window. Either endpoint may be empty, in which case the
// aggregate endpoint applies.
type TimeWindow struct {
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
}

// Report is the submitted downtime report as received, before it is
// split into per-category rows. Timestamps stay raw strings here; the
// pipeline parses and normalizes them during splitting.
type Report struct {
	ReportID             string
	IssueTitle           string
	ImpactedService      string
	ImpactType           string
	Modality             string
	StartTime            string
	EndTime              string
	Concern              string
	Reason               string
	Resolution           string
	SystemUnavailability string
	TrackedBy            string
	Categories           []string
	CategoryTimes        map[string]TimeWindow
	TicketID             string
	TicketLink           string
	ReliabilityImpacted  bool
}

// CategoryRecord is one persisted row: the full report denormalized
// onto a single impact category with its resolved window.
type CategoryRecord struct {
	ReportID             string    `json:"reportId"`
	Category             string    `json:"category"`
	StartDateTime        string    `json:"startDateTime"`
	EndDateTime          string    `json:"endDateTime"`
	Duration             string    `json:"duration"`
	ReportDate           string    `json:"reportDate"`
	IssueTitle           string    `json:"issueTitle"`
	ImpactedService      string    `json:"impactedService"`
	ImpactType           string    `json:"impactType"`
	Modality             string    `json:"modality"`
	Concern              string    `json:"concern"`
	Reason               string    `json:"reason"`
	Resolution           string    `json:"resolution"`
	SystemUnavailability string    `json:"systemUnavailability"`
	TrackedBy            string    `json:"trackedBy"`
	TicketID             string    `json:"ticketId,omitempty"`
	TicketLink           string    `json:"ticketLink,omitempty"`
	ReliabilityImpacted  bool      `json:"reliabilityImpacted"`
	CreatedAt            time.Time `json:"createdAt"`
}

// IssueCount is one row of the top-issues report.
type IssueCount struct {
	IssueTitle  string `json:"issueTitle"`
	ReportCount int64  `json:"reportCount"`
}
