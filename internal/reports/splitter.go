package reports

import (
	"fmt"
	"time"

	"github.com/opsportal/downtime-pipeline/internal/domain"
	"github.com/opsportal/downtime-pipeline/internal/timeutil"
)

// Splitter expands one submitted report into one CategoryRecord per declared
// impact category. Each category resolves its effective window (its own
// override when present, else the aggregate window), normalizes it into the
// storage zone and derives the duration.
type Splitter struct {
	normalizer *timeutil.Normalizer
}

// NewSplitter creates a splitter using the given time normalizer.
func NewSplitter(normalizer *timeutil.Normalizer) *Splitter {
	return &Splitter{normalizer: normalizer}
}

// Split produces the category rows for a report. A time-order violation in
// any single category aborts the whole submission: the categories share one
// atomic write, so none of them may be persisted.
func (s *Splitter) Split(report *domain.Report, reportID string, now time.Time) ([]domain.CategoryRecord, error) {
	records := make([]domain.CategoryRecord, 0, len(report.Categories))

	for _, category := range report.Categories {
		startRaw, endRaw := report.StartTime, report.EndTime
		if window, ok := report.CategoryTimes[category]; ok {
			if window.StartTime != "" {
				startRaw = window.StartTime
			}
			if window.EndTime != "" {
				endRaw = window.EndTime
			}
		}

		start, err := s.normalizer.Parse(startRaw)
		if err != nil {
			return nil, &ValidationError{Reason: fmt.Sprintf("category %q: start time is not a valid timestamp", category)}
		}
		end, err := s.normalizer.Parse(endRaw)
		if err != nil {
			return nil, &ValidationError{Reason: fmt.Sprintf("category %q: end time is not a valid timestamp", category)}
		}
		if !start.Before(end) {
			return nil, &ValidationError{Reason: fmt.Sprintf("category %q: start time must be earlier than end time", category)}
		}

		startDateTime := s.normalizer.ToStorageZone(startRaw)
		endDateTime := s.normalizer.ToStorageZone(endRaw)

		records = append(records, domain.CategoryRecord{
			ReportID:             reportID,
			Category:             category,
			StartDateTime:        startDateTime,
			EndDateTime:          endDateTime,
			Duration:             timeutil.FormatDuration(start, end),
			ReportDate:           timeutil.ExtractDate(startDateTime),
			IssueTitle:           report.IssueTitle,
			ImpactedService:      report.ImpactedService,
			ImpactType:           report.ImpactType,
			Modality:             report.Modality,
			Concern:              report.Concern,
			Reason:               report.Reason,
			Resolution:           report.Resolution,
			SystemUnavailability: report.SystemUnavailability,
			TrackedBy:            report.TrackedBy,
			TicketID:             report.TicketID,
			TicketLink:           report.TicketLink,
			ReliabilityImpacted:  report.ReliabilityImpacted,
			CreatedAt:            now,
		})
	}

	return records, nil
}
