package reports

import (
	"github.com/opsportal/downtime-pipeline/internal/domain"
	"github.com/opsportal/downtime-pipeline/internal/timeutil"
)

// requiredField pairs an inbound field name with its presence check.
// Order matters: the rejection message lists fields in contract order.
type requiredField struct {
	name    string
	present func(r *domain.Report) bool
}

var requiredFields = []requiredField{
	{"issueTitle", func(r *domain.Report) bool { return r.IssueTitle != "" }},
	{"impactedService", func(r *domain.Report) bool { return r.ImpactedService != "" }},
	{"impactType", func(r *domain.Report) bool { return r.ImpactType != "" }},
	{"modality", func(r *domain.Report) bool { return r.Modality != "" }},
	{"startTime", func(r *domain.Report) bool { return r.StartTime != "" }},
	{"endTime", func(r *domain.Report) bool { return r.EndTime != "" }},
	{"concern", func(r *domain.Report) bool { return r.Concern != "" }},
	{"reason", func(r *domain.Report) bool { return r.Reason != "" }},
	{"resolution", func(r *domain.Report) bool { return r.Resolution != "" }},
	{"systemUnavailability", func(r *domain.Report) bool { return r.SystemUnavailability != "" }},
	{"trackedBy", func(r *domain.Report) bool { return r.TrackedBy != "" }},
	{"categories", func(r *domain.Report) bool { return len(r.Categories) > 0 }},
}

// Validator enforces the structural and temporal preconditions of a
// submission. It is pure: no identifier is allocated and no transaction
// opened until it has passed.
type Validator struct {
	normalizer *timeutil.Normalizer
}

// NewValidator creates a validator using the given time normalizer.
func NewValidator(normalizer *timeutil.Normalizer) *Validator {
	return &Validator{normalizer: normalizer}
}

// Validate returns nil for a structurally valid aggregate, or a
// *ValidationError naming every missing field, or the aggregate-level
// time-order violation.
func (v *Validator) Validate(report *domain.Report) error {
	var missing []string
	for _, f := range requiredFields {
		if !f.present(report) {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{MissingFields: missing}
	}

	start, err := v.normalizer.Parse(report.StartTime)
	if err != nil {
		return &ValidationError{Reason: "startTime is not a valid timestamp"}
	}
	end, err := v.normalizer.Parse(report.EndTime)
	if err != nil {
		return &ValidationError{Reason: "endTime is not a valid timestamp"}
	}
	if !start.Before(end) {
		return &ValidationError{Reason: "startTime must be earlier than endTime"}
	}

	return nil
}
