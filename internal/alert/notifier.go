package alert

import (
	"context"

	"github.com/opsportal/downtime-pipeline/internal/domain"
)

// SubmissionSucceeded dispatches the success-path alert for a committed
// submission.
func (d *Dispatcher) SubmissionSucceeded(ctx context.Context, reportID string, records []domain.CategoryRecord, caller domain.Caller) {
	d.Notify(ctx, SuccessMessage(reportID, records, caller))
}

// SubmissionFailed dispatches the failure-path alert after a rollback.
func (d *Dispatcher) SubmissionFailed(ctx context.Context, reportID, issueTitle string, cause error, caller domain.Caller) {
	d.Notify(ctx, FailureMessage(reportID, issueTitle, cause, caller))
}
