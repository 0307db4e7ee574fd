package reports

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/opsportal/downtime-pipeline/internal/domain"
)

// Repository defines the storage interface for the submission pipeline.
//
// The sequence reads are atomic counter draws: under concurrent submissions
// no two callers ever receive the same value. Everything inserted during one
// submission goes through the ...Tx methods inside a single transaction.
type Repository interface {
	// NextReportSequence draws the next value of the durable report counter.
	NextReportSequence(ctx context.Context) (int64, error)
	// NextNotificationSequence draws the next value of one stream's counter.
	NextNotificationSequence(ctx context.Context, stream domain.NotificationStream) (int64, error)

	// Transaction support for the atomic multi-row write.
	BeginTx(ctx context.Context) (pgx.Tx, error)
	InsertCategoryRecordTx(ctx context.Context, tx pgx.Tx, rec *domain.CategoryRecord) error
	InsertNotificationTx(ctx context.Context, tx pgx.Tx, n *domain.Notification) error
	InsertAuditEntryTx(ctx context.Context, tx pgx.Tx, entry *domain.AuditEntry) error

	// Read side.
	ListCategoryRecords(ctx context.Context, reportID string) ([]domain.CategoryRecord, error)
	TopIssues(ctx context.Context, limit int) ([]domain.IssueCount, error)
	ListNotifications(ctx context.Context, stream domain.NotificationStream) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, stream domain.NotificationStream, notificationID string) error
}

// AlertNotifier dispatches best-effort outcome alerts. Implementations must
// swallow their own failures; the pipeline never inspects the result.
type AlertNotifier interface {
	SubmissionSucceeded(ctx context.Context, reportID string, records []domain.CategoryRecord, caller domain.Caller)
	SubmissionFailed(ctx context.Context, reportID, issueTitle string, cause error, caller domain.Caller)
}
