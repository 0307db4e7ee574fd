// Package reports implements the downtime report submission pipeline:
// validation, identifier allocation, category splitting and the atomic
// multi-row write, followed by a best-effort outcome alert.
package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/opsportal/downtime-pipeline/internal/domain"
	"github.com/opsportal/downtime-pipeline/internal/pkg/ctxlog"
	"github.com/opsportal/downtime-pipeline/internal/timeutil"
)

const topIssuesLimit = 5

// Service orchestrates report submission. One call handles one inbound
// submission; concurrent calls share nothing but the database.
type Service struct {
	repo      Repository
	validator *Validator
	splitter  *Splitter
	alerts    AlertNotifier
}

// NewService creates the submission orchestrator.
func NewService(repo Repository, normalizer *timeutil.Normalizer, alerts AlertNotifier) *Service {
	return &Service{
		repo:      repo,
		validator: NewValidator(normalizer),
		splitter:  NewSplitter(normalizer),
		alerts:    alerts,
	}
}

// SubmitResult is the caller-visible outcome of a committed submission.
type SubmitResult struct {
	ReportID        string
	CategoriesCount int
}

// Submit runs the full pipeline for one report.
//
// Validation failures reject the request before any identifier is allocated
// or transaction opened. Once allocation has begun, any failure rolls back
// the entire write and dispatches a failure alert; a successful commit
// dispatches a success alert. Alerts never influence the returned result.
func (s *Service) Submit(ctx context.Context, report *domain.Report, caller domain.Caller) (*SubmitResult, error) {
	start := time.Now()

	if err := s.validator.Validate(report); err != nil {
		recordSubmission(outcomeRejected, time.Since(start))
		return nil, err
	}

	result, err := s.submitValidated(ctx, report, caller)
	if err != nil {
		recordSubmission(outcomeRolledBack, time.Since(start))
		return nil, err
	}

	recordSubmission(outcomeCommitted, time.Since(start))
	return result, nil
}

// submitValidated covers the Allocated -> Normalized -> Committed/RolledBack
// -> Alerted states. Every error path dispatches the failure alert exactly
// once, after the transaction outcome is known.
func (s *Service) submitValidated(ctx context.Context, report *domain.Report, caller domain.Caller) (*SubmitResult, error) {
	reportID := ""
	fail := func(cause error) error {
		// Detach from the request context: a disconnected caller must not
		// cancel the alert, and the alert must not delay the response.
		go s.alerts.SubmissionFailed(context.WithoutCancel(ctx), reportID, report.IssueTitle, cause, caller)
		return cause
	}

	seq, err := s.repo.NextReportSequence(ctx)
	if err != nil {
		return nil, fail(fmt.Errorf("%w: report counter: %v", ErrAllocationFailed, err))
	}
	reportID = domain.FormatReportID(seq)
	report.ReportID = reportID

	records, err := s.splitter.Split(report, reportID, time.Now())
	if err != nil {
		return nil, fail(err)
	}

	notifications, err := s.allocateNotifications(ctx, report)
	if err != nil {
		return nil, fail(err)
	}

	entry := &domain.AuditEntry{
		Actor:         callerActor(caller, report),
		Action:        domain.ActionReportSubmitted,
		Description:   fmt.Sprintf("Submitted downtime report %s (%s) covering %d categories", reportID, report.IssueTitle, len(records)),
		CorrelationID: caller.CorrelationID,
		IPAddress:     caller.IPAddress,
		UserAgent:     caller.UserAgent,
	}

	if err := s.commit(ctx, records, notifications, entry); err != nil {
		return nil, fail(err)
	}

	recordCategoryRows(len(records))
	go s.alerts.SubmissionSucceeded(context.WithoutCancel(ctx), reportID, records, caller)

	return &SubmitResult{ReportID: reportID, CategoriesCount: len(records)}, nil
}

// allocateNotifications draws one id per stream and builds the two rows
// every successful submission carries.
func (s *Service) allocateNotifications(ctx context.Context, report *domain.Report) ([]domain.Notification, error) {
	streams := []domain.NotificationStream{domain.StreamAdmin, domain.StreamUser}
	notifications := make([]domain.Notification, 0, len(streams))

	for _, stream := range streams {
		seq, err := s.repo.NextNotificationSequence(ctx, stream)
		if err != nil {
			return nil, fmt.Errorf("%w: %s notification counter: %v", ErrAllocationFailed, stream, err)
		}
		notifications = append(notifications, domain.Notification{
			NotificationID: domain.FormatNotificationID(stream, seq),
			Stream:         stream,
			Title:          notificationTitle(stream, report),
			Status:         domain.NotificationUnread,
		})
	}

	return notifications, nil
}

// commit is the atomic unit of work: all category rows, both notification
// rows and the audit entry land in one transaction or not at all.
func (s *Service) commit(ctx context.Context, records []domain.CategoryRecord, notifications []domain.Notification, entry *domain.AuditEntry) error {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", ErrPersistenceFailed, err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			ctxlog.FromContext(ctx).Error("failed to rollback submission transaction",
				"report_id", entryReportID(records),
				"error", err,
			)
		}
	}()

	for i := range records {
		if err := s.repo.InsertCategoryRecordTx(ctx, tx, &records[i]); err != nil {
			return fmt.Errorf("%w: insert category %q: %v", ErrPersistenceFailed, records[i].Category, err)
		}
	}

	for i := range notifications {
		if err := s.repo.InsertNotificationTx(ctx, tx, &notifications[i]); err != nil {
			return fmt.Errorf("%w: insert %s notification: %v", ErrPersistenceFailed, notifications[i].Stream, err)
		}
	}

	if err := s.repo.InsertAuditEntryTx(ctx, tx, entry); err != nil {
		return fmt.Errorf("%w: insert audit entry: %v", ErrPersistenceFailed, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrPersistenceFailed, err)
	}

	return nil
}

// GetReport returns the category rows of one report.
func (s *Service) GetReport(ctx context.Context, reportID string) ([]domain.CategoryRecord, error) {
	records, err := s.repo.ListCategoryRecords(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("list category records: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrReportNotFound
	}
	return records, nil
}

// TopIssues returns the five most frequently reported issue titles with
// their distinct-report counts, descending.
func (s *Service) TopIssues(ctx context.Context) ([]domain.IssueCount, error) {
	return s.repo.TopIssues(ctx, topIssuesLimit)
}

// ListNotifications returns one stream's rows, newest first.
func (s *Service) ListNotifications(ctx context.Context, stream domain.NotificationStream) ([]domain.Notification, error) {
	if !stream.IsValid() {
		return nil, ErrInvalidStream
	}
	return s.repo.ListNotifications(ctx, stream)
}

// MarkNotificationRead flips one notification row to Read.
func (s *Service) MarkNotificationRead(ctx context.Context, stream domain.NotificationStream, notificationID string) error {
	if !stream.IsValid() {
		return ErrInvalidStream
	}
	return s.repo.MarkNotificationRead(ctx, stream, notificationID)
}

func notificationTitle(stream domain.NotificationStream, report *domain.Report) string {
	if stream == domain.StreamAdmin {
		return fmt.Sprintf("Downtime report %s submitted by %s", report.ReportID, report.TrackedBy)
	}
	return fmt.Sprintf("Downtime reported: %s (%s)", report.IssueTitle, report.ReportID)
}

// callerActor prefers the authenticated identity and falls back to the
// trackedBy field supplied in the payload.
func callerActor(caller domain.Caller, report *domain.Report) string {
	if caller.UserID != "" {
		return caller.UserID
	}
	return report.TrackedBy
}

func entryReportID(records []domain.CategoryRecord) string {
	if len(records) == 0 {
		return ""
	}
	return records[0].ReportID
}
