// Package postgres provides the PostgreSQL implementation of the reports
// repository.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opsportal/downtime-pipeline/internal/domain"
	"github.com/opsportal/downtime-pipeline/internal/reports"
)

// Sequence names backing the allocators. All three are plain Postgres
// sequences: nextval is an atomic increment, so concurrent submissions can
// never draw the same value.
const (
	reportSeq            = "downtime_report_seq"
	adminNotificationSeq = "admin_notification_seq"
	userNotificationSeq  = "user_notification_seq"
)

// Repository implements reports.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// NextReportSequence draws the next report counter value.
func (r *Repository) NextReportSequence(ctx context.Context) (int64, error) {
	return r.nextval(ctx, reportSeq)
}

// NextNotificationSequence draws the next counter value of one stream.
func (r *Repository) NextNotificationSequence(ctx context.Context, stream domain.NotificationStream) (int64, error) {
	switch stream {
	case domain.StreamAdmin:
		return r.nextval(ctx, adminNotificationSeq)
	case domain.StreamUser:
		return r.nextval(ctx, userNotificationSeq)
	default:
		return 0, fmt.Errorf("no sequence for stream %q", stream)
	}
}

func (r *Repository) nextval(ctx context.Context, seq string) (int64, error) {
	var value int64
	if err := r.db.QueryRow(ctx, `SELECT nextval($1)`, seq).Scan(&value); err != nil {
		return 0, fmt.Errorf("nextval %s: %w", seq, err)
	}
	return value, nil
}

// BeginTx starts the submission transaction.
func (r *Repository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.db.Begin(ctx)
}

// InsertCategoryRecordTx inserts one category row within a transaction.
func (r *Repository) InsertCategoryRecordTx(ctx context.Context, tx pgx.Tx, rec *domain.CategoryRecord) error {
	query := `
		INSERT INTO downtime_reports (
			report_id, category, start_datetime, end_datetime, duration,
			report_date, issue_title, impacted_service, impact_type, modality,
			concern, reason, resolution, system_unavailability, tracked_by,
			ticket_id, ticket_link, reliability_impacted
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING created_at
	`
	err := tx.QueryRow(ctx, query,
		rec.ReportID,
		rec.Category,
		rec.StartDateTime,
		rec.EndDateTime,
		rec.Duration,
		rec.ReportDate,
		rec.IssueTitle,
		rec.ImpactedService,
		rec.ImpactType,
		rec.Modality,
		rec.Concern,
		rec.Reason,
		rec.Resolution,
		rec.SystemUnavailability,
		rec.TrackedBy,
		rec.TicketID,
		rec.TicketLink,
		rec.ReliabilityImpacted,
	).Scan(&rec.CreatedAt)

	if err != nil {
		return fmt.Errorf("insert category record: %w", err)
	}
	return nil
}

// InsertNotificationTx inserts one notification row within a transaction.
func (r *Repository) InsertNotificationTx(ctx context.Context, tx pgx.Tx, n *domain.Notification) error {
	table, err := notificationTable(n.Stream)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (notification_id, title, status)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, table)

	if err := tx.QueryRow(ctx, query, n.NotificationID, n.Title, n.Status).Scan(&n.CreatedAt); err != nil {
		return fmt.Errorf("insert %s notification: %w", n.Stream, err)
	}
	return nil
}

// InsertAuditEntryTx appends one audit row within a transaction.
func (r *Repository) InsertAuditEntryTx(ctx context.Context, tx pgx.Tx, entry *domain.AuditEntry) error {
	query := `
		INSERT INTO audit_log (actor, action, description, correlation_id, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := tx.QueryRow(ctx, query,
		entry.Actor,
		entry.Action,
		entry.Description,
		entry.CorrelationID,
		entry.IPAddress,
		entry.UserAgent,
	).Scan(&entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListCategoryRecords returns all category rows of one report.
func (r *Repository) ListCategoryRecords(ctx context.Context, reportID string) ([]domain.CategoryRecord, error) {
	query := `
		SELECT
			report_id, category, start_datetime, end_datetime, duration,
			report_date, issue_title, impacted_service, impact_type, modality,
			concern, reason, resolution, system_unavailability, tracked_by,
			ticket_id, ticket_link, reliability_impacted, created_at
		FROM downtime_reports
		WHERE report_id = $1
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("list category records: %w", err)
	}
	defer rows.Close()

	records := make([]domain.CategoryRecord, 0)
	for rows.Next() {
		var rec domain.CategoryRecord
		err := rows.Scan(
			&rec.ReportID,
			&rec.Category,
			&rec.StartDateTime,
			&rec.EndDateTime,
			&rec.Duration,
			&rec.ReportDate,
			&rec.IssueTitle,
			&rec.ImpactedService,
			&rec.ImpactType,
			&rec.Modality,
			&rec.Concern,
			&rec.Reason,
			&rec.Resolution,
			&rec.SystemUnavailability,
			&rec.TrackedBy,
			&rec.TicketID,
			&rec.TicketLink,
			&rec.ReliabilityImpacted,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan category record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// TopIssues returns the most frequent issue titles by distinct report count.
func (r *Repository) TopIssues(ctx context.Context, limit int) ([]domain.IssueCount, error) {
	query := `
		SELECT issue_title, COUNT(DISTINCT report_id) AS report_count
		FROM downtime_reports
		GROUP BY issue_title
		ORDER BY report_count DESC, issue_title
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("top issues: %w", err)
	}
	defer rows.Close()

	issues := make([]domain.IssueCount, 0, limit)
	for rows.Next() {
		var ic domain.IssueCount
		if err := rows.Scan(&ic.IssueTitle, &ic.ReportCount); err != nil {
			return nil, fmt.Errorf("scan issue count: %w", err)
		}
		issues = append(issues, ic)
	}

	return issues, rows.Err()
}

// ListNotifications returns one stream's rows, newest first.
func (r *Repository) ListNotifications(ctx context.Context, stream domain.NotificationStream) ([]domain.Notification, error) {
	table, err := notificationTable(stream)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT notification_id, title, status, created_at
		FROM %s
		ORDER BY id DESC
	`, table)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list %s notifications: %w", stream, err)
	}
	defer rows.Close()

	notifications := make([]domain.Notification, 0)
	for rows.Next() {
		n := domain.Notification{Stream: stream}
		if err := rows.Scan(&n.NotificationID, &n.Title, &n.Status, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// MarkNotificationRead flips one notification row to Read.
func (r *Repository) MarkNotificationRead(ctx context.Context, stream domain.NotificationStream, notificationID string) error {
	table, err := notificationTable(stream)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`UPDATE %s SET status = $2 WHERE notification_id = $1`, table)
	result, err := r.db.Exec(ctx, query, notificationID, domain.NotificationRead)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return reports.ErrNotificationNotFound
	}
	return nil
}

// notificationTable maps a stream to its table. Table names come from this
// fixed mapping, never from user input.
func notificationTable(stream domain.NotificationStream) (string, error) {
	switch stream {
	case domain.StreamAdmin:
		return "admin_notifications", nil
	case domain.StreamUser:
		return "user_notifications", nil
	default:
		return "", fmt.Errorf("no table for stream %q", stream)
	}
}
