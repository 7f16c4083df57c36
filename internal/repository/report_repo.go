package repository

import (
	"context"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ReportRepository stores member reports, bans and the admin audit log.
type ReportRepository interface {
	CreateReport(ctx context.Context, reporterID, reportedUserID, reason string, details *string) (*model.Report, error)
	ListReports(ctx context.Context, status model.ReportStatus, limit, offset int) ([]model.Report, error)
	UpdateReportStatus(ctx context.Context, reportID string, status model.ReportStatus) error
	InsertBan(ctx context.Context, userID, reason, bannedBy string) error
	IsBanned(ctx context.Context, userID string) (bool, error)
	InsertAuditLog(ctx context.Context, adminID, action string, targetUserID, details *string) error
}

type reportRepo struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewReportRepo creates a new ReportRepository.
func NewReportRepo(pool *pgxpool.Pool, logger zerolog.Logger) ReportRepository {
	return &reportRepo{pool: pool, logger: logger}
}

func (r *reportRepo) CreateReport(ctx context.Context, reporterID, reportedUserID, reason string, details *string) (*model.Report, error) {
	const q = `
		INSERT INTO reports (reporter_id, reported_user_id, reason, details, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING id, reporter_id, reported_user_id, reason, details, status, created_at
	`
	var rep model.Report
	err := r.pool.QueryRow(ctx, q, reporterID, reportedUserID, reason, details).Scan(
		&rep.ID,
		&rep.ReporterID,
		&rep.ReportedUserID,
		&rep.Reason,
		&rep.Details,
		&rep.Status,
		&rep.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating report: %w", err)
	}
	return &rep, nil
}

func (r *reportRepo) ListReports(ctx context.Context, status model.ReportStatus, limit, offset int) ([]model.Report, error) {
	q := fmt.Sprintf(`
		SELECT id, reporter_id, reported_user_id, reason, details, status, created_at
		FROM reports
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT %d OFFSET %d
	`, limit, offset)

	rows, err := r.pool.Query(ctx, q, status)
	if err != nil {
		return nil, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()

	var reports []model.Report
	for rows.Next() {
		var rep model.Report
		if err := rows.Scan(
			&rep.ID,
			&rep.ReporterID,
			&rep.ReportedUserID,
			&rep.Reason,
			&rep.Details,
			&rep.Status,
			&rep.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning report row: %w", err)
		}
		reports = append(reports, rep)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating report rows: %w", err)
	}

	return reports, nil
}

func (r *reportRepo) UpdateReportStatus(ctx context.Context, reportID string, status model.ReportStatus) error {
	const q = `UPDATE reports SET status = $2 WHERE id = $1`
	result, err := r.pool.Exec(ctx, q, reportID, status)
	if err != nil {
		return fmt.Errorf("updating report %s: %w", reportID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("report not found: %s", reportID)
	}
	return nil
}

func (r *reportRepo) InsertBan(ctx context.Context, userID, reason, bannedBy string) error {
	const q = `
		INSERT INTO banned_users (user_id, reason, banned_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, q, userID, reason, bannedBy); err != nil {
		return fmt.Errorf("banning user %s: %w", userID, err)
	}
	return nil
}

func (r *reportRepo) IsBanned(ctx context.Context, userID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM banned_users WHERE user_id = $1)`
	var banned bool
	if err := r.pool.QueryRow(ctx, q, userID).Scan(&banned); err != nil {
		return false, fmt.Errorf("checking ban for user %s: %w", userID, err)
	}
	return banned, nil
}

func (r *reportRepo) InsertAuditLog(ctx context.Context, adminID, action string, targetUserID, details *string) error {
	const q = `
		INSERT INTO audit_logs (admin_id, action, target_user_id, details)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.pool.Exec(ctx, q, adminID, action, targetUserID, details); err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}
	return nil
}
