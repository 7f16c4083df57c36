package model

import "time"

// ReportStatus tracks the lifecycle of a member report.
type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportReviewed  ReportStatus = "reviewed"
	ReportDismissed ReportStatus = "dismissed"
)

// Report is a member-filed complaint against another member.
type Report struct {
	ID             string       `db:"id" json:"id"`
	ReporterID     string       `db:"reporter_id" json:"reporter_id"`
	ReportedUserID string       `db:"reported_user_id" json:"reported_user_id"`
	Reason         string       `db:"reason" json:"reason"`
	Details        *string      `db:"details" json:"details,omitempty"`
	Status         ReportStatus `db:"status" json:"status"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
}

// Ban records a user barred from the platform.
type Ban struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Reason    string    `db:"reason" json:"reason"`
	BannedBy  string    `db:"banned_by" json:"banned_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AuditLog records every admin action for later review.
type AuditLog struct {
	ID           string    `db:"id" json:"id"`
	AdminID      string    `db:"admin_id" json:"admin_id"`
	Action       string    `db:"action" json:"action"`
	TargetUserID *string   `db:"target_user_id" json:"target_user_id,omitempty"`
	Details      *string   `db:"details" json:"details,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
