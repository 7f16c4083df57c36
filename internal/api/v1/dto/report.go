package dto

import "time"

// ReportCreateDTO is used to report another member.
type ReportCreateDTO struct {
	ReportedUserID string  `json:"reported_user_id" validate:"required"`
	Reason         string  `json:"reason" validate:"required"`
	Details        *string `json:"details"`
}

// ReportResponseDTO is returned in report listings.
type ReportResponseDTO struct {
	ID             string    `json:"id"`
	ReporterID     string    `json:"reporter_id"`
	ReportedUserID string    `json:"reported_user_id"`
	Reason         string    `json:"reason"`
	Details        *string   `json:"details,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReportResolveDTO closes a report.
type ReportResolveDTO struct {
	Status string `json:"status" validate:"required,oneof=reviewed dismissed"`
}

// SuspendDTO suspends a member profile.
type SuspendDTO struct {
	UserID string `json:"user_id" validate:"required"`
	Reason string `json:"reason" validate:"required"`
}

// BanDTO bans a member from the platform.
type BanDTO struct {
	UserID string `json:"user_id" validate:"required"`
	Reason string `json:"reason" validate:"required"`
}
