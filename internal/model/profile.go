package model

import "time"

// UserType distinguishes the two member kinds.
type UserType string

const (
	UserTypeConsumer UserType = "consumer"
	UserTypeCreator  UserType = "creator"
)

// Role controls access to moderation endpoints.
type Role string

const (
	RoleConsumer Role = "consumer"
	RoleCreator  Role = "creator"
	RoleAdmin    Role = "admin"
)

// Profile represents a member profile. Exactly one profile exists per user.
type Profile struct {
	ID              string     `db:"id" json:"id"`
	UserID          string     `db:"user_id" json:"user_id"`
	Email           string     `db:"email" json:"email"`
	UserType        UserType   `db:"user_type" json:"user_type"`
	Role            Role       `db:"role" json:"role"`
	DisplayName     *string    `db:"display_name" json:"display_name"`
	AvatarURL       *string    `db:"avatar_url" json:"avatar_url"`
	Bio             *string    `db:"bio" json:"bio"`
	Category        *string    `db:"category" json:"category"`
	City            *string    `db:"city" json:"city"`
	DateOfBirth     *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Suspended       bool       `db:"suspended" json:"suspended"`
	SuspendedAt     *time.Time `db:"suspended_at" json:"suspended_at,omitempty"`
	SuspendedReason *string    `db:"suspended_reason" json:"suspended_reason,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}
