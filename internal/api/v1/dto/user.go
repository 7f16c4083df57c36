package dto

import "time"

// ProfileCreateDTO is used for incoming profile creation requests.
type ProfileCreateDTO struct {
	Email       string     `json:"email" validate:"required,email"`
	UserType    string     `json:"user_type" validate:"required,oneof=consumer creator"`
	DisplayName *string    `json:"display_name"`
	Category    *string    `json:"category"`
	City        *string    `json:"city"`
	DateOfBirth *time.Time `json:"date_of_birth"`
}

// ProfileUpdateDTO is used for profile update requests.
type ProfileUpdateDTO struct {
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
	Category    *string `json:"category"`
	City        *string `json:"city"`
}

// ProfileResponseDTO is returned in API responses.
type ProfileResponseDTO struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	UserType    string    `json:"user_type"`
	Role        string    `json:"role"`
	DisplayName *string   `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url"`
	Bio         *string   `json:"bio"`
	Category    *string   `json:"category"`
	City        *string   `json:"city"`
	Suspended   bool      `json:"suspended"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AvatarUploadResponseDTO carries a presigned upload URL and the public URL
// the client should confirm once the upload completes.
type AvatarUploadResponseDTO struct {
	UploadURL string `json:"upload_url"`
	PublicURL string `json:"public_url"`
}

// AvatarConfirmDTO confirms a completed avatar upload.
type AvatarConfirmDTO struct {
	AvatarURL string `json:"avatar_url" validate:"required,url"`
}
