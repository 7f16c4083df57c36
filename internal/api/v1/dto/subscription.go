package dto

import "time"

// SubscriptionCheckoutRequest selects the plan to upgrade to.
type SubscriptionCheckoutRequest struct {
	Plan string `json:"plan" validate:"required,oneof=standard vip"`
}

// SubscriptionResponseDTO is returned when a member inspects their plan.
type SubscriptionResponseDTO struct {
	Tier       string     `json:"tier"`
	Status     string     `json:"status"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
}
