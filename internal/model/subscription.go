package model

import (
	"fmt"
	"time"
)

// Tier is the subscription level controlling messaging privileges.
type Tier string

const (
	TierNone     Tier = "none"
	TierStandard Tier = "standard"
	TierVIP      Tier = "vip"
)

// ParseTier converts a stored tier string into a Tier, rejecting unknown values
// so a bad row can never silently fall through the admission table.
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierNone, TierStandard, TierVIP:
		return Tier(s), nil
	}
	return "", fmt.Errorf("unknown subscription tier: %q", s)
}

// SubscriptionStatus is the billing status of a subscription.
type SubscriptionStatus string

const (
	StatusActive   SubscriptionStatus = "active"
	StatusCanceled SubscriptionStatus = "canceled"
	StatusExpired  SubscriptionStatus = "expired"
)

// Subscription is the per-user subscription row. It is written by the payment
// webhook and at signup, and read fresh on every admission decision.
type Subscription struct {
	ID                   string             `db:"id" json:"id"`
	UserID               string             `db:"user_id" json:"user_id"`
	Tier                 Tier               `db:"tier" json:"tier"`
	Status               SubscriptionStatus `db:"status" json:"status"`
	StripeCustomerID     *string            `db:"stripe_customer_id" json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string            `db:"stripe_subscription_id" json:"stripe_subscription_id,omitempty"`
	ExpiryDate           *time.Time         `db:"expiry_date" json:"expiry_date,omitempty"`
	CreatedAt            time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time          `db:"updated_at" json:"updated_at"`
}

// TierInfo is the resolved tier and status used by the admission policy.
type TierInfo struct {
	Tier   Tier               `json:"tier"`
	Status SubscriptionStatus `json:"status"`
}
