package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository defines methods for accessing subscription data.
// The subscriptions table is the single source of truth for messaging tiers;
// it is written only at signup and by the payment webhook.
type SubscriptionRepository interface {
	// GetSubscription returns the user's subscription, or nil when no row exists.
	GetSubscription(ctx context.Context, userID string) (*model.Subscription, error)
	// InitSubscription creates the signup-time none/active row if none exists.
	InitSubscription(ctx context.Context, userID string) error
	// UpsertFromCheckout applies a completed checkout: tier, status, Stripe ids and expiry.
	UpsertFromCheckout(ctx context.Context, userID string, tier model.Tier, customerID, subscriptionID string, expiry time.Time) error
	// UpdateStatus sets the billing status without touching the tier.
	UpdateStatus(ctx context.Context, userID string, status model.SubscriptionStatus) error
	// Downgrade resets the user to the none tier when their subscription is deleted.
	Downgrade(ctx context.Context, userID string) error
	// GetUserIDByStripeCustomer resolves a Stripe customer id to a user id.
	GetUserIDByStripeCustomer(ctx context.Context, customerID string) (string, error)
}

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepo creates a new SubscriptionRepository.
func NewSubscriptionRepo(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepo{pool: pool}
}

func (r *subscriptionRepo) GetSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	const q = `
        SELECT id, user_id, tier, status, stripe_customer_id, stripe_subscription_id, expiry_date, created_at, updated_at
        FROM subscriptions
        WHERE user_id = $1
    `
	var s model.Subscription
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&s.ID,
		&s.UserID,
		&s.Tier,
		&s.Status,
		&s.StripeCustomerID,
		&s.StripeSubscriptionID,
		&s.ExpiryDate,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch subscription for user %s: %w", userID, err)
	}
	return &s, nil
}

func (r *subscriptionRepo) InitSubscription(ctx context.Context, userID string) error {
	const q = `
        INSERT INTO subscriptions (user_id, tier, status, created_at, updated_at)
        VALUES ($1, 'none', 'active', NOW(), NOW())
        ON CONFLICT (user_id) DO NOTHING
    `
	if _, err := r.pool.Exec(ctx, q, userID); err != nil {
		return fmt.Errorf("initializing subscription for user %s: %w", userID, err)
	}
	return nil
}

func (r *subscriptionRepo) UpsertFromCheckout(ctx context.Context, userID string, tier model.Tier, customerID, subscriptionID string, expiry time.Time) error {
	const q = `
        INSERT INTO subscriptions (user_id, tier, status, stripe_customer_id, stripe_subscription_id, expiry_date, created_at, updated_at)
        VALUES ($1, $2, 'active', $3, $4, $5, NOW(), NOW())
        ON CONFLICT (user_id) DO UPDATE
        SET tier = EXCLUDED.tier,
            status = EXCLUDED.status,
            stripe_customer_id = EXCLUDED.stripe_customer_id,
            stripe_subscription_id = EXCLUDED.stripe_subscription_id,
            expiry_date = EXCLUDED.expiry_date,
            updated_at = NOW()
    `
	if _, err := r.pool.Exec(ctx, q, userID, tier, customerID, subscriptionID, expiry); err != nil {
		return fmt.Errorf("upsert checkout subscription for user %s: %w", userID, err)
	}
	return nil
}

func (r *subscriptionRepo) UpdateStatus(ctx context.Context, userID string, status model.SubscriptionStatus) error {
	const q = `
        UPDATE subscriptions
        SET status = $2, updated_at = NOW()
        WHERE user_id = $1
    `
	if _, err := r.pool.Exec(ctx, q, userID, status); err != nil {
		return fmt.Errorf("update subscription status for user %s: %w", userID, err)
	}
	return nil
}

func (r *subscriptionRepo) Downgrade(ctx context.Context, userID string) error {
	const q = `
        UPDATE subscriptions
        SET tier = 'none',
            status = 'expired',
            stripe_subscription_id = NULL,
            expiry_date = NULL,
            updated_at = NOW()
        WHERE user_id = $1
    `
	if _, err := r.pool.Exec(ctx, q, userID); err != nil {
		return fmt.Errorf("downgrade subscription for user %s: %w", userID, err)
	}
	return nil
}

func (r *subscriptionRepo) GetUserIDByStripeCustomer(ctx context.Context, customerID string) (string, error) {
	const q = `SELECT user_id FROM subscriptions WHERE stripe_customer_id = $1`
	var userID string
	err := r.pool.QueryRow(ctx, q, customerID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("lookup user by stripe customer %s: %w", customerID, err)
	}
	return userID, nil
}
