package service

import (
	"context"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// SubscriptionService resolves messaging tiers and applies payment webhook
// outcomes. Tier resolution always reads the store fresh; on a read error no
// default tier is assumed, so callers deny messaging (fail closed).
type SubscriptionService interface {
	// ResolveTier returns the user's current tier and status. A missing
	// subscription row resolves to the none tier.
	ResolveTier(ctx context.Context, userID string) (model.TierInfo, error)
	GetSubscription(ctx context.Context, userID string) (*model.Subscription, error)
	// InitSubscription creates the signup-time none/active row.
	InitSubscription(ctx context.Context, userID string) error
	ApplyCheckout(ctx context.Context, userID string, tier model.Tier, customerID, subscriptionID string, expiry time.Time) error
	UpdateStatus(ctx context.Context, userID string, status model.SubscriptionStatus) error
	Downgrade(ctx context.Context, userID string) error
	ResolveUserByStripeCustomer(ctx context.Context, customerID string) (string, error)
}

type subscriptionService struct {
	repo   repository.SubscriptionRepository
	logger zerolog.Logger
}

// NewSubscriptionService creates a new SubscriptionService with a scoped logger.
func NewSubscriptionService(repo repository.SubscriptionRepository, logger zerolog.Logger) SubscriptionService {
	return &subscriptionService{
		repo:   repo,
		logger: logger.With().Str("service", "SubscriptionService").Logger(),
	}
}

func (s *subscriptionService) ResolveTier(ctx context.Context, userID string) (model.TierInfo, error) {
	sub, err := s.repo.GetSubscription(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch subscription")
		return model.TierInfo{}, err
	}
	if sub == nil {
		return model.TierInfo{Tier: model.TierNone, Status: model.StatusActive}, nil
	}
	// Reject unknown tier values rather than letting a bad row slip through
	// the admission table.
	tier, err := model.ParseTier(string(sub.Tier))
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Subscription row carries an unknown tier")
		return model.TierInfo{}, err
	}
	return model.TierInfo{Tier: tier, Status: sub.Status}, nil
}

func (s *subscriptionService) GetSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch subscription")
		return nil, err
	}
	return sub, nil
}

func (s *subscriptionService) InitSubscription(ctx context.Context, userID string) error {
	if err := s.repo.InitSubscription(ctx, userID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to initialize subscription")
		return err
	}
	return nil
}

func (s *subscriptionService) ApplyCheckout(ctx context.Context, userID string, tier model.Tier, customerID, subscriptionID string, expiry time.Time) error {
	if err := s.repo.UpsertFromCheckout(ctx, userID, tier, customerID, subscriptionID, expiry); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("tier", string(tier)).Msg("Failed to apply checkout")
		return err
	}
	return nil
}

func (s *subscriptionService) UpdateStatus(ctx context.Context, userID string, status model.SubscriptionStatus) error {
	if err := s.repo.UpdateStatus(ctx, userID, status); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("status", string(status)).Msg("Failed to update subscription status")
		return err
	}
	return nil
}

func (s *subscriptionService) Downgrade(ctx context.Context, userID string) error {
	if err := s.repo.Downgrade(ctx, userID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to downgrade subscription")
		return err
	}
	return nil
}

func (s *subscriptionService) ResolveUserByStripeCustomer(ctx context.Context, customerID string) (string, error) {
	userID, err := s.repo.GetUserIDByStripeCustomer(ctx, customerID)
	if err != nil {
		s.logger.Error().Err(err).Str("stripe_customer_id", customerID).Msg("Failed to resolve user by Stripe customer")
		return "", err
	}
	return userID, nil
}
