package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"app/internal/config"
	"app/internal/metrics"
	"app/internal/model"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

// paidPeriod is the subscription window granted by a completed checkout.
const paidPeriod = 30 * 24 * time.Hour

// StripeService manages the Stripe integration. The platform never mutates
// tiers directly: checkout and webhook events are the only writers, and the
// messaging policy reads the resulting subscription row at admission time.
type StripeService struct {
	cfg    *config.Config
	subSvc SubscriptionService
	logger zerolog.Logger
}

// NewStripeService initializes the Stripe key and returns the service with a scoped logger.
func NewStripeService(cfg *config.Config, subSvc SubscriptionService, logger zerolog.Logger) *StripeService {
	stripe.Key = cfg.StripeSecretKey
	lg := logger.With().Str("service", "StripeService").Logger()
	return &StripeService{cfg: cfg, subSvc: subSvc, logger: lg}
}

// CreateCheckoutSession creates a Stripe Checkout session for a tier upgrade.
func (s *StripeService) CreateCheckoutSession(ctx context.Context, userID string, tier model.Tier) (string, error) {
	var priceID string
	switch tier {
	case model.TierStandard:
		priceID = s.cfg.StripePriceStandard
	case model.TierVIP:
		priceID = s.cfg.StripePriceVIP
	default:
		return "", fmt.Errorf("invalid checkout tier: %s", tier)
	}

	sessParams := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          []*stripe.CheckoutSessionLineItemParams{{Price: stripe.String(priceID), Quantity: stripe.Int64(1)}},
		Mode:               stripe.String(stripe.CheckoutSessionModeSubscription),
		SuccessURL:         stripe.String(s.cfg.StripeReturnURL + "?status=success"),
		CancelURL:          stripe.String(s.cfg.StripeReturnURL + "?status=cancel"),
		Metadata:           map[string]string{"user_id": userID, "tier": string(tier)},
	}
	sess, err := checkoutsession.New(sessParams)
	if err != nil {
		s.logger.Error().Err(err).Str("tier", string(tier)).Msg("Failed to create Stripe checkout session")
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// HandleWebhook processes Stripe webhook events.
func (s *StripeService) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read Stripe webhook payload")
		http.Error(w, "failed to read payload", http.StatusBadRequest)
		return
	}
	sig := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEvent(payload, sig, s.cfg.StripeWebhookSecret)
	if err != nil {
		s.logger.Error().Err(err).Msg("Signature verification failed for Stripe webhook")
		http.Error(w, "signature verification failed", http.StatusBadRequest)
		return
	}
	s.logger.Info().Str("event_type", string(event.Type)).Msg("Stripe webhook received")

	ctx := r.Context()
	switch event.Type {
	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			s.logger.Error().Err(err).Msg("Invalid checkout.session data")
			metrics.WebhookEvents.WithLabelValues(string(event.Type), "error").Inc()
			http.Error(w, "invalid checkout.session data", http.StatusBadRequest)
			return
		}
		if err := s.applyCheckoutCompleted(ctx, &cs); err != nil {
			s.logger.Error().Err(err).Msg("Failed to apply checkout.session.completed")
			metrics.WebhookEvents.WithLabelValues(string(event.Type), "error").Inc()
			http.Error(w, "failed to apply checkout", http.StatusInternalServerError)
			return
		}

	case "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			s.logger.Error().Err(err).Msg("Invalid subscription data")
			metrics.WebhookEvents.WithLabelValues(string(event.Type), "error").Inc()
			http.Error(w, "invalid subscription data", http.StatusBadRequest)
			return
		}
		if err := s.applySubscriptionUpdated(ctx, &sub); err != nil {
			s.logger.Error().Err(err).Msg("Failed to apply customer.subscription.updated")
			metrics.WebhookEvents.WithLabelValues(string(event.Type), "error").Inc()
			http.Error(w, "failed to apply subscription update", http.StatusInternalServerError)
			return
		}

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			s.logger.Error().Err(err).Msg("Invalid subscription data")
			metrics.WebhookEvents.WithLabelValues(string(event.Type), "error").Inc()
			http.Error(w, "invalid subscription data", http.StatusBadRequest)
			return
		}
		if err := s.applySubscriptionDeleted(ctx, &sub); err != nil {
			s.logger.Error().Err(err).Msg("Failed to apply customer.subscription.deleted")
			metrics.WebhookEvents.WithLabelValues(string(event.Type), "error").Inc()
			http.Error(w, "failed to apply subscription deletion", http.StatusInternalServerError)
			return
		}

	default:
		s.logger.Debug().Str("event_type", string(event.Type)).Msg("Ignoring unhandled Stripe event")
	}

	metrics.WebhookEvents.WithLabelValues(string(event.Type), "ok").Inc()
	w.WriteHeader(http.StatusOK)
}

func (s *StripeService) applyCheckoutCompleted(ctx context.Context, cs *stripe.CheckoutSession) error {
	userID := cs.Metadata["user_id"]
	tierStr := cs.Metadata["tier"]
	if userID == "" || tierStr == "" {
		return errors.New("checkout session missing user_id or tier metadata")
	}
	tier, err := model.ParseTier(tierStr)
	if err != nil {
		return err
	}

	var customerID, subscriptionID string
	if cs.Customer != nil {
		customerID = cs.Customer.ID
	}
	if cs.Subscription != nil {
		subscriptionID = cs.Subscription.ID
	}

	expiry := time.Now().Add(paidPeriod)
	return s.subSvc.ApplyCheckout(ctx, userID, tier, customerID, subscriptionID, expiry)
}

func (s *StripeService) applySubscriptionUpdated(ctx context.Context, sub *stripe.Subscription) error {
	userID, err := s.resolveUser(ctx, sub)
	if err != nil {
		return err
	}
	status := model.StatusCanceled
	if sub.Status == stripe.SubscriptionStatusActive {
		status = model.StatusActive
	}
	return s.subSvc.UpdateStatus(ctx, userID, status)
}

func (s *StripeService) applySubscriptionDeleted(ctx context.Context, sub *stripe.Subscription) error {
	userID, err := s.resolveUser(ctx, sub)
	if err != nil {
		return err
	}
	return s.subSvc.Downgrade(ctx, userID)
}

// resolveUser finds the platform user for a Stripe subscription, preferring
// metadata and falling back to the stored customer id.
func (s *StripeService) resolveUser(ctx context.Context, sub *stripe.Subscription) (string, error) {
	if userID, ok := sub.Metadata["user_id"]; ok && userID != "" {
		return userID, nil
	}
	if sub.Customer == nil || sub.Customer.ID == "" {
		return "", errors.New("cannot determine user: missing metadata and customer id")
	}
	s.logger.Warn().Str("stripe_customer_id", sub.Customer.ID).Msg("Missing user_id metadata; looking up user by customer ID")
	userID, err := s.subSvc.ResolveUserByStripeCustomer(ctx, sub.Customer.ID)
	if err != nil {
		return "", fmt.Errorf("failed to lookup user by Stripe customer ID: %w", err)
	}
	if userID == "" {
		return "", fmt.Errorf("no user found for customer ID: %s", sub.Customer.ID)
	}
	return userID, nil
}
