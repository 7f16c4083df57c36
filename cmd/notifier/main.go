package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"app/internal/config"
	"app/internal/logger"
	"app/internal/model"
	"app/internal/repository"
	"app/internal/service"

	gcppubsub "cloud.google.com/go/pubsub"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// The notifier consumes message.sent events and emails the recipient. It runs
// as a separate binary so email latency and retries never sit on the send path.
func main() {
	logger := logger.New()

	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}
	if cfg.GCPProjectID == "" {
		logger.Fatal().Msg("GCP_PROJECT_ID is required for the notifier")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Msgf("Failed to create DB pool: %v", err)
	}
	defer pool.Close()

	client, err := gcppubsub.NewClient(ctx, cfg.GCPProjectID)
	if err != nil {
		logger.Fatal().Msgf("Failed to create Pub/Sub client: %v", err)
	}
	defer client.Close()

	profileRepo := repository.NewProfileRepo(pool)
	notificationSvc := service.NewNotificationService(profileRepo, cfg.ResendAPIKey, cfg.EmailFrom, cfg.SiteURL, logger)

	// Stop receiving on SIGINT/SIGTERM; Receive returns once in-flight
	// callbacks complete.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info().Msg("Shutdown signal received, stopping notifier...")
		cancel()
	}()

	sub := client.Subscription(cfg.MessageSentSubscription)
	logger.Info().Str("subscription", cfg.MessageSentSubscription).Msg("Notifier started")

	err = sub.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		var event model.MessageSentEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Error().Err(err).Msg("Dropping malformed message.sent event")
			msg.Ack()
			return
		}
		if err := notificationSvc.SendMessageNotification(ctx, event); err != nil {
			logger.Error().Err(err).Str("message_id", event.MessageID).Msg("Failed to send notification, will retry")
			msg.Nack()
			return
		}
		msg.Ack()
	})
	if err != nil && ctx.Err() == nil {
		logger.Fatal().Msgf("Receive failed: %v", err)
	}
	logger.Info().Msg("Notifier shut down gracefully")
}
