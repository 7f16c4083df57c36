package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	JWTSecret   string `envconfig:"JWT_SECRET" required:"true"`
	SiteURL     string `envconfig:"SITE_URL" default:"http://localhost:5173"`

	// Messaging policy settings
	MessageMonthlyLimit int `envconfig:"MESSAGE_MONTHLY_LIMIT" default:"30"`

	// Stripe settings
	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY" required:"true"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`
	StripePriceStandard string `envconfig:"STRIPE_PRICE_STANDARD" required:"true"`
	StripePriceVIP      string `envconfig:"STRIPE_PRICE_VIP" required:"true"`
	StripeReturnURL     string `envconfig:"STRIPE_RETURN_URL" default:"http://localhost:5173/subscribe"`

	// Notification settings
	ResendAPIKey string `envconfig:"RESEND_API_KEY"`
	EmailFrom    string `envconfig:"EMAIL_FROM" default:"members@example.club"`

	// Pub/Sub settings for message.sent fan-out
	GCPProjectID            string `envconfig:"GCP_PROJECT_ID"`
	MessageSentTopic        string `envconfig:"MESSAGE_SENT_TOPIC" default:"message-sent"`
	MessageSentSubscription string `envconfig:"MESSAGE_SENT_SUBSCRIPTION" default:"message-sent-notifier"`

	// Avatar object storage settings (S3-compatible)
	S3URL       string `envconfig:"S3_URL"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"avatars"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`

	// Metrics endpoint basic-auth (disabled when both empty)
	MetricsUsername string `envconfig:"METRICS_USERNAME"`
	MetricsPassword string `envconfig:"METRICS_PASSWORD"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
