package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

const defaultResendBaseURL = "https://api.resend.com"

// NotificationService sends transactional email through the Resend API.
// Delivery is fire-and-forget from the platform's point of view: the notifier
// logs failures but nothing downstream depends on the email arriving.
type NotificationService interface {
	// SendMessageNotification emails the recipient of a newly sent message.
	SendMessageNotification(ctx context.Context, event model.MessageSentEvent) error
}

type notificationService struct {
	profileRepo repository.ProfileRepository
	client      *http.Client
	baseURL     string
	apiKey      string
	fromEmail   string
	siteURL     string
	logger      zerolog.Logger
}

// NewNotificationService creates a new NotificationService with a scoped logger.
func NewNotificationService(profileRepo repository.ProfileRepository, apiKey, fromEmail, siteURL string, logger zerolog.Logger) NotificationService {
	return &notificationService{
		profileRepo: profileRepo,
		client:      &http.Client{Timeout: 15 * time.Second},
		baseURL:     defaultResendBaseURL,
		apiKey:      apiKey,
		fromEmail:   fromEmail,
		siteURL:     siteURL,
		logger:      logger.With().Str("service", "NotificationService").Logger(),
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (s *notificationService) SendMessageNotification(ctx context.Context, event model.MessageSentEvent) error {
	if s.apiKey == "" {
		s.logger.Warn().Msg("Resend API key not configured, skipping notification")
		return nil
	}

	recipient, err := s.profileRepo.GetProfileByUserID(ctx, event.ReceiverID)
	if err != nil {
		return fmt.Errorf("fetching recipient profile: %w", err)
	}
	if recipient == nil || recipient.Email == "" {
		return fmt.Errorf("recipient email not found for user %s", event.ReceiverID)
	}

	sender, err := s.profileRepo.GetProfileByUserID(ctx, event.SenderID)
	if err != nil {
		return fmt.Errorf("fetching sender profile: %w", err)
	}

	recipientName := "there"
	if recipient.DisplayName != nil && *recipient.DisplayName != "" {
		recipientName = *recipient.DisplayName
	}
	senderName := "Someone"
	if sender != nil && sender.DisplayName != nil && *sender.DisplayName != "" {
		senderName = *sender.DisplayName
	}

	html := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<h1>You Have a New Message!</h1>
			<p>Hi %s,</p>
			<p><strong>%s</strong> sent you a message.</p>
			<div style="background-color: #f3f4f6; padding: 16px; border-radius: 8px; margin: 20px 0;">
				<p style="margin: 0; color: #374151;">%s</p>
			</div>
			<p style="margin-top: 30px;">
				<a href="%s/messages">View Message</a>
			</p>
		</div>
	`, recipientName, senderName, event.MessagePreview, s.siteURL)

	payload := resendRequest{
		From:    fmt.Sprintf("Members <%s>", s.fromEmail),
		To:      []string{recipient.Email},
		Subject: fmt.Sprintf("New Message from %s", senderName),
		HTML:    html,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		s.logger.Error().Int("status", resp.StatusCode).Str("body", string(respBody)).Msg("Resend API error")
		return fmt.Errorf("resend API returned status %d", resp.StatusCode)
	}

	s.logger.Info().Str("message_id", event.MessageID).Str("receiver_id", event.ReceiverID).Msg("Message notification sent")
	return nil
}
