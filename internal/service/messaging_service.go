package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"app/internal/metrics"
	"app/internal/model"
	"app/internal/pubsub"
	"app/internal/repository"
	"app/internal/util"

	"github.com/rs/zerolog"
)

var (
	ErrSubscriptionRequired = errors.New("subscription required")
	ErrQuotaExceeded        = errors.New("monthly message limit reached")
	ErrSelfMessage          = errors.New("cannot send a message to yourself")
	ErrEmptyMessage         = errors.New("message content is empty")
)

const subscriptionRequiredReason = "You need an active subscription to send messages."

// previewLength bounds the message excerpt carried in notification events.
const previewLength = 120

// ConversationView is the result of opening a conversation: its messages in
// chronological order and the viewer's recomputed total unread count.
type ConversationView struct {
	Messages    []model.Message `json:"messages"`
	UnreadTotal int             `json:"unread_total"`
}

// QuotaStatus reports a member's first-contact allowance for the current
// month. Remaining is nil for VIP members (unlimited).
type QuotaStatus struct {
	Tier      model.Tier `json:"tier"`
	MonthYear string     `json:"month_year"`
	Used      int        `json:"used"`
	Limit     int        `json:"limit"`
	Remaining *int       `json:"remaining,omitempty"`
}

// MessagingService enforces the subscription-gated messaging policy: who may
// message whom, how many new conversations a standard member may start per
// month, and how read state is derived from the message log.
type MessagingService interface {
	// CanSendMessage evaluates the admission policy for a prospective message.
	// Advisory only: it reserves nothing. SendMessage re-validates.
	CanSendMessage(ctx context.Context, senderID, receiverID string, tier model.Tier) (model.AdmissionDecision, error)
	// SendMessage re-validates admission, persists the message, and meters the
	// send when it opens a new conversation on the standard tier.
	SendMessage(ctx context.Context, senderID, receiverID, content string) (*model.Message, error)
	// OpenConversation marks all messages from otherUserID to viewerID as read
	// and returns the conversation. Safe to call repeatedly.
	OpenConversation(ctx context.Context, viewerID, otherUserID string) (*ConversationView, error)
	ListConversations(ctx context.Context, userID string) ([]model.ConversationSummary, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	QuotaStatus(ctx context.Context, userID string) (*QuotaStatus, error)
}

type messagingService struct {
	messageRepo repository.MessageRepository
	usageRepo   repository.UsageRepository
	subSvc      SubscriptionService
	publisher   pubsub.Publisher
	topic       string
	limit       int
	now         func() time.Time
	logger      zerolog.Logger
}

// NewMessagingService creates a new MessagingService. publisher may be nil,
// in which case message.sent events are not emitted.
func NewMessagingService(
	messageRepo repository.MessageRepository,
	usageRepo repository.UsageRepository,
	subSvc SubscriptionService,
	publisher pubsub.Publisher,
	topic string,
	monthlyLimit int,
	logger zerolog.Logger,
) MessagingService {
	return &messagingService{
		messageRepo: messageRepo,
		usageRepo:   usageRepo,
		subSvc:      subSvc,
		publisher:   publisher,
		topic:       topic,
		limit:       monthlyLimit,
		now:         time.Now,
		logger:      logger.With().Str("service", "MessagingService").Logger(),
	}
}

// monthKey returns the "YYYY-MM" usage bucket for t. Pinned to UTC so the
// month boundary does not depend on the deployment timezone.
func monthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

func (s *messagingService) quotaReason() string {
	return fmt.Sprintf("You've reached your monthly limit of %d initial contact messages. Upgrade to VIP for unlimited messaging.", s.limit)
}

func (s *messagingService) CanSendMessage(ctx context.Context, senderID, receiverID string, tier model.Tier) (model.AdmissionDecision, error) {
	switch tier {
	case model.TierVIP:
		return model.AdmissionDecision{CanSend: true}, nil

	case model.TierNone:
		return model.AdmissionDecision{CanSend: false, Reason: subscriptionRequiredReason}, nil

	case model.TierStandard:
		exists, err := s.messageRepo.HasConversation(ctx, senderID, receiverID)
		if err != nil {
			return model.AdmissionDecision{}, err
		}
		// Continuing an existing thread never counts against the quota,
		// regardless of who started it.
		if exists {
			return model.AdmissionDecision{CanSend: true}, nil
		}

		count, err := s.usageRepo.GetMonthlyUsage(ctx, senderID, monthKey(s.now()))
		if err != nil {
			return model.AdmissionDecision{}, err
		}
		if count >= s.limit {
			zero := 0
			return model.AdmissionDecision{CanSend: false, Reason: s.quotaReason(), Remaining: &zero}, nil
		}
		remaining := s.limit - count
		return model.AdmissionDecision{CanSend: true, Remaining: &remaining}, nil
	}

	return model.AdmissionDecision{}, fmt.Errorf("unknown subscription tier: %q", tier)
}

func (s *messagingService) SendMessage(ctx context.Context, senderID, receiverID, content string) (*model.Message, error) {
	if senderID == receiverID {
		return nil, ErrSelfMessage
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	// Never trust a prior admission check from a different request.
	info, err := s.subSvc.ResolveTier(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("resolving tier for sender %s: %w", senderID, err)
	}

	var (
		msg     *model.Message
		metered bool
	)
	switch info.Tier {
	case model.TierNone:
		metrics.MessagesRejected.WithLabelValues("subscription_required").Inc()
		return nil, ErrSubscriptionRequired

	case model.TierVIP:
		msg, err = s.messageRepo.CreateMessage(ctx, senderID, receiverID, content)
		if err != nil {
			s.logger.Error().Err(err).Str("sender_id", senderID).Msg("Failed to create message")
			return nil, err
		}

	case model.TierStandard:
		msg, metered, err = s.messageRepo.CreateMetered(ctx, senderID, receiverID, content, monthKey(s.now()), s.limit)
		if err != nil {
			if errors.Is(err, repository.ErrMessageLimitExceeded) {
				metrics.MessagesRejected.WithLabelValues("quota_exceeded").Inc()
				return nil, ErrQuotaExceeded
			}
			s.logger.Error().Err(err).Str("sender_id", senderID).Msg("Failed to create metered message")
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown subscription tier: %q", info.Tier)
	}

	metrics.MessagesSent.WithLabelValues(string(info.Tier), strconv.FormatBool(metered)).Inc()
	s.publishSent(msg)
	return msg, nil
}

// publishSent emits the message.sent event for notification fan-out.
// Fire-and-forget: failures are logged and never surfaced to the sender.
func (s *messagingService) publishSent(msg *model.Message) {
	if s.publisher == nil {
		return
	}
	event := model.MessageSentEvent{
		MessageID:      msg.ID,
		SenderID:       msg.SenderID,
		ReceiverID:     msg.ReceiverID,
		MessagePreview: util.Truncate(msg.Content, previewLength),
		SentAt:         msg.CreatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to marshal message.sent event")
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := s.publisher.Publish(ctx, s.topic, payload); err != nil {
			metrics.NotificationEventsPublished.WithLabelValues("error").Inc()
			s.logger.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to publish message.sent event")
			return
		}
		metrics.NotificationEventsPublished.WithLabelValues("ok").Inc()
	}()
}

func (s *messagingService) OpenConversation(ctx context.Context, viewerID, otherUserID string) (*ConversationView, error) {
	if _, err := s.messageRepo.MarkConversationRead(ctx, viewerID, otherUserID); err != nil {
		s.logger.Error().Err(err).Str("viewer_id", viewerID).Msg("Failed to mark conversation read")
		return nil, err
	}

	messages, err := s.messageRepo.ListConversationMessages(ctx, viewerID, otherUserID)
	if err != nil {
		return nil, err
	}
	unread, err := s.messageRepo.CountUnread(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return &ConversationView{Messages: messages, UnreadTotal: unread}, nil
}

func (s *messagingService) ListConversations(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	summaries, err := s.messageRepo.ListConversations(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list conversations")
		return nil, err
	}
	return summaries, nil
}

func (s *messagingService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.messageRepo.CountUnread(ctx, userID)
}

func (s *messagingService) QuotaStatus(ctx context.Context, userID string) (*QuotaStatus, error) {
	info, err := s.subSvc.ResolveTier(ctx, userID)
	if err != nil {
		return nil, err
	}

	month := monthKey(s.now())
	used, err := s.usageRepo.GetMonthlyUsage(ctx, userID, month)
	if err != nil {
		return nil, err
	}

	status := &QuotaStatus{
		Tier:      info.Tier,
		MonthYear: month,
		Used:      used,
		Limit:     s.limit,
	}
	if info.Tier == model.TierStandard || info.Tier == model.TierNone {
		remaining := s.limit - used
		if remaining < 0 {
			remaining = 0
		}
		status.Remaining = &remaining
	}
	return status, nil
}
