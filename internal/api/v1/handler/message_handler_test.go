package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMessagingService struct {
	sendErr  error
	sent     *model.Message
	decision model.AdmissionDecision
	quota    *service.QuotaStatus
}

func (s *stubMessagingService) CanSendMessage(context.Context, string, string, model.Tier) (model.AdmissionDecision, error) {
	return s.decision, nil
}

func (s *stubMessagingService) SendMessage(_ context.Context, senderID, receiverID, content string) (*model.Message, error) {
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	s.sent = &model.Message{ID: "m1", SenderID: senderID, ReceiverID: receiverID, Content: content, CreatedAt: time.Now()}
	return s.sent, nil
}

func (s *stubMessagingService) OpenConversation(context.Context, string, string) (*service.ConversationView, error) {
	return &service.ConversationView{}, nil
}

func (s *stubMessagingService) ListConversations(context.Context, string) ([]model.ConversationSummary, error) {
	return nil, nil
}

func (s *stubMessagingService) UnreadCount(context.Context, string) (int, error) { return 0, nil }

func (s *stubMessagingService) QuotaStatus(context.Context, string) (*service.QuotaStatus, error) {
	return s.quota, nil
}

type stubTierResolver struct {
	tier model.Tier
}

func (s *stubTierResolver) ResolveTier(context.Context, string) (model.TierInfo, error) {
	return model.TierInfo{Tier: s.tier, Status: model.StatusActive}, nil
}
func (s *stubTierResolver) GetSubscription(context.Context, string) (*model.Subscription, error) {
	return nil, nil
}
func (s *stubTierResolver) InitSubscription(context.Context, string) error { return nil }
func (s *stubTierResolver) ApplyCheckout(context.Context, string, model.Tier, string, string, time.Time) error {
	return nil
}
func (s *stubTierResolver) UpdateStatus(context.Context, string, model.SubscriptionStatus) error {
	return nil
}
func (s *stubTierResolver) Downgrade(context.Context, string) error { return nil }
func (s *stubTierResolver) ResolveUserByStripeCustomer(context.Context, string) (string, error) {
	return "", nil
}

func authedRequest(method, target, body, userID string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.UserContextKey, userID)
	return req.WithContext(ctx)
}

func newMessageTestHandler(svc *stubMessagingService, tier model.Tier) *MessageHandler {
	v := validator.New(validator.WithRequiredStructEnabled())
	return NewMessageHandler(svc, &stubTierResolver{tier: tier}, v, zerolog.Nop())
}

func TestSendMessageEndpoint(t *testing.T) {
	t.Run("created on success", func(t *testing.T) {
		svc := &stubMessagingService{}
		h := newMessageTestHandler(svc, model.TierVIP)

		req := authedRequest(http.MethodPost, "/messages", `{"receiver_id":"peer","content":"hello"}`, "user-1")
		rec := httptest.NewRecorder()
		h.sendMessage(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp dto.MessageResponseDTO
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "user-1", resp.SenderID)
		assert.Equal(t, "peer", resp.ReceiverID)
	})

	t.Run("subscription required maps to 402", func(t *testing.T) {
		svc := &stubMessagingService{sendErr: service.ErrSubscriptionRequired}
		h := newMessageTestHandler(svc, model.TierNone)

		req := authedRequest(http.MethodPost, "/messages", `{"receiver_id":"peer","content":"hello"}`, "user-1")
		rec := httptest.NewRecorder()
		h.sendMessage(rec, req)

		assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	})

	t.Run("quota exceeded maps to 429", func(t *testing.T) {
		svc := &stubMessagingService{sendErr: service.ErrQuotaExceeded}
		h := newMessageTestHandler(svc, model.TierStandard)

		req := authedRequest(http.MethodPost, "/messages", `{"receiver_id":"peer","content":"hello"}`, "user-1")
		rec := httptest.NewRecorder()
		h.sendMessage(rec, req)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})

	t.Run("self message maps to 400", func(t *testing.T) {
		svc := &stubMessagingService{sendErr: service.ErrSelfMessage}
		h := newMessageTestHandler(svc, model.TierVIP)

		req := authedRequest(http.MethodPost, "/messages", `{"receiver_id":"user-1","content":"hello"}`, "user-1")
		rec := httptest.NewRecorder()
		h.sendMessage(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing fields rejected by validation", func(t *testing.T) {
		svc := &stubMessagingService{}
		h := newMessageTestHandler(svc, model.TierVIP)

		req := authedRequest(http.MethodPost, "/messages", `{"receiver_id":"peer"}`, "user-1")
		rec := httptest.NewRecorder()
		h.sendMessage(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Nil(t, svc.sent)
	})

	t.Run("unauthenticated rejected", func(t *testing.T) {
		svc := &stubMessagingService{}
		h := newMessageTestHandler(svc, model.TierVIP)

		req := httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(`{"receiver_id":"peer","content":"hi"}`))
		rec := httptest.NewRecorder()
		h.sendMessage(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestCheckAdmissionEndpoint(t *testing.T) {
	t.Run("returns the decision", func(t *testing.T) {
		remaining := 5
		svc := &stubMessagingService{decision: model.AdmissionDecision{CanSend: true, Remaining: &remaining}}
		h := newMessageTestHandler(svc, model.TierStandard)

		req := authedRequest(http.MethodGet, "/messages/admission?receiver_id=peer", "", "user-1")
		rec := httptest.NewRecorder()
		h.checkAdmission(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.AdmissionResponseDTO
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.CanSend)
		require.NotNil(t, resp.Remaining)
		assert.Equal(t, 5, *resp.Remaining)
	})

	t.Run("requires receiver_id", func(t *testing.T) {
		svc := &stubMessagingService{}
		h := newMessageTestHandler(svc, model.TierStandard)

		req := authedRequest(http.MethodGet, "/messages/admission", "", "user-1")
		rec := httptest.NewRecorder()
		h.checkAdmission(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetQuotaEndpoint(t *testing.T) {
	remaining := 18
	svc := &stubMessagingService{quota: &service.QuotaStatus{
		Tier:      model.TierStandard,
		MonthYear: "2026-08",
		Used:      12,
		Limit:     30,
		Remaining: &remaining,
	}}
	h := newMessageTestHandler(svc, model.TierStandard)

	req := authedRequest(http.MethodGet, "/messages/quota", "", "user-1")
	rec := httptest.NewRecorder()
	h.getQuota(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.QuotaResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "standard", resp.Tier)
	assert.Equal(t, "2026-08", resp.MonthYear)
	assert.Equal(t, 12, resp.Used)
	require.NotNil(t, resp.Remaining)
	assert.Equal(t, 18, *resp.Remaining)
}
