package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory stand-in for the message and usage repositories.
// CreateMetered mirrors the production semantics: the existence re-check, the
// capped increment and the insert happen under one lock, all-or-nothing.
type memStore struct {
	mu       sync.Mutex
	messages []model.Message
	usage    map[string]int
	nextID   int

	failHasConversation error
	failUsageRead       error
	failCreate          error
}

func newMemStore() *memStore {
	return &memStore{usage: make(map[string]int)}
}

func usageKey(userID, monthYear string) string {
	return userID + "|" + monthYear
}

func (s *memStore) insertLocked(senderID, receiverID, content string) model.Message {
	s.nextID++
	m := model.Message{
		ID:         strconv.Itoa(s.nextID),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  time.Now(),
	}
	s.messages = append(s.messages, m)
	return m
}

func (s *memStore) hasConversationLocked(a, b string) bool {
	for _, m := range s.messages {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			return true
		}
	}
	return false
}

func (s *memStore) CreateMessage(_ context.Context, senderID, receiverID, content string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return nil, s.failCreate
	}
	m := s.insertLocked(senderID, receiverID, content)
	return &m, nil
}

func (s *memStore) CreateMetered(_ context.Context, senderID, receiverID, content, monthYear string, limit int) (*model.Message, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return nil, false, s.failCreate
	}
	metered := !s.hasConversationLocked(senderID, receiverID)
	if metered {
		key := usageKey(senderID, monthYear)
		if s.usage[key] >= limit {
			return nil, false, repository.ErrMessageLimitExceeded
		}
		s.usage[key]++
	}
	m := s.insertLocked(senderID, receiverID, content)
	return &m, metered, nil
}

func (s *memStore) HasConversation(_ context.Context, userA, userB string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failHasConversation != nil {
		return false, s.failHasConversation
	}
	return s.hasConversationLocked(userA, userB), nil
}

func (s *memStore) ListConversationMessages(_ context.Context, userID, otherUserID string) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Message
	for _, m := range s.messages {
		if (m.SenderID == userID && m.ReceiverID == otherUserID) || (m.SenderID == otherUserID && m.ReceiverID == userID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) MarkConversationRead(_ context.Context, viewerID, otherUserID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.messages {
		m := &s.messages[i]
		if m.ReceiverID == viewerID && m.SenderID == otherUserID && !m.ReadStatus {
			m.ReadStatus = true
			n++
		}
	}
	return n, nil
}

func (s *memStore) CountUnread(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for _, m := range s.messages {
		if m.ReceiverID == userID && !m.ReadStatus {
			n++
		}
	}
	return n, nil
}

func (s *memStore) ListConversations(_ context.Context, userID string) ([]model.ConversationSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	latest := make(map[string]model.Message)
	for _, m := range s.messages {
		var peer string
		switch {
		case m.SenderID == userID:
			peer = m.ReceiverID
		case m.ReceiverID == userID:
			peer = m.SenderID
		default:
			continue
		}
		latest[peer] = m
	}
	var out []model.ConversationSummary
	for peer, m := range latest {
		out = append(out, model.ConversationSummary{PeerID: peer, LastMessage: m.Content, LastMessageAt: m.CreatedAt})
	}
	return out, nil
}

func (s *memStore) GetMonthlyUsage(_ context.Context, userID, monthYear string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUsageRead != nil {
		return 0, s.failUsageRead
	}
	return s.usage[usageKey(userID, monthYear)], nil
}

// stubSubService returns a fixed tier per user.
type stubSubService struct {
	tiers map[string]model.Tier
	err   error
}

func (s *stubSubService) ResolveTier(_ context.Context, userID string) (model.TierInfo, error) {
	if s.err != nil {
		return model.TierInfo{}, s.err
	}
	tier, ok := s.tiers[userID]
	if !ok {
		tier = model.TierNone
	}
	return model.TierInfo{Tier: tier, Status: model.StatusActive}, nil
}

func (s *stubSubService) GetSubscription(context.Context, string) (*model.Subscription, error) {
	return nil, nil
}
func (s *stubSubService) InitSubscription(context.Context, string) error { return nil }
func (s *stubSubService) ApplyCheckout(context.Context, string, model.Tier, string, string, time.Time) error {
	return nil
}
func (s *stubSubService) UpdateStatus(context.Context, string, model.SubscriptionStatus) error {
	return nil
}
func (s *stubSubService) Downgrade(context.Context, string) error { return nil }
func (s *stubSubService) ResolveUserByStripeCustomer(context.Context, string) (string, error) {
	return "", nil
}

// chanPublisher records publishes on a channel so async emission can be awaited.
type chanPublisher struct {
	published chan []byte
}

func (p *chanPublisher) Publish(_ context.Context, _ string, payload []byte) (string, error) {
	p.published <- payload
	return "msg-id", nil
}

const testLimit = 30

func newTestService(store *memStore, subs *stubSubService) *messagingService {
	svc := NewMessagingService(store, store, subs, nil, "message-sent", testLimit, zerolog.Nop())
	return svc.(*messagingService)
}

func TestCanSendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("vip always allowed", func(t *testing.T) {
		store := newMemStore()
		// VIP is exempt even when the counter is far past the cap.
		store.usage[usageKey("vip-user", monthKey(time.Now()))] = 999
		svc := newTestService(store, &stubSubService{})

		d, err := svc.CanSendMessage(ctx, "vip-user", "peer", model.TierVIP)
		require.NoError(t, err)
		assert.True(t, d.CanSend)
		assert.Empty(t, d.Reason)
		assert.Nil(t, d.Remaining)
	})

	t.Run("no subscription rejected", func(t *testing.T) {
		svc := newTestService(newMemStore(), &stubSubService{})

		d, err := svc.CanSendMessage(ctx, "free-user", "peer", model.TierNone)
		require.NoError(t, err)
		assert.False(t, d.CanSend)
		assert.Equal(t, "You need an active subscription to send messages.", d.Reason)
	})

	t.Run("standard existing conversation exempt", func(t *testing.T) {
		store := newMemStore()
		// Peer initiated the conversation; replying is free even at the cap.
		store.messages = append(store.messages, model.Message{SenderID: "peer", ReceiverID: "std-user"})
		store.usage[usageKey("std-user", monthKey(time.Now()))] = testLimit
		svc := newTestService(store, &stubSubService{})

		d, err := svc.CanSendMessage(ctx, "std-user", "peer", model.TierStandard)
		require.NoError(t, err)
		assert.True(t, d.CanSend)
		assert.Nil(t, d.Remaining)
	})

	t.Run("standard new conversation under cap", func(t *testing.T) {
		store := newMemStore()
		store.usage[usageKey("std-user", monthKey(time.Now()))] = 10
		svc := newTestService(store, &stubSubService{})

		d, err := svc.CanSendMessage(ctx, "std-user", "stranger", model.TierStandard)
		require.NoError(t, err)
		assert.True(t, d.CanSend)
		require.NotNil(t, d.Remaining)
		assert.Equal(t, 20, *d.Remaining)
	})

	t.Run("standard new conversation at cap rejected", func(t *testing.T) {
		store := newMemStore()
		store.usage[usageKey("std-user", monthKey(time.Now()))] = testLimit
		svc := newTestService(store, &stubSubService{})

		d, err := svc.CanSendMessage(ctx, "std-user", "stranger", model.TierStandard)
		require.NoError(t, err)
		assert.False(t, d.CanSend)
		assert.Equal(t, "You've reached your monthly limit of 30 initial contact messages. Upgrade to VIP for unlimited messaging.", d.Reason)
		require.NotNil(t, d.Remaining)
		assert.Equal(t, 0, *d.Remaining)
	})

	t.Run("unknown tier is an error", func(t *testing.T) {
		svc := newTestService(newMemStore(), &stubSubService{})

		_, err := svc.CanSendMessage(ctx, "user", "peer", model.Tier("gold"))
		assert.Error(t, err)
	})

	t.Run("fails closed on store error", func(t *testing.T) {
		store := newMemStore()
		store.failHasConversation = errors.New("connection refused")
		svc := newTestService(store, &stubSubService{})

		_, err := svc.CanSendMessage(ctx, "std-user", "peer", model.TierStandard)
		assert.Error(t, err)
	})
}

func TestSendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects self messaging", func(t *testing.T) {
		svc := newTestService(newMemStore(), &stubSubService{tiers: map[string]model.Tier{"u": model.TierVIP}})
		_, err := svc.SendMessage(ctx, "u", "u", "hi")
		assert.ErrorIs(t, err, ErrSelfMessage)
	})

	t.Run("rejects empty content", func(t *testing.T) {
		svc := newTestService(newMemStore(), &stubSubService{tiers: map[string]model.Tier{"u": model.TierVIP}})
		_, err := svc.SendMessage(ctx, "u", "peer", "   ")
		assert.ErrorIs(t, err, ErrEmptyMessage)
	})

	t.Run("no subscription cannot send", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(store, &stubSubService{})

		_, err := svc.SendMessage(ctx, "free-user", "peer", "hello")
		assert.ErrorIs(t, err, ErrSubscriptionRequired)
		assert.Empty(t, store.messages)
	})

	t.Run("vip send is never metered", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(store, &stubSubService{tiers: map[string]model.Tier{"vip-user": model.TierVIP}})

		for i := 0; i < testLimit+5; i++ {
			_, err := svc.SendMessage(ctx, "vip-user", fmt.Sprintf("peer-%d", i), "hello")
			require.NoError(t, err)
		}
		assert.Empty(t, store.usage)
	})

	t.Run("standard first contact consumes quota", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(store, &stubSubService{tiers: map[string]model.Tier{"std-user": model.TierStandard}})

		msg, err := svc.SendMessage(ctx, "std-user", "stranger", "hello")
		require.NoError(t, err)
		assert.Equal(t, "std-user", msg.SenderID)
		assert.False(t, msg.ReadStatus)
		assert.Equal(t, 1, store.usage[usageKey("std-user", monthKey(time.Now()))])
	})

	t.Run("standard reply does not consume quota", func(t *testing.T) {
		store := newMemStore()
		store.messages = append(store.messages, model.Message{SenderID: "peer", ReceiverID: "std-user"})
		svc := newTestService(store, &stubSubService{tiers: map[string]model.Tier{"std-user": model.TierStandard}})

		_, err := svc.SendMessage(ctx, "std-user", "peer", "replying")
		require.NoError(t, err)
		assert.Empty(t, store.usage)
	})

	t.Run("cap reached rejects and persists nothing", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(store, &stubSubService{tiers: map[string]model.Tier{"std-user": model.TierStandard}})

		for i := 0; i < testLimit; i++ {
			_, err := svc.SendMessage(ctx, "std-user", fmt.Sprintf("peer-%d", i), "hello")
			require.NoError(t, err)
		}

		_, err := svc.SendMessage(ctx, "std-user", "one-too-many", "hello")
		assert.ErrorIs(t, err, ErrQuotaExceeded)
		assert.Len(t, store.messages, testLimit)

		// Replies within existing conversations still go through.
		_, err = svc.SendMessage(ctx, "std-user", "peer-0", "following up")
		assert.NoError(t, err)
	})

	t.Run("quota resets on month rollover", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(store, &stubSubService{tiers: map[string]model.Tier{"std-user": model.TierStandard}})

		now := time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC)
		svc.now = func() time.Time { return now }

		store.usage[usageKey("std-user", "2026-01")] = testLimit
		_, err := svc.SendMessage(ctx, "std-user", "stranger", "hello")
		assert.ErrorIs(t, err, ErrQuotaExceeded)

		now = now.Add(2 * time.Hour) // crosses into 2026-02 in UTC
		_, err = svc.SendMessage(ctx, "std-user", "stranger", "hello")
		require.NoError(t, err)
		assert.Equal(t, 1, store.usage[usageKey("std-user", "2026-02")])
	})

	t.Run("tier resolved fresh at send time", func(t *testing.T) {
		store := newMemStore()
		subs := &stubSubService{tiers: map[string]model.Tier{"u": model.TierStandard}}
		svc := newTestService(store, subs)

		d, err := svc.CanSendMessage(ctx, "u", "peer", model.TierStandard)
		require.NoError(t, err)
		assert.True(t, d.CanSend)

		// Subscription lapses between the pre-check and the send.
		subs.tiers["u"] = model.TierNone
		_, err = svc.SendMessage(ctx, "u", "peer", "hello")
		assert.ErrorIs(t, err, ErrSubscriptionRequired)
	})

	t.Run("fails closed when tier resolution errors", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(store, &stubSubService{err: errors.New("db down")})

		_, err := svc.SendMessage(ctx, "u", "peer", "hello")
		assert.Error(t, err)
		assert.Empty(t, store.messages)
	})

	t.Run("concurrent first contacts never exceed the cap", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(store, &stubSubService{tiers: map[string]model.Tier{"std-user": model.TierStandard}})

		var wg sync.WaitGroup
		errs := make(chan error, testLimit*2)
		for i := 0; i < testLimit*2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := svc.SendMessage(ctx, "std-user", fmt.Sprintf("peer-%d", i), "hello")
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)

		var ok, rejected int
		for err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrQuotaExceeded):
				rejected++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, testLimit, ok)
		assert.Equal(t, testLimit, rejected)
		assert.Equal(t, testLimit, store.usage[usageKey("std-user", monthKey(time.Now()))])
	})

	t.Run("publishes message.sent event", func(t *testing.T) {
		store := newMemStore()
		pub := &chanPublisher{published: make(chan []byte, 1)}
		svc := NewMessagingService(store, store, &stubSubService{tiers: map[string]model.Tier{"vip-user": model.TierVIP}}, pub, "message-sent", testLimit, zerolog.Nop()).(*messagingService)

		_, err := svc.SendMessage(ctx, "vip-user", "peer", "hello there")
		require.NoError(t, err)

		select {
		case payload := <-pub.published:
			assert.Contains(t, string(payload), `"sender_id":"vip-user"`)
		case <-time.After(2 * time.Second):
			t.Fatal("expected a message.sent event")
		}
	})
}

func TestOpenConversation(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(store, &stubSubService{tiers: map[string]model.Tier{"alice": model.TierVIP, "bob": model.TierVIP, "carol": model.TierVIP}})

	for i := 0; i < 3; i++ {
		_, err := svc.SendMessage(ctx, "alice", "bob", "hi bob")
		require.NoError(t, err)
	}
	_, err := svc.SendMessage(ctx, "carol", "bob", "hi from carol")
	require.NoError(t, err)

	unread, err := svc.UnreadCount(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 4, unread)

	view, err := svc.OpenConversation(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Len(t, view.Messages, 3)
	for _, m := range view.Messages {
		assert.True(t, m.ReadStatus)
	}
	// Carol's message is untouched.
	assert.Equal(t, 1, view.UnreadTotal)

	// Opening again is a no-op.
	view, err = svc.OpenConversation(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, view.UnreadTotal)
}

func TestQuotaStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("standard reports remaining", func(t *testing.T) {
		store := newMemStore()
		store.usage[usageKey("std-user", monthKey(time.Now()))] = 12
		svc := newTestService(store, &stubSubService{tiers: map[string]model.Tier{"std-user": model.TierStandard}})

		status, err := svc.QuotaStatus(ctx, "std-user")
		require.NoError(t, err)
		assert.Equal(t, model.TierStandard, status.Tier)
		assert.Equal(t, 12, status.Used)
		assert.Equal(t, testLimit, status.Limit)
		require.NotNil(t, status.Remaining)
		assert.Equal(t, 18, *status.Remaining)
	})

	t.Run("vip has no remaining figure", func(t *testing.T) {
		svc := newTestService(newMemStore(), &stubSubService{tiers: map[string]model.Tier{"vip-user": model.TierVIP}})

		status, err := svc.QuotaStatus(ctx, "vip-user")
		require.NoError(t, err)
		assert.Nil(t, status.Remaining)
	})
}

func TestMonthKey(t *testing.T) {
	// The bucket is pinned to UTC: a local time before midnight on the last
	// day of the month can already belong to the next UTC month.
	loc := time.FixedZone("UTC-8", -8*60*60)
	assert.Equal(t, "2026-02", monthKey(time.Date(2026, 1, 31, 18, 0, 0, 0, loc)))
	assert.Equal(t, "2026-01", monthKey(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)))
}
