package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// MessageHandler handles messaging endpoints: sending, the advisory admission
// pre-check, conversation listing and opening, and the monthly quota view.
type MessageHandler struct {
	messagingSvc service.MessagingService
	subSvc       service.SubscriptionService
	validate     *validator.Validate
	logger       zerolog.Logger
}

func NewMessageHandler(messagingSvc service.MessagingService, subSvc service.SubscriptionService, v *validator.Validate, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{messagingSvc: messagingSvc, subSvc: subSvc, validate: v, logger: logger}
}

// RegisterRoutes mounts v1 messaging routes
func (h *MessageHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/messages", authMw(http.HandlerFunc(h.sendMessage)))
	mux.Handle("/messages/admission", authMw(http.HandlerFunc(h.checkAdmission)))
	mux.Handle("/messages/quota", authMw(http.HandlerFunc(h.getQuota)))
	mux.Handle("/messages/unread", authMw(http.HandlerFunc(h.getUnreadCount)))
	mux.Handle("/conversations", authMw(http.HandlerFunc(h.listConversations)))
	mux.Handle("/conversations/", authMw(http.HandlerFunc(h.openConversation)))
}

func toMessageDTO(m model.Message) dto.MessageResponseDTO {
	return dto.MessageResponseDTO{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		ReadStatus: m.ReadStatus,
		CreatedAt:  m.CreatedAt,
	}
}

// sendMessage godoc
// @Summary Send a message
// @Description Sends a message to another member, subject to the subscription admission policy.
// @Tags messages
// @Accept json
// @Produce json
// @Param message body dto.MessageSendDTO true "Message to send"
// @Success 201 {object} dto.MessageResponseDTO
// @Failure 400 {string} string "invalid request payload"
// @Failure 401 {string} string "unauthorized"
// @Failure 402 {string} string "subscription required"
// @Failure 429 {string} string "monthly message limit reached"
// @Router /messages [post]
func (h *MessageHandler) sendMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	senderID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || senderID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.MessageSendDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	msg, err := h.messagingSvc.SendMessage(r.Context(), senderID, req.ReceiverID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSubscriptionRequired):
			http.Error(w, err.Error(), http.StatusPaymentRequired)
		case errors.Is(err, service.ErrQuotaExceeded):
			http.Error(w, err.Error(), http.StatusTooManyRequests)
		case errors.Is(err, service.ErrSelfMessage), errors.Is(err, service.ErrEmptyMessage):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error().Err(err).Str("sender_id", senderID).Msg("failed to send message")
			http.Error(w, "Failed to send message", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toMessageDTO(*msg))
}

// checkAdmission godoc
// @Summary Pre-check whether a message would be admitted
// @Description Advisory only: evaluates the admission policy without reserving quota.
// @Tags messages
// @Produce json
// @Param receiver_id query string true "Receiver user ID"
// @Success 200 {object} dto.AdmissionResponseDTO
// @Failure 400 {string} string "receiver_id is required"
// @Failure 401 {string} string "unauthorized"
// @Router /messages/admission [get]
func (h *MessageHandler) checkAdmission(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	senderID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || senderID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	receiverID := r.URL.Query().Get("receiver_id")
	if receiverID == "" {
		http.Error(w, "receiver_id is required", http.StatusBadRequest)
		return
	}

	info, err := h.subSvc.ResolveTier(r.Context(), senderID)
	if err != nil {
		http.Error(w, "Failed to resolve subscription", http.StatusInternalServerError)
		return
	}
	decision, err := h.messagingSvc.CanSendMessage(r.Context(), senderID, receiverID, info.Tier)
	if err != nil {
		h.logger.Error().Err(err).Str("sender_id", senderID).Msg("failed to evaluate admission")
		http.Error(w, "Failed to evaluate admission", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.AdmissionResponseDTO{
		CanSend:   decision.CanSend,
		Reason:    decision.Reason,
		Remaining: decision.Remaining,
	})
}

func (h *MessageHandler) getQuota(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	status, err := h.messagingSvc.QuotaStatus(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to fetch quota status")
		http.Error(w, "Failed to retrieve quota", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.QuotaResponseDTO{
		Tier:      string(status.Tier),
		MonthYear: status.MonthYear,
		Used:      status.Used,
		Limit:     status.Limit,
		Remaining: status.Remaining,
	})
}

func (h *MessageHandler) getUnreadCount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	count, err := h.messagingSvc.UnreadCount(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to retrieve unread count", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"unread": count})
}

func (h *MessageHandler) listConversations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	summaries, err := h.messagingSvc.ListConversations(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to retrieve conversations: "+err.Error(), http.StatusInternalServerError)
		return
	}

	var summaryDTOs []dto.ConversationSummaryDTO
	for _, s := range summaries {
		summaryDTOs = append(summaryDTOs, dto.ConversationSummaryDTO{
			PeerID:          s.PeerID,
			PeerDisplayName: s.PeerDisplayName,
			PeerAvatarURL:   s.PeerAvatarURL,
			LastMessage:     s.LastMessage,
			LastMessageAt:   s.LastMessageAt,
			UnreadCount:     s.UnreadCount,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summaryDTOs)
}

// openConversation marks the thread as read and returns it in full.
func (h *MessageHandler) openConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	peerID := strings.TrimPrefix(r.URL.Path, "/conversations/")
	if peerID == "" || strings.Contains(peerID, "/") {
		http.NotFound(w, r)
		return
	}

	view, err := h.messagingSvc.OpenConversation(r.Context(), userID, peerID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Str("peer_id", peerID).Msg("failed to open conversation")
		http.Error(w, "Failed to open conversation", http.StatusInternalServerError)
		return
	}

	resp := dto.ConversationViewDTO{UnreadTotal: view.UnreadTotal}
	for _, m := range view.Messages {
		resp.Messages = append(resp.Messages, toMessageDTO(m))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
