package dto

import "time"

// MessageSendDTO is used for incoming send requests.
type MessageSendDTO struct {
	ReceiverID string `json:"receiver_id" validate:"required"`
	Content    string `json:"content" validate:"required"`
}

// MessageResponseDTO is returned for a single message.
type MessageResponseDTO struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	ReadStatus bool      `json:"read_status"`
	CreatedAt  time.Time `json:"created_at"`
}

// ConversationSummaryDTO is one row in the conversation list.
type ConversationSummaryDTO struct {
	PeerID          string    `json:"peer_id"`
	PeerDisplayName *string   `json:"peer_display_name"`
	PeerAvatarURL   *string   `json:"peer_avatar_url"`
	LastMessage     string    `json:"last_message"`
	LastMessageAt   time.Time `json:"last_message_at"`
	UnreadCount     int       `json:"unread_count"`
}

// ConversationViewDTO is the full conversation plus the viewer's recomputed
// total unread count after the open.
type ConversationViewDTO struct {
	Messages    []MessageResponseDTO `json:"messages"`
	UnreadTotal int                  `json:"unread_total"`
}

// AdmissionResponseDTO is the advisory pre-check result.
type AdmissionResponseDTO struct {
	CanSend   bool   `json:"can_send"`
	Reason    string `json:"reason,omitempty"`
	Remaining *int   `json:"remaining,omitempty"`
}

// QuotaResponseDTO reports the member's first-contact allowance for the
// current month. Remaining is omitted for VIP members.
type QuotaResponseDTO struct {
	Tier      string `json:"tier"`
	MonthYear string `json:"month_year"`
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	Remaining *int   `json:"remaining,omitempty"`
}
