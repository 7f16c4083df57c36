package model

import "time"

// Message is a direct message between two members. Rows are append-only;
// ReadStatus is the only mutable field and flips false→true exactly once,
// when the receiver opens the conversation.
type Message struct {
	ID         string    `db:"id" json:"id"`
	SenderID   string    `db:"sender_id" json:"sender_id"`
	ReceiverID string    `db:"receiver_id" json:"receiver_id"`
	Content    string    `db:"content" json:"content"`
	ReadStatus bool      `db:"read_status" json:"read_status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// MessageUsage is the per-user, per-calendar-month counter of first-contact
// sends. MonthYear is a "YYYY-MM" key derived from UTC wall-clock time at send
// time. The count only ever increments; rows are kept as a historical record.
type MessageUsage struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	MonthYear    string    `db:"month_year" json:"month_year"`
	MessageCount int       `db:"message_count" json:"message_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ConversationSummary is one row of a member's inbox: the peer, the most
// recent message and how many messages from that peer are still unread.
// Conversations are derived from the message log, never stored.
type ConversationSummary struct {
	PeerID          string    `json:"peer_id"`
	PeerDisplayName *string   `json:"peer_display_name"`
	PeerAvatarURL   *string   `json:"peer_avatar_url"`
	LastMessage     string    `json:"last_message"`
	LastMessageAt   time.Time `json:"last_message_at"`
	UnreadCount     int       `json:"unread_count"`
}

// AdmissionDecision is the outcome of the message admission policy. Rejections
// are expected, user-facing results, not errors. Remaining is nil when the
// sender is not metered (VIP, or an existing conversation).
type AdmissionDecision struct {
	CanSend   bool   `json:"can_send"`
	Reason    string `json:"reason,omitempty"`
	Remaining *int   `json:"remaining,omitempty"`
}
