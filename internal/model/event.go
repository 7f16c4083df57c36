package model

import "time"

// MessageSentEvent is published after a message is persisted so the notifier
// can email the recipient. Delivery is fire-and-forget; losing an event never
// affects the message itself.
type MessageSentEvent struct {
	MessageID      string    `json:"message_id"`
	SenderID       string    `json:"sender_id"`
	ReceiverID     string    `json:"receiver_id"`
	MessagePreview string    `json:"message_preview"`
	SentAt         time.Time `json:"sent_at"`
}
