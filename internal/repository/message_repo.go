package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrMessageLimitExceeded is returned when a metered send would push the
// sender past their monthly first-contact cap.
var ErrMessageLimitExceeded = errors.New("message_limit_exceeded")

// MessageRepository persists direct messages and the derived conversation
// state. Messages are append-only; read_status is the only mutable field.
type MessageRepository interface {
	// CreateMessage inserts a message with no quota accounting. Used for VIP
	// senders, where sends are never metered.
	CreateMessage(ctx context.Context, senderID, receiverID, content string) (*model.Message, error)
	// CreateMetered inserts a message for a standard-tier sender. In a single
	// serializable transaction it re-checks conversation existence and, when
	// this is a first contact, increments the sender's monthly counter if and
	// only if the count is still below limit. Returns ErrMessageLimitExceeded
	// when the cap is reached, and whether the send consumed a quota slot.
	CreateMetered(ctx context.Context, senderID, receiverID, content, monthYear string, limit int) (*model.Message, bool, error)
	// HasConversation reports whether any message exists between the pair, in
	// either direction.
	HasConversation(ctx context.Context, userA, userB string) (bool, error)
	// ListConversationMessages returns all messages between the pair in
	// chronological order.
	ListConversationMessages(ctx context.Context, userID, otherUserID string) ([]model.Message, error)
	// MarkConversationRead flips read_status on every unread message from
	// otherUserID to viewerID. A single bulk update, so a conversation-open is
	// all-or-nothing. Returns the number of messages marked.
	MarkConversationRead(ctx context.Context, viewerID, otherUserID string) (int64, error)
	// CountUnread returns the viewer's total unread count across all conversations.
	CountUnread(ctx context.Context, userID string) (int, error)
	// ListConversations returns one summary per peer, most recent first.
	ListConversations(ctx context.Context, userID string) ([]model.ConversationSummary, error)
}

type messageRepo struct {
	pool *pgxpool.Pool
}

// NewMessageRepo creates a new MessageRepository.
func NewMessageRepo(pool *pgxpool.Pool) MessageRepository {
	return &messageRepo{pool: pool}
}

const insertMessageQ = `
	INSERT INTO messages (sender_id, receiver_id, content, read_status)
	VALUES ($1, $2, $3, false)
	RETURNING id, sender_id, receiver_id, content, read_status, created_at
`

const conversationExistsQ = `
	SELECT EXISTS (
		SELECT 1 FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
	)
`

func (r *messageRepo) CreateMessage(ctx context.Context, senderID, receiverID, content string) (*model.Message, error) {
	var m model.Message
	err := r.pool.QueryRow(ctx, insertMessageQ, senderID, receiverID, content).Scan(
		&m.ID,
		&m.SenderID,
		&m.ReceiverID,
		&m.Content,
		&m.ReadStatus,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}
	return &m, nil
}

func (r *messageRepo) CreateMetered(ctx context.Context, senderID, receiverID, content, monthYear string, limit int) (*model.Message, bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, false, fmt.Errorf("starting transaction for metered send: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// Re-check inside the transaction: the conversation may have been opened
	// concurrently, in which case the send is exempt from metering.
	var exists bool
	if err := tx.QueryRow(ctx, conversationExistsQ, senderID, receiverID).Scan(&exists); err != nil {
		return nil, false, fmt.Errorf("checking conversation between %s and %s: %w", senderID, receiverID, err)
	}

	metered := !exists
	if metered {
		// Upsert-increment guarded by the cap. The WHERE clause makes the
		// update a no-op at the limit, so the conditional RETURNING doubles
		// as the admission check and no read-then-write window exists.
		const incrementQ = `
			INSERT INTO message_usage (user_id, month_year, message_count)
			VALUES ($1, $2, 1)
			ON CONFLICT (user_id, month_year) DO UPDATE
			SET message_count = message_usage.message_count + 1,
			    updated_at = NOW()
			WHERE message_usage.message_count < $3
			RETURNING message_count
		`
		var count int
		if err := tx.QueryRow(ctx, incrementQ, senderID, monthYear, limit).Scan(&count); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, false, ErrMessageLimitExceeded
			}
			return nil, false, fmt.Errorf("incrementing message usage for user %s: %w", senderID, err)
		}
	}

	var m model.Message
	err = tx.QueryRow(ctx, insertMessageQ, senderID, receiverID, content).Scan(
		&m.ID,
		&m.SenderID,
		&m.ReceiverID,
		&m.Content,
		&m.ReadStatus,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("creating metered message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("committing metered send for user %s: %w", senderID, err)
	}
	return &m, metered, nil
}

func (r *messageRepo) HasConversation(ctx context.Context, userA, userB string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, conversationExistsQ, userA, userB).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking conversation between %s and %s: %w", userA, userB, err)
	}
	return exists, nil
}

func (r *messageRepo) ListConversationMessages(ctx context.Context, userID, otherUserID string) ([]model.Message, error) {
	const q = `
		SELECT id, sender_id, receiver_id, content, read_status, created_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, q, userID, otherUserID)
	if err != nil {
		return nil, fmt.Errorf("querying conversation messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(
			&m.ID,
			&m.SenderID,
			&m.ReceiverID,
			&m.Content,
			&m.ReadStatus,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		messages = append(messages, m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}

	return messages, nil
}

func (r *messageRepo) MarkConversationRead(ctx context.Context, viewerID, otherUserID string) (int64, error) {
	const q = `
		UPDATE messages
		SET read_status = true
		WHERE receiver_id = $1
		  AND sender_id = $2
		  AND read_status = false
	`
	result, err := r.pool.Exec(ctx, q, viewerID, otherUserID)
	if err != nil {
		return 0, fmt.Errorf("marking conversation read for viewer %s: %w", viewerID, err)
	}
	return result.RowsAffected(), nil
}

func (r *messageRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	const q = `
		SELECT COUNT(*) FROM messages
		WHERE receiver_id = $1 AND read_status = false
	`
	var count int
	if err := r.pool.QueryRow(ctx, q, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting unread messages for user %s: %w", userID, err)
	}
	return count, nil
}

func (r *messageRepo) ListConversations(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	const q = `
		SELECT last.peer_id,
		       p.display_name,
		       p.avatar_url,
		       last.content,
		       last.created_at,
		       uc.unread_count
		FROM (
			SELECT DISTINCT ON (CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END)
			       CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END AS peer_id,
			       content,
			       created_at
			FROM messages
			WHERE sender_id = $1 OR receiver_id = $1
			ORDER BY CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END, created_at DESC
		) last
		LEFT JOIN profiles p ON p.user_id = last.peer_id
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS unread_count
			FROM messages u
			WHERE u.sender_id = last.peer_id
			  AND u.receiver_id = $1
			  AND u.read_status = false
		) uc ON true
		ORDER BY last.created_at DESC
	`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("querying conversations for user %s: %w", userID, err)
	}
	defer rows.Close()

	var summaries []model.ConversationSummary
	for rows.Next() {
		var s model.ConversationSummary
		if err := rows.Scan(
			&s.PeerID,
			&s.PeerDisplayName,
			&s.PeerAvatarURL,
			&s.LastMessage,
			&s.LastMessageAt,
			&s.UnreadCount,
		); err != nil {
			return nil, fmt.Errorf("scanning conversation row: %w", err)
		}
		summaries = append(summaries, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversation rows: %w", err)
	}

	return summaries, nil
}
