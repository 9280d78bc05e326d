package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"taskflow-backend/internal/db"
	"taskflow-backend/internal/types"
)

// PostgresConversations stores conversation history in PostgreSQL.
type PostgresConversations struct {
	db *db.DB
}

func NewPostgresConversations(database *db.DB) *PostgresConversations {
	return &PostgresConversations{db: database}
}

func (s *PostgresConversations) GetOrCreate(ctx context.Context, userID string) (Conversation, error) {
	if userID == "" {
		return Conversation{}, fmt.Errorf("user_id is required")
	}

	// One conversation per user, enforced by the UNIQUE constraint; the
	// upsert also bumps updated_at on every access.
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO conversations (user_id)
		VALUES ($1)
		ON CONFLICT (user_id)
		DO UPDATE SET updated_at = NOW()
		RETURNING id, user_id, created_at, updated_at
	`, userID)

	var c Conversation
	if err := row.Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Conversation{}, fmt.Errorf("failed to get or create conversation: %w", err)
	}
	return c, nil
}

func (s *PostgresConversations) Append(ctx context.Context, conversationID string, role types.Role, content string) (Message, error) {
	if conversationID == "" {
		return Message{}, fmt.Errorf("conversation_id is required")
	}
	content = Truncate(content)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Message{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		INSERT INTO messages (conversation_id, role, content)
		VALUES ($1, $2, $3)
		RETURNING id, conversation_id, role, content, created_at
	`, conversationID, string(role), content)

	var m Message
	var roleStr string
	if err := row.Scan(&m.ID, &m.ConversationID, &roleStr, &m.Content, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Message{}, fmt.Errorf("conversation %s does not exist", conversationID)
		}
		return Message{}, fmt.Errorf("failed to append message: %w", err)
	}
	m.Role = types.Role(roleStr)

	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = NOW() WHERE id = $1`, conversationID); err != nil {
		return Message{}, fmt.Errorf("failed to touch conversation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Message{}, fmt.Errorf("failed to commit: %w", err)
	}
	return m, nil
}

func (s *PostgresConversations) Recent(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultContextLimit
	}

	// Fetch the newest N, then reverse into chronological order.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		var roleStr string
		if err := rows.Scan(&m.ID, &m.ConversationID, &roleStr, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = types.Role(roleStr)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
