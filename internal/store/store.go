// Package store persists per-user conversation history. Each user has at
// most one conversation, created lazily on first chat interaction; messages
// are append-only and cascade-deleted with their conversation.
package store

import (
	"context"
	"time"

	"taskflow-backend/internal/types"
)

// MaxMessageLen caps stored message content. Longer input is truncated, not
// rejected.
const MaxMessageLen = 10000

// DefaultContextLimit is how many recent messages a chat turn reloads.
const DefaultContextLimit = 50

type Conversation struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Message struct {
	ID             string
	ConversationID string
	Role           types.Role
	Content        string
	CreatedAt      time.Time
}

// Conversations is the conversation store contract consumed by the agent.
type Conversations interface {
	// GetOrCreate returns the user's conversation, creating it on first use
	// and bumping updated_at on every access.
	GetOrCreate(ctx context.Context, userID string) (Conversation, error)
	// Append stores one message, truncating content to MaxMessageLen.
	Append(ctx context.Context, conversationID string, role types.Role, content string) (Message, error)
	// Recent returns up to limit most recent messages in chronological
	// order, oldest first.
	Recent(ctx context.Context, conversationID string, limit int) ([]Message, error)
}

// Truncate enforces the message content cap, counting characters rather than
// bytes so multibyte input isn't cut mid-rune.
func Truncate(content string) string {
	runes := []rune(content)
	if len(runes) > MaxMessageLen {
		return string(runes[:MaxMessageLen])
	}
	return content
}
