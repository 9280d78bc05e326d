package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskflow-backend/internal/types"
)

// MemoryConversations is an in-memory Conversations implementation used in
// tests and when no database is configured.
type MemoryConversations struct {
	mu            sync.RWMutex
	byUser        map[string]*Conversation
	messages      map[string][]Message
	now           func() time.Time
	clockSequence int
}

func NewMemoryConversations() *MemoryConversations {
	return &MemoryConversations{
		byUser:   make(map[string]*Conversation),
		messages: make(map[string][]Message),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// tick returns a strictly increasing timestamp so message ordering stays
// stable even when appends land within the clock's resolution.
func (s *MemoryConversations) tick() time.Time {
	s.clockSequence++
	return s.now().Add(time.Duration(s.clockSequence) * time.Microsecond)
}

func (s *MemoryConversations) GetOrCreate(ctx context.Context, userID string) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.byUser[userID]; ok {
		c.UpdatedAt = s.tick()
		return *c, nil
	}
	now := s.tick()
	c := &Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.byUser[userID] = c
	return *c, nil
}

func (s *MemoryConversations) Append(ctx context.Context, conversationID string, role types.Role, content string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        Truncate(content),
		CreatedAt:      s.tick(),
	}
	s.messages[conversationID] = append(s.messages[conversationID], m)
	for _, c := range s.byUser {
		if c.ID == conversationID {
			c.UpdatedAt = m.CreatedAt
			break
		}
	}
	return m, nil
}

func (s *MemoryConversations) Recent(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultContextLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[conversationID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}
