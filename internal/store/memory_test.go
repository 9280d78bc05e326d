package store

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow-backend/internal/types"
)

func TestGetOrCreateIsOnePerUser(t *testing.T) {
	s := NewMemoryConversations()
	ctx := context.Background()

	first, err := s.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	second, err := s.GetOrCreate(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt), "updated_at must bump on access")

	other, err := s.GetOrCreate(ctx, "u2")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestAppendTruncatesAtTenThousandChars(t *testing.T) {
	s := NewMemoryConversations()
	ctx := context.Background()
	c, err := s.GetOrCreate(ctx, "u1")
	require.NoError(t, err)

	long := strings.Repeat("a", MaxMessageLen+500)
	m, err := s.Append(ctx, c.ID, types.RoleUser, long)
	require.NoError(t, err)
	assert.Equal(t, MaxMessageLen, len(m.Content), "content must be truncated, not rejected")

	// Multibyte input is counted in characters, not bytes.
	longRunes := strings.Repeat("é", MaxMessageLen+3)
	m, err = s.Append(ctx, c.ID, types.RoleUser, longRunes)
	require.NoError(t, err)
	assert.Equal(t, MaxMessageLen, utf8.RuneCountInString(m.Content))
}

func TestRecentReturnsChronologicalWindow(t *testing.T) {
	s := NewMemoryConversations()
	ctx := context.Background()
	c, err := s.GetOrCreate(ctx, "u1")
	require.NoError(t, err)

	_, err = s.Append(ctx, c.ID, types.RoleUser, "first")
	require.NoError(t, err)
	_, err = s.Append(ctx, c.ID, types.RoleAgent, "second")
	require.NoError(t, err)
	_, err = s.Append(ctx, c.ID, types.RoleUser, "third")
	require.NoError(t, err)

	msgs, err := s.Recent(ctx, c.ID, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "second", msgs[0].Content)
	assert.Equal(t, "third", msgs[1].Content)
}
