package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskflow-backend/internal/agent"
	"taskflow-backend/internal/auth"
	"taskflow-backend/internal/config"
	"taskflow-backend/internal/notify"
	"taskflow-backend/internal/store"
	"taskflow-backend/internal/tools"
	"taskflow-backend/internal/types"
)

// streamRecorder is a concurrency-safe ResponseWriter for handlers that
// write from a goroutine while the test polls the body.
type streamRecorder struct {
	mu     sync.Mutex
	header http.Header
	buf    bytes.Buffer
	code   int
}

func newStreamRecorder() *streamRecorder {
	return &streamRecorder{header: make(http.Header)}
}

func (r *streamRecorder) Header() http.Header { return r.header }

func (r *streamRecorder) WriteHeader(code int) {
	r.mu.Lock()
	r.code = code
	r.mu.Unlock()
}

func (r *streamRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Write(p)
}

func (r *streamRecorder) Flush() {}

func (r *streamRecorder) Body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}

func TestEventsStream(t *testing.T) {
	logger := zap.NewNop()
	registry := notify.NewRegistry()
	toolset := tools.NewMemoryToolset(registry)
	conv := store.NewMemoryConversations()
	authMgr := auth.NewManager("test-secret", 0)
	s := NewServer(config.Config{AllowedOrigin: "*"}, logger, Deps{
		Auth:     authMgr,
		Users:    store.NewMemoryUsers(),
		Tools:    toolset,
		Agent:    agent.NewService(toolset, conv, logger),
		Registry: registry,
	})

	token, err := authMgr.Issue("user-1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := newStreamRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Router().ServeHTTP(rec, req)
	}()

	// Wait for the handler to subscribe before publishing.
	require.Eventually(t, func() bool {
		return registry.SubscriberCount("user-1") == 1
	}, time.Second, 5*time.Millisecond)

	_, err = toolset.AddTask(context.Background(), "user-1", tools.AddTaskInput{Title: "buy milk"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(rec.Body()) > len(": connected\n\n")
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	body := rec.Body()
	assert.Contains(t, body, ": connected")
	assert.Contains(t, body, "event: "+types.ActionTaskCreated)
	assert.Contains(t, body, "buy milk")
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	// Cancel released the subscription.
	assert.Equal(t, 0, registry.SubscriberCount("user-1"))
}

func TestEventsTokenQueryFallback(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/v1/events?token=garbage", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
