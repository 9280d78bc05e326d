package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

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

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := zap.NewNop()
	registry := notify.NewRegistry()
	toolset := tools.NewMemoryToolset(registry)
	conv := store.NewMemoryConversations()
	return NewServer(config.Config{AllowedOrigin: "*"}, logger, Deps{
		Auth:     auth.NewManager("test-secret", 0),
		Users:    store.NewMemoryUsers(),
		Tools:    toolset,
		Agent:    agent.NewService(toolset, conv, logger),
		Registry: registry,
	})
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func registerAndLogin(t *testing.T, s *Server, email string) string {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/v1/auth/register", "", types.RegisterRequest{
		Email: email, Username: "tester", Password: "hunter2hunter2",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp types.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/auth/register", "", types.RegisterRequest{
		Email: "not-an-email", Username: "x", Password: "hunter2hunter2",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/auth/register", "", types.RegisterRequest{
		Email: "a@b.co", Username: "x", Password: "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	registerAndLogin(t, s, "dup@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/v1/auth/register", "", types.RegisterRequest{
		Email: "dup@example.com", Username: "other", Password: "hunter2hunter2",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	registerAndLogin(t, s, "login@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/v1/auth/login", "", types.LoginRequest{
		Email: "login@example.com", Password: "hunter2hunter2",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/auth/login", "", types.LoginRequest{
		Email: "login@example.com", Password: "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/auth/login", "", types.LoginRequest{
		Email: "nobody@example.com", Password: "hunter2hunter2",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTasksRequireAuth(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/v1/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/tasks", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTaskCRUD(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s, "crud@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/v1/tasks", token, types.CreateTaskRequest{Title: "buy milk"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var task types.TaskSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.Equal(t, "buy milk", task.Title)
	assert.False(t, task.IsCompleted)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/tasks", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list types.TaskList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Tasks, 1)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/tasks/"+task.ID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	newTitle := "buy oat milk"
	rec = doJSON(t, s, http.MethodPatch, "/api/v1/tasks/"+task.ID, token, types.UpdateTaskRequest{Title: &newTitle})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.Equal(t, "buy oat milk", task.Title)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/tasks/"+task.ID+"/complete", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.True(t, task.IsCompleted)

	rec = doJSON(t, s, http.MethodDelete, "/api/v1/tasks/"+task.ID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/tasks/"+task.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskCreateValidation(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s, "valid@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/v1/tasks", token, types.CreateTaskRequest{Title: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskOwnershipIsolation(t *testing.T) {
	s := newTestServer(t)
	alice := registerAndLogin(t, s, "alice@example.com")
	bob := registerAndLogin(t, s, "bob@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/v1/tasks", alice, types.CreateTaskRequest{Title: "alice's task"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var task types.TaskSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))

	// Bob cannot see, mutate, or learn about Alice's task.
	rec = doJSON(t, s, http.MethodGet, "/api/v1/tasks/"+task.ID, bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doJSON(t, s, http.MethodDelete, "/api/v1/tasks/"+task.ID, bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doJSON(t, s, http.MethodGet, "/api/v1/tasks", bob, nil)
	var list types.TaskList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list.Tasks)
}

func TestListTasksCompletedFilter(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s, "filter@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/v1/tasks", token, types.CreateTaskRequest{Title: "open task"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, s, http.MethodPost, "/api/v1/tasks", token, types.CreateTaskRequest{Title: "done task"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var done types.TaskSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &done))
	rec = doJSON(t, s, http.MethodPost, "/api/v1/tasks/"+done.ID+"/complete", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/tasks?completed=true", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list types.TaskList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Tasks, 1)
	assert.Equal(t, "done task", list.Tasks[0].Title)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/tasks?completed=maybe", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatEndpoint(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s, "chat@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/v1/chat", token, types.ChatRequest{Message: "add task buy milk"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp types.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Response, "Task added")
	require.Len(t, resp.Actions, 1)
	assert.Equal(t, types.ActionTaskCreated, resp.Actions[0].Type)

	// Gibberish still answers 200 with a menu, never an error status.
	rec = doJSON(t, s, http.MethodPost, "/api/v1/chat", token, types.ChatRequest{Message: "zzz qqq"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Actions)
}

func TestChatRequiresAuth(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/v1/chat", "", types.ChatRequest{Message: "hello"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
