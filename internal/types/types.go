package types

import "time"

// Role labels the author of a conversation message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// TaskSnapshot is the wire representation of a task, returned by the tool
// set after every mutation and by the REST task endpoints.
type TaskSnapshot struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  *string    `json:"description,omitempty"`
	IsCompleted  bool       `json:"is_completed"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	ReminderTime *time.Time `json:"reminder_time,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ShortID returns the first 8 characters of the task ID, the form shown to
// users in chat replies and accepted back as a reference.
func (t TaskSnapshot) ShortID() string {
	if len(t.ID) > 8 {
		return t.ID[:8]
	}
	return t.ID
}

// TaskList is the result of a list_tasks tool call.
type TaskList struct {
	Tasks  []TaskSnapshot `json:"tasks"`
	Count  int            `json:"count"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// Action records one mutation performed during a chat turn. Actions are
// transient: emitted to the caller for UI refresh, never persisted.
type Action struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const (
	ActionTaskCreated   = "task_created"
	ActionTaskUpdated   = "task_updated"
	ActionTaskCompleted = "task_completed"
	ActionTaskDeleted   = "task_deleted"
	ActionTasksListed   = "tasks_listed"
)

// ChatRequest is the inbound chat payload.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is returned by the chat endpoint. Pipeline failures degrade
// to an apologetic Response with no Actions rather than an HTTP error.
type ChatResponse struct {
	Response string   `json:"response"`
	Actions  []Action `json:"actions"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type CreateTaskRequest struct {
	Title        string     `json:"title"`
	Description  *string    `json:"description,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	ReminderTime *time.Time `json:"reminder_time,omitempty"`
}

// UpdateTaskRequest carries partial updates; nil fields are left unchanged.
type UpdateTaskRequest struct {
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	ReminderTime *time.Time `json:"reminder_time,omitempty"`
	IsCompleted  *bool      `json:"is_completed,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// TaskEvent is pushed to SSE subscribers after each task mutation.
type TaskEvent struct {
	Type string       `json:"type"`
	Task TaskSnapshot `json:"task"`
}
