// Package tools is the mutation tool set: the only sanctioned path for task
// storage writes. Every operation checks ownership before mutating, and the
// check and the mutation commit atomically.
package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskflow-backend/internal/types"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeInvalidInput = "INVALID_INPUT"
	CodeDBError      = "DB_ERROR"
)

// Error is a tool failure with a stable machine code. The dialogue composer
// keys off the code; the message is for operator logs, never shown verbatim
// to end users.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func wrapError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// IsCode reports whether err is a tool Error with the given code.
func IsCode(err error, code string) bool {
	var te *Error
	return errors.As(err, &te) && te.Code == code
}

// AddTaskInput carries the fields accepted by AddTask.
type AddTaskInput struct {
	Title        string
	Description  *string
	DueDate      *time.Time
	ReminderTime *time.Time
}

// ListFilter controls ListTasks. A nil Completed returns all tasks.
type ListFilter struct {
	Completed *bool
	Limit     int
	Offset    int
}

// Toolset exposes the task mutations available to the agent and the REST
// layer. Implementations must enforce task.user_id == caller on every
// operation that targets an existing task.
type Toolset interface {
	AddTask(ctx context.Context, userID string, in AddTaskInput) (types.TaskSnapshot, error)
	GetTask(ctx context.Context, taskID, userID string) (types.TaskSnapshot, error)
	ListTasks(ctx context.Context, userID string, f ListFilter) (types.TaskList, error)
	UpdateTask(ctx context.Context, taskID, userID string, fields types.UpdateTaskRequest) (types.TaskSnapshot, error)
	CompleteTask(ctx context.Context, taskID, userID string) (types.TaskSnapshot, error)
	DeleteTask(ctx context.Context, taskID, userID string) (types.TaskSnapshot, error)
}

const (
	maxTitleLen       = 255
	maxDescriptionLen = 5000
)

func validateAdd(in AddTaskInput) error {
	if in.Title == "" || len(in.Title) > maxTitleLen {
		return newError(CodeInvalidInput, "title is required and must be max 255 characters")
	}
	if in.Description != nil && len(*in.Description) > maxDescriptionLen {
		return newError(CodeInvalidInput, "description must be max 5000 characters")
	}
	return nil
}

func validateUpdate(fields types.UpdateTaskRequest) error {
	if fields.Title != nil && (*fields.Title == "" || len(*fields.Title) > maxTitleLen) {
		return newError(CodeInvalidInput, "title must be 1-255 characters")
	}
	if fields.Description != nil && len(*fields.Description) > maxDescriptionLen {
		return newError(CodeInvalidInput, "description must be max 5000 characters")
	}
	return nil
}

func normalizeFilter(f ListFilter) ListFilter {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
