package tools

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taskflow-backend/internal/db"
	"taskflow-backend/internal/notify"
	"taskflow-backend/internal/types"
)

// PostgresToolset implements Toolset against Postgres. Ownership checks and
// mutations run inside a single transaction per call.
type PostgresToolset struct {
	db       *db.DB
	registry *notify.Registry
}

// NewPostgresToolset creates a toolset over the given database. registry may
// be nil to disable event broadcasting.
func NewPostgresToolset(database *db.DB, registry *notify.Registry) *PostgresToolset {
	return &PostgresToolset{db: database, registry: registry}
}

const taskColumns = "id, title, description, is_completed, due_date, reminder_time, created_at, updated_at"

func scanTask(row interface{ Scan(...any) error }) (types.TaskSnapshot, error) {
	var t types.TaskSnapshot
	var description sql.NullString
	var dueDate, reminderTime sql.NullTime
	err := row.Scan(&t.ID, &t.Title, &description, &t.IsCompleted, &dueDate, &reminderTime, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return types.TaskSnapshot{}, err
	}
	if description.Valid {
		t.Description = &description.String
	}
	if dueDate.Valid {
		d := dueDate.Time
		t.DueDate = &d
	}
	if reminderTime.Valid {
		r := reminderTime.Time
		t.ReminderTime = &r
	}
	return t, nil
}

func (p *PostgresToolset) publish(userID, eventType string, task types.TaskSnapshot) {
	if p.registry != nil {
		p.registry.Publish(userID, types.TaskEvent{Type: eventType, Task: task})
	}
}

func (p *PostgresToolset) AddTask(ctx context.Context, userID string, in AddTaskInput) (types.TaskSnapshot, error) {
	if err := validateAdd(in); err != nil {
		return types.TaskSnapshot{}, err
	}
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO tasks (user_id, title, description, due_date, reminder_time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+taskColumns,
		userID, in.Title, in.Description, in.DueDate, in.ReminderTime)
	task, err := scanTask(row)
	if err != nil {
		return types.TaskSnapshot{}, wrapError(CodeDBError, "failed to create task", err)
	}
	p.publish(userID, types.ActionTaskCreated, task)
	return task, nil
}

func (p *PostgresToolset) GetTask(ctx context.Context, taskID, userID string) (types.TaskSnapshot, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`, taskID, userID)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.TaskSnapshot{}, newError(CodeNotFound, "task does not exist")
	}
	if err != nil {
		return types.TaskSnapshot{}, wrapError(CodeDBError, "failed to load task", err)
	}
	return task, nil
}

func (p *PostgresToolset) ListTasks(ctx context.Context, userID string, f ListFilter) (types.TaskList, error) {
	f = normalizeFilter(f)
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`
	args := []any{userID}
	if f.Completed != nil {
		query += ` AND is_completed = $2`
		args = append(args, *f.Completed)
	}
	query += ` ORDER BY created_at DESC LIMIT ` + placeholder(len(args)+1) + ` OFFSET ` + placeholder(len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return types.TaskList{}, wrapError(CodeDBError, "failed to list tasks", err)
	}
	defer rows.Close()

	tasks := []types.TaskSnapshot{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return types.TaskList{}, wrapError(CodeDBError, "failed to scan task", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return types.TaskList{}, wrapError(CodeDBError, "failed to read tasks", err)
	}
	return types.TaskList{Tasks: tasks, Count: len(tasks), Limit: f.Limit, Offset: f.Offset}, nil
}

// lockTask loads a task row FOR UPDATE and verifies ownership.
func lockTask(ctx context.Context, tx *sql.Tx, taskID, userID string) (types.TaskSnapshot, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+taskColumns+`, user_id FROM tasks WHERE id = $1 FOR UPDATE`, taskID)

	var t types.TaskSnapshot
	var description sql.NullString
	var dueDate, reminderTime sql.NullTime
	var ownerID string
	err := row.Scan(&t.ID, &t.Title, &description, &t.IsCompleted, &dueDate, &reminderTime, &t.CreatedAt, &t.UpdatedAt, &ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return types.TaskSnapshot{}, newError(CodeNotFound, "task does not exist")
	}
	if err != nil {
		return types.TaskSnapshot{}, wrapError(CodeDBError, "failed to load task", err)
	}
	if description.Valid {
		t.Description = &description.String
	}
	if dueDate.Valid {
		d := dueDate.Time
		t.DueDate = &d
	}
	if reminderTime.Valid {
		r := reminderTime.Time
		t.ReminderTime = &r
	}
	if ownerID != userID {
		return types.TaskSnapshot{}, newError(CodeUnauthorized, "task does not belong to user")
	}
	return t, nil
}

func (p *PostgresToolset) UpdateTask(ctx context.Context, taskID, userID string, fields types.UpdateTaskRequest) (types.TaskSnapshot, error) {
	if err := validateUpdate(fields); err != nil {
		return types.TaskSnapshot{}, err
	}
	task, err := p.mutate(ctx, taskID, userID, func(tx *sql.Tx, current types.TaskSnapshot) (types.TaskSnapshot, error) {
		if fields.Title != nil {
			current.Title = *fields.Title
		}
		if fields.Description != nil {
			current.Description = fields.Description
		}
		if fields.DueDate != nil {
			current.DueDate = fields.DueDate
		}
		if fields.ReminderTime != nil {
			current.ReminderTime = fields.ReminderTime
		}
		if fields.IsCompleted != nil {
			current.IsCompleted = *fields.IsCompleted
		}
		current.UpdatedAt = time.Now().UTC()
		_, err := tx.ExecContext(ctx, `
			UPDATE tasks SET title = $1, description = $2, due_date = $3,
				reminder_time = $4, is_completed = $5, updated_at = $6
			WHERE id = $7`,
			current.Title, current.Description, current.DueDate,
			current.ReminderTime, current.IsCompleted, current.UpdatedAt, taskID)
		return current, err
	})
	if err != nil {
		return types.TaskSnapshot{}, err
	}
	p.publish(userID, types.ActionTaskUpdated, task)
	return task, nil
}

func (p *PostgresToolset) CompleteTask(ctx context.Context, taskID, userID string) (types.TaskSnapshot, error) {
	task, err := p.mutate(ctx, taskID, userID, func(tx *sql.Tx, current types.TaskSnapshot) (types.TaskSnapshot, error) {
		current.IsCompleted = true
		current.UpdatedAt = time.Now().UTC()
		_, err := tx.ExecContext(ctx,
			`UPDATE tasks SET is_completed = TRUE, updated_at = $1 WHERE id = $2`,
			current.UpdatedAt, taskID)
		return current, err
	})
	if err != nil {
		return types.TaskSnapshot{}, err
	}
	p.publish(userID, types.ActionTaskCompleted, task)
	return task, nil
}

func (p *PostgresToolset) DeleteTask(ctx context.Context, taskID, userID string) (types.TaskSnapshot, error) {
	task, err := p.mutate(ctx, taskID, userID, func(tx *sql.Tx, current types.TaskSnapshot) (types.TaskSnapshot, error) {
		_, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, taskID)
		return current, err
	})
	if err != nil {
		return types.TaskSnapshot{}, err
	}
	p.publish(userID, types.ActionTaskDeleted, task)
	return task, nil
}

// mutate runs the ownership check and the mutation in one transaction.
func (p *PostgresToolset) mutate(ctx context.Context, taskID, userID string, fn func(*sql.Tx, types.TaskSnapshot) (types.TaskSnapshot, error)) (types.TaskSnapshot, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return types.TaskSnapshot{}, wrapError(CodeDBError, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	current, err := lockTask(ctx, tx, taskID, userID)
	if err != nil {
		return types.TaskSnapshot{}, err
	}
	updated, err := fn(tx, current)
	if err != nil {
		return types.TaskSnapshot{}, wrapError(CodeDBError, "failed to mutate task", err)
	}
	if err := tx.Commit(); err != nil {
		return types.TaskSnapshot{}, wrapError(CodeDBError, "failed to commit", err)
	}
	return updated, nil
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}
