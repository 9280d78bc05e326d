package tools

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskflow-backend/internal/notify"
	"taskflow-backend/internal/types"
)

// MemoryToolset is an in-memory Toolset used in tests and when DB_URL is not
// configured. Semantics mirror PostgresToolset.
type MemoryToolset struct {
	mu       sync.RWMutex
	tasks    map[string]memTask
	registry *notify.Registry
	now      func() time.Time
}

type memTask struct {
	snapshot types.TaskSnapshot
	ownerID  string
}

func NewMemoryToolset(registry *notify.Registry) *MemoryToolset {
	return &MemoryToolset{
		tasks:    make(map[string]memTask),
		registry: registry,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryToolset) publish(userID, eventType string, task types.TaskSnapshot) {
	if m.registry != nil {
		m.registry.Publish(userID, types.TaskEvent{Type: eventType, Task: task})
	}
}

func (m *MemoryToolset) AddTask(ctx context.Context, userID string, in AddTaskInput) (types.TaskSnapshot, error) {
	if err := validateAdd(in); err != nil {
		return types.TaskSnapshot{}, err
	}
	now := m.now()
	task := types.TaskSnapshot{
		ID:           uuid.NewString(),
		Title:        in.Title,
		Description:  in.Description,
		DueDate:      in.DueDate,
		ReminderTime: in.ReminderTime,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.mu.Lock()
	m.tasks[task.ID] = memTask{snapshot: task, ownerID: userID}
	m.mu.Unlock()
	m.publish(userID, types.ActionTaskCreated, task)
	return task, nil
}

func (m *MemoryToolset) GetTask(ctx context.Context, taskID, userID string) (types.TaskSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[taskID]
	if !ok || t.ownerID != userID {
		// Lookups never reveal other users' tasks, so both cases read as absent.
		return types.TaskSnapshot{}, newError(CodeNotFound, "task does not exist")
	}
	return t.snapshot, nil
}

func (m *MemoryToolset) ListTasks(ctx context.Context, userID string, f ListFilter) (types.TaskList, error) {
	f = normalizeFilter(f)
	m.mu.RLock()
	all := make([]types.TaskSnapshot, 0, len(m.tasks))
	for _, t := range m.tasks {
		if t.ownerID != userID {
			continue
		}
		if f.Completed != nil && t.snapshot.IsCompleted != *f.Completed {
			continue
		}
		all = append(all, t.snapshot)
	}
	m.mu.RUnlock()

	// Most recent first, matching the SQL implementation.
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if f.Offset >= len(all) {
		all = []types.TaskSnapshot{}
	} else {
		all = all[f.Offset:]
	}
	if len(all) > f.Limit {
		all = all[:f.Limit]
	}
	return types.TaskList{Tasks: all, Count: len(all), Limit: f.Limit, Offset: f.Offset}, nil
}

// get verifies existence and ownership under the caller's lock.
func (m *MemoryToolset) get(taskID, userID string) (memTask, error) {
	t, ok := m.tasks[taskID]
	if !ok {
		return memTask{}, newError(CodeNotFound, "task does not exist")
	}
	if t.ownerID != userID {
		return memTask{}, newError(CodeUnauthorized, "task does not belong to user")
	}
	return t, nil
}

func (m *MemoryToolset) UpdateTask(ctx context.Context, taskID, userID string, fields types.UpdateTaskRequest) (types.TaskSnapshot, error) {
	if err := validateUpdate(fields); err != nil {
		return types.TaskSnapshot{}, err
	}
	m.mu.Lock()
	t, err := m.get(taskID, userID)
	if err != nil {
		m.mu.Unlock()
		return types.TaskSnapshot{}, err
	}
	if fields.Title != nil {
		t.snapshot.Title = *fields.Title
	}
	if fields.Description != nil {
		t.snapshot.Description = fields.Description
	}
	if fields.DueDate != nil {
		t.snapshot.DueDate = fields.DueDate
	}
	if fields.ReminderTime != nil {
		t.snapshot.ReminderTime = fields.ReminderTime
	}
	if fields.IsCompleted != nil {
		t.snapshot.IsCompleted = *fields.IsCompleted
	}
	t.snapshot.UpdatedAt = m.now()
	m.tasks[taskID] = t
	m.mu.Unlock()
	m.publish(userID, types.ActionTaskUpdated, t.snapshot)
	return t.snapshot, nil
}

func (m *MemoryToolset) CompleteTask(ctx context.Context, taskID, userID string) (types.TaskSnapshot, error) {
	m.mu.Lock()
	t, err := m.get(taskID, userID)
	if err != nil {
		m.mu.Unlock()
		return types.TaskSnapshot{}, err
	}
	t.snapshot.IsCompleted = true
	t.snapshot.UpdatedAt = m.now()
	m.tasks[taskID] = t
	m.mu.Unlock()
	m.publish(userID, types.ActionTaskCompleted, t.snapshot)
	return t.snapshot, nil
}

func (m *MemoryToolset) DeleteTask(ctx context.Context, taskID, userID string) (types.TaskSnapshot, error) {
	m.mu.Lock()
	t, err := m.get(taskID, userID)
	if err != nil {
		m.mu.Unlock()
		return types.TaskSnapshot{}, err
	}
	delete(m.tasks, taskID)
	m.mu.Unlock()
	m.publish(userID, types.ActionTaskDeleted, t.snapshot)
	return t.snapshot, nil
}
