package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/choreboard/choreboard/internal/domain"
)

// MemoryTaskStore is an in-memory TaskStore guarded by a mutex. It backs
// single-node deployments and tests; durable deployments use
// PostgresTaskStore.
type MemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*domain.Task
}

// NewMemoryTaskStore creates an empty in-memory task store.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

// GetTask implements service.TaskStore.GetTask. The returned task is a deep
// copy; callers mutate it freely and persist with SaveTask.
func (s *MemoryTaskStore) GetTask(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return task.Clone(), nil
}

// SaveTask implements service.TaskStore.SaveTask.
func (s *MemoryTaskStore) SaveTask(_ context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return NewStoreError("task", "save", "validation failed", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[task.ID] = task.Clone()
	return nil
}

// DeleteTask implements service.TaskStore.DeleteTask.
func (s *MemoryTaskStore) DeleteTask(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

// ListDueBefore implements service.TaskStore.ListDueBefore.
func (s *MemoryTaskStore) ListDueBefore(_ context.Context, t time.Time) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []*domain.Task
	for _, task := range s.tasks {
		if task.Status.IsTerminal() || task.Status == domain.TaskStatusOverdue {
			continue
		}
		if task.DueDate != nil && task.DueDate.Before(t) {
			due = append(due, task.Clone())
		}
	}
	return due, nil
}

// ListByGroup implements service.TaskStore.ListByGroup.
func (s *MemoryTaskStore) ListByGroup(_ context.Context, groupID string) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Task
	for _, task := range s.tasks {
		if task.GroupID == groupID {
			out = append(out, task.Clone())
		}
	}
	return out, nil
}
