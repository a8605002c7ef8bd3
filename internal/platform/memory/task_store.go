package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// TaskStore is an in-memory store.TaskStore.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*domain.Task
}

// NewTaskStore returns an empty TaskStore.
func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

var _ store.TaskStore = (*TaskStore)(nil)

func (s *TaskStore) Create(_ context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; ok {
		return store.ErrDuplicate
	}
	s.tasks[task.ID] = normalizeTask(task)
	return nil
}

func (s *TaskStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return task.Clone(), nil
}

func (s *TaskStore) FindByIDs(_ context.Context, ids []uuid.UUID) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Task{}
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if task, ok := s.tasks[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, task.Clone())
		}
	}
	return out, nil
}

func (s *TaskStore) Find(_ context.Context, q store.TaskQuery) ([]*domain.Task, error) {
	if err := check(q.Where); err != nil {
		return nil, err
	}
	s.mu.RLock()
	matched := s.filter(q.Where)
	s.mu.RUnlock()

	if err := sortTasks(matched, q.Sort); err != nil {
		return nil, err
	}
	return page(matched, q.Skip, q.Limit), nil
}

func (s *TaskStore) Count(_ context.Context, where store.Predicate) (int64, error) {
	if err := check(where); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.filter(where))), nil
}

// filter returns clones of matching tasks. Callers hold the read lock.
func (s *TaskStore) filter(where store.Predicate) []*domain.Task {
	out := []*domain.Task{}
	for _, task := range s.tasks {
		if matches(task, where) {
			out = append(out, task.Clone())
		}
	}
	return out
}

func (s *TaskStore) Update(_ context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tasks[task.ID]
	if !ok {
		return store.ErrTaskNotFound
	}
	updated := normalizeTask(task)
	updated.CreatedBy = existing.CreatedBy
	updated.CreatedAt = existing.CreatedAt
	s.tasks[task.ID] = updated
	return nil
}

func (s *TaskStore) UpdateMany(_ context.Context, ids []uuid.UUID, changes store.BatchChanges) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*domain.Task{}
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		task, ok := s.tasks[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		changes.ApplyTo(task)
		out = append(out, task.Clone())
	}
	return out, nil
}

func (s *TaskStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

func normalizeTask(task *domain.Task) *domain.Task {
	c := task.Clone()
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return c
}
