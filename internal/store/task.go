package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// BatchChanges is the restricted set of fields a bulk update may touch.
type BatchChanges struct {
	Status          *domain.TaskStatus
	Priority        *domain.TaskPriority
	AssignedTo      *uuid.UUID
	ClearAssignedTo bool
	UpdatedAt       time.Time
}

// ApplyTo writes the changes onto task.
func (c BatchChanges) ApplyTo(task *domain.Task) {
	if c.Status != nil {
		task.Status = *c.Status
	}
	if c.Priority != nil {
		task.Priority = *c.Priority
	}
	if c.ClearAssignedTo {
		task.AssignedTo = nil
	} else if c.AssignedTo != nil {
		id := *c.AssignedTo
		task.AssignedTo = &id
	}
	task.UpdatedAt = c.UpdatedAt
}

// Changes reports whether applying c would alter task's status, priority or
// assignee.
func (c BatchChanges) Changes(task *domain.Task) bool {
	if c.Status != nil && *c.Status != task.Status {
		return true
	}
	if c.Priority != nil && *c.Priority != task.Priority {
		return true
	}
	if c.ClearAssignedTo {
		return task.AssignedTo != nil
	}
	return c.AssignedTo != nil && (task.AssignedTo == nil || *task.AssignedTo != *c.AssignedTo)
}

// TaskStore defines the interface for task persistence.
type TaskStore interface {
	// Create saves a new task.
	// Returns validation errors from the domain Task if data is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// FindByIDs returns the tasks among ids that exist, in no particular order.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Task, error)

	// Find returns one page of tasks matching the query.
	Find(ctx context.Context, query TaskQuery) ([]*domain.Task, error)

	// Count returns the number of tasks matching where.
	Count(ctx context.Context, where Predicate) (int64, error)

	// Update overwrites the mutable fields of an existing task.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// UpdateMany applies changes to every existing task in ids and returns
	// the updated tasks. Unknown ids are ignored.
	UpdateMany(ctx context.Context, ids []uuid.UUID, changes BatchChanges) ([]*domain.Task, error)

	// Delete removes a task by its ID.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}
