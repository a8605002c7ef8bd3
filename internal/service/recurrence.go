package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// RecurrenceEngine spawns the next occurrence of a recurring task when the
// current one is completed.
type RecurrenceEngine struct {
	tasks  store.TaskStore
	logger *slog.Logger
	now    func() time.Time
}

// NewRecurrenceEngine creates an engine writing to tasks.
func NewRecurrenceEngine(tasks store.TaskStore, logger *slog.Logger) *RecurrenceEngine {
	if tasks == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("tasks cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecurrenceEngine{
		tasks:  tasks,
		logger: logger.With(slog.String("component", "recurrence_engine")),
		now:    time.Now,
	}
}

// Triggered reports whether moving from before to after should spawn a new
// occurrence: the status enters completed from another status and the
// updated task recurs.
func Triggered(before, after *domain.Task) bool {
	return before.Status != domain.StatusCompleted &&
		after.Status == domain.StatusCompleted &&
		after.Recurs()
}

// NextOccurrence computes the task that follows source without storing it.
// It returns false when source has no due date, does not recur, or the next
// due date falls after the series end date.
func (e *RecurrenceEngine) NextOccurrence(source *domain.Task) (*domain.Task, bool) {
	if source.DueDate == nil || !source.Recurs() {
		return nil, false
	}
	due, ok := source.RecurringType.Next(*source.DueDate)
	if !ok {
		return nil, false
	}
	if source.RecurringEndDate != nil && due.After(*source.RecurringEndDate) {
		return nil, false
	}

	now := e.now().UTC()
	next := source.Clone()
	next.ID = uuid.New()
	next.Status = domain.StatusTodo
	next.DueDate = &due
	next.CreatedAt = now
	next.UpdatedAt = now
	return next, true
}

// MaybeSpawnNext persists the next occurrence of source. It returns nil and
// no error when the series has ended or cannot be continued.
func (e *RecurrenceEngine) MaybeSpawnNext(ctx context.Context, source *domain.Task) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, e.logger)

	next, ok := e.NextOccurrence(source)
	if !ok {
		log.Debug("no next occurrence",
			slog.String("task_id", source.ID.String()),
			slog.String("recurring_type", string(source.RecurringType)))
		return nil, nil
	}

	if err := e.tasks.Create(ctx, next); err != nil {
		log.Error("failed to store next occurrence",
			slog.String("error", err.Error()),
			slog.String("source_task_id", source.ID.String()))
		return nil, NewServiceError("spawn occurrence", "failed to store next occurrence", err)
	}

	log.Info("spawned next occurrence",
		slog.String("source_task_id", source.ID.String()),
		slog.String("task_id", next.ID.String()),
		slog.Time("due_date", *next.DueDate))
	return next, nil
}
