package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/authz"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/events"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// Fields accepted by BatchUpdate.
const (
	BatchFieldStatus     = "status"
	BatchFieldPriority   = "priority"
	BatchFieldAssignedTo = "assignedTo"
)

// MaxBatchTaskIDs bounds one batch update, keeping its id list well under
// the bind-parameter limit of a single Postgres statement.
const MaxBatchTaskIDs = 1000

// CreateTaskInput carries the fields of a new task. Nil pointers take the
// domain defaults.
type CreateTaskInput struct {
	Title            string
	Description      string
	Status           *domain.TaskStatus
	Priority         *domain.TaskPriority
	DueDate          *time.Time
	AssignedTo       *uuid.UUID
	Tags             []string
	IsRecurring      bool
	RecurringType    *domain.RecurringType
	RecurringEndDate *time.Time
}

// BatchUpdateInput applies the same changes to several tasks. Updates is
// keyed by field name so unknown fields can be rejected before anything is
// written.
type BatchUpdateInput struct {
	TaskIDs []uuid.UUID
	Updates map[string]json.RawMessage
}

// BatchUpdateResult reports how many requested tasks existed and how many
// of those had a status, priority or assignee that actually changed.
type BatchUpdateResult struct {
	Matched int            `json:"matched"`
	Updated int            `json:"updated"`
	Tasks   []*domain.Task `json:"tasks"`
}

// TaskPage is one page of a task listing.
type TaskPage struct {
	Items      []*domain.Task
	Pagination Pagination
}

// TaskService is the only writer of tasks. It enforces the authorization
// policy, dispatches notifications after each persisted mutation and
// continues recurring series.
type TaskService interface {
	// Create stores a task owned by principal.
	Create(ctx context.Context, principal domain.Principal, input CreateTaskInput) (*domain.Task, error)

	// Get returns a task the principal may read. A task that exists but is
	// not visible yields ErrForbidden.
	Get(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Task, error)

	// List returns the page of visible tasks matching filter.
	List(ctx context.Context, principal domain.Principal, filter TaskFilter) (*TaskPage, error)

	// Update applies a partial update.
	Update(ctx context.Context, principal domain.Principal, id uuid.UUID, patch domain.TaskPatch) (*domain.Task, error)

	// Delete removes a task after notifying its assignee.
	Delete(ctx context.Context, principal domain.Principal, id uuid.UUID) error

	// BatchUpdate changes status, priority or assignee on many tasks at
	// once. Only admins and managers may call it; per-task access is not
	// checked.
	BatchUpdate(ctx context.Context, principal domain.Principal, input BatchUpdateInput) (*BatchUpdateResult, error)
}

type taskServiceImpl struct {
	tasks      store.TaskStore
	users      store.UserStore
	dispatcher *NotificationDispatcher
	recurrence *RecurrenceEngine
	queries    *TaskQueryBuilder
	emitter    events.EventEmitter
	logger     *slog.Logger
	now        func() time.Time
}

// NewTaskService creates the task lifecycle service. A nil emitter disables
// domain events.
func NewTaskService(
	tasks store.TaskStore,
	users store.UserStore,
	dispatcher *NotificationDispatcher,
	recurrence *RecurrenceEngine,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (TaskService, error) {
	if tasks == nil {
		return nil, domain.NewValidationError("tasks", "cannot be nil", domain.ErrValidation)
	}
	if users == nil {
		return nil, domain.NewValidationError("users", "cannot be nil", domain.ErrValidation)
	}
	if dispatcher == nil {
		return nil, domain.NewValidationError("dispatcher", "cannot be nil", domain.ErrValidation)
	}
	if recurrence == nil {
		return nil, domain.NewValidationError("recurrence", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		tasks:      tasks,
		users:      users,
		dispatcher: dispatcher,
		recurrence: recurrence,
		queries:    NewTaskQueryBuilder(),
		emitter:    emitter,
		logger:     logger.With(slog.String("component", "task_service")),
		now:        time.Now,
	}, nil
}

// Create implements TaskService.
func (s *taskServiceImpl) Create(
	ctx context.Context,
	principal domain.Principal,
	input CreateTaskInput,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task := domain.NewTask(principal.UserID, input.Title)
	task.Description = input.Description
	if input.Status != nil {
		task.Status = *input.Status
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if input.DueDate != nil {
		due := input.DueDate.UTC()
		task.DueDate = &due
	}
	if input.AssignedTo != nil {
		id := *input.AssignedTo
		task.AssignedTo = &id
	}
	task.Tags = domain.NormalizeTags(input.Tags)
	task.IsRecurring = input.IsRecurring
	if input.RecurringType != nil {
		task.RecurringType = *input.RecurringType
	}
	if input.RecurringEndDate != nil {
		end := input.RecurringEndDate.UTC()
		task.RecurringEndDate = &end
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}
	if task.AssignedTo != nil {
		if err := s.requireAssignable(ctx, *task.AssignedTo); err != nil {
			return nil, err
		}
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("user_id", principal.UserID.String()))
		return nil, wrapStoreError("create task", "failed to store task", err)
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", principal.UserID.String()))

	if task.AssignedTo != nil {
		s.dispatcher.Notify(ctx, domain.NotificationTaskAssigned, principal.UserID, *task.AssignedTo,
			assignedMessage(task), task.ID)
	}
	s.emit(ctx, events.TaskCreated, task.ID, principal.UserID, nil)

	return task, nil
}

// Get implements TaskService.
func (s *taskServiceImpl) Get(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Task, error) {
	task, err := s.load(ctx, id, "get task")
	if err != nil {
		return nil, err
	}
	if !authz.CanAccess(principal, task, authz.ActionRead) {
		return nil, ErrForbidden
	}
	return task, nil
}

// List implements TaskService.
func (s *taskServiceImpl) List(ctx context.Context, principal domain.Principal, filter TaskFilter) (*TaskPage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	plan, err := s.queries.Build(principal, filter)
	if err != nil {
		return nil, err
	}

	total, err := s.tasks.Count(ctx, plan.Query.Where)
	if err != nil {
		log.Error("failed to count tasks", slog.String("error", err.Error()))
		return nil, wrapStoreError("list tasks", "failed to count tasks", err)
	}

	items := []*domain.Task{}
	if total > int64(plan.Query.Skip) {
		items, err = s.tasks.Find(ctx, plan.Query)
		if err != nil {
			log.Error("failed to find tasks", slog.String("error", err.Error()))
			return nil, wrapStoreError("list tasks", "failed to find tasks", err)
		}
	}

	return &TaskPage{
		Items:      items,
		Pagination: NewPagination(total, plan.Page),
	}, nil
}

// Update implements TaskService.
func (s *taskServiceImpl) Update(
	ctx context.Context,
	principal domain.Principal,
	id uuid.UUID,
	patch domain.TaskPatch,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.load(ctx, id, "update task")
	if err != nil {
		return nil, err
	}
	if !authz.CanAccess(principal, task, authz.ActionUpdate) {
		return nil, ErrForbidden
	}
	if patch.IsEmpty() {
		return nil, domain.NewValidationError("", "no fields to update", nil)
	}

	before := task.Clone()
	patch.ApplyTo(task)
	task.UpdatedAt = s.now().UTC()

	if err := task.Validate(); err != nil {
		return nil, err
	}
	assigneeChanged := !sameUser(before.AssignedTo, task.AssignedTo)
	if assigneeChanged && task.AssignedTo != nil {
		if err := s.requireAssignable(ctx, *task.AssignedTo); err != nil {
			return nil, err
		}
	}
	spawn := Triggered(before, task)

	if err := s.tasks.Update(ctx, task); err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, wrapStoreError("update task", "failed to store task", err)
	}

	log.Info("task updated",
		slog.String("task_id", id.String()),
		slog.String("user_id", principal.UserID.String()))

	statusChanged := before.Status != task.Status
	if assigneeChanged && task.AssignedTo != nil {
		s.dispatcher.Notify(ctx, domain.NotificationTaskAssigned, principal.UserID, *task.AssignedTo,
			assignedMessage(task), task.ID)
	}
	if statusChanged && before.AssignedTo != nil {
		s.dispatcher.Notify(ctx, domain.NotificationTaskUpdated, principal.UserID, *before.AssignedTo,
			fmt.Sprintf("Task %q status changed to %s", task.Title, task.Status), task.ID)
	}
	completed := statusChanged && task.Status == domain.StatusCompleted
	if completed {
		s.dispatcher.Notify(ctx, domain.NotificationTaskCompleted, principal.UserID, task.CreatedBy,
			fmt.Sprintf("Task %q has been completed", task.Title), task.ID)
	}

	s.emit(ctx, events.TaskUpdated, task.ID, principal.UserID, events.UpdatedPayload{
		ChangedFields: changedFields(before, task),
		Completed:     completed,
	})

	if spawn {
		s.continueSeries(ctx, principal, task)
	}

	return task, nil
}

// continueSeries spawns the next occurrence. The update has already been
// stored, so failures are logged rather than returned.
func (s *taskServiceImpl) continueSeries(ctx context.Context, principal domain.Principal, task *domain.Task) {
	next, err := s.recurrence.MaybeSpawnNext(ctx, task)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to continue recurring task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return
	}
	if next == nil {
		return
	}

	if next.AssignedTo != nil {
		s.dispatcher.Notify(ctx, domain.NotificationTaskAssigned, principal.UserID, *next.AssignedTo,
			assignedMessage(next), next.ID)
	}
	s.emit(ctx, events.TaskSpawned, next.ID, principal.UserID, events.SpawnedPayload{SourceTaskID: task.ID})
}

// Delete implements TaskService.
func (s *taskServiceImpl) Delete(ctx context.Context, principal domain.Principal, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.load(ctx, id, "delete task")
	if err != nil {
		return err
	}
	if !authz.CanAccess(principal, task, authz.ActionDelete) {
		return ErrForbidden
	}

	// The assignee is only known while the task exists.
	if task.AssignedTo != nil {
		s.dispatcher.Notify(ctx, domain.NotificationTaskDeleted, principal.UserID, *task.AssignedTo,
			fmt.Sprintf("Task %q has been deleted", task.Title), task.ID)
	}

	if err := s.tasks.Delete(ctx, id); err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return wrapStoreError("delete task", "failed to delete task", err)
	}

	log.Info("task deleted",
		slog.String("task_id", id.String()),
		slog.String("user_id", principal.UserID.String()))
	s.emit(ctx, events.TaskDeleted, id, principal.UserID, nil)
	return nil
}

// BatchUpdate implements TaskService.
func (s *taskServiceImpl) BatchUpdate(
	ctx context.Context,
	principal domain.Principal,
	input BatchUpdateInput,
) (*BatchUpdateResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !authz.CanBatchUpdate(principal) {
		return nil, ErrForbidden
	}

	ids := uniqueIDs(input.TaskIDs)
	if len(ids) == 0 {
		return nil, domain.NewValidationError("taskIds", "must not be empty", nil)
	}
	if len(ids) > MaxBatchTaskIDs {
		return nil, domain.NewValidationError("taskIds",
			fmt.Sprintf("must not contain more than %d ids", MaxBatchTaskIDs), nil)
	}
	changes, fields, err := parseBatchChanges(input.Updates)
	if err != nil {
		return nil, err
	}
	if changes.AssignedTo != nil {
		if err := s.requireAssignable(ctx, *changes.AssignedTo); err != nil {
			return nil, err
		}
	}
	changes.UpdatedAt = s.now().UTC()

	existing, err := s.tasks.FindByIDs(ctx, ids)
	if err != nil {
		log.Error("failed to load tasks for batch update", slog.String("error", err.Error()))
		return nil, wrapStoreError("batch update", "failed to load tasks", err)
	}
	if len(existing) == 0 {
		return &BatchUpdateResult{Tasks: []*domain.Task{}}, nil
	}

	matched := make([]uuid.UUID, len(existing))
	changed := 0
	for i, task := range existing {
		matched[i] = task.ID
		if changes.Changes(task) {
			changed++
		}
	}

	updated, err := s.tasks.UpdateMany(ctx, matched, changes)
	if err != nil {
		log.Error("failed to apply batch update", slog.String("error", err.Error()))
		return nil, wrapStoreError("batch update", "failed to update tasks", err)
	}

	log.Info("batch update applied",
		slog.Int("requested", len(ids)),
		slog.Int("matched", len(matched)),
		slog.Int("changed", changed),
		slog.String("user_id", principal.UserID.String()))

	if changes.AssignedTo != nil {
		for _, task := range updated {
			s.dispatcher.Notify(ctx, domain.NotificationTaskAssigned, principal.UserID, *changes.AssignedTo,
				assignedMessage(task), task.ID)
		}
	}

	updatedIDs := make([]uuid.UUID, len(updated))
	for i, task := range updated {
		updatedIDs[i] = task.ID
	}
	s.emit(ctx, events.TaskBatchUpdated, uuid.Nil, principal.UserID, events.BatchPayload{
		TaskIDs: updatedIDs,
		Fields:  fields,
	})

	return &BatchUpdateResult{
		Matched: len(matched),
		Updated: changed,
		Tasks:   updated,
	}, nil
}

func (s *taskServiceImpl) load(ctx context.Context, id uuid.UUID, operation string) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if !store.IsNotFoundError(err) {
			logger.FromContextOrDefault(ctx, s.logger).Error("failed to load task",
				slog.String("error", err.Error()),
				slog.String("task_id", id.String()))
		}
		return nil, wrapStoreError(operation, "failed to load task", err)
	}
	return task, nil
}

// requireAssignable checks that id names an existing, active user.
func (s *taskServiceImpl) requireAssignable(ctx context.Context, id uuid.UUID) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return domain.NewValidationError("assignedTo", "must reference an existing user", domain.ErrInvalidID)
		}
		return wrapStoreError("resolve assignee", "failed to load user", err)
	}
	if !user.Active {
		return domain.NewValidationError("assignedTo", "must reference an active user", nil)
	}
	return nil
}

func (s *taskServiceImpl) emit(
	ctx context.Context,
	eventType events.EventType,
	taskID, actorID uuid.UUID,
	payload any,
) {
	if s.emitter == nil {
		return
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := events.NewTaskEvent(eventType, taskID, actorID, payload)
	if err != nil {
		log.Error("failed to build task event",
			slog.String("error", err.Error()),
			slog.String("event_type", string(eventType)))
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Warn("task event handler failed",
			slog.String("error", err.Error()),
			slog.String("event_type", string(eventType)),
			slog.String("task_id", taskID.String()))
	}
}

// parseBatchChanges decodes the allow-listed fields. Any other field fails
// the whole request.
func parseBatchChanges(updates map[string]json.RawMessage) (store.BatchChanges, []string, error) {
	var changes store.BatchChanges
	if len(updates) == 0 {
		return changes, nil, domain.NewValidationError("updates", "must not be empty", nil)
	}

	fields := make([]string, 0, len(updates))
	for field := range updates {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		switch field {
		case BatchFieldStatus, BatchFieldPriority, BatchFieldAssignedTo:
		default:
			return changes, nil, domain.NewValidationError(field,
				"cannot be changed in a batch update", ErrBatchFieldNotAllowed)
		}
	}

	for _, field := range fields {
		raw := updates[field]
		switch field {
		case BatchFieldStatus:
			value, err := decodeString(field, raw)
			if err != nil {
				return changes, nil, err
			}
			status, err := domain.ParseTaskStatus(value)
			if err != nil {
				return changes, nil, err
			}
			changes.Status = &status
		case BatchFieldPriority:
			value, err := decodeString(field, raw)
			if err != nil {
				return changes, nil, err
			}
			priority, err := domain.ParseTaskPriority(value)
			if err != nil {
				return changes, nil, err
			}
			changes.Priority = &priority
		case BatchFieldAssignedTo:
			if isJSONNull(raw) {
				changes.ClearAssignedTo = true
				continue
			}
			value, err := decodeString(field, raw)
			if err != nil {
				return changes, nil, err
			}
			id, err := uuid.Parse(value)
			if err != nil {
				return changes, nil, domain.NewValidationError(field, "has invalid format", domain.ErrInvalidID)
			}
			changes.AssignedTo = &id
		}
	}

	return changes, fields, nil
}

func decodeString(field string, raw json.RawMessage) (string, error) {
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", domain.NewValidationError(field, "must be a string", domain.ErrInvalidFormat)
	}
	return value, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func sameUser(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func changedFields(before, after *domain.Task) []string {
	var fields []string
	add := func(name string, changed bool) {
		if changed {
			fields = append(fields, name)
		}
	}
	add("title", before.Title != after.Title)
	add("description", before.Description != after.Description)
	add("status", before.Status != after.Status)
	add("priority", before.Priority != after.Priority)
	add("dueDate", !sameTime(before.DueDate, after.DueDate))
	add("assignedTo", !sameUser(before.AssignedTo, after.AssignedTo))
	add("tags", !slices.Equal(before.Tags, after.Tags))
	add("isRecurring", before.IsRecurring != after.IsRecurring)
	add("recurringType", before.RecurringType != after.RecurringType)
	add("recurringEndDate", !sameTime(before.RecurringEndDate, after.RecurringEndDate))
	return fields
}

func assignedMessage(task *domain.Task) string {
	return fmt.Sprintf("You have been assigned a new task: %s", task.Title)
}
