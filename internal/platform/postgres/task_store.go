package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
)

const taskSelectColumns = `id, title, description, status, priority, due_date, created_by,
	assigned_to, tags, is_recurring, recurring_type, recurring_end_date, created_at, updated_at`

// PostgresTaskStore implements store.TaskStore on PostgreSQL.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a task store over db. A nil logger falls back
// to slog.Default().
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Create implements store.TaskStore.Create.
// Returns store.ErrInvalidEntity when creator or assignee do not exist.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	tags, err := encodeTags(task.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (id, title, description, status, priority, due_date, created_by,
			assigned_to, tags, is_recurring, recurring_type, recurring_end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = s.db.ExecContext(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		string(task.Status),
		string(task.Priority),
		nullTime(task.DueDate),
		task.CreatedBy,
		nullUUID(task.AssignedTo),
		tags,
		task.IsRecurring,
		string(task.RecurringType),
		nullTime(task.RecurringEndDate),
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	log.Debug("task created", slog.String("task_id", task.ID.String()))
	return nil
}

// GetByID implements store.TaskStore.GetByID.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + taskSelectColumns + ` FROM tasks WHERE id = $1`
	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", id.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, err
	}
	return task, nil
}

// FindByIDs implements store.TaskStore.FindByIDs.
func (s *PostgresTaskStore) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Task, error) {
	if len(ids) == 0 {
		return []*domain.Task{}, nil
	}

	var b whereBuilder
	query := `SELECT ` + taskSelectColumns + ` FROM tasks WHERE ` + b.inList("id", uuidArgs(ids))
	return s.queryTasks(ctx, query, b.args...)
}

// Find implements store.TaskStore.Find.
func (s *PostgresTaskStore) Find(ctx context.Context, q store.TaskQuery) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var b whereBuilder
	where, err := b.build(q.Where)
	if err != nil {
		return nil, err
	}
	order, err := orderBy(q.Sort)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + taskSelectColumns + ` FROM tasks WHERE ` + where + ` ` + order
	if q.Limit > 0 {
		query += ` LIMIT ` + b.arg(q.Limit)
	}
	if q.Skip > 0 {
		query += ` OFFSET ` + b.arg(q.Skip)
	}

	log.Debug("finding tasks", slog.String("where", q.Where.String()))
	return s.queryTasks(ctx, query, b.args...)
}

// Count implements store.TaskStore.Count.
func (s *PostgresTaskStore) Count(ctx context.Context, where store.Predicate) (int64, error) {
	var b whereBuilder
	clause, err := b.build(where)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE `+clause, b.args...).Scan(&count); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to count tasks",
			slog.String("error", err.Error()))
		return 0, err
	}
	return count, nil
}

// Update implements store.TaskStore.Update.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during update",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	tags, err := encodeTags(task.Tags)
	if err != nil {
		return err
	}

	query := `
		UPDATE tasks
		SET title = $1, description = $2, status = $3, priority = $4, due_date = $5,
			assigned_to = $6, tags = $7, is_recurring = $8, recurring_type = $9,
			recurring_end_date = $10, updated_at = $11
		WHERE id = $12
	`
	result, err := s.db.ExecContext(ctx, query,
		task.Title,
		task.Description,
		string(task.Status),
		string(task.Priority),
		nullTime(task.DueDate),
		nullUUID(task.AssignedTo),
		tags,
		task.IsRecurring,
		string(task.RecurringType),
		nullTime(task.RecurringEndDate),
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// UpdateMany implements store.TaskStore.UpdateMany in a single statement.
func (s *PostgresTaskStore) UpdateMany(
	ctx context.Context,
	ids []uuid.UUID,
	changes store.BatchChanges,
) ([]*domain.Task, error) {
	if len(ids) == 0 {
		return []*domain.Task{}, nil
	}

	var b whereBuilder
	sets := []string{"updated_at = " + b.arg(changes.UpdatedAt)}
	if changes.Status != nil {
		sets = append(sets, "status = "+b.arg(string(*changes.Status)))
	}
	if changes.Priority != nil {
		sets = append(sets, "priority = "+b.arg(string(*changes.Priority)))
	}
	if changes.ClearAssignedTo {
		sets = append(sets, "assigned_to = NULL")
	} else if changes.AssignedTo != nil {
		sets = append(sets, "assigned_to = "+b.arg(*changes.AssignedTo))
	}

	query := `UPDATE tasks SET ` + strings.Join(sets, ", ") +
		` WHERE ` + b.inList("id", uuidArgs(ids)) +
		` RETURNING ` + taskSelectColumns

	tasks, err := s.queryTasks(ctx, query, b.args...)
	if err != nil {
		return nil, MapError(err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("batch updated tasks",
		slog.Int("requested", len(ids)),
		slog.Int("updated", len(tasks)))
	return tasks, nil
}

// Delete implements store.TaskStore.Delete.
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

func (s *PostgresTaskStore) queryTasks(ctx context.Context, query string, args ...any) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query tasks",
			slog.String("error", err.Error()))
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task             domain.Task
		status, priority string
		recurringType    string
		dueDate, endDate sql.NullTime
		assignedTo       uuid.NullUUID
		tags             []byte
	)

	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&status,
		&priority,
		&dueDate,
		&task.CreatedBy,
		&assignedTo,
		&tags,
		&task.IsRecurring,
		&recurringType,
		&endDate,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Status = domain.TaskStatus(status)
	task.Priority = domain.TaskPriority(priority)
	task.RecurringType = domain.RecurringType(recurringType)
	if dueDate.Valid {
		t := dueDate.Time.UTC()
		task.DueDate = &t
	}
	if endDate.Valid {
		t := endDate.Time.UTC()
		task.RecurringEndDate = &t
	}
	if assignedTo.Valid {
		id := assignedTo.UUID
		task.AssignedTo = &id
	}
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()

	task.Tags = []string{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &task.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags for task %s: %w", task.ID, err)
		}
	}

	return &task, nil
}

func encodeTags(tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	return b, nil
}

func uuidArgs(ids []uuid.UUID) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return *id
}
