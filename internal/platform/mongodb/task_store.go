package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type taskDoc struct {
	ID               string     `bson:"_id"`
	Title            string     `bson:"title"`
	Description      string     `bson:"description"`
	Status           string     `bson:"status"`
	Priority         string     `bson:"priority"`
	DueDate          *time.Time `bson:"dueDate"`
	CreatedBy        string     `bson:"createdBy"`
	AssignedTo       *string    `bson:"assignedTo"`
	Tags             []string   `bson:"tags"`
	IsRecurring      bool       `bson:"isRecurring"`
	RecurringType    string     `bson:"recurringType"`
	RecurringEndDate *time.Time `bson:"recurringEndDate"`
	CreatedAt        time.Time  `bson:"createdAt"`
	UpdatedAt        time.Time  `bson:"updatedAt"`
}

func newTaskDoc(t *domain.Task) taskDoc {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return taskDoc{
		ID:               t.ID.String(),
		Title:            t.Title,
		Description:      t.Description,
		Status:           string(t.Status),
		Priority:         string(t.Priority),
		DueDate:          utcPtr(t.DueDate),
		CreatedBy:        t.CreatedBy.String(),
		AssignedTo:       idPtr(t.AssignedTo),
		Tags:             tags,
		IsRecurring:      t.IsRecurring,
		RecurringType:    string(t.RecurringType),
		RecurringEndDate: utcPtr(t.RecurringEndDate),
		CreatedAt:        t.CreatedAt.UTC(),
		UpdatedAt:        t.UpdatedAt.UTC(),
	}
}

func (d taskDoc) task() (*domain.Task, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid task id %q: %w", d.ID, err)
	}
	createdBy, err := uuid.Parse(d.CreatedBy)
	if err != nil {
		return nil, fmt.Errorf("invalid creator id on task %s: %w", d.ID, err)
	}
	assignedTo, err := parseIDPtr(d.AssignedTo)
	if err != nil {
		return nil, fmt.Errorf("invalid assignee id on task %s: %w", d.ID, err)
	}

	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return &domain.Task{
		ID:               id,
		Title:            d.Title,
		Description:      d.Description,
		Status:           domain.TaskStatus(d.Status),
		Priority:         domain.TaskPriority(d.Priority),
		DueDate:          utcPtr(d.DueDate),
		CreatedBy:        createdBy,
		AssignedTo:       assignedTo,
		Tags:             tags,
		IsRecurring:      d.IsRecurring,
		RecurringType:    domain.RecurringType(d.RecurringType),
		RecurringEndDate: utcPtr(d.RecurringEndDate),
		CreatedAt:        d.CreatedAt.UTC(),
		UpdatedAt:        d.UpdatedAt.UTC(),
	}, nil
}

// MongoTaskStore implements store.TaskStore on a MongoDB collection.
type MongoTaskStore struct {
	coll   *mongo.Collection
	logger *slog.Logger
}

// NewMongoTaskStore creates a task store over db's tasks collection.
func NewMongoTaskStore(db *mongo.Database, logger *slog.Logger) *MongoTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoTaskStore{
		coll:   db.Collection(TasksCollection),
		logger: logger.With(slog.String("component", "task_store")),
	}
}

var _ store.TaskStore = (*MongoTaskStore)(nil)

// Create implements store.TaskStore.Create.
func (s *MongoTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	if _, err := s.coll.InsertOne(ctx, newTaskDoc(task)); err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}
	log.Debug("task created", slog.String("task_id", task.ID.String()))
	return nil
}

// GetByID implements store.TaskStore.GetByID.
func (s *MongoTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var doc taskDoc
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id.String()}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrTaskNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, err
	}
	return doc.task()
}

// FindByIDs implements store.TaskStore.FindByIDs.
func (s *MongoTaskStore) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Task, error) {
	if len(ids) == 0 {
		return []*domain.Task{}, nil
	}
	cursor, err := s.coll.Find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: idStrings(ids)}}}})
	if err != nil {
		return nil, err
	}
	return s.decodeAll(ctx, cursor)
}

// Find implements store.TaskStore.Find.
func (s *MongoTaskStore) Find(ctx context.Context, q store.TaskQuery) ([]*domain.Task, error) {
	pipeline, err := findPipeline(q)
	if err != nil {
		return nil, err
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("finding tasks", slog.String("where", q.Where.String()))
	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query tasks",
			slog.String("error", err.Error()))
		return nil, err
	}
	return s.decodeAll(ctx, cursor)
}

// Count implements store.TaskStore.Count.
func (s *MongoTaskStore) Count(ctx context.Context, where store.Predicate) (int64, error) {
	f, err := filter(where)
	if err != nil {
		return 0, err
	}
	return s.coll.CountDocuments(ctx, f)
}

// Update implements store.TaskStore.Update. CreatedBy and CreatedAt are
// never rewritten.
func (s *MongoTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during update",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	doc := newTaskDoc(task)
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "title", Value: doc.Title},
		{Key: "description", Value: doc.Description},
		{Key: "status", Value: doc.Status},
		{Key: "priority", Value: doc.Priority},
		{Key: "dueDate", Value: doc.DueDate},
		{Key: "assignedTo", Value: doc.AssignedTo},
		{Key: "tags", Value: doc.Tags},
		{Key: "isRecurring", Value: doc.IsRecurring},
		{Key: "recurringType", Value: doc.RecurringType},
		{Key: "recurringEndDate", Value: doc.RecurringEndDate},
		{Key: "updatedAt", Value: doc.UpdatedAt},
	}}}

	result, err := s.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: doc.ID}}, update)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}
	if result.MatchedCount == 0 {
		return store.ErrTaskNotFound
	}
	return nil
}

// UpdateMany implements store.TaskStore.UpdateMany. The write is a single
// multi-document update; the returned tasks are read back afterwards.
func (s *MongoTaskStore) UpdateMany(
	ctx context.Context,
	ids []uuid.UUID,
	changes store.BatchChanges,
) ([]*domain.Task, error) {
	if len(ids) == 0 {
		return []*domain.Task{}, nil
	}

	set := bson.D{{Key: "updatedAt", Value: changes.UpdatedAt.UTC()}}
	if changes.Status != nil {
		set = append(set, bson.E{Key: "status", Value: string(*changes.Status)})
	}
	if changes.Priority != nil {
		set = append(set, bson.E{Key: "priority", Value: string(*changes.Priority)})
	}
	if changes.ClearAssignedTo {
		set = append(set, bson.E{Key: "assignedTo", Value: nil})
	} else if changes.AssignedTo != nil {
		set = append(set, bson.E{Key: "assignedTo", Value: changes.AssignedTo.String()})
	}

	match := bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: idStrings(ids)}}}}
	result, err := s.coll.UpdateMany(ctx, match, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return nil, MapError(err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("batch updated tasks",
		slog.Int("requested", len(ids)),
		slog.Int64("updated", result.MatchedCount))
	return s.FindByIDs(ctx, ids)
}

// Delete implements store.TaskStore.Delete.
func (s *MongoTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err)
	}
	if result.DeletedCount == 0 {
		return store.ErrTaskNotFound
	}
	return nil
}

func (s *MongoTaskStore) decodeAll(ctx context.Context, cursor *mongo.Cursor) ([]*domain.Task, error) {
	var docs []taskDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	tasks := make([]*domain.Task, 0, len(docs))
	for _, doc := range docs {
		task, err := doc.task()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func idPtr(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func parseIDPtr(s *string) (*uuid.UUID, error) {
	if s == nil {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
