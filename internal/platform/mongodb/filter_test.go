package mongodb

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFilter(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   store.Predicate
		want bson.D
	}{
		{"all", store.All(), bson.D{}},
		{
			"enum equality",
			store.Eq(store.FieldStatus, domain.StatusTodo),
			bson.D{{Key: "status", Value: "todo"}},
		},
		{
			"uuid rendered as string",
			store.Eq(store.FieldID, id),
			bson.D{{Key: "_id", Value: id.String()}},
		},
		{
			"nil pointer equality",
			store.Eq(store.FieldAssignedTo, (*uuid.UUID)(nil)),
			bson.D{{Key: "assignedTo", Value: nil}},
		},
		{
			"not equal",
			store.Ne(store.FieldStatus, domain.StatusCompleted),
			bson.D{{Key: "status", Value: bson.D{{Key: "$ne", Value: "completed"}}}},
		},
		{
			"less than",
			store.Lt(store.FieldDueDate, day),
			bson.D{{Key: "dueDate", Value: bson.D{{Key: "$lt", Value: day}}}},
		},
		{
			"between",
			store.Between(store.FieldDueDate, day, day.Add(time.Hour)),
			bson.D{{Key: "dueDate", Value: bson.D{
				{Key: "$gte", Value: day},
				{Key: "$lte", Value: day.Add(time.Hour)},
			}}},
		},
		{
			"contains is literal and case-insensitive",
			store.ContainsFold(store.FieldTitle, "a.b*"),
			bson.D{{Key: "title", Value: primitive.Regex{Pattern: `a\.b\*`, Options: "i"}}},
		},
		{
			"or of and",
			store.Or(
				store.Eq(store.FieldCreatedBy, id),
				store.And(store.Eq(store.FieldStatus, domain.StatusReview), store.Eq(store.FieldPriority, domain.PriorityHigh)),
			),
			bson.D{{Key: "$or", Value: bson.A{
				bson.D{{Key: "createdBy", Value: id.String()}},
				bson.D{{Key: "$and", Value: bson.A{
					bson.D{{Key: "status", Value: "review"}},
					bson.D{{Key: "priority", Value: "high"}},
				}}},
			}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := filter(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterRejectsUnknownInput(t *testing.T) {
	_, err := filter(store.Eq(store.Field("password"), "x"))
	assert.ErrorIs(t, err, store.ErrInvalidQuery)

	_, err = filter(store.Predicate{Op: store.OpContainsFold, Field: store.FieldTitle, Value: 42})
	assert.ErrorIs(t, err, store.ErrInvalidQuery)

	_, err = filter(store.Predicate{Op: "near", Field: store.FieldTitle})
	assert.ErrorIs(t, err, store.ErrInvalidQuery)
}

func TestFindPipeline(t *testing.T) {
	pipeline, err := findPipeline(store.TaskQuery{
		Where: store.All(),
		Sort:  store.Sort{Field: store.FieldDueDate},
		Skip:  10,
		Limit: 5,
	})
	require.NoError(t, err)
	require.Len(t, pipeline, 6)

	assert.Equal(t, "$sort", pipeline[2][0].Key)
	assert.Equal(t, bson.D{
		{Key: missingKey, Value: 1},
		{Key: "dueDate", Value: 1},
		{Key: "_id", Value: 1},
	}, pipeline[2][0].Value)
	assert.Equal(t, bson.D{{Key: "$skip", Value: int64(10)}}, pipeline[3])
	assert.Equal(t, bson.D{{Key: "$limit", Value: int64(5)}}, pipeline[4])

	pipeline, err = findPipeline(store.TaskQuery{})
	require.NoError(t, err)
	require.Len(t, pipeline, 4)
	assert.Equal(t, bson.D{
		{Key: missingKey, Value: 1},
		{Key: "createdAt", Value: -1},
		{Key: "_id", Value: 1},
	}, pipeline[2][0].Value)

	_, err = findPipeline(store.TaskQuery{Sort: store.Sort{Field: store.FieldDescription}})
	assert.ErrorIs(t, err, store.ErrInvalidQuery)
}

func TestTaskDocRoundTrip(t *testing.T) {
	task := domain.NewTask(uuid.New(), "doc")
	assignee := uuid.New()
	due := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	task.AssignedTo = &assignee
	task.DueDate = &due
	task.Tags = nil

	doc := newTaskDoc(task)
	assert.Equal(t, []string{}, doc.Tags)
	require.NotNil(t, doc.AssignedTo)
	assert.Equal(t, assignee.String(), *doc.AssignedTo)

	back, err := doc.task()
	require.NoError(t, err)
	assert.Equal(t, task.ID, back.ID)
	assert.Equal(t, assignee, *back.AssignedTo)
	assert.True(t, due.Equal(*back.DueDate))

	doc.CreatedBy = "not-a-uuid"
	_, err = doc.task()
	assert.Error(t, err)
}
