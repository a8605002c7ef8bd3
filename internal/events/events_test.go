package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskEvent(t *testing.T) {
	taskID, actorID := uuid.New(), uuid.New()

	event, err := NewTaskEvent(TaskUpdated, taskID, actorID, UpdatedPayload{
		ChangedFields: []string{"status"},
		Completed:     true,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, TaskUpdated, event.Type)
	assert.Equal(t, taskID, event.TaskID)
	assert.Equal(t, actorID, event.ActorID)
	assert.WithinDuration(t, time.Now(), event.OccurredAt, 2*time.Second)

	var payload UpdatedPayload
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, []string{"status"}, payload.ChangedFields)
	assert.True(t, payload.Completed)
}

func TestNewTaskEventWithoutPayload(t *testing.T) {
	event, err := NewTaskEvent(TaskDeleted, uuid.New(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Empty(t, event.Payload)
}

func TestNewTaskEventRejectsUnencodablePayload(t *testing.T) {
	_, err := NewTaskEvent(TaskCreated, uuid.New(), uuid.New(), make(chan int))
	assert.Error(t, err)
}

// MockEventHandler records the events it receives.
type MockEventHandler struct {
	LastEvent    *TaskEvent
	HandlerError error
	HandledCount int
}

func (h *MockEventHandler) HandleEvent(ctx context.Context, event *TaskEvent) error {
	h.LastEvent = event
	h.HandledCount++
	return h.HandlerError
}

func TestHandlerFunc(t *testing.T) {
	var got *TaskEvent
	h := HandlerFunc(func(_ context.Context, e *TaskEvent) error {
		got = e
		return errors.New("nope")
	})

	event, err := NewTaskEvent(TaskSpawned, uuid.New(), uuid.New(), SpawnedPayload{SourceTaskID: uuid.New()})
	require.NoError(t, err)
	assert.EqualError(t, h.HandleEvent(context.Background(), event), "nope")
	assert.Same(t, event, got)
}
