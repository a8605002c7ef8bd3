package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType names a task lifecycle event.
type EventType string

const (
	TaskCreated      EventType = "task.created"
	TaskUpdated      EventType = "task.updated"
	TaskDeleted      EventType = "task.deleted"
	TaskSpawned      EventType = "task.spawned"
	TaskBatchUpdated EventType = "task.batch_updated"
)

// TaskEvent records one persisted task mutation.
type TaskEvent struct {
	ID uuid.UUID `json:"id"`

	Type EventType `json:"type"`

	// TaskID is the affected task. It is uuid.Nil for batch events, whose
	// payload lists the ids instead.
	TaskID uuid.UUID `json:"taskId"`

	// ActorID is the principal that caused the mutation.
	ActorID uuid.UUID `json:"actorId"`

	Payload json.RawMessage `json:"payload,omitempty"`

	OccurredAt time.Time `json:"occurredAt"`
}

// UnmarshalPayload decodes the event payload into v.
func (e *TaskEvent) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewTaskEvent creates an event with a JSON-encoded payload. A nil payload
// leaves Payload empty.
func NewTaskEvent(eventType EventType, taskID, actorID uuid.UUID, payload any) (*TaskEvent, error) {
	event := &TaskEvent{
		ID:         uuid.New(),
		Type:       eventType,
		TaskID:     taskID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		event.Payload = b
	}
	return event, nil
}

// UpdatedPayload is the payload of TaskUpdated.
type UpdatedPayload struct {
	ChangedFields []string `json:"changedFields"`
	Completed     bool     `json:"completed"`
}

// SpawnedPayload is the payload of TaskSpawned.
type SpawnedPayload struct {
	SourceTaskID uuid.UUID `json:"sourceTaskId"`
}

// BatchPayload is the payload of TaskBatchUpdated.
type BatchPayload struct {
	TaskIDs []uuid.UUID `json:"taskIds"`
	Fields  []string    `json:"fields"`
}

// EventHandler processes events.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *TaskEvent) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *TaskEvent) error {
	return f(ctx, event)
}

// EventEmitter publishes events to registered handlers.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *TaskEvent) error
}
