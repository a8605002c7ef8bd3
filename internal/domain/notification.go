package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NotificationType classifies why a notification was sent.
type NotificationType string

const (
	NotificationTaskAssigned  NotificationType = "task-assigned"
	NotificationTaskUpdated   NotificationType = "task-updated"
	NotificationTaskCompleted NotificationType = "task-completed"
	NotificationTaskDeleted   NotificationType = "task-deleted"
	NotificationTaskReminder  NotificationType = "task-reminder"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTaskAssigned, NotificationTaskUpdated, NotificationTaskCompleted,
		NotificationTaskDeleted, NotificationTaskReminder:
		return true
	}
	return false
}

// Notification is a stored message for a single recipient. RelatedTask is a
// weak reference and may point at a task that no longer exists.
type Notification struct {
	ID          uuid.UUID        `json:"id"`
	Recipient   uuid.UUID        `json:"recipient"`
	Sender      *uuid.UUID       `json:"sender,omitempty"`
	Type        NotificationType `json:"type"`
	Message     string           `json:"message"`
	RelatedTask *uuid.UUID       `json:"relatedTask,omitempty"`
	IsRead      bool             `json:"isRead"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// NewNotification creates an unread notification.
func NewNotification(
	notificationType NotificationType,
	sender *uuid.UUID,
	recipient uuid.UUID,
	message string,
	relatedTask *uuid.UUID,
) (*Notification, error) {
	n := &Notification{
		ID:        uuid.New(),
		Recipient: recipient,
		Type:      notificationType,
		Message:   strings.TrimSpace(message),
		CreatedAt: time.Now().UTC(),
	}
	if sender != nil {
		id := *sender
		n.Sender = &id
	}
	if relatedTask != nil {
		id := *relatedTask
		n.RelatedTask = &id
	}

	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// Validate checks if the Notification has valid data.
func (n *Notification) Validate() error {
	if n.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if n.Recipient == uuid.Nil {
		return NewValidationError("recipient", "cannot be empty", ErrInvalidID)
	}
	if !n.Type.Valid() {
		return NewValidationError("type", "is not a known notification type", ErrInvalidNotificationType)
	}
	if n.Message == "" {
		return NewValidationError("message", "cannot be empty", nil)
	}
	return nil
}
