package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// NotificationQuery selects a page of one recipient's notifications,
// newest first.
type NotificationQuery struct {
	UnreadOnly bool
	Skip       int
	Limit      int
}

// NotificationStore defines the interface for notification persistence.
// Every read and write is scoped to a recipient; a notification owned by
// someone else behaves as if it did not exist.
type NotificationStore interface {
	// Create saves a new notification.
	Create(ctx context.Context, notification *domain.Notification) error

	// ListByRecipient returns one page of the recipient's notifications.
	ListByRecipient(ctx context.Context, recipient uuid.UUID, query NotificationQuery) ([]*domain.Notification, error)

	// CountByRecipient counts the recipient's notifications.
	CountByRecipient(ctx context.Context, recipient uuid.UUID, unreadOnly bool) (int64, error)

	// MarkRead flags a single notification as read.
	// Returns ErrNotificationNotFound if it does not exist for recipient.
	MarkRead(ctx context.Context, recipient, id uuid.UUID) error

	// MarkAllRead flags all of the recipient's notifications as read and
	// returns how many changed.
	MarkAllRead(ctx context.Context, recipient uuid.UUID) (int64, error)

	// Delete removes a notification.
	// Returns ErrNotificationNotFound if it does not exist for recipient.
	Delete(ctx context.Context, recipient, id uuid.UUID) error

	// Exists reports whether recipient already has a notification of the
	// given type about taskID.
	Exists(ctx context.Context, recipient, taskID uuid.UUID, notificationType domain.NotificationType) (bool, error)
}
