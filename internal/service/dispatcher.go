package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/metrics"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// NotificationRecorder counts dispatch outcomes. *metrics.Metrics satisfies it.
type NotificationRecorder interface {
	RecordNotification(notificationType, outcome string)
}

type nopNotificationRecorder struct{}

func (nopNotificationRecorder) RecordNotification(string, string) {}

// NotificationDispatcher persists notifications produced by task mutations.
// A sender never notifies themselves.
type NotificationDispatcher struct {
	notifications store.NotificationStore
	recorder      NotificationRecorder
	logger        *slog.Logger
}

// NewNotificationDispatcher creates a dispatcher. A nil recorder disables
// metrics.
func NewNotificationDispatcher(
	notifications store.NotificationStore,
	recorder NotificationRecorder,
	logger *slog.Logger,
) *NotificationDispatcher {
	if notifications == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("notifications cannot be nil")
	}
	if recorder == nil {
		recorder = nopNotificationRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationDispatcher{
		notifications: notifications,
		recorder:      recorder,
		logger:        logger.With(slog.String("component", "notification_dispatcher")),
	}
}

// Send stores one notification and returns any failure. It returns
// (nil, nil) when the notification is suppressed because sender and
// recipient are the same user.
func (d *NotificationDispatcher) Send(
	ctx context.Context,
	notificationType domain.NotificationType,
	sender *uuid.UUID,
	recipient uuid.UUID,
	message string,
	relatedTask *uuid.UUID,
) (*domain.Notification, error) {
	if sender != nil && *sender == recipient {
		d.recorder.RecordNotification(string(notificationType), metrics.OutcomeSuppressed)
		return nil, nil
	}

	notification, err := domain.NewNotification(notificationType, sender, recipient, message, relatedTask)
	if err != nil {
		d.recorder.RecordNotification(string(notificationType), metrics.OutcomeFailed)
		return nil, err
	}

	if err := d.notifications.Create(ctx, notification); err != nil {
		outcome := metrics.OutcomeFailed
		if errors.Is(err, store.ErrDuplicate) {
			outcome = metrics.OutcomeSuppressed
		}
		d.recorder.RecordNotification(string(notificationType), outcome)
		return nil, NewServiceError("send notification", "failed to store notification", err)
	}

	d.recorder.RecordNotification(string(notificationType), metrics.OutcomeStored)
	logger.FromContextOrDefault(ctx, d.logger).Debug("notification stored",
		slog.String("notification_id", notification.ID.String()),
		slog.String("type", string(notificationType)),
		slog.String("recipient", recipient.String()))
	return notification, nil
}

// Notify is the best-effort form of Send used by the lifecycle coordinator:
// failures are logged and swallowed so they never affect the mutation that
// triggered them.
func (d *NotificationDispatcher) Notify(
	ctx context.Context,
	notificationType domain.NotificationType,
	sender uuid.UUID,
	recipient uuid.UUID,
	message string,
	relatedTask uuid.UUID,
) *domain.Notification {
	notification, err := d.Send(ctx, notificationType, &sender, recipient, message, &relatedTask)
	if err != nil {
		logger.FromContextOrDefault(ctx, d.logger).Error("failed to dispatch notification",
			slog.String("error", err.Error()),
			slog.String("type", string(notificationType)),
			slog.String("recipient", recipient.String()),
			slog.String("task_id", relatedTask.String()))
		return nil
	}
	return notification
}
