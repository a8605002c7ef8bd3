package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// TaskSummary is the resolved view of a notification's related task.
type TaskSummary struct {
	ID     uuid.UUID         `json:"id"`
	Title  string            `json:"title"`
	Status domain.TaskStatus `json:"status"`
}

// NotificationView pairs a notification with its related task, which is nil
// when the task has been deleted.
type NotificationView struct {
	*domain.Notification
	Task *TaskSummary
}

// NotificationPage is one page of a recipient's inbox.
type NotificationPage struct {
	Items      []NotificationView
	Pagination Pagination
}

// NotificationListInput selects a page of the inbox.
type NotificationListInput struct {
	UnreadOnly bool
	Page       int
	Limit      int
}

// NotificationService exposes the caller's own notifications. Every method
// is scoped to the principal as recipient.
type NotificationService interface {
	List(ctx context.Context, principal domain.Principal, input NotificationListInput) (*NotificationPage, error)
	UnreadCount(ctx context.Context, principal domain.Principal) (int64, error)
	MarkRead(ctx context.Context, principal domain.Principal, id uuid.UUID) error
	MarkAllRead(ctx context.Context, principal domain.Principal) (int64, error)
	Delete(ctx context.Context, principal domain.Principal, id uuid.UUID) error
}

type notificationServiceImpl struct {
	notifications store.NotificationStore
	tasks         store.TaskStore
	logger        *slog.Logger
}

// NewNotificationService creates the inbox service.
func NewNotificationService(
	notifications store.NotificationStore,
	tasks store.TaskStore,
	logger *slog.Logger,
) (NotificationService, error) {
	if notifications == nil {
		return nil, domain.NewValidationError("notifications", "cannot be nil", domain.ErrValidation)
	}
	if tasks == nil {
		return nil, domain.NewValidationError("tasks", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &notificationServiceImpl{
		notifications: notifications,
		tasks:         tasks,
		logger:        logger.With(slog.String("component", "notification_service")),
	}, nil
}

func (s *notificationServiceImpl) List(
	ctx context.Context,
	principal domain.Principal,
	input NotificationListInput,
) (*NotificationPage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	page := NewPageRequest(input.Page, input.Limit)

	total, err := s.notifications.CountByRecipient(ctx, principal.UserID, input.UnreadOnly)
	if err != nil {
		log.Error("failed to count notifications", slog.String("error", err.Error()))
		return nil, wrapStoreError("list notifications", "failed to count notifications", err)
	}

	notifications, err := s.notifications.ListByRecipient(ctx, principal.UserID, store.NotificationQuery{
		UnreadOnly: input.UnreadOnly,
		Skip:       page.Skip(),
		Limit:      page.Limit,
	})
	if err != nil {
		log.Error("failed to list notifications", slog.String("error", err.Error()))
		return nil, wrapStoreError("list notifications", "failed to list notifications", err)
	}

	summaries, err := s.resolveTasks(ctx, notifications)
	if err != nil {
		return nil, err
	}

	items := make([]NotificationView, len(notifications))
	for i, n := range notifications {
		items[i] = NotificationView{Notification: n}
		if n.RelatedTask != nil {
			items[i].Task = summaries[*n.RelatedTask]
		}
	}

	return &NotificationPage{
		Items:      items,
		Pagination: NewPagination(total, page),
	}, nil
}

// resolveTasks loads the related tasks of a page in one query. Missing tasks
// are simply absent from the result.
func (s *notificationServiceImpl) resolveTasks(
	ctx context.Context,
	notifications []*domain.Notification,
) (map[uuid.UUID]*TaskSummary, error) {
	var ids []uuid.UUID
	for _, n := range notifications {
		if n.RelatedTask != nil {
			ids = append(ids, *n.RelatedTask)
		}
	}
	if len(ids) == 0 {
		return map[uuid.UUID]*TaskSummary{}, nil
	}

	tasks, err := s.tasks.FindByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to resolve related tasks",
			slog.String("error", err.Error()))
		return nil, wrapStoreError("list notifications", "failed to resolve related tasks", err)
	}

	summaries := make(map[uuid.UUID]*TaskSummary, len(tasks))
	for _, task := range tasks {
		summaries[task.ID] = &TaskSummary{ID: task.ID, Title: task.Title, Status: task.Status}
	}
	return summaries, nil
}

func (s *notificationServiceImpl) UnreadCount(ctx context.Context, principal domain.Principal) (int64, error) {
	count, err := s.notifications.CountByRecipient(ctx, principal.UserID, true)
	if err != nil {
		return 0, wrapStoreError("unread count", "failed to count notifications", err)
	}
	return count, nil
}

func (s *notificationServiceImpl) MarkRead(ctx context.Context, principal domain.Principal, id uuid.UUID) error {
	if err := s.notifications.MarkRead(ctx, principal.UserID, id); err != nil {
		return wrapStoreError("mark notification read", "failed to update notification", err)
	}
	return nil
}

func (s *notificationServiceImpl) MarkAllRead(ctx context.Context, principal domain.Principal) (int64, error) {
	updated, err := s.notifications.MarkAllRead(ctx, principal.UserID)
	if err != nil {
		return 0, wrapStoreError("mark all notifications read", "failed to update notifications", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Debug("notifications marked read",
		slog.String("user_id", principal.UserID.String()),
		slog.Int64("updated", updated))
	return updated, nil
}

func (s *notificationServiceImpl) Delete(ctx context.Context, principal domain.Principal, id uuid.UUID) error {
	if err := s.notifications.Delete(ctx, principal.UserID, id); err != nil {
		return wrapStoreError("delete notification", "failed to delete notification", err)
	}
	return nil
}
