package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
)

const notificationSelectColumns = `id, recipient_id, sender_id, type, message, related_task_id, is_read, created_at`

// PostgresNotificationStore implements store.NotificationStore on PostgreSQL.
type PostgresNotificationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresNotificationStore creates a notification store over db.
func NewPostgresNotificationStore(db store.DBTX, logger *slog.Logger) *PostgresNotificationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresNotificationStore{
		db:     db,
		logger: logger.With(slog.String("component", "notification_store")),
	}
}

var _ store.NotificationStore = (*PostgresNotificationStore)(nil)

// Create implements store.NotificationStore.Create.
func (s *PostgresNotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO notifications (id, recipient_id, sender_id, type, message, related_task_id, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		n.ID,
		n.Recipient,
		nullUUID(n.Sender),
		string(n.Type),
		n.Message,
		nullUUID(n.RelatedTask),
		n.IsRead,
		n.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) && n.Type == domain.NotificationTaskReminder {
			return MapUniqueViolation(err, store.ErrReminderExists)
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create notification",
			slog.String("error", err.Error()),
			slog.String("notification_id", n.ID.String()),
			slog.String("type", string(n.Type)))
		return MapError(err)
	}
	return nil
}

// ListByRecipient implements store.NotificationStore.ListByRecipient.
func (s *PostgresNotificationStore) ListByRecipient(
	ctx context.Context,
	recipient uuid.UUID,
	q store.NotificationQuery,
) ([]*domain.Notification, error) {
	args := []any{recipient}
	query := `SELECT ` + notificationSelectColumns + ` FROM notifications WHERE recipient_id = $1`
	if q.UnreadOnly {
		query += ` AND NOT is_read`
	}
	query += ` ORDER BY created_at DESC, id ASC`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if q.Skip > 0 {
		args = append(args, q.Skip)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list notifications",
			slog.String("error", err.Error()),
			slog.String("recipient_id", recipient.String()))
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	notifications := []*domain.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// CountByRecipient implements store.NotificationStore.CountByRecipient.
func (s *PostgresNotificationStore) CountByRecipient(
	ctx context.Context,
	recipient uuid.UUID,
	unreadOnly bool,
) (int64, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1`
	if unreadOnly {
		query += ` AND NOT is_read`
	}
	var count int64
	err := s.db.QueryRowContext(ctx, query, recipient).Scan(&count)
	return count, err
}

// MarkRead implements store.NotificationStore.MarkRead.
func (s *PostgresNotificationStore) MarkRead(ctx context.Context, recipient, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND recipient_id = $2`,
		id, recipient)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrNotificationNotFound)
}

// MarkAllRead implements store.NotificationStore.MarkAllRead.
func (s *PostgresNotificationStore) MarkAllRead(ctx context.Context, recipient uuid.UUID) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE recipient_id = $1 AND NOT is_read`,
		recipient)
	if err != nil {
		return 0, MapError(err)
	}
	return result.RowsAffected()
}

// Delete implements store.NotificationStore.Delete.
func (s *PostgresNotificationStore) Delete(ctx context.Context, recipient, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = $1 AND recipient_id = $2`,
		id, recipient)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrNotificationNotFound)
}

// Exists implements store.NotificationStore.Exists.
func (s *PostgresNotificationStore) Exists(
	ctx context.Context,
	recipient, taskID uuid.UUID,
	notificationType domain.NotificationType,
) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE recipient_id = $1 AND related_task_id = $2 AND type = $3
		)`, recipient, taskID, string(notificationType)).Scan(&exists)
	return exists, err
}

func scanNotification(row rowScanner) (*domain.Notification, error) {
	var (
		n            domain.Notification
		sender, task uuid.NullUUID
		kind         string
	)
	err := row.Scan(&n.ID, &n.Recipient, &sender, &kind, &n.Message, &task, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	n.Type = domain.NotificationType(kind)
	if sender.Valid {
		id := sender.UUID
		n.Sender = &id
	}
	if task.Valid {
		id := task.UUID
		n.RelatedTask = &id
	}
	n.CreatedAt = n.CreatedAt.UTC()
	return &n, nil
}

var _ rowScanner = (*sql.Row)(nil)
