package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type notificationDoc struct {
	ID          string    `bson:"_id"`
	Recipient   string    `bson:"recipient"`
	Sender      *string   `bson:"sender"`
	Type        string    `bson:"type"`
	Message     string    `bson:"message"`
	RelatedTask *string   `bson:"relatedTask"`
	IsRead      bool      `bson:"isRead"`
	CreatedAt   time.Time `bson:"createdAt"`
}

func (d notificationDoc) notification() (*domain.Notification, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid notification id %q: %w", d.ID, err)
	}
	recipient, err := uuid.Parse(d.Recipient)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient on notification %s: %w", d.ID, err)
	}
	sender, err := parseIDPtr(d.Sender)
	if err != nil {
		return nil, fmt.Errorf("invalid sender on notification %s: %w", d.ID, err)
	}
	related, err := parseIDPtr(d.RelatedTask)
	if err != nil {
		return nil, fmt.Errorf("invalid related task on notification %s: %w", d.ID, err)
	}
	return &domain.Notification{
		ID:          id,
		Recipient:   recipient,
		Sender:      sender,
		Type:        domain.NotificationType(d.Type),
		Message:     d.Message,
		RelatedTask: related,
		IsRead:      d.IsRead,
		CreatedAt:   d.CreatedAt.UTC(),
	}, nil
}

// MongoNotificationStore implements store.NotificationStore on a MongoDB
// collection.
type MongoNotificationStore struct {
	coll   *mongo.Collection
	logger *slog.Logger
}

// NewMongoNotificationStore creates a notification store over db's
// notifications collection.
func NewMongoNotificationStore(db *mongo.Database, logger *slog.Logger) *MongoNotificationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoNotificationStore{
		coll:   db.Collection(NotificationsCollection),
		logger: logger.With(slog.String("component", "notification_store")),
	}
}

var _ store.NotificationStore = (*MongoNotificationStore)(nil)

// Create implements store.NotificationStore.Create.
func (s *MongoNotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	_, err := s.coll.InsertOne(ctx, notificationDoc{
		ID:          n.ID.String(),
		Recipient:   n.Recipient.String(),
		Sender:      idPtr(n.Sender),
		Type:        string(n.Type),
		Message:     n.Message,
		RelatedTask: idPtr(n.RelatedTask),
		IsRead:      n.IsRead,
		CreatedAt:   n.CreatedAt.UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) && n.Type == domain.NotificationTaskReminder {
			return fmt.Errorf("%w: %v", store.ErrReminderExists, err)
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create notification",
			slog.String("error", err.Error()),
			slog.String("recipient", n.Recipient.String()))
		return MapError(err)
	}
	return nil
}

func recipientFilter(recipient uuid.UUID, unreadOnly bool) bson.D {
	f := bson.D{{Key: "recipient", Value: recipient.String()}}
	if unreadOnly {
		f = append(f, bson.E{Key: "isRead", Value: false})
	}
	return f
}

// ListByRecipient implements store.NotificationStore.ListByRecipient.
func (s *MongoNotificationStore) ListByRecipient(
	ctx context.Context,
	recipient uuid.UUID,
	q store.NotificationQuery,
) ([]*domain.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	if q.Skip > 0 {
		opts.SetSkip(int64(q.Skip))
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := s.coll.Find(ctx, recipientFilter(recipient, q.UnreadOnly), opts)
	if err != nil {
		return nil, err
	}
	var docs []notificationDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]*domain.Notification, 0, len(docs))
	for _, doc := range docs {
		n, err := doc.notification()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// CountByRecipient implements store.NotificationStore.CountByRecipient.
func (s *MongoNotificationStore) CountByRecipient(ctx context.Context, recipient uuid.UUID, unreadOnly bool) (int64, error) {
	return s.coll.CountDocuments(ctx, recipientFilter(recipient, unreadOnly))
}

func ownedBy(recipient, id uuid.UUID) bson.D {
	return bson.D{{Key: "_id", Value: id.String()}, {Key: "recipient", Value: recipient.String()}}
}

var markRead = bson.D{{Key: "$set", Value: bson.D{{Key: "isRead", Value: true}}}}

// MarkRead implements store.NotificationStore.MarkRead.
func (s *MongoNotificationStore) MarkRead(ctx context.Context, recipient, id uuid.UUID) error {
	result, err := s.coll.UpdateOne(ctx, ownedBy(recipient, id), markRead)
	if err != nil {
		return MapError(err)
	}
	if result.MatchedCount == 0 {
		return store.ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead implements store.NotificationStore.MarkAllRead.
func (s *MongoNotificationStore) MarkAllRead(ctx context.Context, recipient uuid.UUID) (int64, error) {
	result, err := s.coll.UpdateMany(ctx, recipientFilter(recipient, true), markRead)
	if err != nil {
		return 0, MapError(err)
	}
	return result.ModifiedCount, nil
}

// Delete implements store.NotificationStore.Delete.
func (s *MongoNotificationStore) Delete(ctx context.Context, recipient, id uuid.UUID) error {
	result, err := s.coll.DeleteOne(ctx, ownedBy(recipient, id))
	if err != nil {
		return MapError(err)
	}
	if result.DeletedCount == 0 {
		return store.ErrNotificationNotFound
	}
	return nil
}

// Exists implements store.NotificationStore.Exists.
func (s *MongoNotificationStore) Exists(
	ctx context.Context,
	recipient, taskID uuid.UUID,
	notificationType domain.NotificationType,
) (bool, error) {
	count, err := s.coll.CountDocuments(ctx, bson.D{
		{Key: "recipient", Value: recipient.String()},
		{Key: "relatedTask", Value: taskID.String()},
		{Key: "type", Value: string(notificationType)},
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
