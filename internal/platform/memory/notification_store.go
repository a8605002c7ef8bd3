package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// NotificationStore is an in-memory store.NotificationStore.
type NotificationStore struct {
	mu            sync.RWMutex
	notifications map[uuid.UUID]*domain.Notification
}

// NewNotificationStore returns an empty NotificationStore.
func NewNotificationStore() *NotificationStore {
	return &NotificationStore{notifications: make(map[uuid.UUID]*domain.Notification)}
}

var _ store.NotificationStore = (*NotificationStore)(nil)

func (s *NotificationStore) Create(_ context.Context, n *domain.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notifications[n.ID]; ok {
		return store.ErrDuplicate
	}
	if n.Type == domain.NotificationTaskReminder && n.RelatedTask != nil &&
		s.exists(n.Recipient, *n.RelatedTask, n.Type) {
		return store.ErrReminderExists
	}
	s.notifications[n.ID] = copyNotification(n)
	return nil
}

func (s *NotificationStore) ListByRecipient(
	_ context.Context,
	recipient uuid.UUID,
	q store.NotificationQuery,
) ([]*domain.Notification, error) {
	s.mu.RLock()
	out := []*domain.Notification{}
	for _, n := range s.notifications {
		if n.Recipient == recipient && (!q.UnreadOnly || !n.IsRead) {
			out = append(out, copyNotification(n))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if c := out[i].CreatedAt.Compare(out[j].CreatedAt); c != 0 {
			return c > 0
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return page(out, q.Skip, q.Limit), nil
}

func (s *NotificationStore) CountByRecipient(_ context.Context, recipient uuid.UUID, unreadOnly bool) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, n := range s.notifications {
		if n.Recipient == recipient && (!unreadOnly || !n.IsRead) {
			count++
		}
	}
	return count, nil
}

func (s *NotificationStore) MarkRead(_ context.Context, recipient, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.Recipient != recipient {
		return store.ErrNotificationNotFound
	}
	n.IsRead = true
	return nil
}

func (s *NotificationStore) MarkAllRead(_ context.Context, recipient uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed int64
	for _, n := range s.notifications {
		if n.Recipient == recipient && !n.IsRead {
			n.IsRead = true
			changed++
		}
	}
	return changed, nil
}

func (s *NotificationStore) Delete(_ context.Context, recipient, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.Recipient != recipient {
		return store.ErrNotificationNotFound
	}
	delete(s.notifications, id)
	return nil
}

func (s *NotificationStore) Exists(
	_ context.Context,
	recipient, taskID uuid.UUID,
	notificationType domain.NotificationType,
) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exists(recipient, taskID, notificationType), nil
}

// exists requires s.mu to be held.
func (s *NotificationStore) exists(recipient, taskID uuid.UUID, notificationType domain.NotificationType) bool {
	for _, n := range s.notifications {
		if n.Recipient == recipient && n.Type == notificationType &&
			n.RelatedTask != nil && *n.RelatedTask == taskID {
			return true
		}
	}
	return false
}

func copyNotification(n *domain.Notification) *domain.Notification {
	c := *n
	if n.Sender != nil {
		id := *n.Sender
		c.Sender = &id
	}
	if n.RelatedTask != nil {
		id := *n.RelatedTask
		c.RelatedTask = &id
	}
	return &c
}
