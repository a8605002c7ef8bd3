package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/events"
	"github.com/phrazzld/taskflow-api/internal/platform/memory"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// eventLog collects emitted task events.
type eventLog struct {
	mu     sync.Mutex
	events []*events.TaskEvent
}

func (l *eventLog) HandleEvent(_ context.Context, event *events.TaskEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

func (l *eventLog) types() []events.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]events.EventType, len(l.events))
	for i, e := range l.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	tasks         *memory.TaskStore
	users         *memory.UserStore
	notifications *memory.NotificationStore
	dispatcher    *NotificationDispatcher
	recurrence    *RecurrenceEngine
	svc           *taskServiceImpl
	emitter       *events.InMemoryEventEmitter
	events        *eventLog

	admin   *domain.User
	manager *domain.User
	alice   *domain.User
	bob     *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		tasks:         memory.NewTaskStore(),
		users:         memory.NewUserStore(),
		notifications: memory.NewNotificationStore(),
		events:        &eventLog{},
	}
	f.dispatcher = NewNotificationDispatcher(f.notifications, nil, discardLogger)
	f.recurrence = NewRecurrenceEngine(f.tasks, discardLogger)

	f.emitter = events.NewInMemoryEventEmitter(discardLogger)
	f.emitter.RegisterHandler(f.events)

	svc, err := NewTaskService(f.tasks, f.users, f.dispatcher, f.recurrence, f.emitter, discardLogger)
	require.NoError(t, err)
	f.svc = svc.(*taskServiceImpl)

	f.admin = f.addUser(t, "admin@example.com", domain.RoleAdmin)
	f.manager = f.addUser(t, "manager@example.com", domain.RoleManager)
	f.alice = f.addUser(t, "alice@example.com", domain.RoleUser)
	f.bob = f.addUser(t, "bob@example.com", domain.RoleUser)
	return f
}

// taskSnapshot is the related task as the task store held it when a
// notification was written.
type taskSnapshot struct {
	notification domain.NotificationType
	task         *domain.Task
	err          error
}

// snapshottingNotificationStore reads the related task back from the task
// store on every Create, recording what other readers could see at that
// moment.
type snapshottingNotificationStore struct {
	*memory.NotificationStore
	tasks store.TaskStore

	mu        sync.Mutex
	snapshots []taskSnapshot
}

func (s *snapshottingNotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	if n.RelatedTask != nil {
		task, err := s.tasks.GetByID(ctx, *n.RelatedTask)
		s.mu.Lock()
		s.snapshots = append(s.snapshots, taskSnapshot{notification: n.Type, task: task, err: err})
		s.mu.Unlock()
	}
	return s.NotificationStore.Create(ctx, n)
}

func (s *snapshottingNotificationStore) taken(kind domain.NotificationType) []taskSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []taskSnapshot
	for _, snap := range s.snapshots {
		if snap.notification == kind {
			out = append(out, snap)
		}
	}
	return out
}

// snapshotNotifications routes the service's notifications through a
// snapshottingNotificationStore.
func (f *fixture) snapshotNotifications(t *testing.T) *snapshottingNotificationStore {
	t.Helper()
	snapshots := &snapshottingNotificationStore{NotificationStore: f.notifications, tasks: f.tasks}
	f.dispatcher = NewNotificationDispatcher(snapshots, nil, discardLogger)
	svc, err := NewTaskService(f.tasks, f.users, f.dispatcher, f.recurrence, f.emitter, discardLogger)
	require.NoError(t, err)
	f.svc = svc.(*taskServiceImpl)
	return snapshots
}

func (f *fixture) addUser(t *testing.T, email string, role domain.Role) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := &domain.User{
		ID:             uuid.New(),
		Email:          email,
		Name:           email,
		Role:           role,
		Active:         true,
		HashedPassword: "$2a$10$abcdefghijklmnopqrstuv",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) inbox(t *testing.T, user *domain.User) []*domain.Notification {
	t.Helper()
	list, err := f.notifications.ListByRecipient(context.Background(), user.ID, store.NotificationQuery{Limit: 100})
	require.NoError(t, err)
	return list
}

func (f *fixture) createTask(t *testing.T, owner *domain.User, title string, edit func(*CreateTaskInput)) *domain.Task {
	t.Helper()
	input := CreateTaskInput{Title: title}
	if edit != nil {
		edit(&input)
	}
	task, err := f.svc.Create(context.Background(), owner.Principal(), input)
	require.NoError(t, err)
	return task
}

func notificationTypes(list []*domain.Notification) []domain.NotificationType {
	out := make([]domain.NotificationType, len(list))
	for i, n := range list {
		out[i] = n.Type
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}
