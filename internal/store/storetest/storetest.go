// Package storetest is a conformance suite shared by every store backend.
// Each backend's tests call Run with a factory that returns empty stores.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Stores groups the backend implementations under test.
type Stores struct {
	Users         store.UserStore
	Tasks         store.TaskStore
	Notifications store.NotificationStore
}

// Factory returns stores with no data. It is called once per subtest.
type Factory func(t *testing.T) Stores

// Run executes the full suite against the backend produced by newStores.
func Run(t *testing.T, newStores Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStores) })
	t.Run("Tasks", func(t *testing.T) { testTasks(t, newStores) })
	t.Run("Notifications", func(t *testing.T) { testNotifications(t, newStores) })
}

// base is a millisecond-aligned instant every backend stores losslessly.
var base = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

func at(offset time.Duration) *time.Time {
	t := base.Add(offset)
	return &t
}

func newUser(t *testing.T, ctx context.Context, users store.UserStore, email string, created time.Duration) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:             uuid.New(),
		Email:          email,
		Name:           "Test User",
		Role:           domain.RoleUser,
		Active:         true,
		HashedPassword: "$2a$10$abcdefghijklmnopqrstuv",
		CreatedAt:      base.Add(created),
		UpdatedAt:      base.Add(created),
	}
	require.NoError(t, users.Create(ctx, u))
	return u
}

func newTask(creator uuid.UUID, title string, created time.Duration) *domain.Task {
	task := domain.NewTask(creator, title)
	task.CreatedAt = base.Add(created)
	task.UpdatedAt = task.CreatedAt
	return task
}

func assertSameTime(t *testing.T, want, got *time.Time) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got)
		return
	}
	require.NotNil(t, got)
	assert.True(t, want.Equal(*got), "want %v, got %v", *want, *got)
}

func ids(tasks []*domain.Task) []uuid.UUID {
	out := make([]uuid.UUID, len(tasks))
	for i, task := range tasks {
		out[i] = task.ID
	}
	return out
}

func titles(tasks []*domain.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.Title
	}
	return out
}

func testUsers(t *testing.T, newStores Factory) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		s := newStores(t)
		u := newUser(t, ctx, s.Users, "alice@example.com", 0)

		got, err := s.Users.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.Email, got.Email)
		assert.Equal(t, u.HashedPassword, got.HashedPassword)
		assert.Equal(t, domain.RoleUser, got.Role)
		assert.True(t, got.Active)
		assert.True(t, u.CreatedAt.Equal(got.CreatedAt))

		got, err = s.Users.GetByEmail(ctx, "ALICE@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		s := newStores(t)
		newUser(t, ctx, s.Users, "bob@example.com", 0)

		dup := &domain.User{
			ID: uuid.New(), Email: "bob@example.com", Role: domain.RoleUser, Active: true,
			HashedPassword: "hash", CreatedAt: base, UpdatedAt: base,
		}
		err := s.Users.Create(ctx, dup)
		assert.ErrorIs(t, err, store.ErrEmailExists)
		assert.True(t, store.IsDuplicateError(err))
	})

	t.Run("not found", func(t *testing.T) {
		s := newStores(t)
		_, err := s.Users.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrUserNotFound)
		_, err = s.Users.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, store.ErrUserNotFound)
		assert.ErrorIs(t, s.Users.UpdateRole(ctx, uuid.New(), domain.RoleAdmin), store.ErrUserNotFound)
		assert.ErrorIs(t, s.Users.SetActive(ctx, uuid.New(), false), store.ErrUserNotFound)
	})

	t.Run("list count and updates", func(t *testing.T) {
		s := newStores(t)
		second := newUser(t, ctx, s.Users, "second@example.com", time.Minute)
		first := newUser(t, ctx, s.Users, "first@example.com", 0)
		newUser(t, ctx, s.Users, "third@example.com", 2*time.Minute)

		count, err := s.Users.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 3, count)

		page, err := s.Users.List(ctx, 0, 2)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, first.ID, page[0].ID)
		assert.Equal(t, second.ID, page[1].ID)

		page, err = s.Users.List(ctx, 2, 2)
		require.NoError(t, err)
		assert.Len(t, page, 1)

		require.NoError(t, s.Users.UpdateRole(ctx, first.ID, domain.RoleManager))
		require.NoError(t, s.Users.SetActive(ctx, second.ID, false))

		got, err := s.Users.GetByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleManager, got.Role)

		got, err = s.Users.GetByID(ctx, second.ID)
		require.NoError(t, err)
		assert.False(t, got.Active)
	})
}

func testTasks(t *testing.T, newStores Factory) {
	ctx := context.Background()

	setup := func(t *testing.T) (Stores, *domain.User, *domain.User) {
		s := newStores(t)
		creator := newUser(t, ctx, s.Users, "creator@example.com", 0)
		assignee := newUser(t, ctx, s.Users, "assignee@example.com", time.Second)
		return s, creator, assignee
	}

	t.Run("create and get round trip", func(t *testing.T) {
		s, creator, assignee := setup(t)

		task := newTask(creator.ID, "write report", 0)
		task.Description = "Quarterly numbers"
		task.Status = domain.StatusInProgress
		task.Priority = domain.PriorityUrgent
		task.DueDate = at(48 * time.Hour)
		task.AssignedTo = &assignee.ID
		task.Tags = []string{"finance", "q2"}
		task.IsRecurring = true
		task.RecurringType = domain.RecurringWeekly
		task.RecurringEndDate = at(30 * 24 * time.Hour)
		require.NoError(t, s.Tasks.Create(ctx, task))

		got, err := s.Tasks.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, task.Title, got.Title)
		assert.Equal(t, task.Description, got.Description)
		assert.Equal(t, task.Status, got.Status)
		assert.Equal(t, task.Priority, got.Priority)
		assert.Equal(t, task.CreatedBy, got.CreatedBy)
		require.NotNil(t, got.AssignedTo)
		assert.Equal(t, assignee.ID, *got.AssignedTo)
		assert.Equal(t, []string{"finance", "q2"}, got.Tags)
		assert.True(t, got.IsRecurring)
		assert.Equal(t, domain.RecurringWeekly, got.RecurringType)
		assertSameTime(t, task.DueDate, got.DueDate)
		assertSameTime(t, task.RecurringEndDate, got.RecurringEndDate)
		assert.True(t, task.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("empty optional fields", func(t *testing.T) {
		s, creator, _ := setup(t)
		task := newTask(creator.ID, "bare", 0)
		require.NoError(t, s.Tasks.Create(ctx, task))

		got, err := s.Tasks.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Nil(t, got.DueDate)
		assert.Nil(t, got.AssignedTo)
		assert.Nil(t, got.RecurringEndDate)
		assert.NotNil(t, got.Tags)
		assert.Empty(t, got.Tags)
	})

	t.Run("invalid task rejected", func(t *testing.T) {
		s, creator, _ := setup(t)
		task := newTask(creator.ID, "", 0)
		assert.ErrorIs(t, s.Tasks.Create(ctx, task), domain.ErrValidation)
	})

	t.Run("not found", func(t *testing.T) {
		s, creator, _ := setup(t)
		_, err := s.Tasks.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
		assert.ErrorIs(t, s.Tasks.Delete(ctx, uuid.New()), store.ErrTaskNotFound)
		assert.ErrorIs(t, s.Tasks.Update(ctx, newTask(creator.ID, "ghost", 0)), store.ErrTaskNotFound)
	})

	t.Run("find with predicates", func(t *testing.T) {
		s, creator, assignee := setup(t)

		report := newTask(creator.ID, "write report", 0)
		report.Description = "annual"
		report.DueDate = at(2 * time.Hour)
		report.AssignedTo = &assignee.ID

		review := newTask(creator.ID, "code review", time.Minute)
		review.Description = "check the REPORT generator"
		review.Status = domain.StatusCompleted
		review.DueDate = at(-2 * time.Hour)

		late := newTask(assignee.ID, "pay invoices", 2*time.Minute)
		late.DueDate = at(-time.Hour)

		wildcard := newTask(assignee.ID, "100% done_ish", 3*time.Minute)

		for _, task := range []*domain.Task{report, review, late, wildcard} {
			require.NoError(t, s.Tasks.Create(ctx, task))
		}

		find := func(p store.Predicate) []uuid.UUID {
			t.Helper()
			tasks, err := s.Tasks.Find(ctx, store.TaskQuery{Where: p, Sort: store.Sort{Field: store.FieldCreatedAt}})
			require.NoError(t, err)
			count, err := s.Tasks.Count(ctx, p)
			require.NoError(t, err)
			assert.EqualValues(t, len(tasks), count)
			return ids(tasks)
		}

		assert.Equal(t, []uuid.UUID{report.ID, review.ID, late.ID, wildcard.ID}, find(store.All()))
		assert.Equal(t, []uuid.UUID{review.ID}, find(store.Eq(store.FieldStatus, domain.StatusCompleted)))
		assert.Equal(t, []uuid.UUID{report.ID, late.ID, wildcard.ID},
			find(store.Ne(store.FieldStatus, domain.StatusCompleted)))
		assert.Equal(t, []uuid.UUID{report.ID, review.ID},
			find(store.Or(
				store.ContainsFold(store.FieldTitle, "Report"),
				store.ContainsFold(store.FieldDescription, "report"),
			)))
		assert.Equal(t, []uuid.UUID{wildcard.ID}, find(store.ContainsFold(store.FieldTitle, "0% done_")))
		assert.Empty(t, find(store.ContainsFold(store.FieldTitle, "0%_")))
		assert.Equal(t, []uuid.UUID{review.ID, late.ID},
			find(store.Lt(store.FieldDueDate, base)))
		assert.Equal(t, []uuid.UUID{late.ID},
			find(store.And(store.Lt(store.FieldDueDate, base), store.Ne(store.FieldStatus, domain.StatusCompleted))))
		assert.Equal(t, []uuid.UUID{report.ID, late.ID},
			find(store.Between(store.FieldDueDate, base.Add(-time.Hour), base.Add(2*time.Hour))))
		assert.Equal(t, []uuid.UUID{report.ID, review.ID, late.ID},
			find(store.Or(
				store.Eq(store.FieldCreatedBy, creator.ID),
				store.Eq(store.FieldAssignedTo, creator.ID),
				store.Eq(store.FieldID, late.ID),
			)))
		assert.Equal(t, []uuid.UUID{report.ID}, find(store.Eq(store.FieldAssignedTo, assignee.ID)))
		assert.Equal(t, []uuid.UUID{review.ID, late.ID, wildcard.ID},
			find(store.Eq(store.FieldAssignedTo, (*uuid.UUID)(nil))))
	})

	t.Run("sort and paginate", func(t *testing.T) {
		s, creator, _ := setup(t)

		seeds := []struct {
			title    string
			priority domain.TaskPriority
			due      time.Duration
		}{
			{"charlie", domain.PriorityLow, 3 * time.Hour},
			{"alpha", domain.PriorityUrgent, time.Hour},
			{"echo", domain.PriorityMedium, 5 * time.Hour},
			{"bravo", domain.PriorityHigh, 2 * time.Hour},
			{"delta", domain.PriorityLow, 4 * time.Hour},
		}
		for i, seed := range seeds {
			task := newTask(creator.ID, seed.title, time.Duration(i)*time.Minute)
			task.Priority = seed.priority
			task.DueDate = at(seed.due)
			require.NoError(t, s.Tasks.Create(ctx, task))
		}

		find := func(sort store.Sort, skip, limit int) []string {
			t.Helper()
			tasks, err := s.Tasks.Find(ctx, store.TaskQuery{Where: store.All(), Sort: sort, Skip: skip, Limit: limit})
			require.NoError(t, err)
			return titles(tasks)
		}

		assert.Equal(t, []string{"delta", "bravo", "echo", "alpha", "charlie"}, find(store.Sort{}, 0, 0))
		assert.Equal(t, []string{"alpha", "bravo", "charlie", "delta", "echo"},
			find(store.Sort{Field: store.FieldDueDate}, 0, 0))
		assert.Equal(t, []string{"echo", "delta"}, find(store.Sort{Field: store.FieldTitle, Desc: true}, 0, 2))
		assert.Equal(t, []string{"charlie", "delta"}, find(store.Sort{Field: store.FieldTitle}, 2, 2))
		assert.Empty(t, find(store.Sort{Field: store.FieldTitle}, 10, 2))

		byPriority := find(store.Sort{Field: store.FieldPriority}, 0, 0)
		assert.Equal(t, "bravo", byPriority[0])
		assert.Equal(t, "alpha", byPriority[4])

		_, err := s.Tasks.Find(ctx, store.TaskQuery{Sort: store.Sort{Field: store.FieldDescription}})
		assert.ErrorIs(t, err, store.ErrInvalidQuery)
	})

	t.Run("update and delete", func(t *testing.T) {
		s, creator, assignee := setup(t)
		task := newTask(creator.ID, "draft", 0)
		task.AssignedTo = &assignee.ID
		require.NoError(t, s.Tasks.Create(ctx, task))

		task.Title = "final"
		task.Status = domain.StatusReview
		task.AssignedTo = nil
		task.Tags = []string{"done"}
		task.UpdatedAt = base.Add(time.Hour)
		require.NoError(t, s.Tasks.Update(ctx, task))

		got, err := s.Tasks.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "final", got.Title)
		assert.Equal(t, domain.StatusReview, got.Status)
		assert.Nil(t, got.AssignedTo)
		assert.Equal(t, []string{"done"}, got.Tags)
		assert.True(t, base.Add(time.Hour).Equal(got.UpdatedAt))

		require.NoError(t, s.Tasks.Delete(ctx, task.ID))
		_, err = s.Tasks.GetByID(ctx, task.ID)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})

	t.Run("find by ids and update many", func(t *testing.T) {
		s, creator, assignee := setup(t)
		a := newTask(creator.ID, "a", 0)
		b := newTask(creator.ID, "b", time.Minute)
		c := newTask(creator.ID, "c", 2*time.Minute)
		c.AssignedTo = &assignee.ID
		for _, task := range []*domain.Task{a, b, c} {
			require.NoError(t, s.Tasks.Create(ctx, task))
		}

		found, err := s.Tasks.FindByIDs(ctx, []uuid.UUID{a.ID, c.ID, uuid.New()})
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{a.ID, c.ID}, ids(found))

		status := domain.StatusCompleted
		updatedAt := base.Add(time.Hour)
		updated, err := s.Tasks.UpdateMany(ctx, []uuid.UUID{a.ID, b.ID, uuid.New()}, store.BatchChanges{
			Status:     &status,
			AssignedTo: &assignee.ID,
			UpdatedAt:  updatedAt,
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, ids(updated))
		for _, task := range updated {
			assert.Equal(t, domain.StatusCompleted, task.Status)
			assert.Equal(t, domain.PriorityMedium, task.Priority)
			require.NotNil(t, task.AssignedTo)
			assert.Equal(t, assignee.ID, *task.AssignedTo)
			assert.True(t, updatedAt.Equal(task.UpdatedAt))
		}

		cleared, err := s.Tasks.UpdateMany(ctx, []uuid.UUID{c.ID}, store.BatchChanges{ClearAssignedTo: true, UpdatedAt: updatedAt})
		require.NoError(t, err)
		require.Len(t, cleared, 1)
		assert.Nil(t, cleared[0].AssignedTo)

		untouched, err := s.Tasks.GetByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusTodo, untouched.Status)

		none, err := s.Tasks.UpdateMany(ctx, nil, store.BatchChanges{UpdatedAt: updatedAt})
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func testNotifications(t *testing.T, newStores Factory) {
	ctx := context.Background()

	t.Run("lifecycle", func(t *testing.T) {
		s := newStores(t)
		alice := newUser(t, ctx, s.Users, "alice@example.com", 0)
		bob := newUser(t, ctx, s.Users, "bob@example.com", 0)
		taskID := uuid.New()

		var created []*domain.Notification
		for i, kind := range []domain.NotificationType{
			domain.NotificationTaskAssigned,
			domain.NotificationTaskUpdated,
			domain.NotificationTaskReminder,
		} {
			n, err := domain.NewNotification(kind, &bob.ID, alice.ID, "message", &taskID)
			require.NoError(t, err)
			n.CreatedAt = base.Add(time.Duration(i) * time.Minute)
			require.NoError(t, s.Notifications.Create(ctx, n))
			created = append(created, n)
		}
		other, err := domain.NewNotification(domain.NotificationTaskDeleted, nil, bob.ID, "gone", nil)
		require.NoError(t, err)
		require.NoError(t, s.Notifications.Create(ctx, other))

		list, err := s.Notifications.ListByRecipient(ctx, alice.ID, store.NotificationQuery{})
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, created[2].ID, list[0].ID, "newest first")
		require.NotNil(t, list[0].RelatedTask)
		assert.Equal(t, taskID, *list[0].RelatedTask)
		require.NotNil(t, list[0].Sender)
		assert.Equal(t, bob.ID, *list[0].Sender)

		page, err := s.Notifications.ListByRecipient(ctx, alice.ID, store.NotificationQuery{Skip: 1, Limit: 1})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, created[1].ID, page[0].ID)

		assert.ErrorIs(t, s.Notifications.MarkRead(ctx, bob.ID, created[0].ID), store.ErrNotificationNotFound)
		require.NoError(t, s.Notifications.MarkRead(ctx, alice.ID, created[0].ID))

		unread, err := s.Notifications.CountByRecipient(ctx, alice.ID, true)
		require.NoError(t, err)
		assert.EqualValues(t, 2, unread)

		unreadList, err := s.Notifications.ListByRecipient(ctx, alice.ID, store.NotificationQuery{UnreadOnly: true})
		require.NoError(t, err)
		assert.Len(t, unreadList, 2)

		changed, err := s.Notifications.MarkAllRead(ctx, alice.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, changed)

		unread, err = s.Notifications.CountByRecipient(ctx, alice.ID, true)
		require.NoError(t, err)
		assert.Zero(t, unread)

		total, err := s.Notifications.CountByRecipient(ctx, alice.ID, false)
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)

		exists, err := s.Notifications.Exists(ctx, alice.ID, taskID, domain.NotificationTaskReminder)
		require.NoError(t, err)
		assert.True(t, exists)
		exists, err = s.Notifications.Exists(ctx, bob.ID, taskID, domain.NotificationTaskReminder)
		require.NoError(t, err)
		assert.False(t, exists)

		assert.ErrorIs(t, s.Notifications.Delete(ctx, bob.ID, created[1].ID), store.ErrNotificationNotFound)
		require.NoError(t, s.Notifications.Delete(ctx, alice.ID, created[1].ID))
		total, err = s.Notifications.CountByRecipient(ctx, alice.ID, false)
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
	})

	t.Run("one reminder per task and recipient", func(t *testing.T) {
		s := newStores(t)
		alice := newUser(t, ctx, s.Users, "alice@example.com", 0)
		bob := newUser(t, ctx, s.Users, "bob@example.com", 0)
		taskID := uuid.New()

		first, err := domain.NewNotification(domain.NotificationTaskReminder, nil, alice.ID, "due soon", &taskID)
		require.NoError(t, err)
		require.NoError(t, s.Notifications.Create(ctx, first))

		again, err := domain.NewNotification(domain.NotificationTaskReminder, nil, alice.ID, "due soon", &taskID)
		require.NoError(t, err)
		assert.ErrorIs(t, s.Notifications.Create(ctx, again), store.ErrReminderExists)
		assert.ErrorIs(t, s.Notifications.Create(ctx, again), store.ErrDuplicate)

		forBob, err := domain.NewNotification(domain.NotificationTaskReminder, nil, bob.ID, "due soon", &taskID)
		require.NoError(t, err)
		require.NoError(t, s.Notifications.Create(ctx, forBob))

		update, err := domain.NewNotification(domain.NotificationTaskUpdated, &bob.ID, alice.ID, "changed", &taskID)
		require.NoError(t, err)
		require.NoError(t, s.Notifications.Create(ctx, update))
		update2, err := domain.NewNotification(domain.NotificationTaskUpdated, &bob.ID, alice.ID, "changed again", &taskID)
		require.NoError(t, err)
		require.NoError(t, s.Notifications.Create(ctx, update2))

		total, err := s.Notifications.CountByRecipient(ctx, alice.ID, false)
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
	})
}
