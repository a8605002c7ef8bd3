package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc, err := NewNotificationService(f.notifications, f.tasks, discardLogger)
	require.NoError(t, err)

	kept := f.createTask(t, f.alice, "Kept", func(in *CreateTaskInput) { in.AssignedTo = &f.bob.ID })
	removed := f.createTask(t, f.alice, "Removed", func(in *CreateTaskInput) { in.AssignedTo = &f.bob.ID })
	require.NoError(t, f.svc.Delete(ctx, f.alice.Principal(), removed.ID))
	f.createTask(t, f.bob, "Someone else's inbox", func(in *CreateTaskInput) { in.AssignedTo = &f.alice.ID })

	bob := f.bob.Principal()

	t.Run("list resolves live tasks and tolerates dangling ones", func(t *testing.T) {
		page, err := svc.List(ctx, bob, NotificationListInput{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Pagination.Total)
		require.Len(t, page.Items, 3)

		for _, item := range page.Items {
			assert.Equal(t, f.bob.ID, item.Recipient)
			switch *item.RelatedTask {
			case kept.ID:
				require.NotNil(t, item.Task)
				assert.Equal(t, &TaskSummary{ID: kept.ID, Title: "Kept", Status: domain.StatusTodo}, item.Task)
			case removed.ID:
				assert.Nil(t, item.Task)
			default:
				t.Fatalf("unexpected related task %s", item.RelatedTask)
			}
		}
	})

	t.Run("unread count and mark read", func(t *testing.T) {
		count, err := svc.UnreadCount(ctx, bob)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)

		page, err := svc.List(ctx, bob, NotificationListInput{Limit: 1})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, 3, page.Pagination.Pages)

		require.NoError(t, svc.MarkRead(ctx, bob, page.Items[0].ID))
		count, err = svc.UnreadCount(ctx, bob)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		unread, err := svc.List(ctx, bob, NotificationListInput{UnreadOnly: true})
		require.NoError(t, err)
		assert.Len(t, unread.Items, 2)

		updated, err := svc.MarkAllRead(ctx, bob)
		require.NoError(t, err)
		assert.Equal(t, int64(2), updated)
	})

	t.Run("scoped to the recipient", func(t *testing.T) {
		aliceInbox := f.inbox(t, f.alice)
		require.Len(t, aliceInbox, 1)

		err := svc.MarkRead(ctx, bob, aliceInbox[0].ID)
		assert.ErrorIs(t, err, store.ErrNotificationNotFound)
		err = svc.Delete(ctx, bob, aliceInbox[0].ID)
		assert.ErrorIs(t, err, store.ErrNotificationNotFound)
		assert.ErrorIs(t, svc.Delete(ctx, bob, uuid.New()), store.ErrNotFound)

		require.NoError(t, svc.Delete(ctx, f.alice.Principal(), aliceInbox[0].ID))
		assert.Empty(t, f.inbox(t, f.alice))
	})
}
