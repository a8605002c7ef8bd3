package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/mocks"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestListNotifications(t *testing.T) {
	sender := uuid.New()
	liveTask := uuid.New()
	goneTask := uuid.New()

	live, err := domain.NewNotification(domain.NotificationTaskAssigned, &sender, member.UserID, "You have been assigned", &liveTask)
	require.NoError(t, err)
	gone, err := domain.NewNotification(domain.NotificationTaskDeleted, &sender, member.UserID, "Task deleted", &goneTask)
	require.NoError(t, err)

	notifications := new(mocks.MockNotificationService)
	notifications.On("List", mock.Anything, member, service.NotificationListInput{UnreadOnly: true, Page: 1, Limit: 20}).
		Return(&service.NotificationPage{
			Items: []service.NotificationView{
				{Notification: live, Task: &service.TaskSummary{ID: liveTask, Title: "Report", Status: domain.StatusTodo}},
				{Notification: gone},
			},
			Pagination: service.Pagination{Total: 2, Page: 1, Limit: 20, Pages: 1},
		}, nil)

	recorder := httptest.NewRecorder()
	NewNotificationHandler(notifications, nil).ListNotifications(recorder,
		authenticated(newRequest(t, http.MethodGet, "/api/notifications?unread=true&page=1&limit=20", nil), member))

	require.Equal(t, http.StatusOK, recorder.Code)
	resp := decodeBody[ListResponse[map[string]any]](t, recorder)
	require.Len(t, resp.Items, 2)

	assert.Equal(t, liveTask.String(), resp.Items[0]["relatedTaskId"])
	assert.Equal(t, map[string]any{"id": liveTask.String(), "title": "Report", "status": "todo"}, resp.Items[0]["relatedTask"])
	assert.Equal(t, goneTask.String(), resp.Items[1]["relatedTaskId"])
	assert.Contains(t, resp.Items[1], "relatedTask")
	assert.Nil(t, resp.Items[1]["relatedTask"])
	assert.Equal(t, int64(2), resp.Pagination.Total)
}

func TestNotificationCounters(t *testing.T) {
	notifications := new(mocks.MockNotificationService)
	notifications.On("UnreadCount", mock.Anything, member).Return(int64(4), nil)
	notifications.On("MarkAllRead", mock.Anything, member).Return(int64(4), nil)
	handler := NewNotificationHandler(notifications, nil)

	recorder := httptest.NewRecorder()
	handler.UnreadCount(recorder, authenticated(newRequest(t, http.MethodGet, "/api/notifications/unread-count", nil), member))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"count":4}`, recorder.Body.String())

	recorder = httptest.NewRecorder()
	handler.MarkAllRead(recorder, authenticated(newRequest(t, http.MethodPut, "/api/notifications/read-all", nil), member))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"updated":4}`, recorder.Body.String())
}

func TestNotificationMutations(t *testing.T) {
	mine, other := uuid.New(), uuid.New()

	notifications := new(mocks.MockNotificationService)
	notifications.On("MarkRead", mock.Anything, member, mine).Return(nil)
	notifications.On("MarkRead", mock.Anything, member, other).Return(store.ErrNotificationNotFound)
	notifications.On("Delete", mock.Anything, member, mine).Return(nil)
	notifications.On("Delete", mock.Anything, member, other).Return(store.ErrNotificationNotFound)
	handler := NewNotificationHandler(notifications, nil)

	tests := []struct {
		name       string
		call       func(http.ResponseWriter, *http.Request)
		method     string
		id         uuid.UUID
		wantStatus int
	}{
		{"mark own read", handler.MarkRead, http.MethodPut, mine, http.StatusNoContent},
		{"mark other's read", handler.MarkRead, http.MethodPut, other, http.StatusNotFound},
		{"delete own", handler.DeleteNotification, http.MethodDelete, mine, http.StatusNoContent},
		{"delete other's", handler.DeleteNotification, http.MethodDelete, other, http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := authenticated(withURLParam(newRequest(t, tc.method, "/api/notifications/"+tc.id.String(), nil),
				"id", tc.id.String()), member)
			recorder := httptest.NewRecorder()
			tc.call(recorder, req)
			assert.Equal(t, tc.wantStatus, recorder.Code)
			if tc.wantStatus == http.StatusNotFound {
				assert.Equal(t, "Notification not found", decodeError(t, recorder).Message)
			}
		})
	}
	notifications.AssertExpectations(t)
}
