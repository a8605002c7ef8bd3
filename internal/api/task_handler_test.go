package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/mocks"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var member = domain.Principal{UserID: uuid.New(), Role: domain.RoleUser, Active: true}

func sampleTask(createdBy uuid.UUID) *domain.Task {
	task := domain.NewTask(createdBy, "Write report")
	task.Tags = []string{"work"}
	return task
}

func TestCreateTask(t *testing.T) {
	task := sampleTask(member.UserID)
	due := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	t.Run("created", func(t *testing.T) {
		tasks := new(mocks.MockTaskService)
		tasks.On("Create", mock.Anything, member, mock.MatchedBy(func(in service.CreateTaskInput) bool {
			return in.Title == "Write report" && in.Priority != nil && *in.Priority == domain.PriorityHigh &&
				in.DueDate != nil && in.DueDate.Equal(due)
		})).Return(task, nil)

		req := authenticated(newRequest(t, http.MethodPost, "/api/tasks", map[string]any{
			"title":    "Write report",
			"priority": "high",
			"dueDate":  "2024-01-10T00:00:00Z",
		}), member)
		recorder := httptest.NewRecorder()
		NewTaskHandler(tasks, nil).CreateTask(recorder, req)

		assert.Equal(t, http.StatusCreated, recorder.Code)
		assert.Equal(t, task.ID, decodeBody[domain.Task](t, recorder).ID)
		tasks.AssertExpectations(t)
	})

	tests := []struct {
		name    string
		payload any
		wantMsg string
	}{
		{"missing title", map[string]any{"description": "x"}, "Invalid title: required field"},
		{"bad priority", map[string]any{"title": "x", "priority": "p0"}, "Invalid priority: must be one of low, medium, high, urgent"},
		{"bad assignee", map[string]any{"title": "x", "assignedTo": "bob"}, "Invalid request format"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tasks := new(mocks.MockTaskService)
			recorder := httptest.NewRecorder()
			NewTaskHandler(tasks, nil).CreateTask(recorder,
				authenticated(newRequest(t, http.MethodPost, "/api/tasks", tc.payload), member))

			assert.Equal(t, http.StatusBadRequest, recorder.Code)
			assert.Equal(t, tc.wantMsg, decodeError(t, recorder).Message)
			tasks.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("unauthenticated", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		NewTaskHandler(new(mocks.MockTaskService), nil).CreateTask(recorder,
			newRequest(t, http.MethodPost, "/api/tasks", map[string]any{"title": "x"}))
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}

func TestListTasks(t *testing.T) {
	tasks := new(mocks.MockTaskService)
	items := []*domain.Task{sampleTask(member.UserID), sampleTask(member.UserID)}
	expectedFilter := service.TaskFilter{
		Status:     "todo",
		AssignedTo: "me",
		Search:     "report",
		Overdue:    true,
		SortBy:     "dueDate",
		SortOrder:  "asc",
		Page:       3,
		Limit:      10,
	}
	tasks.On("List", mock.Anything, member, expectedFilter).Return(&service.TaskPage{
		Items:      items,
		Pagination: service.Pagination{Total: 25, Page: 3, Limit: 10, Pages: 3},
	}, nil)

	req := authenticated(newRequest(t, http.MethodGet,
		"/api/tasks?status=todo&assignedTo=me&search=report&overdue=true&sortBy=dueDate&sortOrder=asc&page=3&limit=10", nil), member)
	recorder := httptest.NewRecorder()
	NewTaskHandler(tasks, nil).ListTasks(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	resp := decodeBody[ListResponse[domain.Task]](t, recorder)
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, service.Pagination{Total: 25, Page: 3, Limit: 10, Pages: 3}, resp.Pagination)
	tasks.AssertExpectations(t)

	t.Run("bad query parameter", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		NewTaskHandler(new(mocks.MockTaskService), nil).ListTasks(recorder,
			authenticated(newRequest(t, http.MethodGet, "/api/tasks?page=two", nil), member))
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("filter rejected by service", func(t *testing.T) {
		tasks := new(mocks.MockTaskService)
		tasks.On("List", mock.Anything, member, mock.Anything).
			Return(nil, domain.NewValidationError("status", "must be one of todo, in-progress, review, completed", domain.ErrInvalidStatus))
		recorder := httptest.NewRecorder()
		NewTaskHandler(tasks, nil).ListTasks(recorder,
			authenticated(newRequest(t, http.MethodGet, "/api/tasks?status=done", nil), member))
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestGetTask(t *testing.T) {
	task := sampleTask(uuid.New())

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"visible", nil, http.StatusOK},
		{"hidden", service.ErrForbidden, http.StatusForbidden},
		{"absent", store.ErrTaskNotFound, http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tasks := new(mocks.MockTaskService)
			if tc.err != nil {
				tasks.On("Get", mock.Anything, member, task.ID).Return(nil, tc.err)
			} else {
				tasks.On("Get", mock.Anything, member, task.ID).Return(task, nil)
			}

			req := authenticated(withURLParam(newRequest(t, http.MethodGet, "/api/tasks/"+task.ID.String(), nil),
				"id", task.ID.String()), member)
			recorder := httptest.NewRecorder()
			NewTaskHandler(tasks, nil).GetTask(recorder, req)

			assert.Equal(t, tc.wantStatus, recorder.Code)
			tasks.AssertExpectations(t)
		})
	}
}

func TestUpdateTask(t *testing.T) {
	task := sampleTask(member.UserID)

	tasks := new(mocks.MockTaskService)
	tasks.On("Update", mock.Anything, member, task.ID, domain.TaskPatch{
		Status:          ptr(domain.StatusCompleted),
		ClearAssignedTo: true,
	}).Return(task, nil)

	req := authenticated(withURLParam(
		newRequest(t, http.MethodPut, "/api/tasks/"+task.ID.String(), `{"status":"completed","assignedTo":null}`),
		"id", task.ID.String()), member)
	recorder := httptest.NewRecorder()
	NewTaskHandler(tasks, nil).UpdateTask(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	tasks.AssertExpectations(t)
}

func TestDeleteTask(t *testing.T) {
	id := uuid.New()
	tasks := new(mocks.MockTaskService)
	tasks.On("Delete", mock.Anything, member, id).Return(nil).Once()
	tasks.On("Delete", mock.Anything, member, id).Return(service.ErrForbidden).Once()

	handler := NewTaskHandler(tasks, nil)
	newDelete := func() *http.Request {
		return authenticated(withURLParam(newRequest(t, http.MethodDelete, "/api/tasks/"+id.String(), nil),
			"id", id.String()), member)
	}

	recorder := httptest.NewRecorder()
	handler.DeleteTask(recorder, newDelete())
	assert.Equal(t, http.StatusNoContent, recorder.Code)

	recorder = httptest.NewRecorder()
	handler.DeleteTask(recorder, newDelete())
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestBatchUpdate(t *testing.T) {
	manager := domain.Principal{UserID: uuid.New(), Role: domain.RoleManager, Active: true}
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	t.Run("applied", func(t *testing.T) {
		tasks := new(mocks.MockTaskService)
		tasks.On("BatchUpdate", mock.Anything, manager, service.BatchUpdateInput{
			TaskIDs: ids,
			Updates: map[string]json.RawMessage{"status": json.RawMessage(`"review"`)},
		}).Return(&service.BatchUpdateResult{Matched: 2, Updated: 2}, nil)

		req := authenticated(newRequest(t, http.MethodPost, "/api/tasks/batch-update", map[string]any{
			"taskIds": ids,
			"updates": map[string]any{"status": "review"},
		}), manager)
		recorder := httptest.NewRecorder()
		NewTaskHandler(tasks, nil).BatchUpdate(recorder, req)

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.JSONEq(t, `{"matched":2,"updated":2,"tasks":[]}`, recorder.Body.String())
	})

	t.Run("disallowed field", func(t *testing.T) {
		tasks := new(mocks.MockTaskService)
		tasks.On("BatchUpdate", mock.Anything, manager, mock.Anything).
			Return(nil, domain.NewValidationError("updates.title", "is not allowed in batch update", service.ErrBatchFieldNotAllowed))

		req := authenticated(newRequest(t, http.MethodPost, "/api/tasks/batch-update", map[string]any{
			"taskIds": ids,
			"updates": map[string]any{"title": "x"},
		}), manager)
		recorder := httptest.NewRecorder()
		NewTaskHandler(tasks, nil).BatchUpdate(recorder, req)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "Invalid updates.title: is not allowed in batch update", decodeError(t, recorder).Message)
	})

	t.Run("empty ids", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		NewTaskHandler(new(mocks.MockTaskService), nil).BatchUpdate(recorder, authenticated(
			newRequest(t, http.MethodPost, "/api/tasks/batch-update", map[string]any{
				"taskIds": []string{},
				"updates": map[string]any{"status": "review"},
			}), manager))
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("too many ids", func(t *testing.T) {
		tooMany := make([]uuid.UUID, service.MaxBatchTaskIDs+1)
		for i := range tooMany {
			tooMany[i] = uuid.New()
		}
		tasks := new(mocks.MockTaskService)
		recorder := httptest.NewRecorder()
		NewTaskHandler(tasks, nil).BatchUpdate(recorder, authenticated(
			newRequest(t, http.MethodPost, "/api/tasks/batch-update", map[string]any{
				"taskIds": tooMany,
				"updates": map[string]any{"status": "review"},
			}), manager))
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "Invalid taskIds: too long", decodeError(t, recorder).Message)
		tasks.AssertNotCalled(t, "BatchUpdate", mock.Anything, mock.Anything, mock.Anything)
	})
}
