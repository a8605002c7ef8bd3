package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPageRequest(t *testing.T) {
	tests := []struct {
		name        string
		page, limit int
		want        PageRequest
		skip        int
	}{
		{name: "defaults", want: PageRequest{Page: 1, Limit: 10}, skip: 0},
		{name: "third page", page: 3, limit: 10, want: PageRequest{Page: 3, Limit: 10}, skip: 20},
		{name: "negative page", page: -2, limit: 5, want: PageRequest{Page: 1, Limit: 5}, skip: 0},
		{name: "capped limit", page: 2, limit: 500, want: PageRequest{Page: 2, Limit: 100}, skip: 100},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NewPageRequest(tc.page, tc.limit)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.skip, got.Skip())
		})
	}
}

func TestNewPagination(t *testing.T) {
	assert.Equal(t, 3, NewPagination(25, PageRequest{Page: 3, Limit: 10}).Pages)
	assert.Equal(t, 2, NewPagination(20, PageRequest{Page: 1, Limit: 10}).Pages)
	assert.Equal(t, 1, NewPagination(1, PageRequest{Page: 1, Limit: 10}).Pages)
	assert.Equal(t, 0, NewPagination(0, PageRequest{Page: 1, Limit: 10}).Pages)
}

func TestTaskQueryBuilderVisibility(t *testing.T) {
	b := NewTaskQueryBuilder()
	user := domain.Principal{UserID: uuid.New(), Role: domain.RoleUser, Active: true}
	admin := domain.Principal{UserID: uuid.New(), Role: domain.RoleAdmin, Active: true}

	plan, err := b.Build(admin, TaskFilter{})
	require.NoError(t, err)
	assert.True(t, plan.Query.Where.IsAll())

	plan, err = b.Build(user, TaskFilter{})
	require.NoError(t, err)
	assert.Equal(t, store.Or(
		store.Eq(store.FieldCreatedBy, user.UserID),
		store.Eq(store.FieldAssignedTo, user.UserID),
	), plan.Query.Where)
}

func TestTaskQueryBuilderFilters(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	b := &TaskQueryBuilder{now: func() time.Time { return now }}
	admin := domain.Principal{UserID: uuid.New(), Role: domain.RoleAdmin, Active: true}
	other := uuid.New()

	tests := []struct {
		name   string
		filter TaskFilter
		want   store.Predicate
	}{
		{
			name:   "status",
			filter: TaskFilter{Status: "in-progress"},
			want:   store.Eq(store.FieldStatus, domain.StatusInProgress),
		},
		{
			name:   "priority",
			filter: TaskFilter{Priority: "urgent"},
			want:   store.Eq(store.FieldPriority, domain.PriorityUrgent),
		},
		{
			name:   "due date covers whole day",
			filter: TaskFilter{DueDate: "2024-01-10"},
			want: store.Between(store.FieldDueDate,
				day(2024, time.January, 10),
				day(2024, time.January, 11).Add(-time.Nanosecond)),
		},
		{
			name:   "due date as timestamp",
			filter: TaskFilter{DueDate: "2024-01-10T18:30:00Z"},
			want: store.Between(store.FieldDueDate,
				day(2024, time.January, 10),
				day(2024, time.January, 11).Add(-time.Nanosecond)),
		},
		{
			name:   "search spans title and description",
			filter: TaskFilter{Search: "  report "},
			want: store.Or(
				store.ContainsFold(store.FieldTitle, "report"),
				store.ContainsFold(store.FieldDescription, "report"),
			),
		},
		{
			name:   "assigned to me",
			filter: TaskFilter{AssignedTo: "me"},
			want:   store.Eq(store.FieldAssignedTo, admin.UserID),
		},
		{
			name:   "created by id",
			filter: TaskFilter{CreatedBy: other.String()},
			want:   store.Eq(store.FieldCreatedBy, other),
		},
		{
			name:   "overdue",
			filter: TaskFilter{Overdue: true},
			want: store.And(
				store.Lt(store.FieldDueDate, now),
				store.Ne(store.FieldStatus, domain.StatusCompleted),
			),
		},
		{
			name:   "combined",
			filter: TaskFilter{Status: "todo", Priority: "high"},
			want: store.And(
				store.Eq(store.FieldStatus, domain.StatusTodo),
				store.Eq(store.FieldPriority, domain.PriorityHigh),
			),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := b.Build(admin, tc.filter)
			require.NoError(t, err)
			assert.Equal(t, tc.want, plan.Query.Where)
		})
	}
}

func TestTaskQueryBuilderSortAndPage(t *testing.T) {
	b := NewTaskQueryBuilder()
	admin := domain.Principal{UserID: uuid.New(), Role: domain.RoleAdmin}

	plan, err := b.Build(admin, TaskFilter{})
	require.NoError(t, err)
	assert.Equal(t, store.DefaultSort, plan.Query.Sort)
	assert.Equal(t, 0, plan.Query.Skip)
	assert.Equal(t, 10, plan.Query.Limit)

	plan, err = b.Build(admin, TaskFilter{SortBy: "dueDate", SortOrder: "asc", Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, store.Sort{Field: store.FieldDueDate}, plan.Query.Sort)
	assert.Equal(t, 20, plan.Query.Skip)
	assert.Equal(t, PageRequest{Page: 3, Limit: 10}, plan.Page)
}

func TestTaskQueryBuilderRejectsBadInput(t *testing.T) {
	b := NewTaskQueryBuilder()
	user := domain.Principal{UserID: uuid.New(), Role: domain.RoleUser}

	tests := []struct {
		name   string
		filter TaskFilter
	}{
		{name: "status", filter: TaskFilter{Status: "done"}},
		{name: "priority", filter: TaskFilter{Priority: "critical"}},
		{name: "due date", filter: TaskFilter{DueDate: "10/01/2024"}},
		{name: "assignee", filter: TaskFilter{AssignedTo: "someone"}},
		{name: "creator", filter: TaskFilter{CreatedBy: "12345"}},
		{name: "sort field", filter: TaskFilter{SortBy: "description"}},
		{name: "sort order", filter: TaskFilter{SortOrder: "sideways"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := b.Build(user, tc.filter)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}
