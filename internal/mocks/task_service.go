package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/stretchr/testify/mock"
)

// MockTaskService is a testify mock of service.TaskService.
type MockTaskService struct {
	mock.Mock
}

var _ service.TaskService = (*MockTaskService)(nil)

func (m *MockTaskService) Create(
	ctx context.Context,
	principal domain.Principal,
	input service.CreateTaskInput,
) (*domain.Task, error) {
	args := m.Called(ctx, principal, input)
	return taskArg(args, 0), args.Error(1)
}

func (m *MockTaskService) Get(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Task, error) {
	args := m.Called(ctx, principal, id)
	return taskArg(args, 0), args.Error(1)
}

func (m *MockTaskService) List(
	ctx context.Context,
	principal domain.Principal,
	filter service.TaskFilter,
) (*service.TaskPage, error) {
	args := m.Called(ctx, principal, filter)
	page, _ := args.Get(0).(*service.TaskPage)
	return page, args.Error(1)
}

func (m *MockTaskService) Update(
	ctx context.Context,
	principal domain.Principal,
	id uuid.UUID,
	patch domain.TaskPatch,
) (*domain.Task, error) {
	args := m.Called(ctx, principal, id, patch)
	return taskArg(args, 0), args.Error(1)
}

func (m *MockTaskService) Delete(ctx context.Context, principal domain.Principal, id uuid.UUID) error {
	return m.Called(ctx, principal, id).Error(0)
}

func (m *MockTaskService) BatchUpdate(
	ctx context.Context,
	principal domain.Principal,
	input service.BatchUpdateInput,
) (*service.BatchUpdateResult, error) {
	args := m.Called(ctx, principal, input)
	result, _ := args.Get(0).(*service.BatchUpdateResult)
	return result, args.Error(1)
}

func taskArg(args mock.Arguments, i int) *domain.Task {
	task, _ := args.Get(i).(*domain.Task)
	return task
}
