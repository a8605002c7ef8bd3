package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/stretchr/testify/mock"
)

// MockUserService is a testify mock of service.UserService.
type MockUserService struct {
	mock.Mock
}

var _ service.UserService = (*MockUserService)(nil)

func (m *MockUserService) Register(ctx context.Context, email, name, password string) (*domain.User, error) {
	args := m.Called(ctx, email, name, password)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	args := m.Called(ctx, email, password)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUserService) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUserService) ResolvePrincipal(ctx context.Context, id uuid.UUID) (domain.Principal, error) {
	args := m.Called(ctx, id)
	principal, _ := args.Get(0).(domain.Principal)
	return principal, args.Error(1)
}

func (m *MockUserService) List(
	ctx context.Context,
	principal domain.Principal,
	page, limit int,
) (*service.UserPage, error) {
	args := m.Called(ctx, principal, page, limit)
	result, _ := args.Get(0).(*service.UserPage)
	return result, args.Error(1)
}

func (m *MockUserService) UpdateRole(
	ctx context.Context,
	principal domain.Principal,
	id uuid.UUID,
	role domain.Role,
) (*domain.User, error) {
	args := m.Called(ctx, principal, id, role)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUserService) SetActive(
	ctx context.Context,
	principal domain.Principal,
	id uuid.UUID,
	active bool,
) (*domain.User, error) {
	args := m.Called(ctx, principal, id, active)
	return userArg(args, 0), args.Error(1)
}

func userArg(args mock.Arguments, i int) *domain.User {
	user, _ := args.Get(i).(*domain.User)
	return user
}
