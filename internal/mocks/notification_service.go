package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/stretchr/testify/mock"
)

// MockNotificationService is a testify mock of service.NotificationService.
type MockNotificationService struct {
	mock.Mock
}

var _ service.NotificationService = (*MockNotificationService)(nil)

func (m *MockNotificationService) List(
	ctx context.Context,
	principal domain.Principal,
	input service.NotificationListInput,
) (*service.NotificationPage, error) {
	args := m.Called(ctx, principal, input)
	page, _ := args.Get(0).(*service.NotificationPage)
	return page, args.Error(1)
}

func (m *MockNotificationService) UnreadCount(ctx context.Context, principal domain.Principal) (int64, error) {
	args := m.Called(ctx, principal)
	count, _ := args.Get(0).(int64)
	return count, args.Error(1)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, principal domain.Principal, id uuid.UUID) error {
	return m.Called(ctx, principal, id).Error(0)
}

func (m *MockNotificationService) MarkAllRead(ctx context.Context, principal domain.Principal) (int64, error) {
	args := m.Called(ctx, principal)
	count, _ := args.Get(0).(int64)
	return count, args.Error(1)
}

func (m *MockNotificationService) Delete(ctx context.Context, principal domain.Principal, id uuid.UUID) error {
	return m.Called(ctx, principal, id).Error(0)
}
