package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/phrazzld/taskflow-api/internal/mocks"
	"github.com/phrazzld/taskflow-api/internal/platform/memory"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterStoresHasherOutput(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()
	svc, err := service.NewUserService(users, &mocks.MockPasswordHasher{}, nil)
	require.NoError(t, err)

	user, err := svc.Register(ctx, "grace@example.com", "Grace", "a-long-enough-password")
	require.NoError(t, err)

	stored, err := users.GetByEmail(ctx, "grace@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hashed:a-long-enough-password", stored.HashedPassword)

	got, err := svc.Authenticate(ctx, "grace@example.com", "a-long-enough-password")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestRegisterHashFailure(t *testing.T) {
	hasher := &mocks.MockPasswordHasher{
		HashFn: func(string) (string, error) { return "", errors.New("entropy exhausted") },
	}
	users := memory.NewUserStore()
	svc, err := service.NewUserService(users, hasher, nil)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "grace@example.com", "Grace", "a-long-enough-password")

	var serviceErr *service.ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "register", serviceErr.Operation)

	count, err := users.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}
