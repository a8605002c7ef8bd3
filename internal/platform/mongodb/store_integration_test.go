//go:build integration

package mongodb_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/phrazzld/taskflow-api/internal/platform/mongodb"
	"github.com/phrazzld/taskflow-api/internal/store/storetest"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func startMongo(t *testing.T) *mongo.Database {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "docker.io/library/mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor: wait.ForLog("Waiting for connections").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	client, err := mongodb.Connect(ctx, fmt.Sprintf("mongodb://%s:%s", host, port.Port()), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(ctx) })

	db := client.Database("taskflow_test")
	require.NoError(t, mongodb.EnsureIndexes(ctx, db))
	return db
}

func TestMongoStores(t *testing.T) {
	db := startMongo(t)
	ctx := context.Background()

	storetest.Run(t, func(t *testing.T) storetest.Stores {
		for _, name := range []string{mongodb.UsersCollection, mongodb.TasksCollection, mongodb.NotificationsCollection} {
			_, err := db.Collection(name).DeleteMany(ctx, bson.D{})
			require.NoError(t, err)
		}
		return storetest.Stores{
			Users:         mongodb.NewMongoUserStore(db, nil),
			Tasks:         mongodb.NewMongoTaskStore(db, nil),
			Notifications: mongodb.NewMongoNotificationStore(db, nil),
		}
	})
}

func TestEnsureIndexesIsIdempotent(t *testing.T) {
	db := startMongo(t)
	require.NoError(t, mongodb.EnsureIndexes(context.Background(), db))
}
