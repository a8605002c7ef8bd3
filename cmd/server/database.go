package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/platform/memory"
	"github.com/phrazzld/taskflow-api/internal/platform/mongodb"
	"github.com/phrazzld/taskflow-api/internal/platform/postgres"
	"github.com/phrazzld/taskflow-api/internal/store"
	"go.mongodb.org/mongo-driver/mongo"
)

// Supported database drivers.
const (
	driverPostgres = "postgres"
	driverMongo    = "mongo"
	driverMemory   = "memory"
)

const pingTimeout = 5 * time.Second

// storeSet is the backend chosen by database.driver. At most one of db and
// mongoClient is set.
type storeSet struct {
	users         store.UserStore
	tasks         store.TaskStore
	notifications store.NotificationStore

	db          *sql.DB
	mongoClient *mongo.Client
}

// openStores connects to the configured backend and builds its stores.
func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storeSet, error) {
	switch cfg.Database.Driver {
	case driverPostgres:
		db, err := openPostgres(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		return &storeSet{
			users:         postgres.NewPostgresUserStore(db, logger),
			tasks:         postgres.NewPostgresTaskStore(db, logger),
			notifications: postgres.NewPostgresNotificationStore(db, logger),
			db:            db,
		}, nil

	case driverMongo:
		client, err := mongodb.Connect(ctx, cfg.Database.URL, logger)
		if err != nil {
			return nil, err
		}
		database := client.Database(cfg.Database.Name)
		if err := mongodb.EnsureIndexes(ctx, database); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return &storeSet{
			users:         mongodb.NewMongoUserStore(database, logger),
			tasks:         mongodb.NewMongoTaskStore(database, logger),
			notifications: mongodb.NewMongoNotificationStore(database, logger),
			mongoClient:   client,
		}, nil

	case driverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return newMemoryStores(), nil

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
}

func newMemoryStores() *storeSet {
	return &storeSet{
		users:         memory.NewUserStore(),
		tasks:         memory.NewTaskStore(),
		notifications: memory.NewNotificationStore(),
	}
}

// openPostgres opens a pooled connection and verifies it with a ping.
func openPostgres(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		slog.Int("max_open_conns", cfg.MaxOpenConns),
		slog.Int("max_idle_conns", cfg.MaxIdleConns))
	return db, nil
}

// close releases the backend connection, if any.
func (s *storeSet) close(ctx context.Context, logger *slog.Logger) {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}
	if s.mongoClient != nil {
		if err := s.mongoClient.Disconnect(ctx); err != nil {
			logger.Error("error disconnecting from mongodb", slog.String("error", err.Error()))
		}
	}
}
