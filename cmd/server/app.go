package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/events"
	"github.com/phrazzld/taskflow-api/internal/jobs"
	"github.com/phrazzld/taskflow-api/internal/metrics"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const reminderJobTimeout = 30 * time.Second

// application holds the shared dependencies and owns their shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	stores *storeSet

	registry *prometheus.Registry
	metrics  *metrics.Metrics

	jwtService          auth.JWTService
	userService         service.UserService
	taskService         service.TaskService
	notificationService service.NotificationService
	dispatcher          *service.NotificationDispatcher

	eventEmitter *events.InMemoryEventEmitter

	// Reminder pipeline; nil when reminders are disabled.
	reminderQueue *jobs.Queue
	workerPool    *jobs.WorkerPool
	scheduler     *jobs.ReminderScheduler
}

// newApplication wires services over stores. It does not start anything.
func newApplication(cfg *config.Config, logger *slog.Logger, stores *storeSet) (*application, error) {
	app := &application{
		config:   cfg,
		logger:   logger,
		stores:   stores,
		registry: prometheus.NewRegistry(),
	}
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = metrics.New(app.registry)

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		slog.Int("token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes))

	app.userService, err = service.NewUserService(stores.users, auth.NewBcryptHasher(cfg.Auth.BcryptCost), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create user service: %w", err)
	}

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(metrics.NewTaskEventRecorder(app.metrics))

	app.dispatcher = service.NewNotificationDispatcher(stores.notifications, app.metrics, logger)

	app.taskService, err = service.NewTaskService(
		stores.tasks,
		stores.users,
		app.dispatcher,
		service.NewRecurrenceEngine(stores.tasks, logger),
		app.eventEmitter,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	app.notificationService, err = service.NewNotificationService(stores.notifications, stores.tasks, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification service: %w", err)
	}

	if cfg.Reminders.Enabled {
		app.reminderQueue = jobs.NewQueue(cfg.Reminders.QueueSize, logger)
		app.workerPool = jobs.NewWorkerPool(app.reminderQueue, jobs.WorkerPoolConfig{
			WorkerCount: cfg.Reminders.WorkerCount,
			JobTimeout:  reminderJobTimeout,
		}, logger)
		app.scheduler = jobs.NewReminderScheduler(
			stores.tasks,
			stores.notifications,
			app.dispatcher,
			app.reminderQueue,
			app.metrics,
			jobs.SchedulerConfig{
				Interval: cfg.Reminders.Interval,
				LeadTime: cfg.Reminders.LeadTime,
			},
			logger,
		)
	}

	logger.Info("application initialized successfully")
	return app, nil
}

// Run starts background work and serves HTTP until ctx ends or a shutdown
// signal arrives.
func (app *application) Run(ctx context.Context) error {
	app.startReminders(ctx)

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (app *application) startReminders(ctx context.Context) {
	if app.scheduler == nil {
		app.logger.Info("due-date reminders disabled")
		return
	}
	app.workerPool.Start()
	app.scheduler.Start(ctx)
}

// cleanup stops the reminder pipeline and closes the store. The scheduler
// stops before the queue closes so no job is enqueued on a closed queue.
func (app *application) cleanup(ctx context.Context) {
	if app.scheduler != nil {
		app.scheduler.Stop()
		app.reminderQueue.Close()
		app.workerPool.Stop()
	}

	app.stores.close(ctx, app.logger)
	app.logger.Info("application shutdown completed")
}
