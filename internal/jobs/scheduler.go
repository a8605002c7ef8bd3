package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/metrics"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// SchedulerConfig configures a ReminderScheduler.
type SchedulerConfig struct {
	// Interval between scans.
	Interval time.Duration

	// LeadTime is how far ahead of now a due date triggers a reminder.
	LeadTime time.Duration

	// PageSize bounds each store read during a scan.
	PageSize int
}

// ReminderScheduler periodically finds open tasks that are due soon and
// enqueues a ReminderJob for each.
type ReminderScheduler struct {
	tasks         store.TaskStore
	notifications store.NotificationStore
	notifier      Notifier
	queue         QueueWriter
	recorder      Recorder
	config        SchedulerConfig
	logger        *slog.Logger
	now           func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReminderScheduler creates a scheduler. A nil recorder disables counting.
func NewReminderScheduler(
	tasks store.TaskStore,
	notifications store.NotificationStore,
	notifier Notifier,
	queue QueueWriter,
	recorder Recorder,
	config SchedulerConfig,
	logger *slog.Logger,
) *ReminderScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if config.Interval <= 0 {
		config.Interval = 15 * time.Minute
	}
	if config.LeadTime <= 0 {
		config.LeadTime = 24 * time.Hour
	}
	if config.PageSize <= 0 {
		config.PageSize = 100
	}
	return &ReminderScheduler{
		tasks:         tasks,
		notifications: notifications,
		notifier:      notifier,
		queue:         queue,
		recorder:      recorder,
		config:        config,
		logger:        logger.With(slog.String("component", "reminder_scheduler")),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Start scans once immediately and then every Interval until Stop is called
// or ctx ends.
func (s *ReminderScheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.logger.Info("starting reminder scheduler",
		slog.Duration("interval", s.config.Interval),
		slog.Duration("lead_time", s.config.LeadTime))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.scanAndLog(ctx)

		ticker := time.NewTicker(s.config.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.scanAndLog(ctx)
			}
		}
	}()
}

// Stop ends the scan loop and waits for it to exit.
func (s *ReminderScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("reminder scheduler stopped")
}

func (s *ReminderScheduler) scanAndLog(ctx context.Context) {
	enqueued, err := s.Scan(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("reminder scan failed", slog.String("error", err.Error()))
		return
	}
	if enqueued > 0 {
		s.logger.Info("enqueued reminders", slog.Int("count", enqueued))
	}
}

// Scan enqueues a reminder for every open task due within the lead time and
// returns how many were enqueued. A full queue drops the job; the next scan
// picks the task up again.
func (s *ReminderScheduler) Scan(ctx context.Context) (int, error) {
	now := s.now()
	where := store.And(
		store.Between(store.FieldDueDate, now, now.Add(s.config.LeadTime)),
		store.Ne(store.FieldStatus, domain.StatusCompleted),
	)

	enqueued := 0
	for skip := 0; ; skip += s.config.PageSize {
		if err := ctx.Err(); err != nil {
			return enqueued, err
		}

		page, err := s.tasks.Find(ctx, store.TaskQuery{
			Where: where,
			Sort:  store.Sort{Field: store.FieldDueDate},
			Skip:  skip,
			Limit: s.config.PageSize,
		})
		if err != nil {
			return enqueued, err
		}

		for _, task := range page {
			job := NewReminderJob(task, s.notifications, s.notifier, s.recorder)
			if err := s.queue.Enqueue(job); err != nil {
				s.recorder.RecordReminderJob(metrics.OutcomeDropped)
				s.logger.Warn("dropping reminder job",
					slog.String("task_id", task.ID.String()),
					slog.String("error", err.Error()))
				if errors.Is(err, ErrQueueClosed) {
					return enqueued, err
				}
				continue
			}
			enqueued++
		}

		if len(page) < s.config.PageSize {
			return enqueued, nil
		}
	}
}
