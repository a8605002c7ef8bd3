package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/metrics"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// JobTypeTaskReminder identifies reminder jobs.
const JobTypeTaskReminder = "task_reminder"

// Notifier stores a notification and reports failures to the caller.
type Notifier interface {
	Send(
		ctx context.Context,
		notificationType domain.NotificationType,
		sender *uuid.UUID,
		recipient uuid.UUID,
		message string,
		relatedTask *uuid.UUID,
	) (*domain.Notification, error)
}

// ReminderJob sends one task-reminder notification unless the recipient
// already has one for the task.
type ReminderJob struct {
	id            uuid.UUID
	task          *domain.Task
	notifications store.NotificationStore
	notifier      Notifier
	recorder      Recorder
}

// NewReminderJob creates a reminder for a snapshot of task.
func NewReminderJob(
	task *domain.Task,
	notifications store.NotificationStore,
	notifier Notifier,
	recorder Recorder,
) *ReminderJob {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &ReminderJob{
		id:            uuid.New(),
		task:          task.Clone(),
		notifications: notifications,
		notifier:      notifier,
		recorder:      recorder,
	}
}

func (j *ReminderJob) ID() uuid.UUID { return j.id }

func (j *ReminderJob) Type() string { return JobTypeTaskReminder }

// Recipient is the assignee, or the creator when the task is unassigned.
func (j *ReminderJob) Recipient() uuid.UUID {
	if j.task.AssignedTo != nil {
		return *j.task.AssignedTo
	}
	return j.task.CreatedBy
}

// Execute implements Job.
func (j *ReminderJob) Execute(ctx context.Context) error {
	recipient := j.Recipient()

	exists, err := j.notifications.Exists(ctx, recipient, j.task.ID, domain.NotificationTaskReminder)
	if err != nil {
		j.recorder.RecordReminderJob(metrics.OutcomeFailed)
		return fmt.Errorf("failed to check existing reminders for task %s: %w", j.task.ID, err)
	}
	if exists {
		j.recorder.RecordReminderJob(metrics.OutcomeSkipped)
		return nil
	}

	taskID := j.task.ID
	_, err = j.notifier.Send(ctx, domain.NotificationTaskReminder, nil, recipient, reminderMessage(j.task), &taskID)
	if errors.Is(err, store.ErrReminderExists) {
		// Another job stored it between Exists and Send.
		j.recorder.RecordReminderJob(metrics.OutcomeSkipped)
		return nil
	}
	if err != nil {
		j.recorder.RecordReminderJob(metrics.OutcomeFailed)
		return fmt.Errorf("failed to send reminder for task %s: %w", j.task.ID, err)
	}
	j.recorder.RecordReminderJob(metrics.OutcomeSent)
	return nil
}

func reminderMessage(task *domain.Task) string {
	if task.DueDate == nil {
		return fmt.Sprintf("Reminder: %q is due soon", task.Title)
	}
	return fmt.Sprintf("Reminder: %q is due %s", task.Title, task.DueDate.UTC().Format(time.RFC1123))
}
