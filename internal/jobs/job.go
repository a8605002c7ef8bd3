package jobs

import (
	"context"

	"github.com/google/uuid"
)

// Job is a unit of background work.
type Job interface {
	ID() uuid.UUID
	Type() string
	Execute(ctx context.Context) error
}

// QueueReader gives workers the job channel without the ability to enqueue.
type QueueReader interface {
	Jobs() <-chan Job
}

// QueueWriter accepts jobs for processing.
type QueueWriter interface {
	// Enqueue adds a job without blocking. It fails when the queue is full
	// or closed.
	Enqueue(job Job) error
	Close()
}

// Recorder counts job outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	RecordReminderJob(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordReminderJob(string) {}
