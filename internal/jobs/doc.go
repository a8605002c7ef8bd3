// Package jobs runs background work off the request path: a bounded queue,
// a worker pool draining it, and the due-date reminder scheduler that feeds
// it. Jobs are in-memory only and are lost on shutdown.
package jobs
