// Package api adapts HTTP requests to the task, notification and user
// services. Handlers decode and validate input, take the principal from the
// request context and translate service errors into status codes.
package api
