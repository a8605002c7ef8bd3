// Package domain contains the core business entities of the task tracker:
// users and their roles, tasks with their recurrence settings, and the
// notifications produced when tasks change. Entities validate themselves and
// are independent of any storage or delivery mechanism.
package domain
