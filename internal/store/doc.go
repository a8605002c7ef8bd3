// Package store defines the persistence boundary of the task tracker.
//
// Stores are collections of users, tasks and notifications behind a small
// query interface: point lookups, predicate queries with sort and paging,
// counts, and updates or deletes by id. Predicates are plain values built
// with Eq, Ne, Lt, Between, ContainsFold, And and Or so every backend
// (postgres, mongo, memory) can translate or evaluate them the same way.
package store
