// Package events carries task domain events from the lifecycle coordinator to
// interested subscribers such as metrics recorders.
//
// Emission happens after a mutation is persisted. Subscribers cannot veto a
// mutation; an emitter error is only logged by the caller.
package events
