// Package memory provides map-backed store implementations. They back the
// "memory" database driver and the service and HTTP tests, and they satisfy
// the same conformance suite as the PostgreSQL and MongoDB stores.
package memory
