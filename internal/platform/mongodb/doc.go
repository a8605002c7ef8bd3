// Package mongodb implements the store interfaces on MongoDB.
//
// Identifiers are stored as canonical UUID strings in _id. Timestamps are
// BSON dates and therefore carry millisecond precision. Task predicates are
// translated into query documents by filter, and task listings run as an
// aggregation so unset sort keys can be ordered last.
package mongodb
