// Package postgres implements the store interfaces on PostgreSQL through
// database/sql and the pgx driver. Task filters arrive as store.Predicate
// trees and are translated to parameterised SQL; the schema is managed by the
// embedded goose migrations in the migrations directory.
package postgres
