package postgres_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/taskflow-api/internal/platform/postgres"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func newPgError(code string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		Message:        "error message",
		TableName:      "tasks",
		ColumnName:     "title",
		ConstraintName: "tasks_status_check",
	}
}

// MockResult implements sql.Result for testing
type MockResult struct {
	rowsAffected int64
	err          error
}

func (m MockResult) LastInsertId() (int64, error) {
	return 0, m.err
}

func (m MockResult) RowsAffected() (int64, error) {
	return m.rowsAffected, m.err
}

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		target error
	}{
		{name: "no rows", err: sql.ErrNoRows, target: store.ErrNotFound},
		{name: "unique violation", err: newPgError("23505"), target: store.ErrDuplicate},
		{name: "foreign key violation", err: newPgError("23503"), target: store.ErrInvalidEntity},
		{name: "check violation", err: newPgError("23514"), target: store.ErrInvalidEntity},
		{name: "not null violation", err: newPgError("23502"), target: store.ErrInvalidEntity},
		{name: "wrapped unique violation", err: fmt.Errorf("insert: %w", newPgError("23505")), target: store.ErrDuplicate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, postgres.MapError(tt.err), tt.target)
		})
	}

	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, postgres.MapError(nil))
	})

	t.Run("unmapped errors are returned unchanged", func(t *testing.T) {
		original := errors.New("connection refused")
		assert.Same(t, original, postgres.MapError(original))
	})

	t.Run("unmapped pg codes are returned unchanged", func(t *testing.T) {
		pgErr := newPgError("40001")
		assert.Equal(t, error(pgErr), postgres.MapError(pgErr))
	})
}

func TestViolationPredicates(t *testing.T) {
	t.Parallel()

	assert.True(t, postgres.IsUniqueViolation(newPgError("23505")))
	assert.False(t, postgres.IsUniqueViolation(newPgError("23503")))
	assert.False(t, postgres.IsUniqueViolation(nil))

	assert.True(t, postgres.IsForeignKeyViolation(newPgError("23503")))
	assert.True(t, postgres.IsCheckConstraintViolation(newPgError("23514")))
	assert.True(t, postgres.IsNotNullViolation(newPgError("23502")))
	assert.False(t, postgres.IsNotNullViolation(errors.New("plain")))
}

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		result   sql.Result
		notFound error
		wantErr  error
		wantNil  bool
	}{
		{name: "one row", result: MockResult{rowsAffected: 1}, notFound: store.ErrTaskNotFound, wantNil: true},
		{name: "no rows with specific error", result: MockResult{}, notFound: store.ErrTaskNotFound, wantErr: store.ErrTaskNotFound},
		{name: "no rows with default error", result: MockResult{}, wantErr: store.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := postgres.CheckRowsAffected(tt.result, tt.notFound)
			if tt.wantNil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("nil result", func(t *testing.T) {
		assert.Error(t, postgres.CheckRowsAffected(nil, nil))
	})

	t.Run("rows affected failure", func(t *testing.T) {
		err := postgres.CheckRowsAffected(MockResult{err: errors.New("driver gone")}, store.ErrTaskNotFound)
		assert.ErrorContains(t, err, "failed to get rows affected")
		assert.NotErrorIs(t, err, store.ErrTaskNotFound)
	})
}

func TestMapUniqueViolation(t *testing.T) {
	t.Parallel()

	err := postgres.MapUniqueViolation(newPgError("23505"), store.ErrEmailExists)
	assert.ErrorIs(t, err, store.ErrEmailExists)
	assert.ErrorIs(t, err, store.ErrDuplicate)

	assert.ErrorIs(t, postgres.MapUniqueViolation(newPgError("23505"), nil), store.ErrDuplicate)

	other := errors.New("timeout")
	assert.Same(t, other, postgres.MapUniqueViolation(other, store.ErrEmailExists))
}
