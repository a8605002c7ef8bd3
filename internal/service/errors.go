package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// Sentinel errors returned by the services. Callers check them with errors.Is.
var (
	// ErrForbidden indicates the principal is known but lacks permission.
	// It is distinct from not found: the resource exists.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthenticated indicates the request carries no usable identity.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrInactiveUser indicates the account exists but has been disabled.
	ErrInactiveUser = errors.New("user account is inactive")

	// ErrInvalidCredentials indicates an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrBatchFieldNotAllowed indicates a batch update named a field outside
	// status, priority and assignedTo.
	ErrBatchFieldNotAllowed = errors.New("field not allowed in batch update")

	// ErrSelfRoleChange indicates an admin tried to change their own role.
	ErrSelfRoleChange = errors.New("cannot change own role")

	// ErrSelfDeactivation indicates an admin tried to deactivate themselves.
	ErrSelfDeactivation = errors.New("cannot deactivate own account")
)

// ServiceError wraps an unexpected dependency failure with the operation
// that was running.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// wrapStoreError passes expected store sentinels through untouched and
// wraps everything else as a dependency failure.
func wrapStoreError(operation, message string, err error) error {
	if store.IsNotFoundError(err) || store.IsDuplicateError(err) ||
		errors.Is(err, store.ErrInvalidEntity) || errors.Is(err, store.ErrInvalidQuery) ||
		errors.Is(err, domain.ErrValidation) {
		return err
	}
	return NewServiceError(operation, message, err)
}
