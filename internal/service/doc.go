// Package service contains the application use cases. It coordinates domain
// objects, the authorization policy and the store interfaces to implement
// the task lifecycle, notification inbox and user administration.
//
// Services receive their dependencies through constructor injection and
// never import a concrete store backend.
//
// Error handling:
//   - expected conditions are returned as sentinel errors (ErrForbidden,
//     ErrInvalidCredentials, ...) or domain validation errors
//   - store sentinels such as store.ErrTaskNotFound pass through unchanged
//   - unexpected dependency failures are wrapped in *ServiceError
//
// The API layer maps all of them to HTTP status codes with errors.Is.
package service
