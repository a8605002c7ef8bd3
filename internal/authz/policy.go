// Package authz holds the single permission model for tasks. Handlers and
// services ask the policy instead of comparing ids and roles inline.
package authz

import (
	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// Action is an operation a principal attempts on a task.
type Action string

const (
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// CanAccess decides whether principal may perform action on task.
// Rules are evaluated in order and the first match wins:
//   - admins may do anything
//   - read is allowed for the creator and the assignee
//   - update and delete are allowed for the creator, or for a manager who is
//     the assignee
//
// Everything else is denied. CanAccess never fails; callers turn false into
// a forbidden outcome.
func CanAccess(principal domain.Principal, task *domain.Task, action Action) bool {
	if task == nil || principal.UserID == uuid.Nil {
		return false
	}
	if principal.IsAdmin() {
		return true
	}

	creator := task.IsCreatedBy(principal.UserID)
	assignee := task.IsAssignedTo(principal.UserID)

	switch action {
	case ActionRead:
		return creator || assignee
	case ActionUpdate, ActionDelete:
		return creator || (principal.Role == domain.RoleManager && assignee)
	}
	return false
}

// CanBatchUpdate reports whether principal may use the bulk update path.
// Bulk updates skip per-task checks, so only privileged roles get them.
func CanBatchUpdate(principal domain.Principal) bool {
	return principal.HasRole(domain.RoleAdmin, domain.RoleManager)
}

// CanManageUsers reports whether principal may change other users' role or
// active flag.
func CanManageUsers(principal domain.Principal) bool {
	return principal.IsAdmin()
}
