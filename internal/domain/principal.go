package domain

import "github.com/google/uuid"

// Principal is the authenticated actor of a request as resolved by the
// identity layer.
type Principal struct {
	UserID uuid.UUID
	Role   Role
	Active bool
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// HasRole reports whether the principal holds any of roles.
func (p Principal) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// Is reports whether the principal is the user identified by id.
func (p Principal) Is(id uuid.UUID) bool {
	return id != uuid.Nil && p.UserID == id
}
