package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Password length bounds. The upper bound is bcrypt's input limit.
const (
	MinPasswordLength = 12
	MaxPasswordLength = 72
	MaxNameLength     = 100
)

var emailValidator = validator.New()

// Role determines what a user may see and change.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

// ParseRole converts s into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", NewValidationError("role", "must be one of admin, manager, user", ErrInvalidRole)
	}
	return r, nil
}

// User is a registered account. Users are never hard-deleted; Active is
// cleared instead.
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Role           Role      `json:"role"`
	Active         bool      `json:"active"`
	Password       string    `json:"-"` // Plaintext, only set during registration
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// NewUser creates an active user with the default role.
// The caller must hash Password before the user is stored.
func NewUser(email, name, password string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:        uuid.New(),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Name:      strings.TrimSpace(name),
		Role:      RoleUser,
		Active:    true,
		Password:  password,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}

	if u.Email == "" {
		return NewValidationError("email", "cannot be empty", ErrInvalidEmail)
	}
	if err := emailValidator.Var(u.Email, "email"); err != nil {
		return NewValidationError("email", "has invalid format", ErrInvalidEmail)
	}

	if utf8.RuneCountInString(u.Name) > MaxNameLength {
		return NewValidationError("name", "must be at most 100 characters", nil)
	}

	if !u.Role.Valid() {
		return NewValidationError("role", "must be one of admin, manager, user", ErrInvalidRole)
	}

	if u.Password != "" {
		if len(u.Password) < MinPasswordLength {
			return NewValidationError("password", "must be at least 12 characters long", ErrInvalidPassword)
		}
		if len(u.Password) > MaxPasswordLength {
			return NewValidationError("password", "must be at most 72 characters long", ErrInvalidPassword)
		}
	} else if u.HashedPassword == "" {
		return NewValidationError("password", "cannot be empty", ErrInvalidPassword)
	}

	return nil
}

// Principal returns the identity used for authorization decisions.
func (u *User) Principal() Principal {
	return Principal{
		UserID: u.ID,
		Role:   u.Role,
		Active: u.Active,
	}
}
