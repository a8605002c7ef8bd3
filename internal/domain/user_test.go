package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewUser(t *testing.T) {
	validEmail := "Test@Example.com"
	validPassword := "correct-horse-battery"

	user, err := NewUser(validEmail, " Ada ", validPassword)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if user.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}
	if user.Email != "test@example.com" {
		t.Errorf("Expected normalized email, got %s", user.Email)
	}
	if user.Name != "Ada" {
		t.Errorf("Expected trimmed name, got %q", user.Name)
	}
	if user.Role != RoleUser {
		t.Errorf("Expected role %s, got %s", RoleUser, user.Role)
	}
	if !user.Active {
		t.Error("Expected new user to be active")
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("Expected non-zero timestamps")
	}

	_, err = NewUser("", "", validPassword)
	if !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("Expected %v, got %v", ErrInvalidEmail, err)
	}

	_, err = NewUser("invalidemail", "", validPassword)
	if !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("Expected %v, got %v", ErrInvalidEmail, err)
	}

	_, err = NewUser(validEmail, "", "short")
	if !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("Expected %v, got %v", ErrInvalidPassword, err)
	}
}

func TestUserValidate(t *testing.T) {
	valid := User{
		ID:             uuid.New(),
		Email:          "test@example.com",
		Role:           RoleManager,
		Active:         true,
		HashedPassword: "$2a$10$abcdefghijklmnopqrstuv",
	}

	tests := []struct {
		name    string
		mutate  func(u *User)
		wantErr error
	}{
		{name: "valid", mutate: func(u *User) {}},
		{name: "nil id", mutate: func(u *User) { u.ID = uuid.Nil }, wantErr: ErrInvalidID},
		{name: "empty email", mutate: func(u *User) { u.Email = "" }, wantErr: ErrInvalidEmail},
		{name: "unknown role", mutate: func(u *User) { u.Role = "owner" }, wantErr: ErrInvalidRole},
		{name: "no password at all", mutate: func(u *User) { u.HashedPassword = "" }, wantErr: ErrInvalidPassword},
		{name: "password too long", mutate: func(u *User) { u.Password = strings.Repeat("a", 73) }, wantErr: ErrInvalidPassword},
		{name: "name too long", mutate: func(u *User) { u.Name = strings.Repeat("n", 101) }, wantErr: ErrValidation},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u := valid
			tc.mutate(&u)
			err := u.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Expected %v, got %v", tc.wantErr, err)
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Expected error to match ErrValidation, got %v", err)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Manager ")
	if err != nil || role != RoleManager {
		t.Fatalf("Expected manager, got %q (%v)", role, err)
	}

	if _, err := ParseRole("root"); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("Expected %v, got %v", ErrInvalidRole, err)
	}
}

func TestUserPrincipal(t *testing.T) {
	u := User{ID: uuid.New(), Role: RoleAdmin, Active: true}
	p := u.Principal()

	if p.UserID != u.ID || !p.IsAdmin() || !p.Active {
		t.Errorf("Unexpected principal %+v", p)
	}
	if !p.HasRole(RoleManager, RoleAdmin) {
		t.Error("Expected HasRole to match admin")
	}
	if p.Is(uuid.Nil) {
		t.Error("Principal must never match the nil id")
	}
}
