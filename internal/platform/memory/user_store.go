package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// UserStore is an in-memory store.UserStore.
type UserStore struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]*domain.User
	byEmail map[string]uuid.UUID
}

// NewUserStore returns an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{
		users:   make(map[uuid.UUID]*domain.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

var _ store.UserStore = (*UserStore)(nil)

func (s *UserStore) Create(_ context.Context, user *domain.User) error {
	if user.HashedPassword == "" {
		return domain.NewValidationError("password", "must be hashed before storage", domain.ErrInvalidPassword)
	}
	if err := user.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(user.Email)
	if _, ok := s.byEmail[email]; ok {
		return store.ErrEmailExists
	}
	if _, ok := s.users[user.ID]; ok {
		return store.ErrDuplicate
	}
	u := copyUser(user)
	u.Email = email
	u.Password = ""
	s.users[u.ID] = u
	s.byEmail[email] = u.ID
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return copyUser(s.users[id]), nil
}

func (s *UserStore) List(_ context.Context, skip, limit int) ([]*domain.User, error) {
	s.mu.RLock()
	users := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, copyUser(u))
	}
	s.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		if c := users[i].CreatedAt.Compare(users[j].CreatedAt); c != 0 {
			return c < 0
		}
		return users[i].ID.String() < users[j].ID.String()
	})
	return page(users, skip, limit), nil
}

func (s *UserStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

func (s *UserStore) UpdateRole(_ context.Context, id uuid.UUID, role domain.Role) error {
	if !role.Valid() {
		return domain.NewValidationError("role", "must be one of admin, manager, user", domain.ErrInvalidRole)
	}
	return s.mutate(id, func(u *domain.User) { u.Role = role })
}

func (s *UserStore) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	return s.mutate(id, func(u *domain.User) { u.Active = active })
}

func (s *UserStore) mutate(id uuid.UUID, fn func(*domain.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return store.ErrUserNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	return &c
}
