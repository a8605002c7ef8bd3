package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/authz"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// UserPage is one page of the user directory.
type UserPage struct {
	Items      []*domain.User
	Pagination Pagination
}

// UserService covers registration, credential checks and user administration.
type UserService interface {
	// Register creates an active user-role account.
	Register(ctx context.Context, email, name, password string) (*domain.User, error)

	// Authenticate checks credentials. Unknown emails and wrong passwords
	// both yield ErrInvalidCredentials; disabled accounts yield ErrInactiveUser.
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)

	// GetUser retrieves a user by their ID.
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// ResolvePrincipal turns a token subject into an active principal.
	ResolvePrincipal(ctx context.Context, id uuid.UUID) (domain.Principal, error)

	// List returns a page of users. Admin only.
	List(ctx context.Context, principal domain.Principal, page, limit int) (*UserPage, error)

	// UpdateRole changes another user's role. Admin only.
	UpdateRole(ctx context.Context, principal domain.Principal, id uuid.UUID, role domain.Role) (*domain.User, error)

	// SetActive enables or disables another user. Admin only.
	SetActive(ctx context.Context, principal domain.Principal, id uuid.UUID, active bool) (*domain.User, error)
}

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	userStore store.UserStore
	hasher    auth.PasswordHasher
	logger    *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(userStore store.UserStore, hasher auth.PasswordHasher, logger *slog.Logger) (UserService, error) {
	if userStore == nil {
		return nil, domain.NewValidationError("userStore", "cannot be nil", domain.ErrValidation)
	}
	if hasher == nil {
		return nil, domain.NewValidationError("hasher", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserServiceImpl{
		userStore: userStore,
		hasher:    hasher,
		logger:    logger.With(slog.String("component", "user_service")),
	}, nil
}

// Register creates a user and stores only the password hash.
func (s *UserServiceImpl) Register(ctx context.Context, email, name, password string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(email, name, password)
	if err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(user.Password)
	if err != nil {
		log.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, NewServiceError("register", "failed to hash password", err)
	}
	user.HashedPassword = hashed
	user.Password = ""

	if err := s.userStore.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			log.Debug("attempted to register existing email")
		} else {
			log.Error("failed to save user", slog.String("error", err.Error()))
		}
		return nil, wrapStoreError("register", "failed to store user", err)
	}

	log.Info("user registered", slog.String("user_id", user.ID.String()))
	return user, nil
}

// Authenticate implements UserService.
func (s *UserServiceImpl) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.userStore.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, wrapStoreError("authenticate", "failed to load user", err)
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		logger.FromContextOrDefault(ctx, s.logger).Debug("login rejected for inactive user",
			slog.String("user_id", user.ID.String()))
		return nil, ErrInactiveUser
	}
	return user, nil
}

// GetUser retrieves a user by their ID.
func (s *UserServiceImpl) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, id)
	if err != nil {
		return nil, wrapStoreError("get user", "failed to load user", err)
	}
	return user, nil
}

// ResolvePrincipal implements UserService.
func (s *UserServiceImpl) ResolvePrincipal(ctx context.Context, id uuid.UUID) (domain.Principal, error) {
	user, err := s.userStore.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return domain.Principal{}, ErrUnauthenticated
		}
		return domain.Principal{}, wrapStoreError("resolve principal", "failed to load user", err)
	}
	if !user.Active {
		return domain.Principal{}, ErrInactiveUser
	}
	return user.Principal(), nil
}

// List implements UserService.
func (s *UserServiceImpl) List(ctx context.Context, principal domain.Principal, page, limit int) (*UserPage, error) {
	if !authz.CanManageUsers(principal) {
		return nil, ErrForbidden
	}
	req := NewPageRequest(page, limit)

	total, err := s.userStore.Count(ctx)
	if err != nil {
		return nil, wrapStoreError("list users", "failed to count users", err)
	}
	users, err := s.userStore.List(ctx, req.Skip(), req.Limit)
	if err != nil {
		return nil, wrapStoreError("list users", "failed to list users", err)
	}
	return &UserPage{Items: users, Pagination: NewPagination(total, req)}, nil
}

// UpdateRole implements UserService.
func (s *UserServiceImpl) UpdateRole(
	ctx context.Context,
	principal domain.Principal,
	id uuid.UUID,
	role domain.Role,
) (*domain.User, error) {
	if !authz.CanManageUsers(principal) {
		return nil, ErrForbidden
	}
	if principal.Is(id) {
		return nil, ErrSelfRoleChange
	}
	if !role.Valid() {
		return nil, domain.NewValidationError("role", "must be one of admin, manager, user", domain.ErrInvalidRole)
	}

	if err := s.userStore.UpdateRole(ctx, id, role); err != nil {
		return nil, wrapStoreError("update role", "failed to update role", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("user role changed",
		slog.String("user_id", id.String()),
		slog.String("role", string(role)),
		slog.String("changed_by", principal.UserID.String()))
	return s.GetUser(ctx, id)
}

// SetActive implements UserService.
func (s *UserServiceImpl) SetActive(
	ctx context.Context,
	principal domain.Principal,
	id uuid.UUID,
	active bool,
) (*domain.User, error) {
	if !authz.CanManageUsers(principal) {
		return nil, ErrForbidden
	}
	if principal.Is(id) && !active {
		return nil, ErrSelfDeactivation
	}

	if err := s.userStore.SetActive(ctx, id, active); err != nil {
		return nil, wrapStoreError("set active", "failed to update user", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("user active flag changed",
		slog.String("user_id", id.String()),
		slog.Bool("active", active),
		slog.String("changed_by", principal.UserID.String()))
	return s.GetUser(ctx, id)
}
