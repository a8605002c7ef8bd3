package api

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/service"
)

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
	Name     string `json:"name"     validate:"max=100"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// AuthResponse is returned by register, login and refresh.
type AuthResponse struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	// ExpiresAt is the RFC 3339 expiry of the access token.
	ExpiresAt string `json:"expiresAt"`
}

// Nullable distinguishes an absent JSON field from an explicit null.
type Nullable[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// UnmarshalJSON is only called when the key is present.
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Null = true
		return nil
	}
	return json.Unmarshal(data, &n.Value)
}

// CreateTaskRequest defines the payload for POST /tasks.
type CreateTaskRequest struct {
	Title            string     `json:"title"            validate:"required,max=100"`
	Description      string     `json:"description"      validate:"max=1000"`
	Status           *string    `json:"status"`
	Priority         *string    `json:"priority"`
	DueDate          *time.Time `json:"dueDate"`
	AssignedTo       *uuid.UUID `json:"assignedTo"`
	Tags             []string   `json:"tags"`
	IsRecurring      bool       `json:"isRecurring"`
	RecurringType    *string    `json:"recurringType"`
	RecurringEndDate *time.Time `json:"recurringEndDate"`
}

// ToInput converts the request into service input, parsing enumerations.
func (req CreateTaskRequest) ToInput() (service.CreateTaskInput, error) {
	input := service.CreateTaskInput{
		Title:            req.Title,
		Description:      req.Description,
		DueDate:          req.DueDate,
		AssignedTo:       req.AssignedTo,
		Tags:             req.Tags,
		IsRecurring:      req.IsRecurring,
		RecurringEndDate: req.RecurringEndDate,
	}
	if req.Status != nil {
		status, err := domain.ParseTaskStatus(*req.Status)
		if err != nil {
			return service.CreateTaskInput{}, err
		}
		input.Status = &status
	}
	if req.Priority != nil {
		priority, err := domain.ParseTaskPriority(*req.Priority)
		if err != nil {
			return service.CreateTaskInput{}, err
		}
		input.Priority = &priority
	}
	if req.RecurringType != nil {
		recurring, err := domain.ParseRecurringType(*req.RecurringType)
		if err != nil {
			return service.CreateTaskInput{}, err
		}
		input.RecurringType = &recurring
	}
	return input, nil
}

// UpdateTaskRequest defines the payload for PUT /tasks/{id}. Omitted fields
// are unchanged; null clears the optional ones.
type UpdateTaskRequest struct {
	Title            *string             `json:"title"`
	Description      *string             `json:"description"`
	Status           *string             `json:"status"`
	Priority         *string             `json:"priority"`
	DueDate          Nullable[time.Time] `json:"dueDate"`
	AssignedTo       Nullable[uuid.UUID] `json:"assignedTo"`
	Tags             *[]string           `json:"tags"`
	IsRecurring      *bool               `json:"isRecurring"`
	RecurringType    *string             `json:"recurringType"`
	RecurringEndDate Nullable[time.Time] `json:"recurringEndDate"`
}

// ToPatch converts the request into a domain patch.
func (req UpdateTaskRequest) ToPatch() (domain.TaskPatch, error) {
	patch := domain.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		IsRecurring: req.IsRecurring,
	}
	if req.Status != nil {
		status, err := domain.ParseTaskStatus(*req.Status)
		if err != nil {
			return domain.TaskPatch{}, err
		}
		patch.Status = &status
	}
	if req.Priority != nil {
		priority, err := domain.ParseTaskPriority(*req.Priority)
		if err != nil {
			return domain.TaskPatch{}, err
		}
		patch.Priority = &priority
	}
	if req.RecurringType != nil {
		recurring, err := domain.ParseRecurringType(*req.RecurringType)
		if err != nil {
			return domain.TaskPatch{}, err
		}
		patch.RecurringType = &recurring
	}

	patch.DueDate, patch.ClearDueDate = nullableField(req.DueDate)
	patch.AssignedTo, patch.ClearAssignedTo = nullableField(req.AssignedTo)
	patch.RecurringEndDate, patch.ClearRecurringEndDate = nullableField(req.RecurringEndDate)
	return patch, nil
}

func nullableField[T any](n Nullable[T]) (*T, bool) {
	switch {
	case !n.Set:
		return nil, false
	case n.Null:
		return nil, true
	default:
		v := n.Value
		return &v, false
	}
}

// BatchUpdateRequest defines the payload for POST /tasks/batch-update.
type BatchUpdateRequest struct {
	TaskIDs []uuid.UUID                `json:"taskIds" validate:"required,min=1,max=1000"`
	Updates map[string]json.RawMessage `json:"updates" validate:"required,min=1"`
}

// ListResponse is the envelope of every paginated listing.
type ListResponse[T any] struct {
	Items      []T                `json:"items"`
	Pagination service.Pagination `json:"pagination"`
}

func newListResponse[T any](items []T, pagination service.Pagination) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Pagination: pagination}
}

// NotificationResponse is one inbox entry. RelatedTask is null when the task
// no longer exists.
type NotificationResponse struct {
	ID            uuid.UUID               `json:"id"`
	Type          domain.NotificationType `json:"type"`
	Message       string                  `json:"message"`
	Sender        *uuid.UUID              `json:"sender"`
	RelatedTaskID *uuid.UUID              `json:"relatedTaskId"`
	RelatedTask   *service.TaskSummary    `json:"relatedTask"`
	IsRead        bool                    `json:"isRead"`
	CreatedAt     time.Time               `json:"createdAt"`
}

func notificationToResponse(view service.NotificationView) NotificationResponse {
	return NotificationResponse{
		ID:            view.ID,
		Type:          view.Type,
		Message:       view.Message,
		Sender:        view.Sender,
		RelatedTaskID: view.RelatedTask,
		RelatedTask:   view.Task,
		IsRead:        view.IsRead,
		CreatedAt:     view.CreatedAt,
	}
}

// UnreadCountResponse is returned by GET /notifications/unread-count.
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

// MarkAllReadResponse is returned by PUT /notifications/read-all.
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

// UpdateRoleRequest defines the payload for PUT /users/{id}/role.
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin manager user"`
}

// SetActiveRequest defines the payload for PUT /users/{id}/active.
type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}
