package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Field limits for tasks.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 1000
)

// TaskStatus is the workflow state of a task. Any status may follow any other.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in-progress"
	StatusReview     TaskStatus = "review"
	StatusCompleted  TaskStatus = "completed"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusCompleted:
		return true
	}
	return false
}

// ParseTaskStatus converts s into a TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(strings.TrimSpace(s))
	if !status.Valid() {
		return "", NewValidationError("status", "must be one of todo, in-progress, review, completed", ErrInvalidStatus)
	}
	return status, nil
}

// TaskPriority ranks how urgent a task is.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ParseTaskPriority converts s into a TaskPriority.
func ParseTaskPriority(s string) (TaskPriority, error) {
	priority := TaskPriority(strings.TrimSpace(s))
	if !priority.Valid() {
		return "", NewValidationError("priority", "must be one of low, medium, high, urgent", ErrInvalidPriority)
	}
	return priority, nil
}

// RecurringType is the interval between occurrences of a recurring task.
type RecurringType string

const (
	RecurringNone    RecurringType = "none"
	RecurringDaily   RecurringType = "daily"
	RecurringWeekly  RecurringType = "weekly"
	RecurringMonthly RecurringType = "monthly"
)

// Valid reports whether r is a known recurrence type.
func (r RecurringType) Valid() bool {
	switch r {
	case RecurringNone, RecurringDaily, RecurringWeekly, RecurringMonthly:
		return true
	}
	return false
}

// ParseRecurringType converts s into a RecurringType.
func ParseRecurringType(s string) (RecurringType, error) {
	r := RecurringType(strings.TrimSpace(s))
	if !r.Valid() {
		return "", NewValidationError("recurringType", "must be one of daily, weekly, monthly, none", ErrInvalidRecurrence)
	}
	return r, nil
}

// Next returns the date one interval after from. The second result is false
// for RecurringNone.
func (r RecurringType) Next(from time.Time) (time.Time, bool) {
	switch r {
	case RecurringDaily:
		return from.AddDate(0, 0, 1), true
	case RecurringWeekly:
		return from.AddDate(0, 0, 7), true
	case RecurringMonthly:
		return from.AddDate(0, 1, 0), true
	}
	return time.Time{}, false
}

// Task is a unit of work owned by its creator and optionally assigned to
// another user.
type Task struct {
	ID               uuid.UUID     `json:"id"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	Status           TaskStatus    `json:"status"`
	Priority         TaskPriority  `json:"priority"`
	DueDate          *time.Time    `json:"dueDate,omitempty"`
	CreatedBy        uuid.UUID     `json:"createdBy"`
	AssignedTo       *uuid.UUID    `json:"assignedTo,omitempty"`
	Tags             []string      `json:"tags"`
	IsRecurring      bool          `json:"isRecurring"`
	RecurringType    RecurringType `json:"recurringType"`
	RecurringEndDate *time.Time    `json:"recurringEndDate,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// NewTask returns a task created by createdBy with default status, priority
// and recurrence. Optional fields are set by the caller before Validate.
func NewTask(createdBy uuid.UUID, title string) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:            uuid.New(),
		Title:         strings.TrimSpace(title),
		Status:        StatusTodo,
		Priority:      PriorityMedium,
		CreatedBy:     createdBy,
		Tags:          []string{},
		RecurringType: RecurringNone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Validate checks the task's fields and the recurrence invariant.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if t.CreatedBy == uuid.Nil {
		return NewValidationError("createdBy", "cannot be empty", ErrInvalidID)
	}
	if strings.TrimSpace(t.Title) == "" {
		return NewValidationError("title", "is required", nil)
	}
	if utf8.RuneCountInString(t.Title) > MaxTitleLength {
		return NewValidationError("title", "must be at most 100 characters", nil)
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLength {
		return NewValidationError("description", "must be at most 1000 characters", nil)
	}
	if !t.Status.Valid() {
		return NewValidationError("status", "must be one of todo, in-progress, review, completed", ErrInvalidStatus)
	}
	if !t.Priority.Valid() {
		return NewValidationError("priority", "must be one of low, medium, high, urgent", ErrInvalidPriority)
	}
	if !t.RecurringType.Valid() {
		return NewValidationError("recurringType", "must be one of daily, weekly, monthly, none", ErrInvalidRecurrence)
	}
	if t.IsRecurring && t.RecurringType == RecurringNone {
		return NewValidationError("recurringType", "must not be none for a recurring task", ErrInvalidRecurrence)
	}
	if t.AssignedTo != nil && *t.AssignedTo == uuid.Nil {
		return NewValidationError("assignedTo", "has invalid format", ErrInvalidID)
	}
	return nil
}

// IsCreatedBy reports whether id created the task.
func (t *Task) IsCreatedBy(id uuid.UUID) bool {
	return t.CreatedBy == id
}

// IsAssignedTo reports whether the task is assigned to id.
func (t *Task) IsAssignedTo(id uuid.UUID) bool {
	return t.AssignedTo != nil && *t.AssignedTo == id
}

// IsOverdue reports whether the task is past due and not completed.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != StatusCompleted
}

// Recurs reports whether completing the task can produce a next occurrence.
func (t *Task) Recurs() bool {
	return t.IsRecurring && t.RecurringType != RecurringNone
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	c.DueDate = copyTime(t.DueDate)
	c.RecurringEndDate = copyTime(t.RecurringEndDate)
	if t.AssignedTo != nil {
		id := *t.AssignedTo
		c.AssignedTo = &id
	}
	c.Tags = append([]string{}, t.Tags...)
	return &c
}

// NormalizeTags trims tags, drops empty ones and removes duplicates while
// keeping the first occurrence order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// TaskPatch is a partial update. Nil fields are left untouched; the Clear
// flags reset optional fields to empty.
type TaskPatch struct {
	Title                 *string
	Description           *string
	Status                *TaskStatus
	Priority              *TaskPriority
	DueDate               *time.Time
	ClearDueDate          bool
	AssignedTo            *uuid.UUID
	ClearAssignedTo       bool
	Tags                  *[]string
	IsRecurring           *bool
	RecurringType         *RecurringType
	RecurringEndDate      *time.Time
	ClearRecurringEndDate bool
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && p.DueDate == nil && !p.ClearDueDate &&
		p.AssignedTo == nil && !p.ClearAssignedTo && p.Tags == nil &&
		p.IsRecurring == nil && p.RecurringType == nil &&
		p.RecurringEndDate == nil && !p.ClearRecurringEndDate
}

// ApplyTo writes the patch onto t. It does not validate the result.
func (p TaskPatch) ApplyTo(t *Task) {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.ClearDueDate {
		t.DueDate = nil
	} else if p.DueDate != nil {
		t.DueDate = copyTime(p.DueDate)
	}
	if p.ClearAssignedTo {
		t.AssignedTo = nil
	} else if p.AssignedTo != nil {
		id := *p.AssignedTo
		t.AssignedTo = &id
	}
	if p.Tags != nil {
		t.Tags = NormalizeTags(*p.Tags)
	}
	if p.IsRecurring != nil {
		t.IsRecurring = *p.IsRecurring
	}
	if p.RecurringType != nil {
		t.RecurringType = *p.RecurringType
	}
	if p.ClearRecurringEndDate {
		t.RecurringEndDate = nil
	} else if p.RecurringEndDate != nil {
		t.RecurringEndDate = copyTime(p.RecurringEndDate)
	}
}
