package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// Paging defaults for list endpoints.
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// MeSentinel in an assignedTo or createdBy filter stands for the caller.
const MeSentinel = "me"

const dateLayout = "2006-01-02"

// TaskFilter is the raw list request. Empty strings mean "no filter".
type TaskFilter struct {
	Status     string
	Priority   string
	DueDate    string
	Search     string
	AssignedTo string
	CreatedBy  string
	Overdue    bool
	SortBy     string
	SortOrder  string
	Page       int
	Limit      int
}

// PageRequest is a normalised 1-indexed page.
type PageRequest struct {
	Page  int
	Limit int
}

// NewPageRequest clamps page and limit to their defaults and bounds.
func NewPageRequest(page, limit int) PageRequest {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return PageRequest{Page: page, Limit: limit}
}

// Skip returns the number of rows before the page.
func (p PageRequest) Skip() int {
	return (p.Page - 1) * p.Limit
}

// Pagination describes a page within a result set.
type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

// NewPagination computes the page count for total rows.
func NewPagination(total int64, page PageRequest) Pagination {
	pages := 0
	if total > 0 {
		pages = int((total + int64(page.Limit) - 1) / int64(page.Limit))
	}
	return Pagination{
		Total: total,
		Page:  page.Page,
		Limit: page.Limit,
		Pages: pages,
	}
}

// TaskQueryPlan is a built list query plus the page it targets.
type TaskQueryPlan struct {
	Query store.TaskQuery
	Page  PageRequest
}

// TaskQueryBuilder turns a filter request and the caller's visibility into a
// store query.
type TaskQueryBuilder struct {
	now func() time.Time
}

// NewTaskQueryBuilder creates a builder using the wall clock for overdue.
func NewTaskQueryBuilder() *TaskQueryBuilder {
	return &TaskQueryBuilder{now: time.Now}
}

// Build validates filter and returns the query. Filters are ANDed; a
// non-admin principal is always restricted to tasks they created or are
// assigned to, so a createdBy filter naming someone else matches nothing.
func (b *TaskQueryBuilder) Build(principal domain.Principal, filter TaskFilter) (TaskQueryPlan, error) {
	var clauses []store.Predicate

	if filter.Status != "" {
		status, err := domain.ParseTaskStatus(filter.Status)
		if err != nil {
			return TaskQueryPlan{}, err
		}
		clauses = append(clauses, store.Eq(store.FieldStatus, status))
	}

	if filter.Priority != "" {
		priority, err := domain.ParseTaskPriority(filter.Priority)
		if err != nil {
			return TaskQueryPlan{}, err
		}
		clauses = append(clauses, store.Eq(store.FieldPriority, priority))
	}

	if filter.DueDate != "" {
		start, err := parseDay(filter.DueDate)
		if err != nil {
			return TaskQueryPlan{}, err
		}
		end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
		clauses = append(clauses, store.Between(store.FieldDueDate, start, end))
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		clauses = append(clauses, store.Or(
			store.ContainsFold(store.FieldTitle, search),
			store.ContainsFold(store.FieldDescription, search),
		))
	}

	if filter.AssignedTo != "" {
		id, err := resolveUserRef(principal, "assignedTo", filter.AssignedTo)
		if err != nil {
			return TaskQueryPlan{}, err
		}
		clauses = append(clauses, store.Eq(store.FieldAssignedTo, id))
	}

	if filter.CreatedBy != "" {
		id, err := resolveUserRef(principal, "createdBy", filter.CreatedBy)
		if err != nil {
			return TaskQueryPlan{}, err
		}
		clauses = append(clauses, store.Eq(store.FieldCreatedBy, id))
	}

	if filter.Overdue {
		clauses = append(clauses,
			store.Lt(store.FieldDueDate, b.now().UTC()),
			store.Ne(store.FieldStatus, domain.StatusCompleted),
		)
	}

	if !principal.IsAdmin() {
		clauses = append(clauses, store.Or(
			store.Eq(store.FieldCreatedBy, principal.UserID),
			store.Eq(store.FieldAssignedTo, principal.UserID),
		))
	}

	sort, err := parseSort(filter.SortBy, filter.SortOrder)
	if err != nil {
		return TaskQueryPlan{}, err
	}

	page := NewPageRequest(filter.Page, filter.Limit)
	return TaskQueryPlan{
		Query: store.TaskQuery{
			Where: store.And(clauses...),
			Sort:  sort,
			Skip:  page.Skip(),
			Limit: page.Limit,
		},
		Page: page,
	}, nil
}

func resolveUserRef(principal domain.Principal, field, value string) (uuid.UUID, error) {
	if strings.EqualFold(value, MeSentinel) {
		return principal.UserID, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(field, "must be a user id or \"me\"", domain.ErrInvalidID)
	}
	return id, nil
}

func parseDay(value string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, domain.NewValidationError("dueDate", "must be YYYY-MM-DD or RFC 3339", domain.ErrInvalidFormat)
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func parseSort(sortBy, order string) (store.Sort, error) {
	sort := store.DefaultSort
	if sortBy != "" {
		field := store.Field(sortBy)
		if !store.IsSortable(field) {
			return store.Sort{}, domain.NewValidationError("sortBy",
				"must be one of createdAt, updatedAt, dueDate, priority, status, title", nil)
		}
		sort.Field = field
	}
	switch strings.ToLower(order) {
	case "", "desc":
		sort.Desc = true
	case "asc":
		sort.Desc = false
	default:
		return store.Sort{}, domain.NewValidationError("sortOrder", "must be asc or desc", nil)
	}
	return sort, nil
}
