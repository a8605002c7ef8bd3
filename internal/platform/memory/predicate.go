package memory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// fieldValue returns the task's value for field; unset optional fields are nil.
func fieldValue(task *domain.Task, field store.Field) (any, error) {
	switch field {
	case store.FieldID:
		return task.ID, nil
	case store.FieldTitle:
		return task.Title, nil
	case store.FieldDescription:
		return task.Description, nil
	case store.FieldStatus:
		return string(task.Status), nil
	case store.FieldPriority:
		return string(task.Priority), nil
	case store.FieldDueDate:
		return store.Scalar(task.DueDate), nil
	case store.FieldAssignedTo:
		return store.Scalar(task.AssignedTo), nil
	case store.FieldCreatedBy:
		return task.CreatedBy, nil
	case store.FieldCreatedAt:
		return task.CreatedAt, nil
	case store.FieldUpdatedAt:
		return task.UpdatedAt, nil
	}
	return nil, fmt.Errorf("%w: unknown field %q", store.ErrInvalidQuery, field)
}

// check rejects predicates this backend cannot evaluate.
func check(p store.Predicate) error {
	switch p.Op {
	case store.OpAll, "":
		return nil
	case store.OpAnd, store.OpOr:
		for _, o := range p.Operands {
			if err := check(o); err != nil {
				return err
			}
		}
		return nil
	case store.OpEq, store.OpNe, store.OpLt, store.OpBetween:
	case store.OpContainsFold:
		if _, ok := store.Scalar(p.Value).(string); !ok {
			return fmt.Errorf("%w: %s expects a string", store.ErrInvalidQuery, p.Op)
		}
	default:
		return fmt.Errorf("%w: unsupported operator %q", store.ErrInvalidQuery, p.Op)
	}
	if _, err := fieldValue(&domain.Task{}, p.Field); err != nil {
		return err
	}
	return nil
}

// matches evaluates a predicate that has already passed check.
func matches(task *domain.Task, p store.Predicate) bool {
	switch p.Op {
	case store.OpAll, "":
		return true
	case store.OpAnd:
		for _, o := range p.Operands {
			if !matches(task, o) {
				return false
			}
		}
		return true
	case store.OpOr:
		for _, o := range p.Operands {
			if matches(task, o) {
				return true
			}
		}
		return false
	}

	got, _ := fieldValue(task, p.Field)
	want := store.Scalar(p.Value)

	switch p.Op {
	case store.OpEq:
		return equal(got, want)
	case store.OpNe:
		return !equal(got, want)
	case store.OpLt:
		g, ok1 := got.(time.Time)
		w, ok2 := want.(time.Time)
		return ok1 && ok2 && g.Before(w)
	case store.OpBetween:
		g, ok1 := got.(time.Time)
		lo, ok2 := want.(time.Time)
		hi, ok3 := store.Scalar(p.Upper).(time.Time)
		return ok1 && ok2 && ok3 && !g.Before(lo) && !g.After(hi)
	case store.OpContainsFold:
		g, ok := got.(string)
		return ok && strings.Contains(strings.ToLower(g), strings.ToLower(want.(string)))
	}
	return false
}

func equal(got, want any) bool {
	if got == nil || want == nil {
		return got == nil && want == nil
	}
	switch g := got.(type) {
	case time.Time:
		w, ok := want.(time.Time)
		return ok && g.Equal(w)
	case uuid.UUID:
		switch w := want.(type) {
		case uuid.UUID:
			return g == w
		case string:
			return g.String() == strings.ToLower(w)
		}
		return false
	}
	return got == want
}

// sortTasks orders tasks by s. Unset values sort last in both directions and
// ties fall back to id.
func sortTasks(tasks []*domain.Task, s store.Sort) error {
	if s.Field == "" {
		s = store.DefaultSort
	}
	if !store.IsSortable(s.Field) {
		return fmt.Errorf("%w: cannot sort by %q", store.ErrInvalidQuery, s.Field)
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		a, _ := fieldValue(tasks[i], s.Field)
		b, _ := fieldValue(tasks[j], s.Field)
		switch {
		case a == nil && b == nil:
			return tasks[i].ID.String() < tasks[j].ID.String()
		case a == nil:
			return false
		case b == nil:
			return true
		}
		c := compare(a, b)
		if c == 0 {
			return tasks[i].ID.String() < tasks[j].ID.String()
		}
		if s.Desc {
			return c > 0
		}
		return c < 0
	})
	return nil
}

func compare(a, b any) int {
	switch x := a.(type) {
	case time.Time:
		return x.Compare(b.(time.Time))
	case string:
		return strings.Compare(x, b.(string))
	}
	return 0
}

func page[T any](items []T, skip, limit int) []T {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(items) {
		return []T{}
	}
	items = items[skip:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
