package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// Field names a queryable task attribute.
type Field string

const (
	FieldID          Field = "id"
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldStatus      Field = "status"
	FieldPriority    Field = "priority"
	FieldDueDate     Field = "dueDate"
	FieldAssignedTo  Field = "assignedTo"
	FieldCreatedBy   Field = "createdBy"
	FieldCreatedAt   Field = "createdAt"
	FieldUpdatedAt   Field = "updatedAt"
)

// Operator is the kind of a predicate node.
type Operator string

const (
	OpAll          Operator = "all"
	OpEq           Operator = "eq"
	OpNe           Operator = "ne"
	OpLt           Operator = "lt"
	OpBetween      Operator = "between"
	OpContainsFold Operator = "containsFold"
	OpAnd          Operator = "and"
	OpOr           Operator = "or"
)

// Predicate is a filter over tasks. Leaf nodes compare one field with
// Value (and Upper for Between); And/Or nodes combine Operands.
// The zero value matches every task.
type Predicate struct {
	Op       Operator
	Field    Field
	Value    any
	Upper    any
	Operands []Predicate
}

// All matches every task.
func All() Predicate {
	return Predicate{Op: OpAll}
}

// Eq matches tasks whose field equals value.
func Eq(field Field, value any) Predicate {
	return Predicate{Op: OpEq, Field: field, Value: value}
}

// Ne matches tasks whose field differs from value. A task with no value for
// an optional field matches.
func Ne(field Field, value any) Predicate {
	return Predicate{Op: OpNe, Field: field, Value: value}
}

// Lt matches tasks whose field is set and strictly before value.
func Lt(field Field, value time.Time) Predicate {
	return Predicate{Op: OpLt, Field: field, Value: value}
}

// Between matches tasks whose field lies in [from, to].
func Between(field Field, from, to time.Time) Predicate {
	return Predicate{Op: OpBetween, Field: field, Value: from, Upper: to}
}

// ContainsFold matches tasks whose text field contains substr, ignoring case.
func ContainsFold(field Field, substr string) Predicate {
	return Predicate{Op: OpContainsFold, Field: field, Value: substr}
}

// And matches tasks satisfying every operand. Match-all operands are dropped.
func And(operands ...Predicate) Predicate {
	return combine(OpAnd, operands)
}

// Or matches tasks satisfying at least one operand.
func Or(operands ...Predicate) Predicate {
	for _, p := range operands {
		if p.IsAll() {
			return All()
		}
	}
	return combine(OpOr, operands)
}

func combine(op Operator, operands []Predicate) Predicate {
	kept := make([]Predicate, 0, len(operands))
	for _, p := range operands {
		if p.IsAll() {
			continue
		}
		if p.Op == op {
			kept = append(kept, p.Operands...)
			continue
		}
		kept = append(kept, p)
	}
	switch len(kept) {
	case 0:
		return All()
	case 1:
		return kept[0]
	}
	return Predicate{Op: op, Operands: kept}
}

// IsAll reports whether p matches everything.
func (p Predicate) IsAll() bool {
	return p.Op == OpAll || p.Op == ""
}

// String renders the predicate for logs.
func (p Predicate) String() string {
	switch p.Op {
	case OpAll, "":
		return "true"
	case OpAnd, OpOr:
		parts := make([]string, len(p.Operands))
		for i, o := range p.Operands {
			parts[i] = o.String()
		}
		return "(" + strings.Join(parts, " "+string(p.Op)+" ") + ")"
	case OpBetween:
		return fmt.Sprintf("%s between %v and %v", p.Field, p.Value, p.Upper)
	}
	return fmt.Sprintf("%s %s %v", p.Field, p.Op, p.Value)
}

// Scalar normalises a predicate value to a primitive: domain enums become
// strings, pointers are dereferenced (nil stays nil). uuid.UUID and
// time.Time are returned unchanged.
func Scalar(v any) any {
	switch x := v.(type) {
	case domain.TaskStatus:
		return string(x)
	case domain.TaskPriority:
		return string(x)
	case domain.RecurringType:
		return string(x)
	case *uuid.UUID:
		if x == nil {
			return nil
		}
		return *x
	case *time.Time:
		if x == nil {
			return nil
		}
		return *x
	}
	return v
}

// Sort orders query results by a single field.
type Sort struct {
	Field Field
	Desc  bool
}

// DefaultSort is newest first.
var DefaultSort = Sort{Field: FieldCreatedAt, Desc: true}

var sortable = map[Field]bool{
	FieldCreatedAt: true,
	FieldUpdatedAt: true,
	FieldDueDate:   true,
	FieldPriority:  true,
	FieldStatus:    true,
	FieldTitle:     true,
}

// IsSortable reports whether results may be ordered by field.
func IsSortable(field Field) bool {
	return sortable[field]
}

// TaskQuery selects a page of tasks.
type TaskQuery struct {
	Where Predicate
	Sort  Sort
	Skip  int
	Limit int
}
