package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/phrazzld/taskflow-api/internal/store"
)

// taskColumns maps predicate fields onto columns of the tasks table.
var taskColumns = map[store.Field]string{
	store.FieldID:          "id",
	store.FieldTitle:       "title",
	store.FieldDescription: "description",
	store.FieldStatus:      "status",
	store.FieldPriority:    "priority",
	store.FieldDueDate:     "due_date",
	store.FieldAssignedTo:  "assigned_to",
	store.FieldCreatedBy:   "created_by",
	store.FieldCreatedAt:   "created_at",
	store.FieldUpdatedAt:   "updated_at",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// whereBuilder renders a predicate as a SQL boolean expression, collecting
// positional arguments as it goes.
type whereBuilder struct {
	args []any
}

func (b *whereBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// build returns the SQL text for p.
func (b *whereBuilder) build(p store.Predicate) (string, error) {
	switch p.Op {
	case store.OpAll, "":
		return "TRUE", nil
	case store.OpAnd, store.OpOr:
		parts := make([]string, 0, len(p.Operands))
		for _, operand := range p.Operands {
			part, err := b.build(operand)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		}
		if len(parts) == 0 {
			return "TRUE", nil
		}
		joiner := " AND "
		if p.Op == store.OpOr {
			joiner = " OR "
		}
		return "(" + strings.Join(parts, joiner) + ")", nil
	}

	column, ok := taskColumns[p.Field]
	if !ok {
		return "", fmt.Errorf("%w: unknown field %q", store.ErrInvalidQuery, p.Field)
	}
	value := store.Scalar(p.Value)

	switch p.Op {
	case store.OpEq:
		if value == nil {
			return column + " IS NULL", nil
		}
		return column + " = " + b.arg(value), nil
	case store.OpNe:
		if value == nil {
			return column + " IS NOT NULL", nil
		}
		return column + " IS DISTINCT FROM " + b.arg(value), nil
	case store.OpLt:
		return column + " < " + b.arg(value), nil
	case store.OpBetween:
		return column + " BETWEEN " + b.arg(value) + " AND " + b.arg(store.Scalar(p.Upper)), nil
	case store.OpContainsFold:
		s, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("%w: %s expects a string", store.ErrInvalidQuery, p.Op)
		}
		return column + " ILIKE " + b.arg("%"+likeEscaper.Replace(s)+"%") + ` ESCAPE '\'`, nil
	}

	return "", fmt.Errorf("%w: unsupported operator %q", store.ErrInvalidQuery, p.Op)
}

// orderBy renders an ORDER BY clause. Rows without a value sort last and ties
// are broken by id so paging is stable.
func orderBy(sort store.Sort) (string, error) {
	if sort.Field == "" {
		sort = store.DefaultSort
	}
	if !store.IsSortable(sort.Field) {
		return "", fmt.Errorf("%w: cannot sort by %q", store.ErrInvalidQuery, sort.Field)
	}
	direction := "ASC"
	if sort.Desc {
		direction = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s NULLS LAST, id ASC", taskColumns[sort.Field], direction), nil
}

// inList renders "column IN ($n, ...)" for values.
func (b *whereBuilder) inList(column string, values []any) string {
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = b.arg(v)
	}
	return column + " IN (" + strings.Join(placeholders, ", ") + ")"
}
