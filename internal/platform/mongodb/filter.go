package mongodb

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// taskKeys maps predicate fields onto task document keys.
var taskKeys = map[store.Field]string{
	store.FieldID:          "_id",
	store.FieldTitle:       "title",
	store.FieldDescription: "description",
	store.FieldStatus:      "status",
	store.FieldPriority:    "priority",
	store.FieldDueDate:     "dueDate",
	store.FieldAssignedTo:  "assignedTo",
	store.FieldCreatedBy:   "createdBy",
	store.FieldCreatedAt:   "createdAt",
	store.FieldUpdatedAt:   "updatedAt",
}

const missingKey = "sortMissing"

// filter translates p into a query document.
func filter(p store.Predicate) (bson.D, error) {
	switch p.Op {
	case store.OpAll, "":
		return bson.D{}, nil
	case store.OpAnd, store.OpOr:
		parts := bson.A{}
		for _, operand := range p.Operands {
			part, err := filter(operand)
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
		}
		if len(parts) == 0 {
			return bson.D{}, nil
		}
		op := "$and"
		if p.Op == store.OpOr {
			op = "$or"
		}
		return bson.D{{Key: op, Value: parts}}, nil
	}

	key, ok := taskKeys[p.Field]
	if !ok {
		return nil, fmt.Errorf("%w: unknown field %q", store.ErrInvalidQuery, p.Field)
	}
	value := bsonValue(p.Value)

	switch p.Op {
	case store.OpEq:
		return bson.D{{Key: key, Value: value}}, nil
	case store.OpNe:
		return bson.D{{Key: key, Value: bson.D{{Key: "$ne", Value: value}}}}, nil
	case store.OpLt:
		return bson.D{{Key: key, Value: bson.D{{Key: "$lt", Value: value}}}}, nil
	case store.OpBetween:
		return bson.D{{Key: key, Value: bson.D{
			{Key: "$gte", Value: value},
			{Key: "$lte", Value: bsonValue(p.Upper)},
		}}}, nil
	case store.OpContainsFold:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects a string", store.ErrInvalidQuery, p.Op)
		}
		return bson.D{{Key: key, Value: primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}}}, nil
	}

	return nil, fmt.Errorf("%w: unsupported operator %q", store.ErrInvalidQuery, p.Op)
}

// bsonValue converts a predicate operand into its stored representation.
func bsonValue(v any) any {
	switch x := store.Scalar(v).(type) {
	case uuid.UUID:
		return x.String()
	case time.Time:
		return x.UTC()
	default:
		return x
	}
}

// findPipeline builds the aggregation for a task listing. Documents without
// the sort key come last in either direction and ties are broken by _id.
func findPipeline(q store.TaskQuery) (mongo.Pipeline, error) {
	match, err := filter(q.Where)
	if err != nil {
		return nil, err
	}

	sort := q.Sort
	if sort.Field == "" {
		sort = store.DefaultSort
	}
	if !store.IsSortable(sort.Field) {
		return nil, fmt.Errorf("%w: cannot sort by %q", store.ErrInvalidQuery, sort.Field)
	}
	key := taskKeys[sort.Field]
	direction := 1
	if sort.Desc {
		direction = -1
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$addFields", Value: bson.D{{Key: missingKey, Value: bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$ifNull", Value: bson.A{"$" + key, false}}}, 0, 1,
		}}}}}}},
		{{Key: "$sort", Value: bson.D{
			{Key: missingKey, Value: 1},
			{Key: key, Value: direction},
			{Key: "_id", Value: 1},
		}}},
	}
	if q.Skip > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$skip", Value: int64(q.Skip)}})
	}
	if q.Limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: int64(q.Limit)}})
	}
	pipeline = append(pipeline, bson.D{{Key: "$project", Value: bson.D{{Key: missingKey, Value: 0}}}})
	return pipeline, nil
}

func idStrings(ids []uuid.UUID) bson.A {
	out := make(bson.A, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
