package store

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

type Op int

const (
	OpEq Op = iota
	OpGte
	OpLte
	OpIn
	OpNotIn
	OpWithinBox
)

// Condition constrains one field of a document. Field may be a dotted path.
type Condition struct {
	Field string
	Op    Op
	Value interface{}
}

// Box is an axis-aligned longitude/latitude rectangle. Bounds are inclusive.
type Box struct {
	MinLng, MinLat, MaxLng, MaxLat float64
}

// Query selects documents in insertion order. Limit 0 means no limit.
type Query struct {
	Conditions []Condition
	Projection string
	Offset     int64
	Limit      int64
}

func Where(conds ...Condition) Query {
	return Query{Conditions: conds}
}

func (q *Query) Add(conds ...Condition) {
	q.Conditions = append(q.Conditions, conds...)
}

func Eq(field string, v interface{}) Condition  { return Condition{Field: field, Op: OpEq, Value: v} }
func Gte(field string, v interface{}) Condition { return Condition{Field: field, Op: OpGte, Value: v} }
func Lte(field string, v interface{}) Condition { return Condition{Field: field, Op: OpLte, Value: v} }

func In(field string, vs ...interface{}) Condition {
	return Condition{Field: field, Op: OpIn, Value: vs}
}

func NotIn(field string, vs ...interface{}) Condition {
	return Condition{Field: field, Op: OpNotIn, Value: vs}
}

func WithinBox(field string, b Box) Condition {
	return Condition{Field: field, Op: OpWithinBox, Value: b}
}

// ParseProjection turns a space-separated field list into a projection
// document. Fields prefixed with "-" are excluded, the rest included. Only
// _id may be excluded from an inclusion projection.
func ParseProjection(s string) (bson.M, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, nil
	}
	proj := bson.M{}
	var included, excluded bool
	for _, f := range fields {
		if strings.HasPrefix(f, "-") {
			proj[f[1:]] = 0
			excluded = excluded || f[1:] != "_id"
			continue
		}
		proj[f] = 1
		included = included || f != "_id"
	}
	if included && excluded {
		return nil, fmt.Errorf("%w: %q", ErrMixedProjection, s)
	}
	return proj, nil
}

// isInclusion reports whether proj lists fields to keep, as opposed to fields
// to drop. _id decides the mode only when it is the sole field.
func isInclusion(proj bson.M) bool {
	for k, v := range proj {
		if k != "_id" && v == 1 {
			return true
		}
	}
	return len(proj) == 1 && proj["_id"] == 1
}
