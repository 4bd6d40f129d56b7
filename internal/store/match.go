package store

import (
	"reflect"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Matches evaluates conditions against a decoded document with the same
// semantics the Mongo backend gets from the server: equality against an array
// matches any element, a missing field is never in a set, and box bounds are
// inclusive.
func Matches(doc bson.M, conds []Condition) bool {
	for _, c := range conds {
		v, found := lookup(doc, c.Field)
		if !matchOne(v, found, c) {
			return false
		}
	}
	return true
}

func matchOne(v interface{}, found bool, c Condition) bool {
	switch c.Op {
	case OpEq:
		return found && equalsOrContains(v, c.Value)
	case OpGte:
		n, ok := compare(v, c.Value)
		return found && ok && n >= 0
	case OpLte:
		n, ok := compare(v, c.Value)
		return found && ok && n <= 0
	case OpIn:
		return found && inSet(v, c.Value.([]interface{}))
	case OpNotIn:
		return !found || !inSet(v, c.Value.([]interface{}))
	case OpWithinBox:
		return found && withinBox(v, c.Value.(Box))
	}
	return false
}

func inSet(v interface{}, set []interface{}) bool {
	for _, want := range set {
		if equalsOrContains(v, want) {
			return true
		}
	}
	return false
}

func equalsOrContains(v, want interface{}) bool {
	if arr, ok := asArray(v); ok {
		for _, el := range arr {
			if equal(el, want) {
				return true
			}
		}
		return false
	}
	return equal(v, want)
}

func equal(a, b interface{}) bool {
	if n, ok := compare(a, b); ok {
		return n == 0
	}
	x, y := normalize(a), normalize(b)
	if !isComparable(x) || !isComparable(y) {
		return false
	}
	return x == y
}

func isComparable(v interface{}) bool {
	return v == nil || reflect.TypeOf(v).Comparable()
}

func withinBox(v interface{}, b Box) bool {
	if m, ok := asMap(v); ok {
		v = m["coordinates"]
	}
	arr, ok := asArray(v)
	if !ok || len(arr) != 2 {
		return false
	}
	lng, ok1 := normalize(arr[0]).(float64)
	lat, ok2 := normalize(arr[1]).(float64)
	if !ok1 || !ok2 {
		return false
	}
	return lng >= b.MinLng && lng <= b.MaxLng && lat >= b.MinLat && lat <= b.MaxLat
}

// compare orders numbers, times and strings. ok is false for values of other
// or mismatched kinds.
func compare(a, b interface{}) (int, bool) {
	switch x := normalize(a).(type) {
	case float64:
		y, ok := normalize(b).(float64)
		if !ok {
			return 0, false
		}
		return cmp3(x < y, x > y), true
	case time.Time:
		y, ok := normalize(b).(time.Time)
		if !ok {
			return 0, false
		}
		return cmp3(x.Before(y), x.After(y)), true
	case string:
		y, ok := normalize(b).(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	}
	return 0, false
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

// normalize folds the BSON decoding of a value and its Go form onto one
// representation.
func normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case primitive.DateTime:
		return x.Time().UTC()
	case time.Time:
		return x.Truncate(time.Millisecond).UTC()
	case *primitive.ObjectID:
		if x == nil {
			return nil
		}
		return *x
	}
	return v
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch x := v.(type) {
	case bson.M:
		return x, true
	case map[string]interface{}:
		return x, true
	case primitive.D:
		return x.Map(), true
	}
	return nil, false
}

func asArray(v interface{}) ([]interface{}, bool) {
	switch x := v.(type) {
	case primitive.A:
		return x, true
	case []interface{}:
		return x, true
	}
	return nil, false
}

func lookup(doc bson.M, path string) (interface{}, bool) {
	var cur interface{} = map[string]interface{}(doc)
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func setPath(doc bson.M, path string, v interface{}) {
	parts := strings.Split(path, ".")
	cur := map[string]interface{}(doc)
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(cur[part])
		if !ok {
			next = bson.M{}
		}
		cur[part] = next
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

// Project applies a parsed projection to a decoded document. Exclusions are
// applied in place.
func Project(doc bson.M, proj bson.M) bson.M {
	if isInclusion(proj) {
		out := bson.M{}
		if proj["_id"] != 0 {
			if id, ok := doc["_id"]; ok {
				out["_id"] = id
			}
		}
		for path, mode := range proj {
			if mode != 1 || path == "_id" {
				continue
			}
			if v, ok := lookup(doc, path); ok {
				setPath(out, path, v)
			}
		}
		return out
	}

	for path := range proj {
		deletePath(doc, path)
	}
	return doc
}

func deletePath(doc bson.M, path string) {
	parts := strings.Split(path, ".")
	cur := map[string]interface{}(doc)
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(cur[part])
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, parts[len(parts)-1])
}
