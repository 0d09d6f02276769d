package store

import (
	"cmp"
	"reflect"
	"strings"
)

// Op is a filter comparison operator.
type Op string

const (
	OpEqual Op = "=="
)

// Filter restricts a query to documents whose field matches a value.
// Field may be a dotted path into nested maps.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query describes a collection query.
type Query struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// Where returns a copy of q with an equality filter added.
func (q Query) Where(field string, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: OpEqual, Value: value})
	return q
}

// OrderByField returns a copy of q ordered by field.
func (q Query) OrderByField(field string, descending bool) Query {
	q.OrderBy = field
	q.Descending = descending
	return q
}

// WithLimit returns a copy of q limited to n documents.
func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

// Lookup resolves a dotted field path in document data.
func Lookup(data map[string]any, field string) (any, bool) {
	var current any = data
	for part := range strings.SplitSeq(field, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Matches reports whether data satisfies every filter. Filter values must already be
// normalized with Normalize.
func Matches(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := Lookup(data, f.Field)
		if !ok {
			return false
		}
		switch f.Op {
		case OpEqual, "":
			if !reflect.DeepEqual(v, f.Value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// CompareValues orders normalized JSON values: missing/nil, bool, number, string, other.
func CompareValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch av := a.(type) {
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case float64:
		return cmp.Compare(av, b.(float64))
	case string:
		return cmp.Compare(av, b.(string))
	}
	return 0
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}
