package store

import (
	"encoding/json"
	"fmt"
	"maps"
)

// Encode converts a struct into document data using its JSON field names.
func Encode(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return data, nil
}

// Decode converts document data into v.
func Decode(data map[string]any, v any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}

// Normalize round trips a value through JSON so that ints become float64, structs
// become maps and so on. Stores normalize everything they persist.
func Normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NormalizeData normalizes document data.
func NormalizeData(data map[string]any) (map[string]any, error) {
	if data == nil {
		return map[string]any{}, nil
	}
	out, err := Normalize(data)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize document data: %w", err)
	}
	m, _ := out.(map[string]any)
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// NormalizeQuery normalizes the filter values of a query.
func NormalizeQuery(q Query) (Query, error) {
	filters := make([]Filter, len(q.Filters))
	for i, f := range q.Filters {
		v, err := Normalize(f.Value)
		if err != nil {
			return q, fmt.Errorf("invalid filter value for %s: %w", f.Field, err)
		}
		filters[i] = Filter{Field: f.Field, Op: f.Op, Value: v}
	}
	q.Filters = filters
	return q, nil
}

// MergeData deep merges src into dst: nested maps are merged, every other value replaces.
func MergeData(dst, src map[string]any) map[string]any {
	out := maps.Clone(dst)
	if out == nil {
		out = make(map[string]any, len(src))
	}
	for k, v := range src {
		sm, srcIsMap := v.(map[string]any)
		dm, dstIsMap := out[k].(map[string]any)
		if srcIsMap && dstIsMap {
			out[k] = MergeData(dm, sm)
			continue
		}
		out[k] = v
	}
	return out
}

// CloneData deep copies normalized document data.
func CloneData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneData(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
