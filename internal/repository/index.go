package repository

import (
	"context"
	"fmt"
	"strconv"

	"studenthousing/internal/model"
)

// Point is a vector with its payload, ready to be upserted
type Point struct {
	ID      string
	Vector  []float32
	Payload model.JSONMap
}

// VectorIndex is a nearest-neighbour index supporting equality filters on payload keys
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, filter model.Filter, limit int) ([]model.Hit, error)
	Upsert(ctx context.Context, points []Point) error
	Delete(ctx context.Context, ids []string) error
}

// matchesFilter evaluates a filter against a payload
func matchesFilter(payload model.JSONMap, filter model.Filter) bool {
	for _, c := range filter.Must {
		v, ok := payload[c.Key]
		if !ok || !valuesEqual(v, c.Value) {
			return false
		}
	}
	for _, c := range filter.MustNot {
		if v, ok := payload[c.Key]; ok && valuesEqual(v, c.Value) {
			return false
		}
	}
	return true
}

// valuesEqual compares payload values, treating all numeric types alike
func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// idString renders a point identifier returned by an index as a string
func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
