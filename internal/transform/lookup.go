// Package transform flattens nested weather API payloads into the flat
// column maps stored in staging tables and derives the computed columns.
package transform

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"weather-etl/internal/models"
)

// Payload is a decoded JSON object
type Payload = map[string]any

// Row is a flat record keyed by output column name
type Row = map[string]any

// Lookup walks a dotted path through nested objects. A missing segment is a
// *models.LookupError; a present JSON null returns (nil, nil).
func Lookup(p Payload, path string) (any, error) {
	var current any = p
	for _, segment := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, &models.LookupError{Path: path}
		}
		current, ok = obj[segment]
		if !ok {
			return nil, &models.LookupError{Path: path}
		}
	}
	return current, nil
}

// column pairs a whitelisted payload path with its output column name
type column struct {
	path string
	name string
}

func project(p Payload, columns []column, row Row) error {
	for _, c := range columns {
		v, err := Lookup(p, c.path)
		if err != nil {
			return err
		}
		row[c.name] = v
	}
	return nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func parseTimestamp(field string, v any) (*time.Time, error) {
	if v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, &models.ValidationError{
			Field:   field,
			Value:   fmt.Sprintf("%v", v),
			Message: fmt.Sprintf("%s: expected timestamp string, got %T", field, v),
		}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, &models.ValidationError{
			Field:   field,
			Value:   s,
			Message: fmt.Sprintf("%s: invalid timestamp %q", field, s),
		}
	}
	return &t, nil
}

// CalendarDate drops the time of day, keeping the date as observed at the
// payload's own UTC offset.
func CalendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
