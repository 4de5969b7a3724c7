// Package metadata selects values out of a record's metadata document for the
// get-metadata command.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/glorpus-work/opendata/pkg/errutils"
)

// Condition is one parsed --filter field=value.
type Condition struct {
	Field string
	Value string
}

// ParseFilters parses field=value filter arguments.
func ParseFilters(filters []string) ([]Condition, error) {
	conds := make([]Condition, 0, len(filters))
	for _, f := range filters {
		parts := strings.Split(f, "=")
		if len(parts) != 2 || parts[0] == "" {
			return nil, errutils.ErrInvalidFilter
		}
		conds = append(conds, Condition{Field: parts[0], Value: parts[1]})
	}
	return conds, nil
}

// Select returns the value at the dotted outputValue path inside metadata.
// Arrays met along the path are traversed element by element.
//
// With filters, everything but the last path segment must lead to an array of
// objects. Objects matching every filter are kept, and for each of them the last
// segment's field is returned, or the object itself when it lacks that field.
// A single match is returned as is, several as a slice.
func Select(metadata map[string]any, outputValue string, filters []string) (any, error) {
	conds, err := ParseFilters(filters)
	if err != nil {
		return nil, err
	}
	if outputValue == "" {
		if len(conds) > 0 {
			return nil, fmt.Errorf("--filter requires --output-value: %w", errutils.ErrValidation)
		}
		return metadata, nil
	}

	path := strings.Split(outputValue, ".")
	if len(conds) == 0 {
		return lookup(metadata, path)
	}

	container, err := lookup(metadata, path[:len(path)-1])
	if err != nil {
		return nil, err
	}
	objects, ok := container.([]any)
	if !ok {
		parent := outputValue
		if len(path) > 1 {
			parent = path[len(path)-2]
		}
		return nil, errutils.ErrFieldNotPresent(parent)
	}

	matches, err := match(objects, conds)
	if err != nil {
		return nil, err
	}

	last := path[len(path)-1]
	out := make([]any, 0, len(matches))
	for _, obj := range matches {
		if v, ok := obj[last]; ok {
			out = append(out, v)
		} else {
			out = append(out, obj)
		}
	}
	if len(out) == 1 {
		return out[0], nil
	}
	return out, nil
}

func lookup(value any, path []string) (any, error) {
	for i, key := range path {
		switch v := value.(type) {
		case map[string]any:
			next, ok := v[key]
			if !ok {
				return nil, errutils.ErrFieldNotPresent(key)
			}
			value = next
		case []any:
			collected := make([]any, 0, len(v))
			for _, item := range v {
				got, err := lookup(item, path[i:])
				if err != nil {
					continue
				}
				if list, ok := got.([]any); ok {
					collected = append(collected, list...)
				} else {
					collected = append(collected, got)
				}
			}
			if len(collected) == 0 {
				return nil, errutils.ErrFieldNotPresent(key)
			}
			return collected, nil
		default:
			return nil, errutils.ErrFieldNotPresent(key)
		}
	}
	return value, nil
}

func match(objects []any, conds []Condition) ([]map[string]any, error) {
	candidates := make([]map[string]any, 0, len(objects))
	for _, o := range objects {
		if obj, ok := o.(map[string]any); ok {
			candidates = append(candidates, obj)
		}
	}

	for _, c := range conds {
		if !fieldInAny(objects, c.Field) {
			return nil, errutils.ErrFieldNotPresent(c.Field)
		}
		var kept []map[string]any
		for _, obj := range candidates {
			if v, ok := obj[c.Field]; ok && scalar(v) == c.Value {
				kept = append(kept, obj)
			}
		}
		if len(kept) == 0 {
			return nil, errutils.ErrNoObjectsFound(c.Field, c.Value)
		}
		candidates = kept
	}
	return candidates, nil
}

func fieldInAny(objects []any, field string) bool {
	for _, o := range objects {
		if obj, ok := o.(map[string]any); ok {
			if _, ok := obj[field]; ok {
				return true
			}
		}
	}
	return false
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return "null"
	default:
		return fmt.Sprint(t)
	}
}

// OutputFields keeps only the listed top-level fields of a record document.
func OutputFields(doc map[string]any, fields []string) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, ok := doc[f]
		if !ok {
			return nil, fmt.Errorf("provided field %q is not a top level field of this record, top level fields are: %s: %w",
				f, strings.Join(TopLevelFields(doc), ", "), errutils.ErrNotFound)
		}
		out[f] = v
	}
	return out, nil
}

// TopLevelFields returns the sorted keys of doc.
func TopLevelFields(doc map[string]any) []string {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Format renders a selected value: strings verbatim, everything else as JSON
// indented by four spaces.
func Format(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return "", errutils.Wrap(err, "failed to encode metadata")
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
