package record

import (
	"fmt"
	"strings"
)

// CamelCase converts a snake_case column name to lowerCamelCase.
func CamelCase(name string) string {
	parts := strings.Split(name, "_")
	var b strings.Builder
	b.Grow(len(name))
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

// Normalize maps caller input onto the schema. For each column the first key
// present among the snake_case name, its aliases and their camelCase forms is
// used, so snake_case wins when both conventions are supplied. Keys that match
// no column are dropped. An explicit null is kept as a null assignment.
func Normalize(s *Schema, input map[string]any) (Values, error) {
	out := make(Values)
	for _, col := range s.Columns {
		key, raw, ok := lookup(col, input)
		if !ok {
			continue
		}
		v, err := Coerce(col.Kind, raw)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		out[col.Name] = v
	}
	return out, nil
}

func lookup(col Column, input map[string]any) (string, any, bool) {
	names := make([]string, 0, 2+2*len(col.Aliases))
	names = append(names, col.Name)
	names = append(names, col.Aliases...)
	names = append(names, CamelCase(col.Name))
	for _, a := range col.Aliases {
		names = append(names, CamelCase(a))
	}
	for _, n := range names {
		if v, ok := input[n]; ok {
			return n, v, true
		}
	}
	return "", nil, false
}

// Field returns the value supplied for the snake_case name (or its camelCase
// form) in input, using the same precedence as Normalize.
func Field(input map[string]any, name string) (any, bool) {
	_, v, ok := lookup(Column{Name: name}, input)
	return v, ok
}

// FieldString is Field for text inputs. Missing, null and non-string values
// give "".
func FieldString(input map[string]any, name string) string {
	v, _ := Field(input, name)
	s, _ := v.(string)
	return s
}
