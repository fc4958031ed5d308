package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Values is one stored row keyed by snake_case column name. Values hold only
// canonical Go types: nil, string, int64, float64, bool, time.Time (UTC) and
// json.RawMessage.
type Values map[string]any

// Clone returns a shallow copy of v.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, x := range v {
		out[k] = x
	}
	return out
}

// Only returns the subset of v stored by s.
func (v Values) Only(s *Schema) Values {
	out := make(Values, len(v))
	for k, x := range v {
		if s.Has(k) {
			out[k] = x
		}
	}
	return out
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}

// EncodeCell renders a canonical value as a CSV cell. Null is the empty cell.
func EncodeCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case json.RawMessage:
		return string(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// DecodeCell parses a CSV cell into the canonical value for kind. The empty
// cell decodes to nil for every kind.
func DecodeCell(kind Kind, s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	switch kind {
	case String:
		return s, nil
	case Int:
		return parseInt(s)
	case Float:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("parse float %q: %w", s, err)
		}
		return f, nil
	case Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("parse bool %q: %w", s, err)
		}
		return b, nil
	case Time:
		return parseTime(s)
	case JSON:
		if !json.Valid([]byte(s)) {
			return nil, fmt.Errorf("invalid json %q", s)
		}
		return json.RawMessage(s), nil
	default:
		return nil, fmt.Errorf("unknown kind %s", kind)
	}
}

func parseInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("parse int %q", s)
	}
	return int64(f), nil
}

// ToSQL converts a canonical value into a driver argument. When textTime is
// set, times are bound as RFC 3339 text for drivers without a native
// timestamp type.
func ToSQL(v any, textTime bool) any {
	switch x := v.(type) {
	case json.RawMessage:
		return string(x)
	case time.Time:
		if textTime {
			return x.UTC().Format(time.RFC3339Nano)
		}
		return x.UTC()
	}
	return v
}

// FromSQL converts a scanned driver value into the canonical value for kind.
func FromSQL(kind Kind, src any) (any, error) {
	switch x := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		if kind == String {
			return string(x), nil
		}
		return DecodeCell(kind, string(x))
	case string:
		if kind == String {
			return x, nil
		}
		return DecodeCell(kind, x)
	case time.Time:
		switch kind {
		case Time:
			return x.UTC(), nil
		case String:
			return x.UTC().Format(time.RFC3339Nano), nil
		}
	case int64:
		switch kind {
		case Int:
			return x, nil
		case Float:
			return float64(x), nil
		case Bool:
			return x != 0, nil
		case String:
			return strconv.FormatInt(x, 10), nil
		}
	case float64:
		switch kind {
		case Float:
			return x, nil
		case Int:
			return int64(x), nil
		case String:
			return strconv.FormatFloat(x, 'f', -1, 64), nil
		}
	case bool:
		switch kind {
		case Bool:
			return x, nil
		case Int:
			if x {
				return int64(1), nil
			}
			return int64(0), nil
		case String:
			return strconv.FormatBool(x), nil
		}
	}
	return nil, fmt.Errorf("cannot read %T as %s", src, kind)
}

// Coerce converts a loosely typed input value (decoded JSON, query strings or
// Go literals) into the canonical value for kind.
func Coerce(kind Kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch kind {
	case String:
		switch x := v.(type) {
		case string:
			return x, nil
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64), nil
		case int:
			return strconv.Itoa(x), nil
		case int64:
			return strconv.FormatInt(x, 10), nil
		case bool:
			return strconv.FormatBool(x), nil
		}
	case Int:
		switch x := v.(type) {
		case int:
			return int64(x), nil
		case int64:
			return x, nil
		case float64:
			if x != math.Trunc(x) {
				return nil, fmt.Errorf("%v is not a whole number", x)
			}
			return int64(x), nil
		case string:
			if strings.TrimSpace(x) == "" {
				return nil, nil
			}
			return parseInt(x)
		}
	case Float:
		switch x := v.(type) {
		case float64:
			return x, nil
		case int:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case string:
			if strings.TrimSpace(x) == "" {
				return nil, nil
			}
			return DecodeCell(Float, x)
		}
	case Bool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			if strings.TrimSpace(x) == "" {
				return nil, nil
			}
			return DecodeCell(Bool, x)
		}
	case Time:
		switch x := v.(type) {
		case time.Time:
			if x.IsZero() {
				return nil, nil
			}
			return x.UTC(), nil
		case string:
			if strings.TrimSpace(x) == "" {
				return nil, nil
			}
			return parseTime(x)
		}
	case JSON:
		if raw, ok := v.(json.RawMessage); ok {
			return raw, nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return json.RawMessage(b), nil
	}
	return nil, fmt.Errorf("cannot use %T as %s", v, kind)
}

// Compare orders two canonical values. Nil sorts first.
func Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case int64:
		switch y := b.(type) {
		case int64:
			return cmpOrdered(x, y)
		case float64:
			return cmpOrdered(float64(x), y)
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return cmpOrdered(x, y)
		case int64:
			return cmpOrdered(x, float64(y))
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case json.RawMessage:
		if y, ok := b.(json.RawMessage); ok {
			return bytes.Compare(x, y)
		}
	}
	return strings.Compare(EncodeCell(a), EncodeCell(b))
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
