package record

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

// Encode converts an entity (T or *T of the schema's type) into Values.
// Nil pointers, nil slices and zero times become null.
func (s *Schema) Encode(src any) (Values, error) {
	rv := reflect.Indirect(reflect.ValueOf(src))
	if !rv.IsValid() || rv.Type() != s.goType {
		return nil, fmt.Errorf("record: %s cannot encode %T", s.Table, src)
	}
	out := make(Values, len(s.Columns))
	for _, col := range s.Columns {
		v, err := fromField(col.Kind, rv.FieldByIndex(col.field))
		if err != nil {
			return nil, fmt.Errorf("record: %s.%s: %w", s.Table, col.Name, err)
		}
		out[col.Name] = v
	}
	return out, nil
}

// Decode sets the fields of dst (a *T of the schema's type) from vals. Columns
// missing from vals are left untouched.
func (s *Schema) Decode(vals Values, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Type() != s.goType {
		return fmt.Errorf("record: %s cannot decode into %T", s.Table, dst)
	}
	rv = rv.Elem()
	for _, col := range s.Columns {
		v, ok := vals[col.Name]
		if !ok {
			continue
		}
		if err := setField(col.Kind, rv.FieldByIndex(col.field), v); err != nil {
			return fmt.Errorf("record: %s.%s: %w", s.Table, col.Name, err)
		}
	}
	return nil
}

func fromField(kind Kind, fv reflect.Value) (any, error) {
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return nil, nil
		}
		fv = fv.Elem()
	}
	switch kind {
	case String:
		return fv.String(), nil
	case Int:
		return fv.Int(), nil
	case Float:
		return fv.Float(), nil
	case Bool:
		return fv.Bool(), nil
	case Time:
		t := fv.Interface().(time.Time)
		if t.IsZero() {
			return nil, nil
		}
		return t.UTC(), nil
	case JSON:
		if (fv.Kind() == reflect.Slice || fv.Kind() == reflect.Map) && fv.IsNil() {
			return nil, nil
		}
		if raw, ok := fv.Interface().(json.RawMessage); ok {
			return raw, nil
		}
		b, err := json.Marshal(fv.Interface())
		if err != nil {
			return nil, err
		}
		return json.RawMessage(b), nil
	}
	return nil, fmt.Errorf("unknown kind %s", kind)
}

func setField(kind Kind, fv reflect.Value, v any) error {
	if v == nil {
		fv.SetZero()
		return nil
	}
	if fv.Kind() == reflect.Pointer {
		ptr := reflect.New(fv.Type().Elem())
		if err := setField(kind, ptr.Elem(), v); err != nil {
			return err
		}
		fv.Set(ptr)
		return nil
	}

	mismatch := fmt.Errorf("cannot assign %T to %s field", v, kind)
	switch kind {
	case String:
		x, ok := v.(string)
		if !ok {
			return mismatch
		}
		fv.SetString(x)
	case Int:
		x, ok := v.(int64)
		if !ok {
			return mismatch
		}
		fv.SetInt(x)
	case Float:
		x, ok := v.(float64)
		if !ok {
			return mismatch
		}
		fv.SetFloat(x)
	case Bool:
		x, ok := v.(bool)
		if !ok {
			return mismatch
		}
		fv.SetBool(x)
	case Time:
		x, ok := v.(time.Time)
		if !ok {
			return mismatch
		}
		fv.Set(reflect.ValueOf(x))
	case JSON:
		x, ok := v.(json.RawMessage)
		if !ok {
			return mismatch
		}
		ptr := reflect.New(fv.Type())
		if err := json.Unmarshal(x, ptr.Interface()); err != nil {
			return err
		}
		fv.Set(ptr.Elem())
	default:
		return mismatch
	}
	return nil
}
