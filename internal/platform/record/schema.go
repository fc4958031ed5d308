package record

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind is the storage kind of a column. It decides how a value is written to
// a CSV cell, bound as a SQL argument and accepted from JSON input.
type Kind int

const (
	String Kind = iota
	Int
	Float
	Bool
	Time
	JSON
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Time:
		return "time"
	case JSON:
		return "json"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Column describes one stored field.
type Column struct {
	Name    string
	Kind    Kind
	Aliases []string

	field []int
}

// Schema is the typed description of one entity table. It is derived from the
// entity struct's `db` tags by SchemaFor.
type Schema struct {
	Table     string
	Columns   []Column
	OrderBy   string
	Ascending bool

	newID  func() string
	index  map[string]int
	goType reflect.Type
}

// Option customises a Schema built by SchemaFor.
type Option func(*Schema)

// OrderBy sets the natural ordering column used by list operations.
func OrderBy(column string, ascending bool) Option {
	return func(s *Schema) {
		s.mustHave(column)
		s.OrderBy = column
		s.Ascending = ascending
	}
}

// Aliases registers additional input names accepted for column.
func Aliases(column string, aliases ...string) Option {
	return func(s *Schema) {
		i := s.mustHave(column)
		s.Columns[i].Aliases = append(s.Columns[i].Aliases, aliases...)
	}
}

// IDFunc overrides the default random UUID id generator.
func IDFunc(fn func() string) Option {
	return func(s *Schema) {
		s.newID = fn
	}
}

// SchemaFor builds the schema of entity type T. Every exported field with a
// `db` tag becomes a column; the column kind follows the Go type. T must have
// an "id" column. SchemaFor panics on programmer error, it is meant to be
// called from package-level vars.
func SchemaFor[T any](table string, opts ...Option) *Schema {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("record: %s is not a struct", t))
	}

	s := &Schema{
		Table:  table,
		newID:  uuid.NewString,
		index:  make(map[string]int),
		goType: t,
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("db"), ",")
		if name == "" || name == "-" || !f.IsExported() {
			continue
		}
		if _, dup := s.index[name]; dup {
			panic(fmt.Sprintf("record: %s declares column %q twice", table, name))
		}
		s.index[name] = len(s.Columns)
		s.Columns = append(s.Columns, Column{Name: name, Kind: kindOf(f.Type), field: f.Index})
	}
	s.mustHave("id")
	if _, ok := s.index["created_at"]; ok {
		s.OrderBy = "created_at"
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Schema) mustHave(column string) int {
	i, ok := s.index[column]
	if !ok {
		panic(fmt.Sprintf("record: %s has no column %q", s.Table, column))
	}
	return i
}

// Column returns the column called name.
func (s *Schema) Column(name string) (Column, bool) {
	i, ok := s.index[name]
	if !ok {
		return Column{}, false
	}
	return s.Columns[i], true
}

// Has reports whether the schema stores name.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Names returns column names in declaration order. This is also the CSV
// header order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// NewID returns a fresh id for a record of this table.
func (s *Schema) NewID() string {
	return s.newID()
}

var (
	timeType = reflect.TypeOf(time.Time{})
	rawType  = reflect.TypeOf(json.RawMessage(nil))
)

func kindOf(t reflect.Type) Kind {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch {
	case t == timeType:
		return Time
	case t == rawType:
		return JSON
	}
	switch t.Kind() {
	case reflect.String:
		return String
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int
	case reflect.Float32, reflect.Float64:
		return Float
	case reflect.Bool:
		return Bool
	default:
		return JSON
	}
}
