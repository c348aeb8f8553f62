package table

import (
	"fmt"
	"strings"
)

// Field is a named, typed column of a schema
type Field struct {
	Name string
	Type DataType
}

// Schema is an ordered list of fields with unique names.
//
// A Schema is immutable once built; methods returning fields return copies.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema builds a schema from fields in order. Returns an error wrapping
// ErrSchema if two fields share a name.
func NewSchema(fields ...Field) (*Schema, error) {
	s := &Schema{
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate column name %q", ErrSchema, f.Name)
		}
		s.index[f.Name] = i
		s.fields[i] = f
	}
	return s, nil
}

// Len returns the number of fields
func (s *Schema) Len() int {
	return len(s.fields)
}

// Field returns the field at position i
func (s *Schema) Field(i int) Field {
	return s.fields[i]
}

// Fields returns a copy of the fields in order
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Names returns the field names in order
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Index returns the position of the named field
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Lookup returns the position and field for name, or an error wrapping
// ErrSchema when the column does not exist.
func (s *Schema) Lookup(name string) (int, Field, error) {
	i, ok := s.index[name]
	if !ok {
		return -1, Field{}, fmt.Errorf("%w: column %q not found (available: %s)", ErrSchema, name, strings.Join(s.Names(), ", "))
	}
	return i, s.fields[i], nil
}

// Equal reports whether both schemas have the same fields in the same order
func (s *Schema) Equal(other *Schema) bool {
	if s.Len() != other.Len() {
		return false
	}
	for i := range s.fields {
		if s.fields[i] != other.fields[i] {
			return false
		}
	}
	return true
}

// String renders the schema one field per line
func (s *Schema) String() string {
	var b strings.Builder
	b.WriteString("Schema:\n")
	for _, f := range s.fields {
		fmt.Fprintf(&b, "name: %s, field: %s\n", f.Name, f.Type)
	}
	return b.String()
}
