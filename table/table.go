package table

import "fmt"

// Table is a materialized result: a schema plus ordered rows.
//
// Rows are stored row-major; each row has exactly Schema().Len() values.
// Tables are never mutated after construction, so they may be shared freely
// between goroutines.
type Table struct {
	schema *Schema
	rows   [][]any
}

// NewTable validates rows against schema and wraps them in a Table. The rows
// slice is retained, not copied.
func NewTable(schema *Schema, rows [][]any) (*Table, error) {
	for r, row := range rows {
		if len(row) != schema.Len() {
			return nil, fmt.Errorf("%w: row %d has %d values, schema has %d columns", ErrSchema, r, len(row), schema.Len())
		}
		for c, v := range row {
			if err := CheckValue(schema.Field(c).Type, v); err != nil {
				return nil, fmt.Errorf("row %d, column %q: %w", r, schema.Field(c).Name, err)
			}
		}
	}
	if rows == nil {
		rows = [][]any{}
	}
	return &Table{schema: schema, rows: rows}, nil
}

// newTrusted wraps rows without validation. Used by operations that derive
// a table from an already valid one.
func newTrusted(schema *Schema, rows [][]any) *Table {
	return &Table{schema: schema, rows: rows}
}

// Schema returns the table schema
func (t *Table) Schema() *Schema {
	return t.schema
}

// NumRows returns the number of rows
func (t *Table) NumRows() int {
	return len(t.rows)
}

// NumCols returns the number of columns
func (t *Table) NumCols() int {
	return t.schema.Len()
}

// Shape returns (rows, columns)
func (t *Table) Shape() (int, int) {
	return len(t.rows), t.schema.Len()
}

// Row returns row i. The returned slice must not be modified.
func (t *Table) Row(i int) []any {
	return t.rows[i]
}

// Rows returns all rows. The returned slices must not be modified.
func (t *Table) Rows() [][]any {
	return t.rows
}

// Column returns the values of the named column in row order
func (t *Table) Column(name string) ([]any, error) {
	idx, _, err := t.schema.Lookup(name)
	if err != nil {
		return nil, err
	}
	values := make([]any, len(t.rows))
	for i, row := range t.rows {
		values[i] = row[idx]
	}
	return values, nil
}

// Head returns the first n rows of t. It fails with ErrInvalidArgument when
// n is negative and returns every row when n exceeds the row count.
func (t *Table) Head(n int) (*Table, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: head count must be non-negative, got %d", ErrInvalidArgument, n)
	}
	if n > len(t.rows) {
		n = len(t.rows)
	}
	return newTrusted(t.schema, t.rows[:n:n]), nil
}

// Tail returns the last n rows of t
func (t *Table) Tail(n int) (*Table, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: tail count must be non-negative, got %d", ErrInvalidArgument, n)
	}
	if n > len(t.rows) {
		n = len(t.rows)
	}
	return newTrusted(t.schema, t.rows[len(t.rows)-n:]), nil
}

// Equal reports whether two tables have equal schemas and equal rows in the
// same order. Float values are compared exactly.
func (t *Table) Equal(other *Table) bool {
	if !t.schema.Equal(other.schema) || len(t.rows) != len(other.rows) {
		return false
	}
	for i := range t.rows {
		for j := range t.rows[i] {
			if !valuesEqual(t.rows[i][j], other.rows[i][j]) {
				return false
			}
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	if fa, ok := a.(float64); ok {
		if fb, ok := b.(float64); ok {
			// NaN == NaN for the purposes of table equality
			return fa == fb || (fa != fa && fb != fb)
		}
		return false
	}
	return a == b
}
