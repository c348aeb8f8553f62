package table

import (
	"errors"
	"math"
	"testing"
)

func testTable(t *testing.T, n int) *Table {
	t.Helper()
	schema, err := NewSchema(Field{Name: "id", Type: Int64}, Field{Name: "name", Type: String})
	if err != nil {
		t.Fatalf("NewSchema() error = %v", err)
	}
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{int64(i), "row"}
	}
	tbl, err := NewTable(schema, rows)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	return tbl
}

func TestHead(t *testing.T) {
	tbl := testTable(t, 5)

	tests := []struct {
		name    string
		n       int
		want    int
		wantErr error
	}{
		{name: "zero", n: 0, want: 0},
		{name: "fewer than rows", n: 3, want: 3},
		{name: "exact", n: 5, want: 5},
		{name: "more than rows", n: 15, want: 5},
		{name: "negative", n: -1, wantErr: ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			head, err := tbl.Head(tt.n)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Head(%d) error = %v, want %v", tt.n, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Head(%d) unexpected error: %v", tt.n, err)
			}
			if head.NumRows() != tt.want {
				t.Errorf("Head(%d) rows = %d, want %d", tt.n, head.NumRows(), tt.want)
			}
			for i := 0; i < head.NumRows(); i++ {
				if head.Row(i)[0] != int64(i) {
					t.Errorf("Head(%d) row %d id = %v, want %d", tt.n, i, head.Row(i)[0], i)
				}
			}
		})
	}
}

func TestHeadOfEmptyTable(t *testing.T) {
	tbl := testTable(t, 0)
	head, err := tbl.Head(5)
	if err != nil {
		t.Fatalf("Head() error = %v", err)
	}
	if head.NumRows() != 0 {
		t.Errorf("Head() rows = %d, want 0", head.NumRows())
	}
	if head.NumCols() != 2 {
		t.Errorf("Head() cols = %d, want 2", head.NumCols())
	}
}

func TestNewSchemaDuplicate(t *testing.T) {
	_, err := NewSchema(Field{Name: "a", Type: Int64}, Field{Name: "a", Type: String})
	if !errors.Is(err, ErrSchema) {
		t.Fatalf("NewSchema() error = %v, want ErrSchema", err)
	}
}

func TestSchemaLookup(t *testing.T) {
	schema, err := NewSchema(Field{Name: "a", Type: Int64}, Field{Name: "b", Type: Float64})
	if err != nil {
		t.Fatalf("NewSchema() error = %v", err)
	}

	idx, field, err := schema.Lookup("b")
	if err != nil {
		t.Fatalf("Lookup(b) error = %v", err)
	}
	if idx != 1 || field.Type != Float64 {
		t.Errorf("Lookup(b) = %d, %v", idx, field)
	}

	if _, _, err := schema.Lookup("missing"); !errors.Is(err, ErrSchema) {
		t.Errorf("Lookup(missing) error = %v, want ErrSchema", err)
	}
}

func TestNewTableRejectsWrongType(t *testing.T) {
	schema, err := NewSchema(Field{Name: "a", Type: Int64})
	if err != nil {
		t.Fatalf("NewSchema() error = %v", err)
	}
	if _, err := NewTable(schema, [][]any{{"text"}}); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("NewTable() error = %v, want ErrTypeMismatch", err)
	}
	if _, err := NewTable(schema, [][]any{{int64(1), int64(2)}}); !errors.Is(err, ErrSchema) {
		t.Errorf("NewTable() error = %v, want ErrSchema", err)
	}
	if _, err := NewTable(schema, [][]any{{nil}}); err != nil {
		t.Errorf("NewTable() with null error = %v", err)
	}
}

func TestCast(t *testing.T) {
	tests := []struct {
		name  string
		value any
		to    DataType
		want  any
	}{
		{name: "int to float", value: int64(1999), to: Float64, want: 1999.0},
		{name: "float to int truncates", value: 3.9, to: Int64, want: int64(3)},
		{name: "string to int", value: "42", to: Int64, want: int64(42)},
		{name: "bad string to int is null", value: "n/a", to: Int64, want: nil},
		{name: "bool to int", value: true, to: Int64, want: int64(1)},
		{name: "float to string", value: 2.5, to: String, want: "2.5"},
		{name: "null stays null", value: nil, to: Float64, want: nil},
		{name: "string to bool", value: "true", to: Boolean, want: true},
		{name: "NaN to int is null", value: math.NaN(), to: Int64, want: nil},
		{name: "infinity to int is null", value: math.Inf(1), to: Int64, want: nil},
		{name: "negative infinity to int is null", value: math.Inf(-1), to: Int64, want: nil},
		{name: "huge float to int is null", value: 1e300, to: Int64, want: nil},
		{name: "2^63 to int is null", value: math.Exp2(63), to: Int64, want: nil},
		{name: "min int64 float to int", value: -math.Exp2(63), to: Int64, want: int64(math.MinInt64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Cast(tt.value, tt.to)
			if err != nil {
				t.Fatalf("Cast() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Cast(%v, %s) = %#v, want %#v", tt.value, tt.to, got, tt.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name    string
		a, b    any
		want    int
		wantErr bool
	}{
		{name: "ints", a: int64(1), b: int64(2), want: -1},
		{name: "int and float", a: int64(2), b: 1.5, want: 1},
		{name: "strings", a: "Movie", b: "Movie", want: 0},
		{name: "bools", a: false, b: true, want: -1},
		{name: "string and int", a: "1", b: int64(1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.a, tt.b)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Compare() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("Compare(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestParseDataType(t *testing.T) {
	for _, name := range []string{"f64", "float", "Float64"} {
		got, err := ParseDataType(name)
		if err != nil || got != Float64 {
			t.Errorf("ParseDataType(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := ParseDataType("decimal"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("ParseDataType(decimal) error = %v", err)
	}
}

func TestTail(t *testing.T) {
	tbl := testTable(t, 5)

	tail, err := tbl.Tail(2)
	if err != nil {
		t.Fatalf("Tail() error = %v", err)
	}
	if tail.NumRows() != 2 || tail.Row(0)[0] != int64(3) || tail.Row(1)[0] != int64(4) {
		t.Errorf("Tail(2) = %v", tail.Rows())
	}

	all, err := tbl.Tail(10)
	if err != nil || all.NumRows() != 5 {
		t.Errorf("Tail(10) = %v, %v", all, err)
	}

	if _, err := tbl.Tail(-1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Tail(-1) error = %v, want ErrInvalidArgument", err)
	}
}
