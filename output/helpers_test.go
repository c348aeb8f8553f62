package output

import (
	"testing"

	"github.com/vegasq/lazycsv/table"
)

// buildTable creates a table from fields and rows, failing the test on error
func buildTable(t *testing.T, fields []table.Field, rows [][]any) *table.Table {
	t.Helper()
	schema, err := table.NewSchema(fields...)
	if err != nil {
		t.Fatalf("NewSchema() error = %v", err)
	}
	tbl, err := table.NewTable(schema, rows)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	return tbl
}

var peopleFields = []table.Field{
	{Name: "id", Type: table.Int64},
	{Name: "name", Type: table.String},
	{Name: "score", Type: table.Float64},
	{Name: "active", Type: table.Boolean},
}

func peopleTable(t *testing.T, rows [][]any) *table.Table {
	t.Helper()
	return buildTable(t, peopleFields, rows)
}
