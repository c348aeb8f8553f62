// Package output renders collected tables for the command line tools.
//
// Three formatters satisfy the Formatter interface:
//
//   - GridFormatter: a bordered text grid with a shape line and a
//     name/type header, eliding the middle of long tables
//   - CSVFormatter: a header row followed by one record per row
//   - JSONFormatter: JSON Lines, one object per row in schema order
//
// # Basic Usage
//
//	f, err := output.New("grid", os.Stdout)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := f.Format(tbl); err != nil {
//	    log.Fatal(err)
//	}
//
// # Nulls
//
// The grid shows nulls as null, CSV writes an empty field and JSON writes
// null. Non-finite floats are written as null in JSON.
package output
