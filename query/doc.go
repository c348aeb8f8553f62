// Package query provides a lazy query engine over CSV files.
//
// A LazyFrame records a plan of transformations without reading any data:
//   - Filter and DropNulls to keep matching rows
//   - Select with column expressions, arithmetic, casts and aliases
//   - GroupBy(...).Agg(...) with count_distinct, min, max, mean, sum, count
//   - Sort and SortBy, stable with nulls last
//   - Limit (Head) to keep a prefix of the rows
//   - Map to apply a typed user function element-wise
//
// Nothing is read until CollectSchema, which only resolves types, or
// Collect, which executes the plan.
//
// # Basic Usage
//
//	lf, err := query.ScanCSV("data/netflix_titles.csv", reader.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	top, err := lf.
//	    DropNulls("director").
//	    GroupBy("director").
//	    Agg(query.Alias(query.CountDistinct(query.Col("show_id")), "num_movies")).
//	    Sort([]string{"num_movies"}, true).
//	    Limit(15).
//	    WithStreaming(true).
//	    Collect()
//
// # Streaming
//
// With WithStreaming(true) the file is read in chunks of WithChunkSize
// rows and sorts larger than WithSortMemoryRows spill sorted runs to
// parquet files. The result is identical to whole-file execution.
//
// # Expression Syntax
//
// ParseExpr and ParseExprList accept a small textual syntax for the
// command line tools:
//
//	exprs, err := query.ParseExprList("type, min(release_year) AS oldest")
//
// Single quotes delimit strings, double quotes delimit column names.
//
// # Errors
//
// Every error wraps one of the kinds declared in the table package, so
// callers can branch with errors.Is(err, table.ErrSchema) and friends.
package query
