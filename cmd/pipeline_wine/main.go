package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/vegasq/lazycsv/output"
	"github.com/vegasq/lazycsv/query"
	"github.com/vegasq/lazycsv/reader"
	"github.com/vegasq/lazycsv/table"
)

var (
	dataFlag      = flag.String("data", "data/wine.csv", "Path to the wine CSV file")
	streamingFlag = flag.Bool("streaming", true, "Read the file in chunks instead of all at once")
	chunkSizeFlag = flag.Int("chunk-size", query.DefaultChunkSize, "Rows per chunk in streaming mode")
	maxRowsFlag   = flag.Int("max-rows", output.DefaultMaxRows, "Rows shown per table before eliding (0 = all)")
	verboseFlag   = flag.Bool("v", false, "Log query plans and execution details to stderr")
)

type options struct {
	data      string
	streaming bool
	chunkSize int
	maxRows   int
	logger    *log.Logger
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Runs the wine report: schema, raw data, strong wines and\n")
		fmt.Fprintf(os.Stderr, "min/max of the main measurements.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *chunkSizeFlag <= 0 {
		fmt.Fprintf(os.Stderr, "Error: -chunk-size must be positive, got %d\n", *chunkSizeFlag)
		os.Exit(1)
	}
	if *maxRowsFlag < 0 {
		fmt.Fprintf(os.Stderr, "Error: -max-rows must be non-negative, got %d\n", *maxRowsFlag)
		os.Exit(1)
	}

	opts := options{
		data:      *dataFlag,
		streaming: *streamingFlag,
		chunkSize: *chunkSizeFlag,
		maxRows:   *maxRowsFlag,
	}
	if *verboseFlag {
		opts.logger = log.New(os.Stderr, "pipeline_wine: ", log.LstdFlags)
	}

	if err := run(os.Stdout, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// addThree adds 3 to a f64 value. Any other input is a type mismatch.
func addThree(v any) (any, error) {
	f, ok := v.(float64)
	if !ok {
		return nil, fmt.Errorf("%w: add_3 expects f64, got %T", table.ErrTypeMismatch, v)
	}
	return f + 3, nil
}

func run(w io.Writer, opts options) error {
	lf, err := query.ScanCSV(opts.data, reader.DefaultOptions())
	if err != nil {
		return err
	}
	lf = lf.WithStreaming(opts.streaming).WithChunkSize(opts.chunkSize)
	if opts.logger != nil {
		lf = lf.WithLogger(opts.logger)
	}

	schema, err := lf.CollectSchema()
	if err != nil {
		return err
	}
	if err := output.WriteSchema(w, schema); err != nil {
		return err
	}

	grid := output.NewGridFormatter(w)
	grid.MaxRows = opts.maxRows

	raw, err := lf.Collect()
	if err != nil {
		return fmt.Errorf("raw data: %w", err)
	}
	if err := printTable(w, grid, "Raw DF", raw); err != nil {
		return err
	}

	subset := lf.
		Filter(query.Gt(query.Col("alcohol"), query.Lit(14))).
		Select(
			query.Alias(query.Col("alcohol"), "alcohol_level"),
			query.Alias(query.Div(query.Col("ash"), query.Mean(query.Col("ash"))), "relative_ash"),
			query.Alias(query.Add(query.Col("total_phenols"), query.Lit(2)), "total_phenols+2"),
			query.Alias(query.Map(query.Col("total_phenols"), addThree, table.Float64, table.Float64), "total_phenols_udf"),
		)
	if opts.logger != nil {
		opts.logger.Printf("plan:\n%s", subset.Explain())
	}
	strong, err := subset.Collect()
	if err != nil {
		return fmt.Errorf("filtering and selection: %w", err)
	}
	if err := printTable(w, grid, "Basic filtering and selection", strong); err != nil {
		return err
	}

	extremes, err := lf.Select(
		query.Alias(query.Min(query.Col("alcohol")), "min_alcohol"),
		query.Alias(query.Max(query.Col("alcohol")), "max_alcohol"),
		query.Alias(query.Min(query.Col("total_phenols")), "min_total_phenols"),
		query.Alias(query.Max(query.Col("total_phenols")), "max_total_phenols"),
		query.Alias(query.Min(query.Col("color_intensity")), "min_color_intensity"),
		query.Alias(query.Max(query.Col("color_intensity")), "max_color_intensity"),
	).Collect()
	if err != nil {
		return fmt.Errorf("aggregations: %w", err)
	}
	return printTable(w, grid, "Basic aggregations", extremes)
}

func printTable(w io.Writer, f output.Formatter, title string, t *table.Table) error {
	if _, err := fmt.Fprintf(w, "%s: ", title); err != nil {
		return fmt.Errorf("%w: %w", table.ErrIO, err)
	}
	return f.Format(t)
}
