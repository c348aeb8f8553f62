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
	dataFlag      = flag.String("data", "data/netflix_titles.csv", "Path to the netflix titles CSV file")
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
		fmt.Fprintf(os.Stderr, "Runs the netflix titles report: schema, raw data, titles per director,\n")
		fmt.Fprintf(os.Stderr, "release years per type and the oldest TV shows.\n\n")
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
		opts.logger = log.New(os.Stderr, "pipeline_netflix: ", log.LstdFlags)
	}

	if err := run(os.Stdout, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(w io.Writer, opts options) error {
	lf, err := query.ScanCSV(opts.data, reader.DefaultOptions())
	if err != nil {
		return err
	}
	lf = lf.WithChunkSize(opts.chunkSize)
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

	raw, err := collect(lf, opts)
	if err != nil {
		return fmt.Errorf("raw data: %w", err)
	}
	if err := printTable(w, grid, "Raw DF", raw); err != nil {
		return err
	}

	byDirector, err := collect(lf.
		DropNulls("director").
		GroupBy("director").
		Agg(query.Alias(query.CountDistinct(query.Col("show_id")), "num_movies")).
		Sort([]string{"num_movies"}, true), opts)
	if err != nil {
		return fmt.Errorf("titles per director: %w", err)
	}
	byDirector, err = byDirector.Head(15)
	if err != nil {
		return err
	}
	if err := printTable(w, grid, "Grouped", byDirector); err != nil {
		return err
	}

	releaseYear, err := collect(lf.
		GroupBy("type").
		Agg(
			query.Alias(query.Min(query.Col("release_year")), "min_release_year"),
			query.Alias(query.Max(query.Col("release_year")), "max_release_year"),
			query.Alias(query.Mean(query.Col("release_year")), "mean_release_year"),
		), opts)
	if err != nil {
		return fmt.Errorf("release year by type: %w", err)
	}
	if err := printTable(w, grid, "Release year", releaseYear); err != nil {
		return err
	}

	// this one always runs on the whole file
	oldest, err := collect(lf.
		Filter(query.Eq(query.Col("type"), query.Lit("TV Show"))).
		Select(query.Col("title"), query.Cast(query.Col("release_year"), table.Float64)).
		Sort([]string{"release_year"}, false), options{chunkSize: opts.chunkSize, logger: opts.logger})
	if err != nil {
		return fmt.Errorf("oldest TV shows: %w", err)
	}
	oldest, err = oldest.Head(5)
	if err != nil {
		return err
	}
	return printTable(w, grid, "Oldest TV Shows", oldest)
}

func collect(lf query.LazyFrame, opts options) (*table.Table, error) {
	lf = lf.WithStreaming(opts.streaming)
	if opts.logger != nil {
		opts.logger.Printf("plan:\n%s", lf.Explain())
	}
	return lf.Collect()
}

func printTable(w io.Writer, f output.Formatter, title string, t *table.Table) error {
	if _, err := fmt.Fprintf(w, "%s: ", title); err != nil {
		return fmt.Errorf("%w: %w", table.ErrIO, err)
	}
	return f.Format(t)
}
