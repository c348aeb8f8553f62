package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/vegasq/lazycsv/output"
	"github.com/vegasq/lazycsv/query"
	"github.com/vegasq/lazycsv/reader"
	"github.com/vegasq/lazycsv/table"
)

var (
	schemaFlag    = flag.Bool("schema", false, "Show schema information instead of data")
	shapeFlag     = flag.Bool("shape", false, "Print the number of rows and columns without parsing values")
	whereFlag     = flag.String("where", "", "Filter predicate (e.g., \"type = 'Movie' AND release_year > 2000\")")
	selectFlag    = flag.String("select", "", "Comma separated expressions to select (e.g., \"title, cast(release_year AS f64)\")")
	groupByFlag   = flag.String("group-by", "", "Comma separated key columns")
	aggFlag       = flag.String("agg", "", "Comma separated aggregations for -group-by (e.g., \"count_distinct(show_id) AS n\")")
	sortFlag      = flag.String("sort", "", "Comma separated columns to sort by")
	descFlag      = flag.Bool("desc", false, "Sort in descending order")
	headFlag      = flag.Int("head", 0, "Limit number of rows (0 = unlimited)")
	formatFlag    = flag.String("f", "grid", "Output format: grid, csv, jsonl")
	noHeaderFlag  = flag.Bool("no-header", false, "The file has no header row")
	delimiterFlag = flag.String("delimiter", ",", "Field delimiter")
	streamingFlag = flag.Bool("streaming", false, "Read the file in chunks instead of all at once")
	chunkSizeFlag = flag.Int("chunk-size", query.DefaultChunkSize, "Rows per chunk in streaming mode")
	maxRowsFlag   = flag.Int("max-rows", output.DefaultMaxRows, "Rows shown by the grid format before eliding (0 = all)")
	explainFlag   = flag.Bool("explain", false, "Print the query plan instead of running it")
	verboseFlag   = flag.Bool("v", false, "Log execution details to stderr")
)

// config is the validated command line
type config struct {
	path      string
	schema    bool
	shape     bool
	where     string
	sel       string
	groupBy   string
	agg       string
	sort      string
	desc      bool
	head      int
	format    string
	hasHeader bool
	delimiter rune
	streaming bool
	chunkSize int
	maxRows   int
	explain   bool
	logger    *log.Logger
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <file.csv>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "A tool to query CSV files lazily.\n\n")
		fmt.Fprintf(os.Stderr, "IMPORTANT: All flags must come BEFORE file arguments.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s data.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -schema data.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -where \"type = 'TV Show'\" -select \"title, release_year\" -sort release_year -head 5 data.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -group-by director -agg \"count_distinct(show_id) AS n\" -sort n -desc data.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -f csv -streaming data.csv.gz\n", os.Args[0])
	}

	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: missing CSV file argument\n\n")
		flag.Usage()
		os.Exit(1)
	}

	cfg := config{
		path:      flag.Arg(0),
		schema:    *schemaFlag,
		shape:     *shapeFlag,
		where:     *whereFlag,
		sel:       *selectFlag,
		groupBy:   *groupByFlag,
		agg:       *aggFlag,
		sort:      *sortFlag,
		desc:      *descFlag,
		head:      *headFlag,
		format:    *formatFlag,
		hasHeader: !*noHeaderFlag,
		streaming: *streamingFlag,
		chunkSize: *chunkSizeFlag,
		maxRows:   *maxRowsFlag,
		explain:   *explainFlag,
	}
	if *verboseFlag {
		cfg.logger = log.New(os.Stderr, "lazycsv: ", log.LstdFlags)
	}

	delim, err := parseDelimiter(*delimiterFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg.delimiter = delim

	if err := cfg.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(os.Stdout, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Error: file '%s' not found\n", cfg.path)
			fmt.Fprintf(os.Stderr, "Please check the file path and try again.\n")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func parseDelimiter(s string) (rune, error) {
	if s == `\t` {
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("%w: -delimiter must be a single character, got %q", table.ErrInvalidArgument, s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

// validate checks flag values and combinations before any file is read
func (c config) validate() error {
	if c.head < 0 {
		return fmt.Errorf("%w: -head must be non-negative, got %d", table.ErrInvalidArgument, c.head)
	}
	if c.chunkSize <= 0 {
		return fmt.Errorf("%w: -chunk-size must be positive, got %d", table.ErrInvalidArgument, c.chunkSize)
	}
	if c.maxRows < 0 {
		return fmt.Errorf("%w: -max-rows must be non-negative, got %d", table.ErrInvalidArgument, c.maxRows)
	}
	if c.schema && c.shape {
		return fmt.Errorf("%w: -schema and -shape cannot be used together", table.ErrInvalidArgument)
	}
	if c.sel != "" && c.groupBy != "" {
		return fmt.Errorf("%w: -select and -group-by cannot be used together", table.ErrInvalidArgument)
	}
	if (c.groupBy == "") != (c.agg == "") {
		return fmt.Errorf("%w: -group-by and -agg must be used together", table.ErrInvalidArgument)
	}
	if c.desc && c.sort == "" {
		return fmt.Errorf("%w: -desc requires -sort", table.ErrInvalidArgument)
	}
	return nil
}

func (c config) readerOptions() reader.Options {
	return reader.Options{HasHeader: c.hasHeader, Delimiter: c.delimiter}
}

func run(w io.Writer, cfg config) error {
	switch {
	case cfg.schema:
		return writeSchema(w, cfg)
	case cfg.shape:
		rows, cols, err := reader.Shape(cfg.path, cfg.readerOptions())
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "shape: (%d, %d)\n", rows, cols); err != nil {
			return fmt.Errorf("%w: %w", table.ErrIO, err)
		}
		return nil
	}

	lf, err := buildFrame(cfg)
	if err != nil {
		return err
	}
	if cfg.explain {
		if _, err := io.WriteString(w, lf.Explain()); err != nil {
			return fmt.Errorf("%w: %w", table.ErrIO, err)
		}
		return nil
	}

	formatter, err := output.New(cfg.format, w)
	if err != nil {
		return err
	}
	if grid, ok := formatter.(*output.GridFormatter); ok {
		grid.MaxRows = cfg.maxRows
	}

	result, err := lf.Collect()
	if err != nil {
		return err
	}
	return formatter.Format(result)
}

// buildFrame turns the flags into a lazy plan: filter, then select or
// group-by, then sort, then head
func buildFrame(cfg config) (query.LazyFrame, error) {
	lf, err := query.ScanCSV(cfg.path, cfg.readerOptions())
	if err != nil {
		return query.LazyFrame{}, err
	}
	lf = lf.WithStreaming(cfg.streaming).WithChunkSize(cfg.chunkSize)
	if cfg.logger != nil {
		lf = lf.WithLogger(cfg.logger)
	}

	if cfg.where != "" {
		pred, err := query.ParseExpr(cfg.where)
		if err != nil {
			return query.LazyFrame{}, fmt.Errorf("-where: %w", err)
		}
		lf = lf.Filter(pred)
	}

	switch {
	case cfg.sel != "":
		exprs, err := query.ParseExprList(cfg.sel)
		if err != nil {
			return query.LazyFrame{}, fmt.Errorf("-select: %w", err)
		}
		lf = lf.Select(exprs...)
	case cfg.groupBy != "":
		keys, err := splitNames(cfg.groupBy)
		if err != nil {
			return query.LazyFrame{}, fmt.Errorf("-group-by: %w", err)
		}
		aggs, err := query.ParseExprList(cfg.agg)
		if err != nil {
			return query.LazyFrame{}, fmt.Errorf("-agg: %w", err)
		}
		lf = lf.GroupBy(keys...).Agg(aggs...)
	}

	if cfg.sort != "" {
		by, err := splitNames(cfg.sort)
		if err != nil {
			return query.LazyFrame{}, fmt.Errorf("-sort: %w", err)
		}
		lf = lf.Sort(by, cfg.desc)
	}
	if cfg.head > 0 {
		lf = lf.Head(cfg.head)
	}

	// resolve the plan now so schema errors surface before any data is read
	if _, err := lf.CollectSchema(); err != nil {
		return query.LazyFrame{}, err
	}
	return lf, nil
}

// splitNames splits a comma separated list of column names
func splitNames(s string) ([]string, error) {
	var names []string
	for _, part := range strings.Split(s, ",") {
		name := strings.TrimSpace(part)
		if err := query.ValidateColumnName(name); err != nil {
			return nil, fmt.Errorf("%w: %q: %w", table.ErrInvalidArgument, s, err)
		}
		names = append(names, name)
	}
	return names, nil
}

// writeSchema prints the inferred schema. The grid format uses the compact
// schema listing; csv and jsonl get one record per column.
func writeSchema(w io.Writer, cfg config) error {
	if cfg.format == "" || strings.EqualFold(cfg.format, "grid") {
		lf, err := query.ScanCSV(cfg.path, cfg.readerOptions())
		if err != nil {
			return err
		}
		schema, err := lf.CollectSchema()
		if err != nil {
			return err
		}
		return output.WriteSchema(w, schema)
	}

	infos, err := reader.ExtractSchemaInfo(cfg.path, cfg.readerOptions())
	if err != nil {
		return err
	}
	schema, err := table.NewSchema(
		table.Field{Name: "name", Type: table.String},
		table.Field{Name: "type", Type: table.String},
		table.Field{Name: "nullable", Type: table.Boolean},
		table.Field{Name: "example", Type: table.String},
	)
	if err != nil {
		return err
	}
	rows := make([][]any, len(infos))
	for i, info := range infos {
		var example any
		if info.Example != "" {
			example = info.Example
		}
		rows[i] = []any{info.Name, info.Type, info.Nullable, example}
	}
	tbl, err := table.NewTable(schema, rows)
	if err != nil {
		return err
	}

	formatter, err := output.New(cfg.format, w)
	if err != nil {
		return err
	}
	return formatter.Format(tbl)
}
