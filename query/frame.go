package query

import (
	"fmt"
	"io"
	"log"

	"github.com/vegasq/lazycsv/reader"
	"github.com/vegasq/lazycsv/table"
)

const (
	// DefaultChunkSize is the number of rows pulled through the pipeline at
	// a time in streaming mode
	DefaultChunkSize = 4096

	// DefaultSortMemoryRows is the number of rows a streaming sort buffers
	// before spilling a sorted run to disk
	DefaultSortMemoryRows = 100000
)

// config holds execution settings. It does not influence results, only
// how they are computed.
type config struct {
	streaming      bool
	chunkSize      int
	sortMemoryRows int
	spillDir       string
	logger         *log.Logger
}

func defaultConfig() config {
	return config{
		chunkSize:      DefaultChunkSize,
		sortMemoryRows: DefaultSortMemoryRows,
		logger:         log.New(io.Discard, "", 0),
	}
}

// LazyFrame is a deferred query over a tabular source. Every transformation
// returns a new LazyFrame sharing the plan built so far; nothing is read
// until Collect or CollectSchema.
//
// A LazyFrame is a value and is safe to use from multiple goroutines.
type LazyFrame struct {
	plan Plan
	cfg  config
}

// ScanCSV creates a LazyFrame over a CSV file. The header and a bounded
// prefix of the file are read to infer the schema; row data is only read
// on Collect.
//
// Example:
//
//	lf, err := query.ScanCSV("data/netflix_titles.csv", reader.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	df, err := lf.Filter(query.Eq(query.Col("type"), query.Lit("TV Show"))).Collect()
func ScanCSV(path string, opts reader.Options) (LazyFrame, error) {
	r, err := reader.NewReader(path, opts)
	if err != nil {
		return LazyFrame{}, err
	}
	return LazyFrame{plan: &ScanNode{Reader: r}, cfg: defaultConfig()}, nil
}

// Open is ScanCSV with default options and the given header setting
func Open(path string, hasHeader bool) (LazyFrame, error) {
	opts := reader.DefaultOptions()
	opts.HasHeader = hasHeader
	return ScanCSV(path, opts)
}

// FromTable creates a LazyFrame over a materialized table
func FromTable(t *table.Table) LazyFrame {
	return LazyFrame{plan: &MemoryScanNode{Table: t}, cfg: defaultConfig()}
}

// Plan returns the root of the logical plan
func (lf LazyFrame) Plan() Plan {
	return lf.plan
}

// Clone returns an independent LazyFrame with the same plan. Plans are
// immutable, so this is a plain copy.
func (lf LazyFrame) Clone() LazyFrame {
	return lf
}

func (lf LazyFrame) with(p Plan) LazyFrame {
	lf.plan = p
	return lf
}

// Filter keeps rows for which predicate evaluates to true. Rows where it
// is false or null are dropped.
func (lf LazyFrame) Filter(predicate Expr) LazyFrame {
	return lf.with(&FilterNode{In: lf.plan, Predicate: predicate})
}

// DropNulls removes rows with a null in any of the named columns, or in any
// column when none are named
func (lf LazyFrame) DropNulls(columns ...string) LazyFrame {
	return lf.Filter(&dropNullsExpr{Columns: columns})
}

// Select replaces the columns with the given expressions
func (lf LazyFrame) Select(exprs ...Expr) LazyFrame {
	return lf.with(&SelectNode{In: lf.plan, Exprs: exprs})
}

// GroupBy starts a group aggregation on the named key columns
func (lf LazyFrame) GroupBy(keys ...string) GroupBy {
	return GroupBy{lf: lf, keys: keys}
}

// Sort orders rows by the given columns, all in the same direction
func (lf LazyFrame) Sort(by []string, descending bool) LazyFrame {
	keys := make([]SortKey, len(by))
	for i, name := range by {
		keys[i] = SortKey{Column: name, Descending: descending}
	}
	return lf.SortBy(keys...)
}

// SortBy orders rows by keys, each with its own direction. The sort is
// stable and nulls are placed last.
func (lf LazyFrame) SortBy(keys ...SortKey) LazyFrame {
	return lf.with(&SortNode{In: lf.plan, Keys: keys})
}

// Limit keeps the first n rows
func (lf LazyFrame) Limit(n int) LazyFrame {
	return lf.with(&LimitNode{In: lf.plan, N: n})
}

// Head is an alias for Limit
func (lf LazyFrame) Head(n int) LazyFrame {
	return lf.Limit(n)
}

// WithStreaming enables or disables chunked execution
func (lf LazyFrame) WithStreaming(on bool) LazyFrame {
	lf.cfg.streaming = on
	return lf
}

// WithChunkSize sets the number of rows per chunk in streaming mode
func (lf LazyFrame) WithChunkSize(n int) LazyFrame {
	lf.cfg.chunkSize = n
	return lf
}

// WithSortMemoryRows sets how many rows a streaming sort keeps in memory
// before spilling
func (lf LazyFrame) WithSortMemoryRows(n int) LazyFrame {
	lf.cfg.sortMemoryRows = n
	return lf
}

// WithSpillDir sets the directory for sort spill files. Empty means the
// system temporary directory.
func (lf LazyFrame) WithSpillDir(dir string) LazyFrame {
	lf.cfg.spillDir = dir
	return lf
}

// WithLogger sets a logger for execution progress. Nil discards output.
func (lf LazyFrame) WithLogger(l *log.Logger) LazyFrame {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	lf.cfg.logger = l
	return lf
}

// CollectSchema resolves the output schema without reading row data
func (lf LazyFrame) CollectSchema() (*table.Schema, error) {
	if lf.plan == nil {
		return nil, fmt.Errorf("%w: empty plan", table.ErrInvalidArgument)
	}
	return lf.plan.Schema()
}

// Explain renders the plan as an indented tree
func (lf LazyFrame) Explain() string {
	if lf.plan == nil {
		return ""
	}
	return Explain(lf.plan)
}

// Collect executes the plan and materializes the result. Streaming and
// whole-file execution produce identical tables.
func (lf LazyFrame) Collect() (*table.Table, error) {
	schema, err := lf.CollectSchema()
	if err != nil {
		return nil, err
	}
	if lf.cfg.chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", table.ErrInvalidArgument, lf.cfg.chunkSize)
	}
	if lf.cfg.sortMemoryRows <= 0 {
		return nil, fmt.Errorf("%w: sort memory rows must be positive, got %d", table.ErrInvalidArgument, lf.cfg.sortMemoryRows)
	}

	ex := &executor{cfg: lf.cfg}
	rows, err := ex.run(lf.plan)
	if err != nil {
		return nil, err
	}
	return table.NewTable(schema, rows)
}

// GroupBy is a pending group aggregation
type GroupBy struct {
	lf   LazyFrame
	keys []string
}

// Agg reduces every group with the given aggregate expressions. The result
// has the key columns followed by one column per expression, with one row
// per distinct key tuple in order of first appearance.
func (g GroupBy) Agg(aggs ...Expr) LazyFrame {
	return g.lf.with(&GroupAggNode{In: g.lf.plan, Keys: g.keys, Aggs: aggs})
}
