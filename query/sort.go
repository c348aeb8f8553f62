package query

import (
	"container/heap"
	"sort"

	"github.com/vegasq/lazycsv/table"
)

// sortOp is a blocking stable sort. In streaming mode it keeps at most
// cfg.sortMemoryRows rows in memory, spilling sorted runs to disk and
// merging them at the end. Whole-file mode sorts in memory.
type sortOp struct {
	child  operator
	schema *table.Schema
	idx    []int
	desc   []bool
	cfg    config

	spill *spillDir
	out   operator
}

func newSortOp(child operator, schema *table.Schema, idx []int, keys []SortKey, cfg config) *sortOp {
	desc := make([]bool, len(keys))
	for i, k := range keys {
		desc[i] = k.Descending
	}
	return &sortOp{child: child, schema: schema, idx: idx, desc: desc, cfg: cfg}
}

func (op *sortOp) Next() ([][]any, error) {
	if op.out == nil {
		if err := op.sort(); err != nil {
			return nil, err
		}
	}
	return op.out.Next()
}

func (op *sortOp) sort() error {
	var buf [][]any
	err := drain(op.child, func(rows [][]any) error {
		buf = append(buf, rows...)
		if op.cfg.streaming && len(buf) >= op.cfg.sortMemoryRows {
			if err := op.spillRun(buf); err != nil {
				return err
			}
			buf = nil
		}
		return nil
	})
	if err != nil {
		return err
	}

	if op.spill == nil {
		op.sortRows(buf)
		size := 0
		if op.cfg.streaming {
			size = op.cfg.chunkSize
		}
		op.out = newBufferOp(buf, size)
		return nil
	}

	if len(buf) > 0 {
		if err := op.spillRun(buf); err != nil {
			return err
		}
	}
	merged, err := newMergeOp(op.spill, op.compare, op.cfg)
	if err != nil {
		return err
	}
	op.out = merged
	return nil
}

func (op *sortOp) spillRun(rows [][]any) error {
	if op.spill == nil {
		dir, err := newSpillDir(op.cfg.spillDir, op.schema)
		if err != nil {
			return err
		}
		op.spill = dir
	}
	op.sortRows(rows)
	op.cfg.logger.Printf("sort: spilling run %d (%d rows) to %s", op.spill.numRuns(), len(rows), op.spill.dir)
	return op.spill.writeRun(rows)
}

func (op *sortOp) sortRows(rows [][]any) {
	sort.SliceStable(rows, func(i, j int) bool {
		return op.compare(rows[i], rows[j]) < 0
	})
}

// compare orders two rows by the sort keys. Nulls are placed last
// regardless of direction.
func (op *sortOp) compare(a, b []any) int {
	for i, idx := range op.idx {
		va, vb := a[idx], b[idx]
		c := compareSortValues(va, vb)
		if c == 0 {
			continue
		}
		if va == nil || vb == nil || !op.desc[i] {
			return c
		}
		return -c
	}
	return 0
}

// compareSortValues orders values ascending with NaN above every number
// and null above everything
func compareSortValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	an, bn := isNaN(a), isNaN(b)
	switch {
	case an && bn:
		return 0
	case an:
		return 1
	case bn:
		return -1
	}
	c, _ := table.Compare(a, b)
	return c
}

func (op *sortOp) Close() error {
	err := op.child.Close()
	if op.out != nil {
		if cerr := op.out.Close(); err == nil {
			err = cerr
		}
	}
	if op.spill != nil {
		if cerr := op.spill.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// mergeNode is the buffered head of one run
type mergeNode struct {
	run  int
	rows [][]any
	pos  int
}

func (n *mergeNode) current() []any {
	return n.rows[n.pos]
}

// mergeHeap orders run heads by row, breaking ties by run index. Runs hold
// consecutive slices of the input, so this keeps the merge stable.
type mergeHeap struct {
	nodes   []*mergeNode
	compare func(a, b []any) int
}

func (h *mergeHeap) Len() int      { return len(h.nodes) }
func (h *mergeHeap) Swap(i, j int) { h.nodes[i], h.nodes[j] = h.nodes[j], h.nodes[i] }

func (h *mergeHeap) Less(i, j int) bool {
	c := h.compare(h.nodes[i].current(), h.nodes[j].current())
	if c != 0 {
		return c < 0
	}
	return h.nodes[i].run < h.nodes[j].run
}

func (h *mergeHeap) Push(x any) {
	h.nodes = append(h.nodes, x.(*mergeNode))
}

func (h *mergeHeap) Pop() any {
	old := h.nodes
	n := len(old)
	node := old[n-1]
	h.nodes = old[:n-1]
	return node
}

// mergeOp k-way merges the sorted runs of a spill directory
type mergeOp struct {
	readers   []*runReader
	heap      *mergeHeap
	batchSize int
	chunkSize int
}

func newMergeOp(spill *spillDir, compare func(a, b []any) int, cfg config) (*mergeOp, error) {
	op := &mergeOp{
		heap:      &mergeHeap{compare: compare},
		batchSize: max(1, cfg.sortMemoryRows/spill.numRuns()),
		chunkSize: cfg.chunkSize,
	}
	for i := 0; i < spill.numRuns(); i++ {
		r, err := spill.openRun(i)
		if err != nil {
			_ = op.Close()
			return nil, err
		}
		op.readers = append(op.readers, r)

		rows, err := r.next(op.batchSize)
		if err != nil {
			_ = op.Close()
			return nil, err
		}
		if rows != nil {
			op.heap.nodes = append(op.heap.nodes, &mergeNode{run: i, rows: rows})
		}
	}
	heap.Init(op.heap)
	cfg.logger.Printf("sort: merging %d runs", spill.numRuns())
	return op, nil
}

func (op *mergeOp) Next() ([][]any, error) {
	out := make([][]any, 0, op.chunkSize)
	for len(out) < op.chunkSize && op.heap.Len() > 0 {
		node := op.heap.nodes[0]
		out = append(out, node.current())
		node.pos++

		if node.pos < len(node.rows) {
			heap.Fix(op.heap, 0)
			continue
		}
		rows, err := op.readers[node.run].next(op.batchSize)
		if err != nil {
			return nil, err
		}
		if rows == nil {
			heap.Pop(op.heap)
			continue
		}
		node.rows, node.pos = rows, 0
		heap.Fix(op.heap, 0)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func (op *mergeOp) Close() error {
	var err error
	for _, r := range op.readers {
		if cerr := r.Close(); err == nil {
			err = cerr
		}
	}
	op.readers = nil
	return err
}
