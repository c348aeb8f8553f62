package query

import (
	"fmt"
	"math"
	"strings"

	"github.com/vegasq/lazycsv/table"
)

// accumulator folds the values of one aggregate. Values arrive in input
// order, so an accumulator fed chunk by chunk reaches exactly the same
// result as one fed the whole column.
type accumulator interface {
	add(v any) error
	result() any
}

func newAccumulator(slot *aggSlot) accumulator {
	switch slot.fn {
	case AggCountDistinct:
		return &countDistinctAcc{seen: make(map[any]struct{})}
	case AggMin:
		return &extremeAcc{keep: func(c int) bool { return c < 0 }}
	case AggMax:
		return &extremeAcc{keep: func(c int) bool { return c > 0 }}
	case AggMean:
		return &meanAcc{}
	case AggSum:
		if slot.argType == table.Int64 {
			return &intSumAcc{}
		}
		return &floatSumAcc{}
	default:
		return &countAcc{}
	}
}

// countDistinctAcc counts distinct values; null counts as one value
type countDistinctAcc struct {
	seen map[any]struct{}
}

func (a *countDistinctAcc) add(v any) error {
	a.seen[canonical(v)] = struct{}{}
	return nil
}

// nanKey stands in for every NaN, which never equals itself as a map key
type nanKey struct{}

// canonical maps values that compare equal to one representative: all NaNs
// to nanKey and -0 to 0
func canonical(v any) any {
	f, ok := v.(float64)
	if !ok {
		return v
	}
	switch {
	case math.IsNaN(f):
		return nanKey{}
	case f == 0:
		return 0.0
	}
	return f
}

func (a *countDistinctAcc) result() any { return int64(len(a.seen)) }

// countAcc counts non-null values
type countAcc struct {
	n int64
}

func (a *countAcc) add(v any) error {
	if v != nil {
		a.n++
	}
	return nil
}

func (a *countAcc) result() any { return a.n }

// extremeAcc keeps the first value v for which keep(compare(v, best))
type extremeAcc struct {
	keep func(c int) bool
	best any
}

func (a *extremeAcc) add(v any) error {
	if v == nil || isNaN(v) {
		return nil
	}
	if a.best == nil {
		a.best = v
		return nil
	}
	c, err := table.Compare(v, a.best)
	if err != nil {
		return err
	}
	if a.keep(c) {
		a.best = v
	}
	return nil
}

func (a *extremeAcc) result() any { return a.best }

type meanAcc struct {
	sum float64
	n   int64
}

func (a *meanAcc) add(v any) error {
	if v == nil {
		return nil
	}
	a.sum += toFloat64(v)
	a.n++
	return nil
}

func (a *meanAcc) result() any {
	if a.n == 0 {
		return nil
	}
	return a.sum / float64(a.n)
}

type intSumAcc struct {
	sum int64
}

func (a *intSumAcc) add(v any) error {
	if v != nil {
		a.sum += v.(int64)
	}
	return nil
}

func (a *intSumAcc) result() any { return a.sum }

type floatSumAcc struct {
	sum float64
}

func (a *floatSumAcc) add(v any) error {
	if v != nil {
		a.sum += toFloat64(v)
	}
	return nil
}

func (a *floatSumAcc) result() any { return a.sum }

// aggState holds one accumulator per aggregate slot
type aggState struct {
	slots []*aggSlot
	accs  []accumulator
}

func newAggState(slots []*aggSlot) *aggState {
	s := &aggState{slots: slots, accs: make([]accumulator, len(slots))}
	for i, slot := range slots {
		s.accs[i] = newAccumulator(slot)
	}
	return s
}

// update feeds one input row to every accumulator
func (s *aggState) update(row []any) error {
	for i, slot := range s.slots {
		v, err := slot.arg(row, nil)
		if err != nil {
			return err
		}
		if err := s.accs[i].add(v); err != nil {
			return fmt.Errorf("%s(): %w", slot.fn, err)
		}
	}
	return nil
}

func (s *aggState) results() []any {
	out := make([]any, len(s.accs))
	for i, acc := range s.accs {
		out[i] = acc.result()
	}
	return out
}

// group is the running state of one distinct key tuple
type group struct {
	keys  []any
	state *aggState
}

// groupTable partitions rows by key tuple, remembering groups in order of
// first appearance
type groupTable struct {
	keyIdx []int
	slots  []*aggSlot
	index  map[string]*group
	order  []*group
}

func newGroupTable(keyIdx []int, slots []*aggSlot) *groupTable {
	return &groupTable{
		keyIdx: keyIdx,
		slots:  slots,
		index:  make(map[string]*group),
	}
}

func (g *groupTable) add(row []any) error {
	key := groupKey(row, g.keyIdx)
	grp, ok := g.index[key]
	if !ok {
		keys := make([]any, len(g.keyIdx))
		for i, idx := range g.keyIdx {
			keys[i] = row[idx]
		}
		grp = &group{keys: keys, state: newAggState(g.slots)}
		g.index[key] = grp
		g.order = append(g.order, grp)
	}
	return grp.state.update(row)
}

// groupKey computes a hash key for the key columns of a row. Null is
// encoded distinctly from every value, so nulls form their own group.
func groupKey(row []any, keyIdx []int) string {
	var keyBuilder strings.Builder
	for i, idx := range keyIdx {
		if i > 0 {
			keyBuilder.WriteString("\x00||\x00") // Use unlikely separator to avoid collisions
		}
		fmt.Fprintf(&keyBuilder, "%#v", canonical(row[idx]))
	}
	return keyBuilder.String()
}
