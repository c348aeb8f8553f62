package query

import (
	"fmt"
	"strings"

	"github.com/vegasq/lazycsv/table"
)

// Expr is a node of an expression tree. Expressions are immutable and are
// only evaluated once they have been bound against an input schema during
// plan resolution.
type Expr interface {
	// String renders the expression for plan explanations
	String() string

	bind(b *binder) (evaluator, table.DataType, error)
}

// BinaryOp is an arithmetic, comparison or logical operator
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

var opSymbols = map[BinaryOp]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/",
	OpEq: "==", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpAnd: "&", OpOr: "|",
}

func (op BinaryOp) String() string {
	if s, ok := opSymbols[op]; ok {
		return s
	}
	return fmt.Sprintf("BinaryOp(%d)", int(op))
}

func (op BinaryOp) isArithmetic() bool { return op <= OpDiv }
func (op BinaryOp) isComparison() bool { return op >= OpEq && op <= OpGe }

// AggFunc names a reducer
type AggFunc string

const (
	AggCountDistinct AggFunc = "count_distinct"
	AggMin           AggFunc = "min"
	AggMax           AggFunc = "max"
	AggMean          AggFunc = "mean"
	AggSum           AggFunc = "sum"
	AggCount         AggFunc = "count"
)

// ColumnExpr references an input column by name
type ColumnExpr struct {
	Name string
}

// LiteralExpr is a constant value
type LiteralExpr struct {
	Value any
}

// BinaryExpr applies an operator to two operands
type BinaryExpr struct {
	Left  Expr
	Op    BinaryOp
	Right Expr
}

// NotExpr negates a boolean expression
type NotExpr struct {
	Inner Expr
}

// IsNullExpr tests an expression for null
type IsNullExpr struct {
	Inner  Expr
	Negate bool
}

// CastExpr converts its input to another type
type CastExpr struct {
	Inner Expr
	To    table.DataType
}

// AliasExpr renames the output of an expression
type AliasExpr struct {
	Inner Expr
	Name  string
}

// AggExpr reduces a column to a single value. Within a select it is
// computed once over the whole input and broadcast; within an aggregation
// it is computed per group.
type AggExpr struct {
	Func AggFunc
	Arg  Expr
}

// MapFunc transforms a single non-null value
type MapFunc func(v any) (any, error)

// MapExpr applies a user supplied transform to every element of its input.
// In declares the input type the transform accepts; Out declares the type
// it produces. Nulls are passed through without calling Fn.
type MapExpr struct {
	Inner Expr
	Fn    MapFunc
	In    table.DataType
	Out   table.DataType
	Label string
}

// dropNullsExpr is true when none of the listed columns is null. An empty
// column list means every column of the input.
type dropNullsExpr struct {
	Columns []string
}

// Col references a column by name
func Col(name string) Expr { return &ColumnExpr{Name: name} }

// Lit wraps a constant. Go ints and float32 are normalized to int64 and
// float64.
func Lit(v any) Expr {
	switch val := v.(type) {
	case int:
		v = int64(val)
	case int32:
		v = int64(val)
	case float32:
		v = float64(val)
	}
	return &LiteralExpr{Value: v}
}

func Add(l, r Expr) Expr { return &BinaryExpr{Left: l, Op: OpAdd, Right: r} }
func Sub(l, r Expr) Expr { return &BinaryExpr{Left: l, Op: OpSub, Right: r} }
func Mul(l, r Expr) Expr { return &BinaryExpr{Left: l, Op: OpMul, Right: r} }
func Div(l, r Expr) Expr { return &BinaryExpr{Left: l, Op: OpDiv, Right: r} }
func Eq(l, r Expr) Expr  { return &BinaryExpr{Left: l, Op: OpEq, Right: r} }
func Ne(l, r Expr) Expr  { return &BinaryExpr{Left: l, Op: OpNe, Right: r} }
func Lt(l, r Expr) Expr  { return &BinaryExpr{Left: l, Op: OpLt, Right: r} }
func Le(l, r Expr) Expr  { return &BinaryExpr{Left: l, Op: OpLe, Right: r} }
func Gt(l, r Expr) Expr  { return &BinaryExpr{Left: l, Op: OpGt, Right: r} }
func Ge(l, r Expr) Expr  { return &BinaryExpr{Left: l, Op: OpGe, Right: r} }

// And combines predicates with Kleene logic
func And(exprs ...Expr) Expr { return fold(OpAnd, exprs) }

// Or combines predicates with Kleene logic
func Or(exprs ...Expr) Expr { return fold(OpOr, exprs) }

func fold(op BinaryOp, exprs []Expr) Expr {
	if len(exprs) == 0 {
		return Lit(op == OpAnd)
	}
	out := exprs[0]
	for _, e := range exprs[1:] {
		out = &BinaryExpr{Left: out, Op: op, Right: e}
	}
	return out
}

func Not(e Expr) Expr       { return &NotExpr{Inner: e} }
func IsNull(e Expr) Expr    { return &IsNullExpr{Inner: e} }
func IsNotNull(e Expr) Expr { return &IsNullExpr{Inner: e, Negate: true} }

// Cast converts e to type to
func Cast(e Expr, to table.DataType) Expr { return &CastExpr{Inner: e, To: to} }

// Alias names the output column of e
func Alias(e Expr, name string) Expr { return &AliasExpr{Inner: e, Name: name} }

func CountDistinct(e Expr) Expr { return &AggExpr{Func: AggCountDistinct, Arg: e} }
func Min(e Expr) Expr           { return &AggExpr{Func: AggMin, Arg: e} }
func Max(e Expr) Expr           { return &AggExpr{Func: AggMax, Arg: e} }
func Mean(e Expr) Expr          { return &AggExpr{Func: AggMean, Arg: e} }
func Sum(e Expr) Expr           { return &AggExpr{Func: AggSum, Arg: e} }
func Count(e Expr) Expr         { return &AggExpr{Func: AggCount, Arg: e} }

// Map applies fn to every non-null element of e. Binding fails with
// table.ErrTypeMismatch when e is not of type in.
func Map(e Expr, fn MapFunc, in, out table.DataType) Expr {
	return &MapExpr{Inner: e, Fn: fn, In: in, Out: out}
}

// NewAgg builds an aggregate by function name, as used by the expression
// parser
func NewAgg(name string, arg Expr) (Expr, error) {
	switch f := AggFunc(strings.ToLower(name)); f {
	case AggCountDistinct, AggMin, AggMax, AggMean, AggSum, AggCount:
		return &AggExpr{Func: f, Arg: arg}, nil
	case "n_unique":
		return &AggExpr{Func: AggCountDistinct, Arg: arg}, nil
	case "avg":
		return &AggExpr{Func: AggMean, Arg: arg}, nil
	default:
		return nil, fmt.Errorf("%w: unknown aggregate function %q", table.ErrInvalidArgument, name)
	}
}

func (c *ColumnExpr) String() string  { return fmt.Sprintf("col(%q)", c.Name) }
func (l *LiteralExpr) String() string {
	if s, ok := l.Value.(string); ok {
		return fmt.Sprintf("lit(%q)", s)
	}
	return fmt.Sprintf("lit(%s)", table.FormatValue(l.Value))
}
func (b *BinaryExpr) String() string { return fmt.Sprintf("[%s %s %s]", b.Left, b.Op, b.Right) }
func (n *NotExpr) String() string    { return fmt.Sprintf("%s.not()", n.Inner) }
func (i *IsNullExpr) String() string {
	if i.Negate {
		return fmt.Sprintf("%s.is_not_null()", i.Inner)
	}
	return fmt.Sprintf("%s.is_null()", i.Inner)
}
func (c *CastExpr) String() string  { return fmt.Sprintf("%s.cast(%s)", c.Inner, c.To) }
func (a *AliasExpr) String() string { return fmt.Sprintf("%s.alias(%q)", a.Inner, a.Name) }
func (a *AggExpr) String() string   { return fmt.Sprintf("%s.%s()", a.Arg, a.Func) }
func (m *MapExpr) String() string {
	label := m.Label
	if label == "" {
		label = "udf"
	}
	return fmt.Sprintf("%s.map(%s: %s -> %s)", m.Inner, label, m.In, m.Out)
}
func (d *dropNullsExpr) String() string {
	if len(d.Columns) == 0 {
		return "drop_nulls(*)"
	}
	return fmt.Sprintf("drop_nulls(%s)", strings.Join(d.Columns, ", "))
}

// OutputName returns the column name an expression produces: its alias,
// otherwise the leftmost column it references, otherwise "literal".
func OutputName(e Expr) string {
	switch v := e.(type) {
	case *AliasExpr:
		return v.Name
	case *ColumnExpr:
		return v.Name
	case *BinaryExpr:
		return OutputName(v.Left)
	case *NotExpr:
		return OutputName(v.Inner)
	case *IsNullExpr:
		return OutputName(v.Inner)
	case *CastExpr:
		return OutputName(v.Inner)
	case *MapExpr:
		return OutputName(v.Inner)
	case *AggExpr:
		return OutputName(v.Arg)
	default:
		return "literal"
	}
}
