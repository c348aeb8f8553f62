package query

import (
	"errors"
	"fmt"
)

const (
	// MaxExpressionLength is the default limit on expression input (64KB)
	MaxExpressionLength = 64 * 1024

	// MaxTokens is the default limit on tokens in an expression list
	MaxTokens = 1000

	// MaxExpressionDepth is the default nesting limit
	MaxExpressionDepth = 100

	// MaxColumnNameLength is the default limit on a column name in bytes
	MaxColumnNameLength = 256
)

var (
	ErrExpressionTooLong = errors.New("expression too long")
	ErrTooManyTokens     = errors.New("too many tokens in expression")
	ErrExpressionTooDeep = errors.New("expression nesting too deep")
	ErrColumnNameTooLong = errors.New("column name too long")
	ErrEmptyColumnName   = errors.New("column name cannot be empty")
)

// Limits bound what the expression parser accepts from untrusted input
type Limits struct {
	MaxLength     int
	MaxTokens     int
	MaxDepth      int
	MaxNameLength int
}

// DefaultLimits are used by ParseExpr and ParseExprList
var DefaultLimits = Limits{
	MaxLength:     MaxExpressionLength,
	MaxTokens:     MaxTokens,
	MaxDepth:      MaxExpressionDepth,
	MaxNameLength: MaxColumnNameLength,
}

func (l Limits) checkInput(input string) error {
	if len(input) > l.MaxLength {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrExpressionTooLong, len(input), l.MaxLength)
	}
	return nil
}

func (l Limits) checkTokens(tokens []Token) error {
	if len(tokens) > l.MaxTokens {
		return fmt.Errorf("%w: %d tokens (max %d)", ErrTooManyTokens, len(tokens), l.MaxTokens)
	}
	return nil
}

func (l Limits) checkName(name string) error {
	switch {
	case name == "":
		return ErrEmptyColumnName
	case len(name) > l.MaxNameLength:
		return fmt.Errorf("%w: %d chars (max %d)", ErrColumnNameTooLong, len(name), l.MaxNameLength)
	}
	return nil
}

// ValidateColumnName checks a column name against DefaultLimits
func ValidateColumnName(name string) error {
	return DefaultLimits.checkName(name)
}

// depthGuard counts recursive descent into nested expressions
type depthGuard struct {
	depth int
	max   int
}

func (g *depthGuard) enter() error {
	g.depth++
	if g.depth > g.max {
		return fmt.Errorf("%w: %d (max %d)", ErrExpressionTooDeep, g.depth, g.max)
	}
	return nil
}

func (g *depthGuard) leave() {
	g.depth--
}
