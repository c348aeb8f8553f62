package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vegasq/lazycsv/table"
)

// Parser parses the textual expression syntax into Expr trees.
//
// Grammar, lowest precedence first:
//
//	list       = item { "," item }
//	item       = or [ AS name ]
//	or         = and { OR and }
//	and        = not { AND not }
//	not        = NOT not | comparison
//	comparison = additive [ cmpop additive | IS [NOT] NULL ]
//	additive   = term { ("+" | "-") term }
//	term       = unary { ("*" | "/") unary }
//	unary      = "-" unary | primary
//	primary    = number | 'string' | TRUE | FALSE | NULL | name
//	           | "quoted name" | call | "(" or ")"
//	call       = cast "(" or AS type ")" | aggregate "(" or ")"
type Parser struct {
	tokens []Token
	pos    int
	limits Limits
	depth  depthGuard
}

// NewParser creates a parser over tokens produced by Tokenize
func NewParser(tokens []Token, limits Limits) *Parser {
	return &Parser{
		tokens: tokens,
		limits: limits,
		depth:  depthGuard{max: limits.MaxDepth},
	}
}

// ParseExpr parses a single expression, optionally aliased with AS
//
// Example:
//
//	pred, err := query.ParseExpr("alcohol > 14 AND NOT ash IS NULL")
func ParseExpr(input string) (Expr, error) {
	exprs, err := ParseExprList(input)
	if err != nil {
		return nil, err
	}
	if len(exprs) != 1 {
		return nil, fmt.Errorf("%w: expected one expression, got %d", table.ErrInvalidArgument, len(exprs))
	}
	return exprs[0], nil
}

// ParseExprList parses a comma separated list of expressions
//
// Example:
//
//	exprs, err := query.ParseExprList("director, count_distinct(show_id) AS num_movies")
func ParseExprList(input string) ([]Expr, error) {
	return DefaultLimits.ParseExprList(input)
}

// ParseExprList parses a comma separated list of expressions within the
// limits l
func (l Limits) ParseExprList(input string) ([]Expr, error) {
	if err := l.checkInput(input); err != nil {
		return nil, fmt.Errorf("%w: %w", table.ErrInvalidArgument, err)
	}
	tokens := Tokenize(input)
	if err := l.checkTokens(tokens); err != nil {
		return nil, fmt.Errorf("%w: %w", table.ErrInvalidArgument, err)
	}
	if last := tokens[len(tokens)-1]; last.Type == TokenError {
		return nil, fmt.Errorf("%w: %s at position %d", table.ErrInvalidArgument, last.Value, last.Pos)
	}

	p := NewParser(tokens, l)
	exprs, err := p.parseList()
	if err != nil {
		if errors.Is(err, table.ErrInvalidArgument) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", table.ErrInvalidArgument, err)
	}
	return exprs, nil
}

// current returns the current token
func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

// peek returns the next token without advancing
func (p *Parser) peek() Token {
	if p.pos+1 >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos+1]
}

func (p *Parser) advance() {
	p.pos++
}

func (p *Parser) expect(tokType TokenType) error {
	if tok := p.current(); tok.Type != tokType {
		return p.unexpected(tok, tokType.String())
	}
	p.advance()
	return nil
}

func (p *Parser) unexpected(tok Token, want string) error {
	got := tok.Type.String()
	if tok.Value != "" {
		got = fmt.Sprintf("%q", tok.Value)
	}
	return fmt.Errorf("expected %s, got %s at position %d", want, got, tok.Pos)
}

func (p *Parser) parseList() ([]Expr, error) {
	var exprs []Expr
	for {
		e, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)

		if p.current().Type != TokenComma {
			break
		}
		p.advance()
	}
	if tok := p.current(); tok.Type != TokenEOF {
		return nil, p.unexpected(tok, "',' or end of input")
	}
	return exprs, nil
}

func (p *Parser) parseItem() (Expr, error) {
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.current().Type != TokenAs {
		return e, nil
	}
	p.advance()
	name, err := p.parseName()
	if err != nil {
		return nil, err
	}
	return Alias(e, name), nil
}

// parseName parses a bare or quoted column name
func (p *Parser) parseName() (string, error) {
	tok := p.current()
	if tok.Type != TokenIdent && tok.Type != TokenQuotedIdent {
		return "", p.unexpected(tok, "name")
	}
	if err := p.limits.checkName(tok.Value); err != nil {
		return "", err
	}
	p.advance()
	return tok.Value, nil
}

// parseOr parses OR expressions (lowest precedence)
func (p *Parser) parseOr() (Expr, error) {
	if err := p.depth.enter(); err != nil {
		return nil, err
	}
	defer p.depth.leave()

	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.current().Type == TokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Or(left, right)
	}
	return left, nil
}

// parseAnd parses AND expressions (higher precedence than OR)
func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.current().Type == TokenAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = And(left, right)
	}
	return left, nil
}

func (p *Parser) parseNot() (Expr, error) {
	if p.current().Type != TokenNot {
		return p.parseComparison()
	}
	if err := p.depth.enter(); err != nil {
		return nil, err
	}
	defer p.depth.leave()

	p.advance()
	inner, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	return Not(inner), nil
}

var comparisonOps = map[TokenType]BinaryOp{
	TokenEqual:        OpEq,
	TokenNotEqual:     OpNe,
	TokenLess:         OpLt,
	TokenLessEqual:    OpLe,
	TokenGreater:      OpGt,
	TokenGreaterEqual: OpGe,
}

func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	if p.current().Type == TokenIs {
		p.advance()
		negate := false
		if p.current().Type == TokenNot {
			negate = true
			p.advance()
		}
		if err := p.expect(TokenNull); err != nil {
			return nil, err
		}
		if negate {
			return IsNotNull(left), nil
		}
		return IsNull(left), nil
	}

	op, ok := comparisonOps[p.current().Type]
	if !ok {
		return left, nil
	}
	p.advance()
	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return &BinaryExpr{Left: left, Op: op, Right: right}, nil
}

func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		var op BinaryOp
		switch p.current().Type {
		case TokenPlus:
			op = OpAdd
		case TokenMinus:
			op = OpSub
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Op: op, Right: right}
	}
}

func (p *Parser) parseTerm() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op BinaryOp
		switch p.current().Type {
		case TokenStar:
			op = OpMul
		case TokenSlash:
			op = OpDiv
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Op: op, Right: right}
	}
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.current().Type != TokenMinus {
		return p.parsePrimary()
	}
	if err := p.depth.enter(); err != nil {
		return nil, err
	}
	defer p.depth.leave()

	p.advance()
	if tok := p.current(); tok.Type == TokenNumber {
		p.advance()
		return parseNumber("-" + tok.Value)
	}
	inner, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return Mul(inner, Lit(-1)), nil
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.current()
	switch tok.Type {
	case TokenNumber:
		p.advance()
		return parseNumber(tok.Value)
	case TokenString:
		p.advance()
		return Lit(tok.Value), nil
	case TokenBool:
		p.advance()
		return Lit(strings.EqualFold(tok.Value, "true")), nil
	case TokenNull:
		p.advance()
		return Lit(nil), nil
	case TokenQuotedIdent:
		name, err := p.parseName()
		if err != nil {
			return nil, err
		}
		return Col(name), nil
	case TokenIdent:
		if p.peek().Type == TokenLeftParen {
			return p.parseCall()
		}
		name, err := p.parseName()
		if err != nil {
			return nil, err
		}
		return Col(name), nil
	case TokenLeftParen:
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRightParen); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return nil, p.unexpected(tok, "expression")
	}
}

// parseCall parses cast(x AS type) and aggregate function calls
func (p *Parser) parseCall() (Expr, error) {
	name := p.current()
	p.advance()
	if err := p.expect(TokenLeftParen); err != nil {
		return nil, err
	}
	arg, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	var result Expr
	if strings.EqualFold(name.Value, "cast") {
		if err := p.expect(TokenAs); err != nil {
			return nil, err
		}
		typeTok := p.current()
		if typeTok.Type != TokenIdent {
			return nil, p.unexpected(typeTok, "type name")
		}
		to, err := table.ParseDataType(typeTok.Value)
		if err != nil {
			return nil, err
		}
		p.advance()
		result = Cast(arg, to)
	} else {
		result, err = NewAgg(name.Value, arg)
		if err != nil {
			return nil, err
		}
	}

	if err := p.expect(TokenRightParen); err != nil {
		return nil, err
	}
	return result, nil
}

func parseNumber(text string) (Expr, error) {
	if !strings.ContainsAny(text, ".eE") {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return Lit(i), nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", text)
	}
	return Lit(f), nil
}
