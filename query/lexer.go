package query

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType represents the type of a token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenError

	// Literals and names
	TokenIdent
	TokenQuotedIdent
	TokenString
	TokenNumber
	TokenBool
	TokenNull

	// Keywords
	TokenAnd
	TokenOr
	TokenNot
	TokenAs
	TokenIs

	// Punctuation
	TokenComma
	TokenLeftParen
	TokenRightParen

	// Operators
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenEqual
	TokenNotEqual
	TokenLess
	TokenLessEqual
	TokenGreater
	TokenGreaterEqual
)

var tokenNames = map[TokenType]string{
	TokenEOF:          "end of input",
	TokenError:        "invalid token",
	TokenIdent:        "identifier",
	TokenQuotedIdent:  "quoted identifier",
	TokenString:       "string",
	TokenNumber:       "number",
	TokenBool:         "boolean",
	TokenNull:         "NULL",
	TokenAnd:          "AND",
	TokenOr:           "OR",
	TokenNot:          "NOT",
	TokenAs:           "AS",
	TokenIs:           "IS",
	TokenComma:        "','",
	TokenLeftParen:    "'('",
	TokenRightParen:   "')'",
	TokenPlus:         "'+'",
	TokenMinus:        "'-'",
	TokenStar:         "'*'",
	TokenSlash:        "'/'",
	TokenEqual:        "'='",
	TokenNotEqual:     "'!='",
	TokenLess:         "'<'",
	TokenLessEqual:    "'<='",
	TokenGreater:      "'>'",
	TokenGreaterEqual: "'>='",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is a lexical token with its position in the input
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

// Lexer tokenizes expression strings.
//
// Single quotes delimit string literals and double quotes delimit column
// names, so columns containing spaces or keywords can still be referenced.
type Lexer struct {
	input string
	pos   int // byte offset of the next rune
	start int // byte offset of ch
	ch    rune
}

// NewLexer creates a new lexer
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	l.start = l.pos
	if l.pos >= len(l.input) {
		l.ch = 0
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.ch = r
	l.pos += size
}

func (l *Lexer) peekChar() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

func (l *Lexer) skipWhitespace() {
	for unicode.IsSpace(l.ch) {
		l.readChar()
	}
}

// readQuoted reads up to the closing quote. A doubled quote stands for
// itself. ok is false when the input ends first.
func (l *Lexer) readQuoted(quote rune) (string, bool) {
	var result strings.Builder
	l.readChar() // skip opening quote

	for {
		switch {
		case l.ch == 0 && l.start >= len(l.input):
			return result.String(), false
		case l.ch == quote && l.peekChar() == quote:
			result.WriteRune(quote)
			l.readChar()
		case l.ch == quote:
			l.readChar() // skip closing quote
			return result.String(), true
		default:
			result.WriteRune(l.ch)
		}
		l.readChar()
	}
}

// readNumber reads an unsigned integer or decimal, with optional exponent
func (l *Lexer) readNumber() string {
	begin := l.start
	for unicode.IsDigit(l.ch) || l.ch == '.' {
		l.readChar()
	}
	if l.ch == 'e' || l.ch == 'E' {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for unicode.IsDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[begin:l.start]
}

func (l *Lexer) readIdentifier() string {
	begin := l.start
	for unicode.IsLetter(l.ch) || unicode.IsDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[begin:l.start]
}

// single emits a one character token
func (l *Lexer) single(t TokenType) Token {
	tok := Token{Type: t, Value: string(l.ch), Pos: l.start}
	l.readChar()
	return tok
}

// pair emits a two character token when the next character is second,
// otherwise a one character token
func (l *Lexer) pair(second rune, long, short TokenType) Token {
	pos := l.start
	first := l.ch
	if l.peekChar() == second {
		l.readChar()
		l.readChar()
		return Token{Type: long, Value: string(first) + string(second), Pos: pos}
	}
	l.readChar()
	return Token{Type: short, Value: string(first), Pos: pos}
}

// NextToken returns the next token
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	pos := l.start
	switch l.ch {
	case 0:
		if l.start >= len(l.input) {
			return Token{Type: TokenEOF, Pos: pos}
		}
		return l.single(TokenError)
	case '=':
		return l.pair('=', TokenEqual, TokenEqual)
	case '!':
		return l.pair('=', TokenNotEqual, TokenError)
	case '<':
		if l.peekChar() == '>' {
			l.readChar()
			l.readChar()
			return Token{Type: TokenNotEqual, Value: "<>", Pos: pos}
		}
		return l.pair('=', TokenLessEqual, TokenLess)
	case '>':
		return l.pair('=', TokenGreaterEqual, TokenGreater)
	case '+':
		return l.single(TokenPlus)
	case '-':
		return l.single(TokenMinus)
	case '*':
		return l.single(TokenStar)
	case '/':
		return l.single(TokenSlash)
	case ',':
		return l.single(TokenComma)
	case '(':
		return l.single(TokenLeftParen)
	case ')':
		return l.single(TokenRightParen)
	case '\'':
		value, ok := l.readQuoted('\'')
		if !ok {
			return Token{Type: TokenError, Value: "unterminated string", Pos: pos}
		}
		return Token{Type: TokenString, Value: value, Pos: pos}
	case '"':
		value, ok := l.readQuoted('"')
		if !ok {
			return Token{Type: TokenError, Value: "unterminated quoted identifier", Pos: pos}
		}
		return Token{Type: TokenQuotedIdent, Value: value, Pos: pos}
	}

	switch {
	case unicode.IsDigit(l.ch) || (l.ch == '.' && unicode.IsDigit(l.peekChar())):
		return Token{Type: TokenNumber, Value: l.readNumber(), Pos: pos}
	case unicode.IsLetter(l.ch) || l.ch == '_':
		value := l.readIdentifier()
		return Token{Type: identifierType(value), Value: value, Pos: pos}
	default:
		return l.single(TokenError)
	}
}

var keywords = map[string]TokenType{
	"and":   TokenAnd,
	"or":    TokenOr,
	"not":   TokenNot,
	"as":    TokenAs,
	"is":    TokenIs,
	"null":  TokenNull,
	"true":  TokenBool,
	"false": TokenBool,
}

// identifierType determines if an identifier is a keyword. Keywords are
// case insensitive.
func identifierType(ident string) TokenType {
	if tokType, ok := keywords[strings.ToLower(ident)]; ok {
		return tokType
	}
	return TokenIdent
}

// Tokenize returns all tokens from the input, ending with TokenEOF or the
// first TokenError
func Tokenize(input string) []Token {
	lexer := NewLexer(input)
	var tokens []Token

	for {
		tok := lexer.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}

	return tokens
}
