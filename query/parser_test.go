package query

import (
	"errors"
	"strings"
	"testing"

	"github.com/vegasq/lazycsv/table"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []TokenType
	}{
		{"a >= 1.5", []TokenType{TokenIdent, TokenGreaterEqual, TokenNumber, TokenEOF}},
		{"x <> 'y'", []TokenType{TokenIdent, TokenNotEqual, TokenString, TokenEOF}},
		{`"my col" != null`, []TokenType{TokenQuotedIdent, TokenNotEqual, TokenNull, TokenEOF}},
		{"NOT a AND b or c", []TokenType{TokenNot, TokenIdent, TokenAnd, TokenIdent, TokenOr, TokenIdent, TokenEOF}},
		{"f(a) AS b, -2", []TokenType{TokenIdent, TokenLeftParen, TokenIdent, TokenRightParen, TokenAs, TokenIdent, TokenComma, TokenMinus, TokenNumber, TokenEOF}},
		{"a == TRUE", []TokenType{TokenIdent, TokenEqual, TokenBool, TokenEOF}},
		{"a ? b", []TokenType{TokenIdent, TokenError}},
		{"'open", []TokenType{TokenError}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens := Tokenize(tt.input)
			if len(tokens) != len(tt.want) {
				t.Fatalf("got %d tokens %v, want %d", len(tokens), tokens, len(tt.want))
			}
			for i, tok := range tokens {
				if tok.Type != tt.want[i] {
					t.Errorf("token %d = %s (%q), want %s", i, tok.Type, tok.Value, tt.want[i])
				}
			}
		})
	}
}

func TestTokenize_QuotesAndPositions(t *testing.T) {
	tokens := Tokenize(`"a ""b""" = 'it''s'`)
	if tokens[0].Value != `a "b"` {
		t.Errorf("quoted identifier = %q", tokens[0].Value)
	}
	if tokens[2].Value != "it's" || tokens[2].Pos != 12 {
		t.Errorf("string token = %+v", tokens[2])
	}
}

func TestParseExpr(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"a + 1", `[col("a") + lit(1)]`},
		{"2 * (a + b)", `[lit(2) * [col("a") + col("b")]]`},
		{"a + b * c", `[col("a") + [col("b") * col("c")]]`},
		{"a - b - c", `[[col("a") - col("b")] - col("c")]`},
		{"-3", `lit(-3)`},
		{"-a", `[col("a") * lit(-1)]`},
		{"1.5e2", `lit(150)`},
		{"a < 1 OR b >= 2", `[[col("a") < lit(1)] | [col("b") >= lit(2)]]`},
		{"a = 1 OR b = 2 AND c = 3", `[[col("a") == lit(1)] | [[col("b") == lit(2)] & [col("c") == lit(3)]]]`},
		{"alcohol > 14 AND NOT ash IS NULL", `[[col("alcohol") > lit(14)] & col("ash").is_null().not()]`},
		{"x IS NOT NULL", `col("x").is_not_null()`},
		{`"my col" = 'TV Show'`, `[col("my col") == lit("TV Show")]`},
		{"flag = false", `[col("flag") == lit(false)]`},
		{"count_distinct(show_id) AS num_movies", `col("show_id").count_distinct().alias("num_movies")`},
		{"n_unique(show_id)", `col("show_id").count_distinct()`},
		{"AVG(ash)", `col("ash").mean()`},
		{"ash / mean(ash) AS relative_ash", `[col("ash") / col("ash").mean()].alias("relative_ash")`},
		{"cast(release_year AS f64)", `col("release_year").cast(f64)`},
		{"CAST(x as Float64) as y", `col("x").cast(f64).alias("y")`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseExpr(tt.input)
			if err != nil {
				t.Fatalf("ParseExpr() error = %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseExpr() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseExprList(t *testing.T) {
	exprs, err := ParseExprList("type, min(release_year) AS oldest, max(release_year)")
	if err != nil {
		t.Fatalf("ParseExprList() error = %v", err)
	}
	var names []string
	for _, e := range exprs {
		names = append(names, OutputName(e))
	}
	if got := strings.Join(names, ","); got != "type,oldest,release_year" {
		t.Errorf("output names = %s", got)
	}
}

func TestParseExpr_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"dangling operator", "a +"},
		{"unclosed paren", "(a"},
		{"unterminated string", "'abc"},
		{"unknown function", "median(a)"},
		{"unknown type", "cast(a AS decimal)"},
		{"missing operator", "a b"},
		{"two expressions", "a, b"},
		{"alias without name", "a AS"},
		{"is without null", "a IS 3"},
		{"invalid character", "a # b"},
		{"too deep", strings.Repeat("(", 150) + "a" + strings.Repeat(")", 150)},
		{"too long", strings.Repeat("a", MaxExpressionLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseExpr(tt.input)
			if !errors.Is(err, table.ErrInvalidArgument) {
				t.Errorf("ParseExpr(%.20q) error = %v, want ErrInvalidArgument", tt.input, err)
			}
		})
	}
}

func TestParseExpr_TooDeep(t *testing.T) {
	_, err := ParseExpr(strings.Repeat("NOT ", 200) + "a")
	if !errors.Is(err, ErrExpressionTooDeep) {
		t.Errorf("error = %v, want ErrExpressionTooDeep", err)
	}
}

func TestParsedExpressionsExecute(t *testing.T) {
	lf := scan(t, "netflix.csv", netflixCSV)

	pred, err := ParseExpr("type = 'Movie' AND release_year > 2000")
	if err != nil {
		t.Fatal(err)
	}
	aggs, err := ParseExprList("count(show_id) AS n, mean(release_year) AS mean_year")
	if err != nil {
		t.Fatal(err)
	}

	tbl := collect(t, lf.Filter(pred).GroupBy("director").Agg(aggs...))
	assertRows(t, tbl, [][]any{{"Ann", int64(3), float64(2001+2005+2001) / 3}})
}

func TestLimits(t *testing.T) {
	tight := Limits{MaxLength: 20, MaxTokens: 4, MaxDepth: 2, MaxNameLength: 3}

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"within limits", "abc", nil},
		{"too long", "a + b + c + d + e + f + g", ErrExpressionTooLong},
		{"too many tokens", "a + b + c", ErrTooManyTokens},
		{"too deep", "((a))", ErrExpressionTooDeep},
		{"long name", "abcd", ErrColumnNameTooLong},
		{"empty quoted name", `""`, ErrEmptyColumnName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tight.ParseExprList(tt.input)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ParseExprList() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) || !errors.Is(err, table.ErrInvalidArgument) {
				t.Errorf("ParseExprList() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
