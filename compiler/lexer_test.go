package compiler

import (
	"testing"
)

func TestLexerBasicTokens(t *testing.T) {
	input := `( ) [ ] { } , . : ; ? -> ++ -- += == != <= >= && || !`
	expected := []struct {
		typ TokenType
		lit string
	}{
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenLBracket, "["},
		{TokenRBracket, "]"},
		{TokenLBrace, "{"},
		{TokenRBrace, "}"},
		{TokenComma, ","},
		{TokenPeriod, "."},
		{TokenColon, ":"},
		{TokenSemicolon, ";"},
		{TokenQuestion, "?"},
		{TokenArrow, "->"},
		{TokenInc, "++"},
		{TokenDec, "--"},
		{TokenPlusAssign, "+="},
		{TokenEq, "=="},
		{TokenNotEq, "!="},
		{TokenLessEq, "<="},
		{TokenGreaterEq, ">="},
		{TokenAndAnd, "&&"},
		{TokenOrOr, "||"},
		{TokenBang, "!"},
		{TokenEOF, ""},
	}

	l := NewLexer(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, exp.typ)
		}
		if tok.Literal != exp.lit {
			t.Errorf("token[%d] literal = %q, want %q", i, tok.Literal, exp.lit)
		}
	}
}

func TestLexerLiterals(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
		lit   string
	}{
		{"42", TokenInteger, "42"},
		{"3.14", TokenFloat, "3.14"},
		{"1e3", TokenFloat, "1e3"},
		{`'it\'s'`, TokenString, "it's"},
		{`"a\tb\n"`, TokenString, "a\tb\n"},
		{"@2022-10-12", TokenDate, "2022-10-12"},
		{"@2022-03-30-11:48:46", TokenDateTime, "2022-03-30-11:48:46"},
		{"@3600s", TokenDuration, "3600s"},
		{"@60mi", TokenDuration, "60mi"},
		{"@2w", TokenDuration, "2w"},
		{`re/a\/b+/`, TokenRegex, "a/b+"},
		{"function", TokenFunction, "function"},
		{"notice", TokenIdentifier, "notice"},
		{"_x1", TokenIdentifier, "_x1"},
		{"größe", TokenIdentifier, "größe"},
	}

	for _, tc := range tests {
		tok := NewLexer(tc.input).NextToken()
		if tok.Type != tc.typ || tok.Literal != tc.lit {
			t.Errorf("Lexer(%q) = %v %q, want %v %q", tc.input, tok.Type, tok.Literal, tc.typ, tc.lit)
		}
	}
}

func TestLexerErrors(t *testing.T) {
	for _, input := range []string{"'open", "@12x", "@2022-1-1", "re/open", "#"} {
		tok := NewLexer(input).NextToken()
		if tok.Type != TokenError {
			t.Errorf("Lexer(%q) = %v, want ERROR", input, tok)
		}
	}
}

func TestLexerPositionsAndNewlines(t *testing.T) {
	l := NewLexer("a = 1 // comment\n  /* multi\nline */ b")
	toks := l.Tokenize()

	b := toks[3]
	if b.Literal != "b" {
		t.Fatalf("token[3] = %v, want b", b)
	}
	if b.Pos.Line != 3 || b.Pos.Column != 9 {
		t.Errorf("b at %d:%d, want 3:9", b.Pos.Line, b.Pos.Column)
	}
	if !b.NewlineBefore {
		t.Error("b.NewlineBefore = false, want true")
	}
	if toks[1].NewlineBefore {
		t.Error("'=' NewlineBefore = true, want false")
	}
	if toks[0].Pos.Column != 1 || toks[2].Pos.Column != 5 {
		t.Errorf("columns = %d, %d, want 1, 5", toks[0].Pos.Column, toks[2].Pos.Column)
	}
}
