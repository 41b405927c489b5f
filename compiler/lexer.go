package compiler

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: tokenizer for Janitor source
// ---------------------------------------------------------------------------

// Lexer tokenizes Janitor source code.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // line of ch (1-based)
	col     int  // column of ch (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	l.col++
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.pos = len(l.input)
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

func (l *Lexer) position() Position {
	return Position{Offset: l.pos, Line: l.line, Column: l.col}
}

// Tokenize returns all tokens of the input, ending with TokenEOF.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens
		}
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	newline := l.skipWhitespaceAndComments()
	tok := l.scan()
	tok.NewlineBefore = newline
	return tok
}

func (l *Lexer) single(t TokenType, pos Position) Token {
	lit := string(l.ch)
	l.readChar()
	return Token{Type: t, Literal: lit, Pos: pos}
}

// pair returns the two-character token if the next character is next,
// else the one-character token.
func (l *Lexer) pair(one TokenType, next rune, two TokenType, pos Position) Token {
	first := l.ch
	l.readChar()
	if l.ch == next {
		l.readChar()
		return Token{Type: two, Literal: string(first) + string(next), Pos: pos}
	}
	return Token{Type: one, Literal: string(first), Pos: pos}
}

func (l *Lexer) scan() Token {
	pos := l.position()

	switch {
	case l.ch == 0:
		return Token{Type: TokenEOF, Pos: pos}
	case l.ch == '(':
		return l.single(TokenLParen, pos)
	case l.ch == ')':
		return l.single(TokenRParen, pos)
	case l.ch == '[':
		return l.single(TokenLBracket, pos)
	case l.ch == ']':
		return l.single(TokenRBracket, pos)
	case l.ch == '{':
		return l.single(TokenLBrace, pos)
	case l.ch == '}':
		return l.single(TokenRBrace, pos)
	case l.ch == ',':
		return l.single(TokenComma, pos)
	case l.ch == '.':
		return l.single(TokenPeriod, pos)
	case l.ch == ':':
		return l.single(TokenColon, pos)
	case l.ch == ';':
		return l.single(TokenSemicolon, pos)
	case l.ch == '?':
		return l.single(TokenQuestion, pos)
	case l.ch == '%':
		return l.single(TokenPercent, pos)

	case l.ch == '+':
		if l.peekChar() == '+' {
			return l.pair(TokenPlus, '+', TokenInc, pos)
		}
		return l.pair(TokenPlus, '=', TokenPlusAssign, pos)
	case l.ch == '-':
		switch l.peekChar() {
		case '-':
			return l.pair(TokenMinus, '-', TokenDec, pos)
		case '>':
			return l.pair(TokenMinus, '>', TokenArrow, pos)
		}
		return l.pair(TokenMinus, '=', TokenMinusAssign, pos)
	case l.ch == '*':
		return l.pair(TokenStar, '=', TokenStarAssign, pos)
	case l.ch == '/':
		return l.pair(TokenSlash, '=', TokenSlashAssign, pos)
	case l.ch == '=':
		return l.pair(TokenAssign, '=', TokenEq, pos)
	case l.ch == '!':
		return l.pair(TokenBang, '=', TokenNotEq, pos)
	case l.ch == '<':
		return l.pair(TokenLess, '=', TokenLessEq, pos)
	case l.ch == '>':
		return l.pair(TokenGreater, '=', TokenGreaterEq, pos)
	case l.ch == '&' && l.peekChar() == '&':
		return l.pair(TokenError, '&', TokenAndAnd, pos)
	case l.ch == '|' && l.peekChar() == '|':
		return l.pair(TokenError, '|', TokenOrOr, pos)

	case l.ch == '\'' || l.ch == '"':
		return l.readString(pos)
	case l.ch == '@':
		return l.readTemporal(pos)
	case isDigit(l.ch):
		return l.readNumber(pos)
	case isLetter(l.ch) || l.ch == '_':
		return l.readIdentifierOrKeyword(pos)

	default:
		ch := l.ch
		l.readChar()
		return Token{Type: TokenError, Literal: fmt.Sprintf("unexpected character: %c", ch), Pos: pos}
	}
}

// skipWhitespaceAndComments skips whitespace, // line comments and /* */
// block comments, and reports whether a line break was crossed.
func (l *Lexer) skipWhitespaceAndComments() bool {
	newline := false
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			if l.ch == '\n' {
				newline = true
			}
			l.readChar()
		}

		if l.ch == '/' && l.peekChar() == '/' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			l.readChar()
			l.readChar()
			for l.ch != 0 && !(l.ch == '*' && l.peekChar() == '/') {
				if l.ch == '\n' {
					newline = true
				}
				l.readChar()
			}
			l.readChar()
			l.readChar()
			continue
		}

		return newline
	}
}

// readString reads a single- or double-quoted string and decodes escapes.
func (l *Lexer) readString(pos Position) Token {
	quote := l.ch
	l.readChar()

	var sb strings.Builder
	for l.ch != quote {
		if l.ch == 0 {
			return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			case '0':
				sb.WriteRune(0)
			case 0:
				return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
			default:
				// \\, \', \" and unknown escapes keep the character.
				sb.WriteRune(l.ch)
			}
			l.readChar()
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	l.readChar()

	return Token{Type: TokenString, Literal: sb.String(), Pos: pos}
}

// readNumber reads an integer or float literal.
func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}

	typ := TokenInteger
	if l.ch == '.' && isDigit(l.peekChar()) {
		typ = TokenFloat
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			typ = TokenFloat
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}

	return Token{Type: typ, Literal: l.input[start:l.pos], Pos: pos}
}

// readTemporal reads @-literals: dates, datetimes and durations.
func (l *Lexer) readTemporal(pos Position) Token {
	l.readChar() // consume @
	start := l.pos
	digits := l.readDigits()
	if digits == "" {
		return Token{Type: TokenError, Literal: "expected digits after @", Pos: pos}
	}

	if l.ch == '-' && len(digits) == 4 {
		// @yyyy-MM-dd[-HH:mm:ss]
		for _, sep := range []rune{'-', '-'} {
			if l.ch != sep {
				return Token{Type: TokenError, Literal: "malformed date literal", Pos: pos}
			}
			l.readChar()
			if len(l.readDigits()) != 2 {
				return Token{Type: TokenError, Literal: "malformed date literal", Pos: pos}
			}
		}
		if l.ch != '-' || !isDigit(l.peekChar()) {
			return Token{Type: TokenDate, Literal: l.input[start:l.pos], Pos: pos}
		}
		for _, sep := range []rune{'-', ':', ':'} {
			if l.ch != sep {
				return Token{Type: TokenError, Literal: "malformed datetime literal", Pos: pos}
			}
			l.readChar()
			if len(l.readDigits()) != 2 {
				return Token{Type: TokenError, Literal: "malformed datetime literal", Pos: pos}
			}
		}
		return Token{Type: TokenDateTime, Literal: l.input[start:l.pos], Pos: pos}
	}

	unitStart := l.pos
	for isLetter(l.ch) {
		l.readChar()
	}
	switch l.input[unitStart:l.pos] {
	case "s", "mi", "h", "d", "w":
		return Token{Type: TokenDuration, Literal: l.input[start:l.pos], Pos: pos}
	case "":
		return Token{Type: TokenError, Literal: "missing duration unit", Pos: pos}
	}
	return Token{Type: TokenError, Literal: fmt.Sprintf("unknown duration unit %q", l.input[unitStart:l.pos]), Pos: pos}
}

func (l *Lexer) readDigits() string {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readIdentifierOrKeyword reads an identifier, a reserved word or a
// re/.../ regex literal.
func (l *Lexer) readIdentifierOrKeyword(pos Position) Token {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	word := l.input[start:l.pos]

	if word == "re" && l.ch == '/' {
		return l.readRegex(pos)
	}
	if t, ok := reservedWords[word]; ok {
		return Token{Type: t, Literal: word, Pos: pos}
	}
	return Token{Type: TokenIdentifier, Literal: word, Pos: pos}
}

// readRegex reads the body of re/.../. Only \/ is unescaped; other
// backslash sequences are passed to the regex compiler.
func (l *Lexer) readRegex(pos Position) Token {
	l.readChar() // consume /
	var sb strings.Builder
	for l.ch != '/' {
		if l.ch == 0 || l.ch == '\n' {
			return Token{Type: TokenError, Literal: "unterminated regex", Pos: pos}
		}
		if l.ch == '\\' && l.peekChar() == '/' {
			l.readChar()
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	l.readChar()
	return Token{Type: TokenRegex, Literal: sb.String(), Pos: pos}
}

func isLetter(ch rune) bool {
	return unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}
