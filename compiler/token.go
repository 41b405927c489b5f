package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the Janitor lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenInteger    // 42
	TokenFloat      // 3.14, 1e3
	TokenString     // 'hello', "hello"
	TokenIdentifier // foo
	TokenDate       // @2022-10-12
	TokenDateTime   // @2022-03-30-11:48:46
	TokenDuration   // @3600s, @60mi, @1h, @1d, @1w
	TokenRegex      // re/a+b/

	// Operators
	TokenPlus        // +
	TokenMinus       // -
	TokenStar        // *
	TokenSlash       // /
	TokenPercent     // %
	TokenAssign      // =
	TokenPlusAssign  // +=
	TokenMinusAssign // -=
	TokenStarAssign  // *=
	TokenSlashAssign // /=
	TokenEq          // ==
	TokenNotEq       // !=
	TokenLess        // <
	TokenLessEq      // <=
	TokenGreater     // >
	TokenGreaterEq   // >=
	TokenBang        // !
	TokenAndAnd      // &&
	TokenOrOr        // ||
	TokenArrow       // ->
	TokenInc         // ++
	TokenDec         // --
	TokenQuestion    // ?

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenLBrace    // {
	TokenRBrace    // }
	TokenComma     // ,
	TokenPeriod    // .
	TokenColon     // :
	TokenSemicolon // ;

	// Reserved words
	TokenIf
	TokenElse
	TokenWhile
	TokenDo
	TokenFor
	TokenIn
	TokenBreak
	TokenContinue
	TokenReturn
	TokenFunction
	TokenTry
	TokenCatch
	TokenFinally
	TokenThrow
	TokenTrue
	TokenFalse
	TokenNull
	TokenAnd
	TokenOr
	TokenNot
)

var tokenNames = map[TokenType]string{
	TokenEOF:         "EOF",
	TokenError:       "ERROR",
	TokenInteger:     "INTEGER",
	TokenFloat:       "FLOAT",
	TokenString:      "STRING",
	TokenIdentifier:  "IDENTIFIER",
	TokenDate:        "DATE",
	TokenDateTime:    "DATETIME",
	TokenDuration:    "DURATION",
	TokenRegex:       "REGEX",
	TokenPlus:        "+",
	TokenMinus:       "-",
	TokenStar:        "*",
	TokenSlash:       "/",
	TokenPercent:     "%",
	TokenAssign:      "=",
	TokenPlusAssign:  "+=",
	TokenMinusAssign: "-=",
	TokenStarAssign:  "*=",
	TokenSlashAssign: "/=",
	TokenEq:          "==",
	TokenNotEq:       "!=",
	TokenLess:        "<",
	TokenLessEq:      "<=",
	TokenGreater:     ">",
	TokenGreaterEq:   ">=",
	TokenBang:        "!",
	TokenAndAnd:      "&&",
	TokenOrOr:        "||",
	TokenArrow:       "->",
	TokenInc:         "++",
	TokenDec:         "--",
	TokenQuestion:    "?",
	TokenLParen:      "(",
	TokenRParen:      ")",
	TokenLBracket:    "[",
	TokenRBracket:    "]",
	TokenLBrace:      "{",
	TokenRBrace:      "}",
	TokenComma:       ",",
	TokenPeriod:      ".",
	TokenColon:       ":",
	TokenSemicolon:   ";",
	TokenIf:          "if",
	TokenElse:        "else",
	TokenWhile:       "while",
	TokenDo:          "do",
	TokenFor:         "for",
	TokenIn:          "in",
	TokenBreak:       "break",
	TokenContinue:    "continue",
	TokenReturn:      "return",
	TokenFunction:    "function",
	TokenTry:         "try",
	TokenCatch:       "catch",
	TokenFinally:     "finally",
	TokenThrow:       "throw",
	TokenTrue:        "true",
	TokenFalse:       "false",
	TokenNull:        "null",
	TokenAnd:         "and",
	TokenOr:          "or",
	TokenNot:         "not",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text, or the decoded value for strings
	Pos     Position // start position
	// NewlineBefore is set when a line break separates the token from the
	// previous one. Statements end at line breaks.
	NewlineBefore bool
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Reserved words mapped to their token types.
var reservedWords = map[string]TokenType{
	"if":       TokenIf,
	"else":     TokenElse,
	"while":    TokenWhile,
	"do":       TokenDo,
	"for":      TokenFor,
	"in":       TokenIn,
	"break":    TokenBreak,
	"continue": TokenContinue,
	"return":   TokenReturn,
	"function": TokenFunction,
	"try":      TokenTry,
	"catch":    TokenCatch,
	"finally":  TokenFinally,
	"throw":    TokenThrow,
	"true":     TokenTrue,
	"false":    TokenFalse,
	"null":     TokenNull,
	"and":      TokenAnd,
	"or":       TokenOr,
	"not":      TokenNot,
}

// IsReserved reports whether name is a reserved word.
func IsReserved(name string) bool {
	_, ok := reservedWords[name]
	return ok
}

// Keywords returns the reserved words, for editor completion.
func Keywords() []string {
	words := make([]string, 0, len(reservedWords))
	for w := range reservedWords {
		words = append(words, w)
	}
	return words
}
