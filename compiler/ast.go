package compiler

import (
	"regexp"

	"github.com/eischet/janitor-sub000/vm"
)

// ---------------------------------------------------------------------------
// AST: abstract syntax tree for Janitor scripts
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// IntLiteral represents an integer literal.
type IntLiteral struct {
	SpanVal Span
	Value   int64
}

func (n *IntLiteral) Span() Span { return n.SpanVal }
func (n *IntLiteral) node()      {}
func (n *IntLiteral) expr()      {}

// FloatLiteral represents a floating-point literal.
type FloatLiteral struct {
	SpanVal Span
	Value   float64
}

func (n *FloatLiteral) Span() Span { return n.SpanVal }
func (n *FloatLiteral) node()      {}
func (n *FloatLiteral) expr()      {}

// StringLiteral represents a string literal.
type StringLiteral struct {
	SpanVal Span
	Value   string
}

func (n *StringLiteral) Span() Span { return n.SpanVal }
func (n *StringLiteral) node()      {}
func (n *StringLiteral) expr()      {}

// BoolLiteral represents true or false.
type BoolLiteral struct {
	SpanVal Span
	Value   bool
}

func (n *BoolLiteral) Span() Span { return n.SpanVal }
func (n *BoolLiteral) node()      {}
func (n *BoolLiteral) expr()      {}

// NullLiteral represents null.
type NullLiteral struct {
	SpanVal Span
}

func (n *NullLiteral) Span() Span { return n.SpanVal }
func (n *NullLiteral) node()      {}
func (n *NullLiteral) expr()      {}

// TemporalLiteral represents @-literals. Kind is TokenDate, TokenDateTime
// or TokenDuration; Text is the literal without the @. The parser
// validates the literal and stores the resulting value.
type TemporalLiteral struct {
	SpanVal Span
	Kind    TokenType
	Text    string
	Value   vm.Value
}

func (n *TemporalLiteral) Span() Span { return n.SpanVal }
func (n *TemporalLiteral) node()      {}
func (n *TemporalLiteral) expr()      {}

// RegexLiteral represents re/pattern/.
type RegexLiteral struct {
	SpanVal  Span
	Pattern  string
	Compiled *regexp.Regexp
}

func (n *RegexLiteral) Span() Span { return n.SpanVal }
func (n *RegexLiteral) node()      {}
func (n *RegexLiteral) expr()      {}

// ListLiteral represents [a, b, c].
type ListLiteral struct {
	SpanVal  Span
	Elements []Expr
}

func (n *ListLiteral) Span() Span { return n.SpanVal }
func (n *ListLiteral) node()      {}
func (n *ListLiteral) expr()      {}

// MapEntry is one key: value pair of a map literal.
type MapEntry struct {
	Key   Expr
	Value Expr
}

// MapLiteral represents {k: v, ...}.
type MapLiteral struct {
	SpanVal Span
	Entries []MapEntry
}

func (n *MapLiteral) Span() Span { return n.SpanVal }
func (n *MapLiteral) node()      {}
func (n *MapLiteral) expr()      {}

// Identifier represents a name reference.
type Identifier struct {
	SpanVal Span
	Name    string
}

func (n *Identifier) Span() Span { return n.SpanVal }
func (n *Identifier) node()      {}
func (n *Identifier) expr()      {}

// BinaryExpr represents an arithmetic, comparison or membership operation.
type BinaryExpr struct {
	SpanVal Span
	Op      TokenType
	Left    Expr
	Right   Expr
}

func (n *BinaryExpr) Span() Span { return n.SpanVal }
func (n *BinaryExpr) node()      {}
func (n *BinaryExpr) expr()      {}

// LogicalExpr represents short-circuit and/or.
type LogicalExpr struct {
	SpanVal Span
	And     bool
	Left    Expr
	Right   Expr
}

func (n *LogicalExpr) Span() Span { return n.SpanVal }
func (n *LogicalExpr) node()      {}
func (n *LogicalExpr) expr()      {}

// UnaryExpr represents -x and not x.
type UnaryExpr struct {
	SpanVal Span
	Op      TokenType
	Operand Expr
}

func (n *UnaryExpr) Span() Span { return n.SpanVal }
func (n *UnaryExpr) node()      {}
func (n *UnaryExpr) expr()      {}

// TernaryExpr represents cond ? a : b.
type TernaryExpr struct {
	SpanVal Span
	Cond    Expr
	Then    Expr
	Else    Expr
}

func (n *TernaryExpr) Span() Span { return n.SpanVal }
func (n *TernaryExpr) node()      {}
func (n *TernaryExpr) expr()      {}

// CallExpr represents fn(args).
type CallExpr struct {
	SpanVal Span
	Fn      Expr
	Args    []Expr
}

func (n *CallExpr) Span() Span { return n.SpanVal }
func (n *CallExpr) node()      {}
func (n *CallExpr) expr()      {}

// AttributeExpr represents object.name.
type AttributeExpr struct {
	SpanVal Span
	Object  Expr
	Name    string
}

func (n *AttributeExpr) Span() Span { return n.SpanVal }
func (n *AttributeExpr) node()      {}
func (n *AttributeExpr) expr()      {}

// IndexExpr represents object[index].
type IndexExpr struct {
	SpanVal Span
	Object  Expr
	Index   Expr
}

func (n *IndexExpr) Span() Span { return n.SpanVal }
func (n *IndexExpr) node()      {}
func (n *IndexExpr) expr()      {}

// SliceExpr represents object[from:to]; either bound may be nil.
type SliceExpr struct {
	SpanVal Span
	Object  Expr
	From    Expr
	To      Expr
}

func (n *SliceExpr) Span() Span { return n.SpanVal }
func (n *SliceExpr) node()      {}
func (n *SliceExpr) expr()      {}

// FunctionLiteral represents function (a, b) { ... } and the lambda forms
// x -> expr and (a, b) -> { ... }. Exactly one of Body and Result is set.
type FunctionLiteral struct {
	SpanVal Span
	Name    string
	Params  []string
	Body    *Block
	Result  Expr
}

func (n *FunctionLiteral) Span() Span { return n.SpanVal }
func (n *FunctionLiteral) node()      {}
func (n *FunctionLiteral) expr()      {}

// AssignExpr represents target = value and the compound forms. Target is
// an Identifier, AttributeExpr or IndexExpr.
type AssignExpr struct {
	SpanVal Span
	Op      TokenType // TokenAssign, TokenPlusAssign, ...
	Target  Expr
	Value   Expr
}

func (n *AssignExpr) Span() Span { return n.SpanVal }
func (n *AssignExpr) node()      {}
func (n *AssignExpr) expr()      {}

// IncDecExpr represents x++, x--, ++x and --x.
type IncDecExpr struct {
	SpanVal Span
	Op      TokenType // TokenInc or TokenDec
	Prefix  bool
	Target  Expr
}

func (n *IncDecExpr) Span() Span { return n.SpanVal }
func (n *IncDecExpr) node()      {}
func (n *IncDecExpr) expr()      {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// ExprStmt is an expression used as a statement.
type ExprStmt struct {
	SpanVal Span
	Expr    Expr
}

func (n *ExprStmt) Span() Span { return n.SpanVal }
func (n *ExprStmt) node()      {}
func (n *ExprStmt) stmt()      {}

// Block is a braced statement list with its own scope.
type Block struct {
	SpanVal    Span
	Statements []Stmt
}

func (n *Block) Span() Span { return n.SpanVal }
func (n *Block) node()      {}
func (n *Block) stmt()      {}

// IfStmt represents if/else. Else may be nil, another IfStmt or a Block.
type IfStmt struct {
	SpanVal Span
	Cond    Expr
	Then    Stmt
	Else    Stmt
}

func (n *IfStmt) Span() Span { return n.SpanVal }
func (n *IfStmt) node()      {}
func (n *IfStmt) stmt()      {}

// WhileStmt represents while and do/while loops.
type WhileStmt struct {
	SpanVal Span
	Cond    Expr
	Body    Stmt
	DoWhile bool
}

func (n *WhileStmt) Span() Span { return n.SpanVal }
func (n *WhileStmt) node()      {}
func (n *WhileStmt) stmt()      {}

// ForInStmt represents for (name in iterable) body.
type ForInStmt struct {
	SpanVal  Span
	Var      string
	Iterable Expr
	Body     Stmt
}

func (n *ForInStmt) Span() Span { return n.SpanVal }
func (n *ForInStmt) node()      {}
func (n *ForInStmt) stmt()      {}

// BranchStmt represents break and continue.
type BranchStmt struct {
	SpanVal Span
	Tok     TokenType
}

func (n *BranchStmt) Span() Span { return n.SpanVal }
func (n *BranchStmt) node()      {}
func (n *BranchStmt) stmt()      {}

// ReturnStmt represents return [expr].
type ReturnStmt struct {
	SpanVal Span
	Value   Expr
}

func (n *ReturnStmt) Span() Span { return n.SpanVal }
func (n *ReturnStmt) node()      {}
func (n *ReturnStmt) stmt()      {}

// FunctionDecl represents function name(params) { ... } in statement
// position; it binds name in the enclosing scope.
type FunctionDecl struct {
	SpanVal Span
	Fn      *FunctionLiteral
}

func (n *FunctionDecl) Span() Span { return n.SpanVal }
func (n *FunctionDecl) node()      {}
func (n *FunctionDecl) stmt()      {}

// TryStmt represents try/catch/finally. Catch and Finally may be nil but
// not both.
type TryStmt struct {
	SpanVal  Span
	Body     *Block
	CatchVar string
	Catch    *Block
	Finally  *Block
}

func (n *TryStmt) Span() Span { return n.SpanVal }
func (n *TryStmt) node()      {}
func (n *TryStmt) stmt()      {}

// ThrowStmt represents throw expr.
type ThrowStmt struct {
	SpanVal Span
	Value   Expr
}

func (n *ThrowStmt) Span() Span { return n.SpanVal }
func (n *ThrowStmt) node()      {}
func (n *ThrowStmt) stmt()      {}

// ---------------------------------------------------------------------------
// Top-level structure
// ---------------------------------------------------------------------------

// Program is a parsed script.
type Program struct {
	Statements []Stmt
}

// Declarations returns the names a program binds at top level: function
// declarations and plain assignments, in source order.
func (p *Program) Declarations() []string {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, s := range p.Statements {
		switch n := s.(type) {
		case *FunctionDecl:
			add(n.Fn.Name)
		case *ExprStmt:
			if a, ok := n.Expr.(*AssignExpr); ok {
				if id, ok := a.Target.(*Identifier); ok {
					add(id.Name)
				}
			}
		}
	}
	return names
}
