package compiler

import (
	"fmt"
	"sort"

	"github.com/eischet/janitor-sub000/vm"
)

// ---------------------------------------------------------------------------
// Lint: warnings for programs that parse but are likely wrong
// ---------------------------------------------------------------------------

// Linter walks a parsed program and collects warnings. It never rejects a
// program; scripts may read names that the host binds at run time, so
// unknown names are only reported when the linter was told which names
// exist.
type Linter struct {
	known    func(name string) bool
	builtins func(name string) bool

	bound    map[string]bool
	targets  map[*Identifier]bool
	warnings []vm.Diagnostic
}

// NewLinter creates a linter. known reports names bound outside the script
// (builtins, host globals); nil disables the undefined-name check. builtins
// reports names whose reassignment should be flagged; nil disables that.
func NewLinter(known, builtins func(name string) bool) *Linter {
	return &Linter{known: known, builtins: builtins}
}

// Lint returns the warnings for prog, sorted by position.
func (l *Linter) Lint(prog *Program) []vm.Diagnostic {
	l.bound = make(map[string]bool)
	l.targets = make(map[*Identifier]bool)
	l.warnings = nil

	// Any binding anywhere counts; scripts bind globals from inside
	// functions.
	for _, s := range prog.Statements {
		l.collectStmt(s)
	}
	l.checkUnreachable(prog.Statements)
	for _, s := range prog.Statements {
		l.lintStmt(s)
	}

	sort.SliceStable(l.warnings, func(i, j int) bool {
		a, b := l.warnings[i], l.warnings[j]
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return l.warnings
}

func (l *Linter) warnAt(node Node, format string, args ...any) {
	pos := node.Span().Start
	l.warnings = append(l.warnings, vm.Diagnostic{
		Line:    pos.Line,
		Column:  pos.Column,
		Message: fmt.Sprintf(format, args...),
	})
}

// --- binding collection ---

func (l *Linter) collectStmt(s Stmt) {
	switch n := s.(type) {
	case *ExprStmt:
		l.collectExpr(n.Expr)
	case *Block:
		for _, st := range n.Statements {
			l.collectStmt(st)
		}
	case *IfStmt:
		l.collectExpr(n.Cond)
		l.collectStmt(n.Then)
		if n.Else != nil {
			l.collectStmt(n.Else)
		}
	case *WhileStmt:
		l.collectExpr(n.Cond)
		l.collectStmt(n.Body)
	case *ForInStmt:
		l.bound[n.Var] = true
		l.collectExpr(n.Iterable)
		l.collectStmt(n.Body)
	case *ReturnStmt:
		if n.Value != nil {
			l.collectExpr(n.Value)
		}
	case *FunctionDecl:
		l.bound[n.Fn.Name] = true
		l.collectExpr(n.Fn)
	case *TryStmt:
		l.collectStmt(n.Body)
		if n.Catch != nil {
			if n.CatchVar != "" {
				l.bound[n.CatchVar] = true
			}
			l.collectStmt(n.Catch)
		}
		if n.Finally != nil {
			l.collectStmt(n.Finally)
		}
	case *ThrowStmt:
		l.collectExpr(n.Value)
	}
}

func (l *Linter) collectExpr(e Expr) {
	walkExpr(e, func(e Expr) {
		switch n := e.(type) {
		case *AssignExpr:
			if id, ok := n.Target.(*Identifier); ok {
				l.bound[id.Name] = true
			}
		case *FunctionLiteral:
			for _, p := range n.Params {
				l.bound[p] = true
			}
			if n.Body != nil {
				l.collectStmt(n.Body)
			}
		}
	})
}

// --- checks ---

// checkUnreachable flags the first statement after one that always leaves
// the block.
func (l *Linter) checkUnreachable(stmts []Stmt) {
	for i, s := range stmts {
		if terminates(s) && i+1 < len(stmts) {
			l.warnAt(stmts[i+1], "unreachable code")
			return
		}
	}
}

func terminates(s Stmt) bool {
	switch n := s.(type) {
	case *ReturnStmt, *ThrowStmt, *BranchStmt:
		return true
	case *Block:
		return len(n.Statements) > 0 && terminates(n.Statements[len(n.Statements)-1])
	case *IfStmt:
		return n.Else != nil && terminates(n.Then) && terminates(n.Else)
	}
	return false
}

func (l *Linter) lintStmt(s Stmt) {
	switch n := s.(type) {
	case *ExprStmt:
		l.lintExpr(n.Expr)
	case *Block:
		l.checkUnreachable(n.Statements)
		for _, st := range n.Statements {
			l.lintStmt(st)
		}
	case *IfStmt:
		l.lintExpr(n.Cond)
		l.lintStmt(n.Then)
		if n.Else != nil {
			l.lintStmt(n.Else)
		}
	case *WhileStmt:
		l.lintExpr(n.Cond)
		l.lintStmt(n.Body)
	case *ForInStmt:
		l.lintExpr(n.Iterable)
		l.lintStmt(n.Body)
	case *ReturnStmt:
		if n.Value != nil {
			l.lintExpr(n.Value)
		}
	case *FunctionDecl:
		if l.builtins != nil && l.builtins(n.Fn.Name) {
			l.warnAt(n, "function '%s' shadows a builtin", n.Fn.Name)
		}
		l.lintExpr(n.Fn)
	case *TryStmt:
		l.lintStmt(n.Body)
		if n.Catch != nil {
			l.lintStmt(n.Catch)
		}
		if n.Finally != nil {
			l.lintStmt(n.Finally)
		}
	case *ThrowStmt:
		l.lintExpr(n.Value)
	}
}

func (l *Linter) lintExpr(e Expr) {
	walkExpr(e, func(e Expr) {
		switch n := e.(type) {
		case *Identifier:
			if l.known != nil && !l.targets[n] && !l.bound[n.Name] && !l.known(n.Name) {
				l.warnAt(n, "'%s' may be undefined", n.Name)
			}
		case *AssignExpr:
			id, ok := n.Target.(*Identifier)
			if !ok {
				break
			}
			// A plain assignment target is a binding, not a read.
			if n.Op == TokenAssign {
				l.targets[id] = true
			}
			if l.builtins != nil && l.builtins(id.Name) {
				l.warnAt(n, "assignment shadows builtin '%s'", id.Name)
			}
		case *FunctionLiteral:
			if n.Body != nil {
				l.lintStmt(n.Body)
			}
		}
	})
}
