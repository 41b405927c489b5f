package compiler

import (
	"github.com/eischet/janitor-sub000/vm"
)

// ---------------------------------------------------------------------------
// Tree-walking execution
// ---------------------------------------------------------------------------

// maxCallDepth bounds script recursion so a runaway function fails with an
// error instead of exhausting the goroutine stack.
const maxCallDepth = 2000

// flow tells enclosing statements how a statement finished.
type flow uint8

const (
	flowNext flow = iota
	flowBreak
	flowContinue
	flowReturn
)

func mark(p *vm.Process, n Node) {
	pos := n.Span().Start
	p.Mark(pos.Line, pos.Column)
}

// execBlock runs stmts with s as the current scope.
func execBlock(p *vm.Process, s *vm.Scope, stmts []Stmt) (flow, vm.Value, error) {
	p.PushScope(s)
	defer p.PopScope()
	return execStatements(p, s, stmts)
}

// execStatements runs stmts in s and returns the value of the last one, or
// the value carried by a return.
func execStatements(p *vm.Process, s *vm.Scope, stmts []Stmt) (flow, vm.Value, error) {
	var last vm.Value = vm.Null
	for _, stmt := range stmts {
		f, v, err := execStmt(p, s, stmt)
		if err != nil {
			return flowNext, nil, err
		}
		if f != flowNext {
			return f, v, nil
		}
		last = v
	}
	return flowNext, last, nil
}

// execIn runs body with s as its scope. A block body does not open a
// further scope.
func execIn(p *vm.Process, s *vm.Scope, body Stmt) (flow, vm.Value, error) {
	if b, ok := body.(*Block); ok {
		return execBlock(p, s, b.Statements)
	}
	p.PushScope(s)
	defer p.PopScope()
	return execStmt(p, s, body)
}

func execStmt(p *vm.Process, s *vm.Scope, stmt Stmt) (flow, vm.Value, error) {
	switch n := stmt.(type) {
	case *ExprStmt:
		mark(p, n)
		v, err := eval(p, s, n.Expr)
		return flowNext, v, err

	case *Block:
		return execBlock(p, vm.NewChildScope(s), n.Statements)

	case *IfStmt:
		mark(p, n)
		cond, err := eval(p, s, n.Cond)
		if err != nil {
			return flowNext, nil, err
		}
		if vm.Truthy(cond) {
			return execStmt(p, s, n.Then)
		}
		if n.Else != nil {
			return execStmt(p, s, n.Else)
		}
		return flowNext, vm.Null, nil

	case *WhileStmt:
		return execWhile(p, s, n)

	case *ForInStmt:
		return execForIn(p, s, n)

	case *BranchStmt:
		if n.Tok == TokenBreak {
			return flowBreak, vm.Null, nil
		}
		return flowContinue, vm.Null, nil

	case *ReturnStmt:
		mark(p, n)
		if n.Value == nil {
			return flowReturn, vm.Null, nil
		}
		v, err := eval(p, s, n.Value)
		return flowReturn, v, err

	case *FunctionDecl:
		fn := newClosure(p, s, n.Fn)
		return flowNext, fn, s.Bind(n.Fn.Name, fn)

	case *TryStmt:
		return execTry(p, s, n)

	case *ThrowStmt:
		mark(p, n)
		v, err := eval(p, s, n.Value)
		if err != nil {
			return flowNext, nil, err
		}
		mark(p, n)
		return flowNext, nil, vm.Thrown(p, v)
	}
	return flowNext, nil, vm.NewError(p, vm.TypeError, "unsupported statement %T", stmt)
}

func execWhile(p *vm.Process, s *vm.Scope, n *WhileStmt) (flow, vm.Value, error) {
	for first := true; ; first = false {
		if !n.DoWhile || !first {
			mark(p, n.Cond)
			cond, err := eval(p, s, n.Cond)
			if err != nil {
				return flowNext, nil, err
			}
			if !vm.Truthy(cond) {
				return flowNext, vm.Null, nil
			}
		}
		f, v, err := execStmt(p, s, n.Body)
		switch {
		case err != nil:
			return flowNext, nil, err
		case f == flowBreak:
			return flowNext, vm.Null, nil
		case f == flowReturn:
			return f, v, nil
		}
	}
}

// execForIn binds the loop variable in a fresh scope per iteration, so
// closures created in the body keep their own element.
func execForIn(p *vm.Process, s *vm.Scope, n *ForInStmt) (flow, vm.Value, error) {
	mark(p, n)
	iterable, err := eval(p, s, n.Iterable)
	if err != nil {
		return flowNext, nil, err
	}
	items, err := iterate(p, iterable)
	if err != nil {
		return flowNext, nil, err
	}
	for _, item := range items {
		iter := vm.NewChildScope(s)
		if err := iter.Bind(n.Var, item); err != nil {
			return flowNext, nil, err
		}
		f, v, err := execIn(p, iter, n.Body)
		switch {
		case err != nil:
			return flowNext, nil, err
		case f == flowBreak:
			return flowNext, vm.Null, nil
		case f == flowReturn:
			return f, v, nil
		}
	}
	return flowNext, vm.Null, nil
}

// iterate returns the elements a for loop visits: list items, set
// elements, map keys or the characters of a string.
func iterate(p *vm.Process, v vm.Value) ([]vm.Value, error) {
	switch c := vm.Unpack(vm.OrNull(v)).(type) {
	case *vm.List:
		return append([]vm.Value(nil), c.Items()...), nil
	case *vm.Set:
		return c.Elements(), nil
	case *vm.Map:
		return c.Keys(), nil
	case vm.String:
		var chars []vm.Value
		for _, r := range string(c) {
			chars = append(chars, vm.Intern(string(r)))
		}
		return chars, nil
	}
	return nil, vm.NewError(p, vm.TypeError, "%s is not iterable", vm.OrNull(v).TypeName())
}

// execTry runs finally on every exit path. An error or a jump out of the
// finally block replaces the outcome of the try and catch blocks.
func execTry(p *vm.Process, s *vm.Scope, n *TryStmt) (flow, vm.Value, error) {
	f, v, err := execBlock(p, vm.NewChildScope(s), n.Body.Statements)
	if err != nil && n.Catch != nil {
		cs := vm.NewChildScope(s)
		if n.CatchVar != "" {
			if berr := cs.Bind(n.CatchVar, caught(p, err)); berr != nil {
				return flowNext, nil, berr
			}
		}
		f, v, err = execBlock(p, cs, n.Catch.Statements)
	}
	if n.Finally != nil {
		ff, fv, ferr := execBlock(p, vm.NewChildScope(s), n.Finally.Statements)
		if ferr != nil || ff != flowNext {
			return ff, fv, ferr
		}
	}
	return f, v, err
}

// caught is the value a catch block sees: the thrown value for a script
// throw, an error value otherwise.
func caught(p *vm.Process, err error) vm.Value {
	se := vm.Native(p, err)
	if se.Class == vm.ScriptThrownError && se.Thrown != nil {
		return se.Thrown
	}
	return vm.NewErrorValue(se)
}

// ---------------------------------------------------------------------------
// Functions
// ---------------------------------------------------------------------------

// funcBody executes a function literal for a closure activation.
type funcBody struct {
	fn *FunctionLiteral
}

func newClosure(p *vm.Process, s *vm.Scope, fn *FunctionLiteral) *vm.Closure {
	name := fn.Name
	if name == "" {
		name = "<lambda>"
	}
	return vm.NewClosure(name, fn.Params, &funcBody{fn: fn}, s, p.Module())
}

func (b *funcBody) Execute(p *vm.Process, s *vm.Scope) (vm.Value, error) {
	if p.Depth() >= maxCallDepth {
		return nil, vm.NewError(p, vm.NativeError, "maximum call depth of %d exceeded", maxCallDepth)
	}
	pos := b.fn.Span().Start
	p.Enter(pos.Line, pos.Column)
	defer p.Exit()
	p.PushScope(s)
	defer p.PopScope()

	if b.fn.Result != nil {
		return eval(p, s, b.fn.Result)
	}
	f, v, err := execStatements(p, s, b.fn.Body.Statements)
	if err != nil {
		return nil, err
	}
	if f == flowReturn {
		return vm.OrNull(v), nil
	}
	return vm.Null, nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func eval(p *vm.Process, s *vm.Scope, expr Expr) (vm.Value, error) {
	switch n := expr.(type) {
	case *IntLiteral:
		return vm.Int(n.Value), nil
	case *FloatLiteral:
		return vm.Float(n.Value), nil
	case *StringLiteral:
		return vm.Intern(n.Value), nil
	case *BoolLiteral:
		return vm.Bool(n.Value), nil
	case *NullLiteral:
		return vm.Null, nil
	case *TemporalLiteral:
		return n.Value, nil
	case *RegexLiteral:
		return p.Builtins().NewRegex(n.Compiled), nil

	case *ListLiteral:
		items := make([]vm.Value, len(n.Elements))
		for i, e := range n.Elements {
			v, err := eval(p, s, e)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return vm.NewList(items...), nil

	case *MapLiteral:
		m := vm.NewMap()
		for _, e := range n.Entries {
			k, err := eval(p, s, e.Key)
			if err != nil {
				return nil, err
			}
			v, err := eval(p, s, e.Value)
			if err != nil {
				return nil, err
			}
			m.Put(k, v)
		}
		return m, nil

	case *Identifier:
		mark(p, n)
		return s.Lookup(p, n.Name)

	case *BinaryExpr:
		left, err := eval(p, s, n.Left)
		if err != nil {
			return nil, err
		}
		right, err := eval(p, s, n.Right)
		if err != nil {
			return nil, err
		}
		mark(p, n)
		return binary(p, n.Op, left, right)

	case *LogicalExpr:
		left, err := eval(p, s, n.Left)
		if err != nil {
			return nil, err
		}
		if vm.Truthy(left) != n.And {
			return vm.Bool(!n.And), nil
		}
		right, err := eval(p, s, n.Right)
		if err != nil {
			return nil, err
		}
		return vm.Bool(vm.Truthy(right)), nil

	case *UnaryExpr:
		v, err := eval(p, s, n.Operand)
		if err != nil {
			return nil, err
		}
		if n.Op == TokenMinus {
			mark(p, n)
			return vm.Negate(p, v)
		}
		return vm.Bool(!vm.Truthy(v)), nil

	case *TernaryExpr:
		cond, err := eval(p, s, n.Cond)
		if err != nil {
			return nil, err
		}
		if vm.Truthy(cond) {
			return eval(p, s, n.Then)
		}
		return eval(p, s, n.Else)

	case *CallExpr:
		return evalCall(p, s, n)

	case *AttributeExpr:
		obj, err := eval(p, s, n.Object)
		if err != nil {
			return nil, err
		}
		mark(p, n)
		return vm.GetAttribute(p, obj, n.Name, true)

	case *IndexExpr:
		obj, err := eval(p, s, n.Object)
		if err != nil {
			return nil, err
		}
		idx, err := eval(p, s, n.Index)
		if err != nil {
			return nil, err
		}
		mark(p, n)
		return vm.Invoke(p, obj, vm.IndexGet, idx)

	case *SliceExpr:
		obj, err := eval(p, s, n.Object)
		if err != nil {
			return nil, err
		}
		from, to := vm.Value(vm.Null), vm.Value(vm.Null)
		if n.From != nil {
			if from, err = eval(p, s, n.From); err != nil {
				return nil, err
			}
		}
		if n.To != nil {
			if to, err = eval(p, s, n.To); err != nil {
				return nil, err
			}
		}
		mark(p, n)
		return vm.Invoke(p, obj, vm.SliceGet, from, to)

	case *FunctionLiteral:
		return newClosure(p, s, n), nil

	case *AssignExpr:
		nv, _, err := update(p, s, n.Target, n.Op != TokenAssign, func(old vm.Value) (vm.Value, error) {
			v, err := eval(p, s, n.Value)
			if err != nil || n.Op == TokenAssign {
				return v, err
			}
			mark(p, n)
			return binary(p, compoundOps[n.Op], old, v)
		})
		return nv, err

	case *IncDecExpr:
		nv, old, err := update(p, s, n.Target, true, func(old vm.Value) (vm.Value, error) {
			mark(p, n)
			if n.Op == TokenInc {
				return vm.Add(p, old, vm.Int(1))
			}
			return vm.Sub(p, old, vm.Int(1))
		})
		if n.Prefix {
			return nv, err
		}
		return old, err
	}
	return nil, vm.NewError(p, vm.TypeError, "unsupported expression %T", expr)
}

var compoundOps = map[TokenType]TokenType{
	TokenPlusAssign:  TokenPlus,
	TokenMinusAssign: TokenMinus,
	TokenStarAssign:  TokenStar,
	TokenSlashAssign: TokenSlash,
}

func evalCall(p *vm.Process, s *vm.Scope, n *CallExpr) (vm.Value, error) {
	fn, err := eval(p, s, n.Fn)
	if err != nil {
		return nil, err
	}
	args := make([]vm.Value, len(n.Args))
	for i, a := range n.Args {
		if args[i], err = eval(p, s, a); err != nil {
			return nil, err
		}
	}
	mark(p, n)
	result, err := vm.Call(p, fn, args...)
	if err != nil {
		return nil, vm.Native(p, err)
	}
	return result, nil
}

// update assigns the result of compute to target and returns the new and
// the previous value. The object and index of target are evaluated once;
// the previous value is read only when needOld is set.
func update(p *vm.Process, s *vm.Scope, target Expr, needOld bool, compute func(old vm.Value) (vm.Value, error)) (vm.Value, vm.Value, error) {
	var old vm.Value = vm.Null
	switch t := target.(type) {
	case *Identifier:
		if needOld {
			mark(p, t)
			v, err := s.Lookup(p, t.Name)
			if err != nil {
				return nil, nil, err
			}
			old = v
		}
		nv, err := compute(old)
		if err != nil {
			return nil, nil, err
		}
		return nv, old, s.Assign(t.Name, nv)

	case *AttributeExpr:
		obj, err := eval(p, s, t.Object)
		if err != nil {
			return nil, nil, err
		}
		if needOld {
			mark(p, t)
			if old, err = vm.GetAttribute(p, obj, t.Name, true); err != nil {
				return nil, nil, err
			}
		}
		nv, err := compute(old)
		if err != nil {
			return nil, nil, err
		}
		mark(p, t)
		return nv, old, vm.SetAttribute(p, obj, t.Name, nv)

	case *IndexExpr:
		obj, err := eval(p, s, t.Object)
		if err != nil {
			return nil, nil, err
		}
		idx, err := eval(p, s, t.Index)
		if err != nil {
			return nil, nil, err
		}
		if needOld {
			mark(p, t)
			if old, err = vm.Invoke(p, obj, vm.IndexGet, idx); err != nil {
				return nil, nil, err
			}
		}
		nv, err := compute(old)
		if err != nil {
			return nil, nil, err
		}
		mark(p, t)
		if _, err := vm.Invoke(p, obj, vm.IndexSet, idx, nv); err != nil {
			return nil, nil, err
		}
		return nv, old, nil
	}
	return nil, nil, vm.NewError(p, vm.TypeError, "cannot assign to %T", target)
}

func binary(p *vm.Process, op TokenType, left, right vm.Value) (vm.Value, error) {
	switch op {
	case TokenPlus:
		return vm.Add(p, left, right)
	case TokenMinus:
		return vm.Sub(p, left, right)
	case TokenStar:
		return vm.Mul(p, left, right)
	case TokenSlash:
		return vm.Div(p, left, right)
	case TokenPercent:
		return vm.Mod(p, left, right)
	case TokenEq:
		return vm.Bool(vm.Equal(left, right)), nil
	case TokenNotEq:
		return vm.Bool(!vm.Equal(left, right)), nil
	case TokenIn:
		ok, err := vm.Contains(p, right, left)
		return vm.Bool(ok), err
	}
	c, err := vm.CompareIn(p, left, right)
	if err != nil {
		return nil, err
	}
	switch op {
	case TokenLess:
		return vm.Bool(c < 0), nil
	case TokenLessEq:
		return vm.Bool(c <= 0), nil
	case TokenGreater:
		return vm.Bool(c > 0), nil
	case TokenGreaterEq:
		return vm.Bool(c >= 0), nil
	}
	return nil, vm.NewError(p, vm.TypeError, "unsupported operator %s", op)
}
