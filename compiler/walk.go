package compiler

// walkExpr calls fn for e and every expression nested in it, parents
// first. It stops at function bodies, which callers handle as statements.
func walkExpr(e Expr, fn func(Expr)) {
	if e == nil {
		return
	}
	fn(e)
	switch n := e.(type) {
	case *ListLiteral:
		for _, el := range n.Elements {
			walkExpr(el, fn)
		}
	case *MapLiteral:
		for _, en := range n.Entries {
			walkExpr(en.Key, fn)
			walkExpr(en.Value, fn)
		}
	case *BinaryExpr:
		walkExpr(n.Left, fn)
		walkExpr(n.Right, fn)
	case *LogicalExpr:
		walkExpr(n.Left, fn)
		walkExpr(n.Right, fn)
	case *UnaryExpr:
		walkExpr(n.Operand, fn)
	case *TernaryExpr:
		walkExpr(n.Cond, fn)
		walkExpr(n.Then, fn)
		walkExpr(n.Else, fn)
	case *CallExpr:
		walkExpr(n.Fn, fn)
		for _, a := range n.Args {
			walkExpr(a, fn)
		}
	case *AttributeExpr:
		walkExpr(n.Object, fn)
	case *IndexExpr:
		walkExpr(n.Object, fn)
		walkExpr(n.Index, fn)
	case *SliceExpr:
		walkExpr(n.Object, fn)
		walkExpr(n.From, fn)
		walkExpr(n.To, fn)
	case *FunctionLiteral:
		walkExpr(n.Result, fn)
	case *AssignExpr:
		walkExpr(n.Target, fn)
		walkExpr(n.Value, fn)
	case *IncDecExpr:
		walkExpr(n.Target, fn)
	}
}

// Inspect calls fn for every statement and expression in stmts, parents
// first, including the bodies of functions.
func Inspect(stmts []Stmt, fn func(Node)) {
	for _, s := range stmts {
		inspectStmt(s, fn)
	}
}

func inspectStmt(s Stmt, fn func(Node)) {
	if s == nil {
		return
	}
	fn(s)
	expr := func(e Expr) {
		walkExpr(e, func(e Expr) {
			fn(e)
			if f, ok := e.(*FunctionLiteral); ok && f.Body != nil {
				inspectStmt(f.Body, fn)
			}
		})
	}
	switch n := s.(type) {
	case *ExprStmt:
		expr(n.Expr)
	case *Block:
		Inspect(n.Statements, fn)
	case *IfStmt:
		expr(n.Cond)
		inspectStmt(n.Then, fn)
		inspectStmt(n.Else, fn)
	case *WhileStmt:
		expr(n.Cond)
		inspectStmt(n.Body, fn)
	case *ForInStmt:
		expr(n.Iterable)
		inspectStmt(n.Body, fn)
	case *ReturnStmt:
		expr(n.Value)
	case *FunctionDecl:
		expr(n.Fn)
	case *TryStmt:
		inspectStmt(n.Body, fn)
		if n.Catch != nil {
			inspectStmt(n.Catch, fn)
		}
		if n.Finally != nil {
			inspectStmt(n.Finally, fn)
		}
	case *ThrowStmt:
		expr(n.Value)
	}
}

// References returns the spans of every identifier called name.
func (p *Program) References(name string) []Span {
	var spans []Span
	Inspect(p.Statements, func(n Node) {
		if id, ok := n.(*Identifier); ok && id.Name == name {
			spans = append(spans, id.SpanVal)
		}
	})
	return spans
}

// Definition returns the span of the first binding of name: a function
// declaration, an assignment, a parameter or a loop variable.
func (p *Program) Definition(name string) (Span, bool) {
	var (
		found Span
		ok    bool
	)
	Inspect(p.Statements, func(n Node) {
		if ok {
			return
		}
		switch n := n.(type) {
		case *FunctionDecl:
			if n.Fn.Name == name {
				found, ok = n.SpanVal, true
			}
		case *AssignExpr:
			if id, isID := n.Target.(*Identifier); isID && id.Name == name && n.Op == TokenAssign {
				found, ok = id.SpanVal, true
			}
		case *FunctionLiteral:
			for _, param := range n.Params {
				if param == name {
					found, ok = n.SpanVal, true
				}
			}
		case *ForInStmt:
			if n.Var == name {
				found, ok = n.SpanVal, true
			}
		}
	})
	return found, ok
}
