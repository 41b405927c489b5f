package compiler

import (
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func parseExpr(t *testing.T, input string) Expr {
	t.Helper()
	p := NewParser(input)
	expr := p.ParseExpression()
	if diags := p.Diagnostics(); len(diags) > 0 {
		t.Fatalf("ParseExpression(%q): %v", input, diags)
	}
	return expr
}

func parseProgram(t *testing.T, input string) *Program {
	t.Helper()
	prog, diags := Parse(input)
	if len(diags) > 0 {
		t.Fatalf("Parse(%q): %v", input, diags)
	}
	return prog
}

func TestParserLiterals(t *testing.T) {
	tests := []struct {
		input string
		check func(Expr) bool
		desc  string
	}{
		{"42", func(e Expr) bool { return e.(*IntLiteral).Value == 42 }, "integer"},
		{"-5", func(e Expr) bool { return e.(*IntLiteral).Value == -5 }, "negative integer"},
		{"3.14", func(e Expr) bool { return e.(*FloatLiteral).Value == 3.14 }, "float"},
		{"'hello'", func(e Expr) bool { return e.(*StringLiteral).Value == "hello" }, "string"},
		{"null", func(e Expr) bool { _, ok := e.(*NullLiteral); return ok }, "null"},
		{"@2022-10-12", func(e Expr) bool { return e.(*TemporalLiteral).Value.String() == "@2022-10-12" }, "date"},
		{"@1h", func(e Expr) bool { return e.(*TemporalLiteral).Value.String() == "@3600s" }, "duration"},
		{"re/a+/", func(e Expr) bool { return e.(*RegexLiteral).Compiled.MatchString("aaa") }, "regex"},
		{"[1, 2, 3,]", func(e Expr) bool { return len(e.(*ListLiteral).Elements) == 3 }, "list"},
		{"{a: 1, 'b': 2}", func(e Expr) bool {
			m := e.(*MapLiteral)
			return len(m.Entries) == 2 && m.Entries[0].Key.(*StringLiteral).Value == "a"
		}, "map"},
	}

	for _, tc := range tests {
		expr := parseExpr(t, tc.input)
		if !tc.check(expr) {
			t.Errorf("%s: check failed for %q", tc.desc, tc.input)
		}
	}
}

// shape renders an expression as a parenthesized prefix form.
func shape(e Expr) string {
	switch n := e.(type) {
	case *IntLiteral:
		return strconv.FormatInt(n.Value, 10)
	case *Identifier:
		return n.Name
	case *BinaryExpr:
		return "(" + n.Op.String() + " " + shape(n.Left) + " " + shape(n.Right) + ")"
	case *LogicalExpr:
		op := "or"
		if n.And {
			op = "and"
		}
		return "(" + op + " " + shape(n.Left) + " " + shape(n.Right) + ")"
	case *UnaryExpr:
		return "(" + n.Op.String() + " " + shape(n.Operand) + ")"
	case *TernaryExpr:
		return "(? " + shape(n.Cond) + " " + shape(n.Then) + " " + shape(n.Else) + ")"
	case *AssignExpr:
		return "(" + n.Op.String() + " " + shape(n.Target) + " " + shape(n.Value) + ")"
	case *CallExpr:
		parts := []string{"call", shape(n.Fn)}
		for _, a := range n.Args {
			parts = append(parts, shape(a))
		}
		return "(" + strings.Join(parts, " ") + ")"
	case *AttributeExpr:
		return "(. " + shape(n.Object) + " " + n.Name + ")"
	case *IndexExpr:
		return "([] " + shape(n.Object) + " " + shape(n.Index) + ")"
	case *SliceExpr:
		from, to := "_", "_"
		if n.From != nil {
			from = shape(n.From)
		}
		if n.To != nil {
			to = shape(n.To)
		}
		return "([:] " + shape(n.Object) + " " + from + " " + to + ")"
	case *IncDecExpr:
		if n.Prefix {
			return "(pre" + n.Op.String() + " " + shape(n.Target) + ")"
		}
		return "(post" + n.Op.String() + " " + shape(n.Target) + ")"
	case *FunctionLiteral:
		body := "{...}"
		if n.Result != nil {
			body = shape(n.Result)
		}
		return "(fn (" + strings.Join(n.Params, " ") + ") " + body + ")"
	}
	return "?"
}

func TestParserPrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3", "(+ 1 (* 2 3))"},
		{"(1 + 2) * 3", "(* (+ 1 2) 3)"},
		{"a - b - c", "(- (- a b) c)"},
		{"a < b and c or d", "(or (and (< a b) c) d)"},
		{"not a == b", "(not (== a b))"},
		{"!a && b", "(and (not a) b)"},
		{"x in xs", "(in x xs)"},
		{"x not in xs", "(not (in x xs))"},
		{"a ? b : c ? d : e", "(? a b (? c d e))"},
		{"a = b = 1", "(= a (= b 1))"},
		{"x += 2 * y", "(+= x (* 2 y))"},
		{"-a.b(1)[2]", "(- ([] (call (. a b) 1) 2))"},
		{"s[1:]", "([:] s 1 _)"},
		{"s[:-1]", "([:] s _ -1)"},
		{"i++", "(post++ i)"},
		{"--i", "(pre-- i)"},
		{"x -> x * 2", "(fn (x) (* x 2))"},
		{"(a, b) -> a + b", "(fn (a b) (+ a b))"},
		{"() -> 1", "(fn () 1)"},
		{"xs.map(x -> x + 1)", "(call (. xs map) (fn (x) (+ x 1)))"},
		{"a.in", "(. a in)"},
	}

	for _, tc := range tests {
		got := shape(parseExpr(t, tc.input))
		if got != tc.want {
			t.Errorf("Parse(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestParserStatementsEndAtNewlines(t *testing.T) {
	prog := parseProgram(t, "a = 1\nb = a\n  - 1\nc = f(1,\n  2)\n")
	if len(prog.Statements) != 4 {
		t.Fatalf("got %d statements, want 4", len(prog.Statements))
	}
	call := prog.Statements[3].(*ExprStmt).Expr.(*AssignExpr).Value.(*CallExpr)
	if len(call.Args) != 2 {
		t.Errorf("call args = %d, want 2", len(call.Args))
	}
}

func TestParserStatements(t *testing.T) {
	src := `
function fib(n) {
    if (n < 2) { return n } else return fib(n - 1) + fib(n - 2)
}
i = 0
while (i < 3) i++
do { i-- } while (i > 0)
for (x in [1, 2]) { if (x == 2) break; continue }
try { throw 'x' } catch (e) { print(e) } finally { done = true }
`
	prog := parseProgram(t, src)
	var kinds []string
	for _, s := range prog.Statements {
		switch s.(type) {
		case *FunctionDecl:
			kinds = append(kinds, "func")
		case *ExprStmt:
			kinds = append(kinds, "expr")
		case *WhileStmt:
			kinds = append(kinds, "while")
		case *ForInStmt:
			kinds = append(kinds, "for")
		case *TryStmt:
			kinds = append(kinds, "try")
		default:
			kinds = append(kinds, "?")
		}
	}
	want := []string{"func", "expr", "while", "while", "for", "try"}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("statement kinds mismatch (-want +got):\n%s", diff)
	}
	if got := prog.Declarations(); !cmp.Equal(got, []string{"fib", "i"}) {
		t.Errorf("Declarations() = %v, want [fib i]", got)
	}
	try := prog.Statements[5].(*TryStmt)
	if try.CatchVar != "e" || try.Finally == nil {
		t.Errorf("try = %+v", try)
	}
}

func TestParserDiagnostics(t *testing.T) {
	tests := []struct {
		input string
		line  int
		col   int
		msg   string
	}{
		{"a = }", 1, 5, "unexpected '}'"},
		{"x = 1 2", 1, 7, "unexpected '2'"},
		{"break", 1, 1, "'break' outside loop"},
		{"f(1, 2", 1, 7, "expected ')', got end of input"},
		{"1 = 2", 1, 3, "cannot assign to this expression"},
		{"try { }", 1, 1, "'try' without 'catch' or 'finally'"},
		{"d = @2022-13-40", 1, 5, "invalid date literal @2022-13-40"},
		{"ok = 1\n  y = 'open", 2, 7, "unterminated string"},
	}

	for _, tc := range tests {
		_, diags := Parse(tc.input)
		if len(diags) == 0 {
			t.Errorf("Parse(%q): no diagnostics", tc.input)
			continue
		}
		d := diags[0]
		if d.Line != tc.line || d.Column != tc.col || d.Message != tc.msg {
			t.Errorf("Parse(%q) = %v, want line %d, column %d: %s", tc.input, d, tc.line, tc.col, tc.msg)
		}
	}
}

func TestParserRecoversAfterErrors(t *testing.T) {
	prog, diags := Parse("a = )\nb = 2\nc = (\n")
	if len(diags) != 2 {
		t.Errorf("diagnostics = %v, want 2", diags)
	}
	if got := prog.Declarations(); !cmp.Equal(got, []string{"b"}) {
		t.Errorf("Declarations() = %v, want [b]", got)
	}
}
