package compiler

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustParse(t *testing.T, src string) *Program {
	t.Helper()
	prog, diags := Parse(src)
	if len(diags) > 0 {
		t.Fatalf("Parse(%q): %v", src, diags)
	}
	return prog
}

func knownSet(names ...string) func(string) bool {
	set := make(map[string]bool)
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

func messages(t *testing.T, src string, known, builtins func(string) bool) []string {
	t.Helper()
	var out []string
	for _, d := range NewLinter(known, builtins).Lint(mustParse(t, src)) {
		out = append(out, d.String())
	}
	return out
}

func TestLintUndefinedName(t *testing.T) {
	got := messages(t, "x = 1\nprint(x + y)", knownSet("print"), nil)
	want := []string{"line 2, column 11: 'y' may be undefined"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestLintDefinedNames(t *testing.T) {
	src := `function twice(n) { return n * 2; }
for (item in [1, 2]) { total = twice(item); }
try { throw 'x'; } catch (e) { print(e, total); }
f = (a, b) -> a + b
g = x -> x`

	if got := messages(t, src, knownSet("print"), nil); len(got) != 0 {
		t.Errorf("warnings = %v, want none", got)
	}
}

func TestLintWithoutKnownNamesSkipsUndefinedCheck(t *testing.T) {
	if got := messages(t, "print(whatever)", nil, nil); len(got) != 0 {
		t.Errorf("warnings = %v, want none", got)
	}
}

func TestLintUnreachableCode(t *testing.T) {
	src := `function f(x) {
  if (x) { return 1; } else { throw 'no'; }
  print(x)
}
while (true) { break; x = 2; }`

	got := messages(t, src, nil, nil)
	if len(got) != 2 {
		t.Fatalf("warnings = %v, want 2", got)
	}
	for _, w := range got {
		if !strings.HasSuffix(w, "unreachable code") {
			t.Errorf("warning = %q, want unreachable code", w)
		}
	}
	if !strings.HasPrefix(got[0], "line 3,") {
		t.Errorf("first warning = %q, want line 3", got[0])
	}
}

func TestLintShadowedBuiltins(t *testing.T) {
	got := messages(t, "print = 5\nfunction assert(x) { return x; }", nil, knownSet("print", "assert"))
	want := []string{
		"line 1, column 1: assignment shadows builtin 'print'",
		"line 2, column 1: function 'assert' shadows a builtin",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestReferencesAndDefinition(t *testing.T) {
	prog := mustParse(t, "total = 0\nfunction add(n) { total = total + n; }\nfor (i in [1, 2]) { add(i); }\nprint(total)")

	var lines []int
	for _, s := range prog.References("total") {
		lines = append(lines, s.Start.Line)
	}
	if diff := cmp.Diff([]int{1, 2, 2, 4}, lines); diff != "" {
		t.Errorf("References(total) lines mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		name string
		line int
	}{
		{"total", 1},
		{"add", 2},
		{"n", 2},
		{"i", 3},
	}
	for _, tc := range tests {
		span, ok := prog.Definition(tc.name)
		if !ok {
			t.Errorf("Definition(%s) not found", tc.name)
			continue
		}
		if span.Start.Line != tc.line {
			t.Errorf("Definition(%s) line = %d, want %d", tc.name, span.Start.Line, tc.line)
		}
	}
	if _, ok := prog.Definition("print"); ok {
		t.Error("Definition(print) found, want none")
	}
}
