package server

import (
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/eischet/janitor-sub000/env"
	"github.com/eischet/janitor-sub000/vm"
)

// ---------------------------------------------------------------------------
// Text extraction helpers
// ---------------------------------------------------------------------------

func TestExtractPrefix(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		pos    protocol.Position
		want   string
		member bool
	}{
		{"simple word", "x = pri", protocol.Position{Line: 0, Character: 7}, "pri", false},
		{"member", "name.star", protocol.Position{Line: 0, Character: 9}, "star", true},
		{"bare dot", "name.", protocol.Position{Line: 0, Character: 5}, "", true},
		{"multi line", "first\nsecond\nDog", protocol.Position{Line: 2, Character: 3}, "Dog", false},
		{"empty line", "", protocol.Position{Line: 0, Character: 0}, "", false},
		{"cursor at start", "hello", protocol.Position{Line: 0, Character: 0}, "", false},
		{"line beyond document", "single", protocol.Position{Line: 5, Character: 0}, "", false},
		{"column beyond line", "abc", protocol.Position{Line: 0, Character: 40}, "abc", false},
	}

	for _, tc := range tests {
		got, member := extractPrefix(tc.text, tc.pos)
		if got != tc.want || member != tc.member {
			t.Errorf("%s: extractPrefix = %q, %v, want %q, %v", tc.name, got, member, tc.want, tc.member)
		}
	}
}

func TestExtractWord(t *testing.T) {
	tests := []struct {
		text string
		pos  protocol.Position
		want string
	}{
		{"total = total + 1", protocol.Position{Line: 0, Character: 10}, "total"},
		{"d.startsWith('x')", protocol.Position{Line: 0, Character: 4}, "startsWith"},
		{"a + b", protocol.Position{Line: 0, Character: 2}, ""},
		{"x\ny_1", protocol.Position{Line: 1, Character: 1}, "y_1"},
	}

	for _, tc := range tests {
		if got := extractWord(tc.text, tc.pos); got != tc.want {
			t.Errorf("extractWord(%q, %v) = %q, want %q", tc.text, tc.pos, got, tc.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Environment-backed features
// ---------------------------------------------------------------------------

type robot struct {
	vm.Composed
	Serial string
}

func robotTable() *vm.DispatchTable {
	t := vm.NewTypedTable[*robot]("Robot", nil)
	vm.Help.Set(t.StringProperty("serial", func(r *robot) string { return r.Serial }, func(r *robot, s string) { r.Serial = s }),
		"The serial number.")
	vm.Help.SetOnTable(t.DispatchTable, "A test robot.")
	t.SetConstructorFunc(func(p *vm.Process, args *vm.CallArgs) (*robot, error) {
		r := &robot{}
		r.Init(r, t.DispatchTable)
		return r, nil
	})
	return t.DispatchTable
}

func testEnvironment() *env.Environment {
	e := env.NewEnvironment()
	e.RegisterType(robotTable())
	return e
}

func labels(items []protocol.CompletionItem) map[string]protocol.CompletionItem {
	out := make(map[string]protocol.CompletionItem)
	for _, it := range items {
		out[it.Label] = it
	}
	return out
}

func TestCompleteName(t *testing.T) {
	e := testEnvironment()

	got := labels(completeName(e, "printer = 1\n", "pr"))
	for _, want := range []string{"print", "printer"} {
		if _, ok := got[want]; !ok {
			t.Errorf("completion for 'pr' lacks %q: %v", want, got)
		}
	}

	got = labels(completeName(e, "", "Ro"))
	if it, ok := got["Robot"]; !ok || *it.Kind != protocol.CompletionItemKindClass {
		t.Errorf("completion for 'Ro' = %v, want class Robot", got)
	}

	got = labels(completeName(e, "", "whi"))
	if it, ok := got["while"]; !ok || *it.Kind != protocol.CompletionItemKindKeyword {
		t.Errorf("completion for 'whi' = %v, want keyword while", got)
	}
}

func TestCompleteMember(t *testing.T) {
	e := testEnvironment()

	got := labels(completeMember(e, "startsW"))
	it, ok := got["startsWith"]
	if !ok {
		t.Fatalf("member completion lacks startsWith: %v", got)
	}
	if *it.Kind != protocol.CompletionItemKindMethod || *it.Detail != "string" {
		t.Errorf("startsWith item = kind %v detail %q, want method on string", *it.Kind, *it.Detail)
	}

	got = labels(completeMember(e, "ser"))
	it, ok = got["serial"]
	if !ok {
		t.Fatalf("member completion lacks serial: %v", got)
	}
	if *it.Kind != protocol.CompletionItemKindProperty || it.Documentation != "The serial number." {
		t.Errorf("serial item = kind %v doc %v, want documented property", *it.Kind, it.Documentation)
	}

	got = labels(completeMember(e, "size"))
	if d := *got["size"].Detail; !strings.Contains(d, "list") || !strings.Contains(d, "map") {
		t.Errorf("size detail = %q, want list and map", d)
	}
}

func hoverText(t *testing.T, h *protocol.Hover) string {
	t.Helper()
	if h == nil {
		return ""
	}
	return h.Contents.(protocol.MarkupContent).Value
}

func TestHover(t *testing.T) {
	e := testEnvironment()

	tests := []struct {
		word string
		want []string
	}{
		{"Robot", []string{"**Robot**", "A test robot.", "serial"}},
		{"print", []string{"**print**", "builtin function"}},
		{"startsWith", []string{"**.startsWith**", "- string"}},
		{"total", []string{"defined on line 2"}},
	}

	for _, tc := range tests {
		got := hoverText(t, hover(e, "x = 1\ntotal = 3\n", tc.word))
		for _, w := range tc.want {
			if !strings.Contains(got, w) {
				t.Errorf("hover(%s) = %q, want it to contain %q", tc.word, got, w)
			}
		}
	}

	if h := hover(e, "", "nothingHere"); h != nil {
		t.Errorf("hover(nothingHere) = %v, want nil", hoverText(t, h))
	}
}

func TestDiagnose(t *testing.T) {
	s := NewLSP(testEnvironment())
	defer s.worker.Stop()

	if got := s.diagnose("ok", "r = Robot()\nprint(r.serial)"); len(got) != 0 {
		t.Errorf("diagnostics for valid source = %v, want none", got)
	}

	got := s.diagnose("broken", "x = (1 +\n")
	if len(got) == 0 || *got[0].Severity != protocol.DiagnosticSeverityError {
		t.Fatalf("diagnostics for broken source = %v, want an error", got)
	}

	got = s.diagnose("warn", "print = 2\nreturn 1\nx = 3")
	if len(got) != 2 {
		t.Fatalf("diagnostics = %v, want 2 warnings", got)
	}
	for _, d := range got {
		if *d.Severity != protocol.DiagnosticSeverityWarning {
			t.Errorf("diagnostic %q severity = %v, want warning", d.Message, *d.Severity)
		}
	}
	if got[1].Range.Start.Line != 2 || got[1].Message != "unreachable code" {
		t.Errorf("second diagnostic = %+v, want unreachable code on line index 2", got[1])
	}
}

func TestSpanConversion(t *testing.T) {
	if p := position(3, 5); p.Line != 2 || p.Character != 4 {
		t.Errorf("position(3, 5) = %+v, want 2:4", p)
	}
	if p := position(0, 0); p.Line != 0 || p.Character != 0 {
		t.Errorf("position(0, 0) = %+v, want 0:0", p)
	}
}
