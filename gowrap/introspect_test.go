package gowrap

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func loadSample(t *testing.T) *PackageModel {
	t.Helper()
	model, err := Introspect("./testdata/sample", nil)
	if err != nil {
		t.Fatalf("Introspect(sample): %v", err)
	}
	return model
}

func TestIntrospect_Sample(t *testing.T) {
	model := loadSample(t)

	if model.ImportPath != RuntimeModule+"/gowrap/testdata/sample" {
		t.Errorf("ImportPath = %q", model.ImportPath)
	}
	if model.Name != "sample" {
		t.Errorf("Name = %q, want sample", model.Name)
	}
	// Limit is not a struct; Double is a function.
	if len(model.Types) != 1 || model.Types[0].Name != "Counter" {
		t.Fatalf("Types = %v, want only Counter", model.Types)
	}
	counter := model.Types[0]

	wantFields := []FieldModel{
		{GoName: "Name", ScriptName: "name", Kind: KindString, GoType: "string"},
		{GoName: "Count", ScriptName: "count", Kind: KindInt, GoType: "int32"},
		{GoName: "Ratio", ScriptName: "ratio", Kind: KindFloat, GoType: "float64"},
		{GoName: "Tags", ScriptName: "tags", Kind: KindStringList, GoType: "[]string"},
		{GoName: "Enabled", ScriptName: "enabled", Kind: KindBool, GoType: "bool"},
	}
	if diff := cmp.Diff(wantFields, counter.Fields); diff != "" {
		t.Errorf("Fields mismatch (-want +got):\n%s", diff)
	}

	wantMethods := []MethodModel{
		{GoName: "Add", ScriptName: "add", Params: []ParamModel{{Kind: KindInt, GoType: "int"}}, Result: KindInt},
		{GoName: "Check", ScriptName: "check", ReturnsErr: true},
		{GoName: "Label", ScriptName: "label", Params: []ParamModel{{Kind: KindString, GoType: "string"}}, Result: KindString, ReturnsErr: true},
		{GoName: "Reset", ScriptName: "reset"},
		{GoName: "Words", ScriptName: "words", Result: KindStringList},
	}
	if diff := cmp.Diff(wantMethods, counter.Methods); diff != "" {
		t.Errorf("Methods mismatch (-want +got):\n%s", diff)
	}

	var skipped []string
	for _, s := range model.Skipped {
		skipped = append(skipped, s[:strings.Index(s, ":")])
	}
	if diff := cmp.Diff([]string{"Counter.Every", "Counter.Parent", "Counter.Clone", "Counter.Sum"}, skipped); diff != "" {
		t.Errorf("Skipped mismatch (-want +got):\n%s", diff)
	}
}

func TestIntrospect_Include(t *testing.T) {
	model, err := Introspect("net/url", []string{"URL"})
	if err != nil {
		t.Fatalf("Introspect(net/url): %v", err)
	}
	if len(model.Types) != 1 {
		t.Fatalf("Types = %d, want 1", len(model.Types))
	}
	u := model.Types[0]

	fields := make(map[string]Kind)
	for _, f := range u.Fields {
		fields[f.ScriptName] = f.Kind
	}
	if fields["scheme"] != KindString || fields["forceQuery"] != KindBool {
		t.Errorf("URL fields = %v, want string scheme and bool forceQuery", fields)
	}
	found := false
	for _, m := range u.Methods {
		if m.ScriptName == "hostname" {
			found = true
		}
	}
	if !found {
		t.Error("expected hostname method on URL")
	}
}

func TestIntrospect_IncludeErrors(t *testing.T) {
	tests := []struct {
		include string
		want    string
	}{
		{"Missing", "has no type Missing"},
		{"Limit", "is not a struct type"},
		{"Double", "is not an exported type"},
	}
	for _, tt := range tests {
		_, err := Introspect("./testdata/sample", []string{tt.include})
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("Introspect(include %s) error = %v, want %q", tt.include, err, tt.want)
		}
	}

	if _, err := Introspect("net//url", nil); err == nil || !strings.Contains(err.Error(), "malformed import path") {
		t.Errorf("Introspect(net//url) error = %v, want a malformed import path", err)
	}
}

func TestGenerate(t *testing.T) {
	src, err := Generate(loadSample(t))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	code := string(src)

	if _, err := parser.ParseFile(token.NewFileSet(), "wrap.go", src, 0); err != nil {
		t.Fatalf("generated code does not parse: %v\n%s", err, code)
	}
	for _, want := range []string{
		"package wrap_sample",
		`pkg "` + RuntimeModule + `/gowrap/testdata/sample"`,
		`"` + RuntimeModule + `/vm"`,
		`vm.NewWrapperTable[*pkg.Counter]("Counter", nil)`,
		`t.IntProperty("count",`,
		"w.Host().Count = int32(v)",
		`t.StringListProperty("tags",`,
		`t.Method("add",`,
		"w.Host().Add(int(a0))",
		`vm.Wrapf(p, err, "Counter.label")`,
		"return vm.StringList(r), nil",
		"return vm.Null, nil",
		"func WrapCounter(v *pkg.Counter) vm.Value",
		"e.RegisterType(CounterTable.DispatchTable)",
	} {
		if !strings.Contains(code, want) {
			t.Errorf("generated code lacks %q", want)
		}
	}
	if strings.Contains(code, `"every"`) || strings.Contains(code, `"clone"`) {
		t.Error("generated code should leave out unsupported members")
	}
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	path, err := Write(dir, loadSample(t))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if want := filepath.Join(dir, "wrap_sample", "wrap.go"); path != want {
		t.Errorf("Write path = %q, want %q", path, want)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("generated file missing: %v", err)
	}
}
