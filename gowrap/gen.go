package gowrap

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// RuntimeModule is the import path prefix generated code uses for the vm
// and env packages.
const RuntimeModule = "github.com/eischet/janitor-sub000"

var wrapperTemplate = template.Must(template.New("wrap").Funcs(template.FuncMap{
	"field":  fieldCode,
	"method": methodCode,
}).Parse(`// Code generated by janitor wrap from {{.Model.ImportPath}}. DO NOT EDIT.

package {{.Package}}

import (
	pkg "{{.Model.ImportPath}}"

	"{{.Runtime}}/env"
	"{{.Runtime}}/vm"
)
{{range $type := .Model.Types}}{{$w := printf "*vm.Wrapper[*pkg.%s]" .Name}}
// {{.Name}}Table wraps *{{$.Model.Name}}.{{.Name}}.
var {{.Name}}Table = func() *vm.TypedTable[{{$w}}] {
	t := vm.NewWrapperTable[*pkg.{{.Name}}]("{{.Name}}", nil)
	vm.Help.SetOnTable(t.DispatchTable, "Wraps {{$.Model.ImportPath}}.{{.Name}}.")
	t.SetConstructorFunc(func(p *vm.Process, args *vm.CallArgs) ({{$w}}, error) {
		if err := args.RequireExactly(0); err != nil {
			return nil, err
		}
		return vm.Wrap(t, vm.KindWrapped, &pkg.{{.Name}}{}), nil
	})
{{range .Fields}}{{field $w .}}{{end}}{{range .Methods}}{{method $w $type.Name .}}{{end}}	return t
}()

// Wrap{{.Name}} wraps v for scripts.
func Wrap{{.Name}}(v *pkg.{{.Name}}) vm.Value {
	return vm.Wrap({{.Name}}Table, vm.KindWrapped, v)
}
{{end}}
// Register makes the wrapped types available to scripts.
func Register(e *env.Environment) {
{{range .Model.Types}}	e.RegisterType({{.Name}}Table.DispatchTable)
{{end}}}
`))

var propertyFuncs = map[Kind]struct{ method, scriptType, toScript string }{
	KindString:     {"StringProperty", "string", "%s"},
	KindInt:        {"IntProperty", "int64", "int64(%s)"},
	KindFloat:      {"FloatProperty", "float64", "float64(%s)"},
	KindBool:       {"BoolProperty", "bool", "%s"},
	KindStringList: {"StringListProperty", "[]string", "%s"},
}

func fieldCode(w string, f FieldModel) string {
	pf := propertyFuncs[f.Kind]
	get := fmt.Sprintf(pf.toScript, "w.Host()."+f.GoName)
	set := "v"
	if f.Kind == KindInt || f.Kind == KindFloat {
		set = f.GoType + "(v)"
	}
	return fmt.Sprintf("\tt.%s(%q,\n\t\tfunc(w %s) %s { return %s },\n\t\tfunc(w %s, v %s) { w.Host().%s = %s })\n",
		pf.method, f.ScriptName, w, pf.scriptType, get, w, pf.scriptType, f.GoName, set)
}

var argAccessors = map[Kind]string{
	KindString: "String",
	KindInt:    "Int",
	KindFloat:  "Float",
	KindBool:   "Bool",
}

var resultConversions = map[Kind]string{
	KindString:     "vm.Intern(r)",
	KindInt:        "vm.Int(int64(r))",
	KindFloat:      "vm.Float(float64(r))",
	KindBool:       "vm.Bool(r)",
	KindStringList: "vm.StringList(r)",
}

func methodCode(w, typeName string, m MethodModel) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\tt.Method(%q, func(p *vm.Process, w %s, args *vm.CallArgs) (vm.Value, error) {\n", m.ScriptName, w)
	fmt.Fprintf(&b, "\t\tif err := args.RequireExactly(%d); err != nil {\n\t\t\treturn nil, err\n\t\t}\n", len(m.Params))

	callArgs := make([]string, len(m.Params))
	for i, param := range m.Params {
		fmt.Fprintf(&b, "\t\ta%d, err := args.%s(%d)\n\t\tif err != nil {\n\t\t\treturn nil, err\n\t\t}\n", i, argAccessors[param.Kind], i)
		callArgs[i] = fmt.Sprintf("a%d", i)
		if param.Kind == KindInt || param.Kind == KindFloat {
			callArgs[i] = fmt.Sprintf("%s(a%d)", param.GoType, i)
		}
	}
	call := fmt.Sprintf("w.Host().%s(%s)", m.GoName, strings.Join(callArgs, ", "))
	fail := fmt.Sprintf("\t\t\treturn nil, vm.Wrapf(p, err, %q)\n\t\t}\n", typeName+"."+m.ScriptName)

	hasResult := m.Result != KindUnsupported
	switch {
	case hasResult && m.ReturnsErr:
		fmt.Fprintf(&b, "\t\tr, err := %s\n\t\tif err != nil {\n%s", call, fail)
	case hasResult:
		fmt.Fprintf(&b, "\t\tr := %s\n", call)
	case m.ReturnsErr:
		fmt.Fprintf(&b, "\t\tif err := %s; err != nil {\n%s", call, fail)
	default:
		fmt.Fprintf(&b, "\t\t%s\n", call)
	}
	if hasResult {
		fmt.Fprintf(&b, "\t\treturn %s, nil\n", resultConversions[m.Result])
	} else {
		b.WriteString("\t\treturn vm.Null, nil\n")
	}
	b.WriteString("\t})\n")
	return b.String()
}

// Generate renders the wrapper source for model as gofmt-ed Go code.
func Generate(model *PackageModel) ([]byte, error) {
	var buf bytes.Buffer
	err := wrapperTemplate.Execute(&buf, map[string]any{
		"Model":   model,
		"Package": WrapperPackage(model.ImportPath),
		"Runtime": RuntimeModule,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", model.ImportPath, err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("formatting %s: %w", model.ImportPath, err)
	}
	return src, nil
}

// Write generates the wrapper for model into dir/<package>/wrap.go and
// returns the file's path.
func Write(dir string, model *PackageModel) (string, error) {
	src, err := Generate(model)
	if err != nil {
		return "", err
	}
	pkgDir := filepath.Join(dir, WrapperPackage(model.ImportPath))
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	path := filepath.Join(pkgDir, "wrap.go")
	if err := os.WriteFile(path, src, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
