package gowrap

import (
	"fmt"
	"go/build"
	"go/types"
	"sort"

	"golang.org/x/mod/module"
	"golang.org/x/tools/go/packages"
)

// Introspect loads a Go package by import path and returns the struct
// types it can wrap. include, if not empty, restricts the type names.
func Introspect(importPath string, include []string) (*PackageModel, error) {
	if !build.IsLocalImport(importPath) {
		if err := module.CheckImportPath(importPath); err != nil {
			return nil, err
		}
	}
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes,
	}

	pkgs, err := packages.Load(cfg, importPath)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", importPath, err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found for %s", importPath)
	}
	if len(pkgs[0].Errors) > 0 {
		return nil, fmt.Errorf("package errors: %v", pkgs[0].Errors)
	}

	pkg := pkgs[0]
	if pkg.Types == nil {
		return nil, fmt.Errorf("type information not available for %s", importPath)
	}

	model := &PackageModel{
		ImportPath: pkg.PkgPath,
		Name:       pkg.Name,
	}

	scope := pkg.Types.Scope()
	names := include
	if len(names) == 0 {
		names = scope.Names()
	}
	for _, name := range names {
		obj := scope.Lookup(name)
		if obj == nil {
			return nil, fmt.Errorf("%s has no type %s", importPath, name)
		}
		tn, ok := obj.(*types.TypeName)
		if !ok || !tn.Exported() {
			if len(include) > 0 {
				return nil, fmt.Errorf("%s.%s is not an exported type", importPath, name)
			}
			continue
		}
		tm := extractType(tn, model)
		if tm == nil {
			if len(include) > 0 {
				return nil, fmt.Errorf("%s.%s is not a struct type", importPath, name)
			}
			continue
		}
		model.Types = append(model.Types, *tm)
	}
	sort.Slice(model.Types, func(i, j int) bool { return model.Types[i].Name < model.Types[j].Name })
	return model, nil
}

func extractType(tn *types.TypeName, model *PackageModel) *TypeModel {
	named, ok := tn.Type().(*types.Named)
	if !ok || named.TypeParams().Len() > 0 {
		return nil
	}
	st, ok := named.Underlying().(*types.Struct)
	if !ok {
		return nil
	}

	tm := &TypeModel{Name: tn.Name()}
	taken := make(map[string]bool)
	skip := func(member, reason string) {
		model.Skipped = append(model.Skipped, tn.Name()+"."+member+": "+reason)
	}

	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		if !f.Exported() || f.Embedded() {
			continue
		}
		kind := kindOf(f.Type())
		if kind == KindUnsupported {
			skip(f.Name(), "field type "+f.Type().String())
			continue
		}
		name := ScriptName(f.Name())
		taken[name] = true
		tm.Fields = append(tm.Fields, FieldModel{
			GoName:     f.Name(),
			ScriptName: name,
			Kind:       kind,
			GoType:     types.TypeString(f.Type(), nil),
		})
	}

	mset := types.NewMethodSet(types.NewPointer(named))
	for i := 0; i < mset.Len(); i++ {
		sel := mset.At(i)
		fn, ok := sel.Obj().(*types.Func)
		if !ok || !fn.Exported() {
			continue
		}
		// Promoted methods belong to the embedded type.
		if len(sel.Index()) > 1 {
			continue
		}
		mm, reason := extractMethod(fn)
		if mm == nil {
			skip(fn.Name(), reason)
			continue
		}
		if taken[mm.ScriptName] {
			skip(fn.Name(), "name clashes with field "+mm.ScriptName)
			continue
		}
		taken[mm.ScriptName] = true
		tm.Methods = append(tm.Methods, *mm)
	}
	return tm
}

func extractMethod(fn *types.Func) (*MethodModel, string) {
	sig := fn.Type().(*types.Signature)
	if sig.Variadic() {
		return nil, "variadic"
	}
	mm := &MethodModel{GoName: fn.Name(), ScriptName: ScriptName(fn.Name())}

	params := sig.Params()
	for i := 0; i < params.Len(); i++ {
		pt := params.At(i).Type()
		k := kindOf(pt)
		if k == KindUnsupported || k == KindStringList {
			return nil, "parameter type " + pt.String()
		}
		mm.Params = append(mm.Params, ParamModel{Kind: k, GoType: types.TypeString(pt, nil)})
	}

	results := sig.Results()
	n := results.Len()
	if n > 0 && isErrorType(results.At(n-1).Type()) {
		mm.ReturnsErr = true
		n--
	}
	switch n {
	case 0:
	case 1:
		mm.Result = kindOf(results.At(0).Type())
		if mm.Result == KindUnsupported {
			return nil, "result type " + results.At(0).Type().String()
		}
	default:
		return nil, "multiple results"
	}
	return mm, ""
}

// kindOf maps unnamed basic types and []string. Named types such as
// time.Duration are left out; converting them needs the type's package.
func kindOf(t types.Type) Kind {
	switch u := types.Unalias(t).(type) {
	case *types.Basic:
		info := u.Info()
		switch {
		case u.Kind() == types.String:
			return KindString
		case u.Kind() == types.Bool:
			return KindBool
		case info&types.IsInteger != 0 && u.Kind() != types.Uintptr:
			return KindInt
		case info&types.IsFloat != 0:
			return KindFloat
		}
	case *types.Slice:
		if b, ok := u.Elem().(*types.Basic); ok && b.Kind() == types.String {
			return KindStringList
		}
	}
	return KindUnsupported
}

func isErrorType(t types.Type) bool {
	return types.Identical(t, types.Universe.Lookup("error").Type())
}
