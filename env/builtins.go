package env

import (
	"regexp"
	"strings"
	"time"

	"github.com/eischet/janitor-sub000/vm"
)

// BuiltinTypes extends the builtin tables with value constructors for host
// code.
type BuiltinTypes struct {
	*vm.Builtins
}

// NewBuiltinTypes creates a fresh set of builtin tables.
func NewBuiltinTypes() *BuiltinTypes {
	return &BuiltinTypes{Builtins: vm.NewBuiltins()}
}

// String returns a string value; short strings are interned.
func (b *BuiltinTypes) String(s string) vm.String { return vm.Intern(s) }

func (b *BuiltinTypes) Int(n int64) vm.Int       { return vm.Int(n) }
func (b *BuiltinTypes) Float(f float64) vm.Float { return vm.Float(f) }
func (b *BuiltinTypes) Bool(v bool) vm.Bool      { return vm.Bool(v) }

// List returns a list holding vs.
func (b *BuiltinTypes) List(vs ...vm.Value) *vm.List { return vm.NewList(vs...) }

// Set returns a set of vs.
func (b *BuiltinTypes) Set(vs ...vm.Value) *vm.Set { return vm.NewSet(vs...) }

// Map returns an empty map.
func (b *BuiltinTypes) Map() *vm.Map { return vm.NewMap() }

// Date returns the calendar date of t.
func (b *BuiltinTypes) Date(t time.Time) vm.Date { return vm.DateOf(t) }

// DateTime returns t truncated to seconds.
func (b *BuiltinTypes) DateTime(t time.Time) vm.DateTime { return vm.NewDateTime(t) }

// Duration returns n units, where unit is one of s, mi, h, d or w.
func (b *BuiltinTypes) Duration(n int64, unit string) (vm.Duration, error) {
	return vm.DurationOf(n, unit)
}

// Regex compiles pattern.
func (b *BuiltinTypes) Regex(pattern string) (vm.Value, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return b.NewRegex(re), nil
}

// Binary wraps data.
func (b *BuiltinTypes) Binary(data []byte) vm.Value { return b.NewBinary(data) }

func (e *Environment) bindBuiltins() {
	bind := func(name string, fn vm.NativeFunc) {
		_ = e.scope.Bind(name, vm.NewNativeFunction(name, fn))
	}

	bind("print", func(p *vm.Process, args *vm.CallArgs) (vm.Value, error) {
		parts := make([]string, args.Len())
		for i, v := range args.Values() {
			parts[i] = vm.Display(v)
		}
		p.Print(strings.Join(parts, " ") + "\n")
		return vm.Null, nil
	})

	bind("assert", func(p *vm.Process, args *vm.CallArgs) (vm.Value, error) {
		if err := args.Require(1, 2); err != nil {
			return nil, err
		}
		if vm.Truthy(args.Get(0)) {
			return vm.Null, nil
		}
		if args.Len() == 2 {
			return nil, vm.NewError(p, vm.AssertionError, "assertion failed: %s", vm.Display(args.Get(1)))
		}
		return nil, vm.NewError(p, vm.AssertionError, "assertion failed!")
	})

	bind("help", func(p *vm.Process, args *vm.CallArgs) (vm.Value, error) {
		if err := args.RequireExactly(1); err != nil {
			return nil, err
		}
		return helpFor(p, args.Get(0)), nil
	})

	bind("dir", func(p *vm.Process, args *vm.CallArgs) (vm.Value, error) {
		if err := args.Require(0, 1); err != nil {
			return nil, err
		}
		var names []string
		if args.Len() == 0 {
			names = visibleNames(p.CurrentScope())
		} else {
			names = vm.AttributeNames(p, args.Get(0))
		}
		out := make([]vm.Value, len(names))
		for i, n := range names {
			out[i] = vm.Intern(n)
		}
		return vm.NewList(out...), nil
	})

	bind("list", func(p *vm.Process, args *vm.CallArgs) (vm.Value, error) {
		return vm.NewList(append([]vm.Value(nil), args.Values()...)...), nil
	})
	bind("set", func(p *vm.Process, args *vm.CallArgs) (vm.Value, error) {
		return vm.NewSet(args.Values()...), nil
	})
	bind("map", func(p *vm.Process, args *vm.CallArgs) (vm.Value, error) {
		if err := args.RequireExactly(0); err != nil {
			return nil, err
		}
		return vm.NewMap(), nil
	})
	bind("now", func(p *vm.Process, args *vm.CallArgs) (vm.Value, error) {
		if err := args.RequireExactly(0); err != nil {
			return nil, err
		}
		return vm.NewDateTime(time.Now()), nil
	})
	bind("today", func(p *vm.Process, args *vm.CallArgs) (vm.Value, error) {
		if err := args.RequireExactly(0); err != nil {
			return nil, err
		}
		return vm.DateOf(time.Now()), nil
	})

	_ = e.scope.Bind("__builtin__", vm.NewModuleValue("__builtin__", e.scope))
}

// helpFor returns the help text of a method, the name of other callables, or
// the help text of the value's type.
func helpFor(p *vm.Process, v vm.Value) vm.Value {
	switch x := v.(type) {
	case *vm.BoundMethod:
		if text, ok := vm.Help.Get(x.ResolvedOn(), x.Name()); ok {
			return vm.String(text)
		}
		return vm.String(x.Name())
	case vm.Callable:
		return vm.String(x.Name())
	}
	if t := vm.TableOf(p, v); t != nil {
		if text, ok := vm.Help.GetFromTable(t); ok {
			return vm.String(text)
		}
	}
	return vm.Null
}

// visibleNames lists the names bound from scope up to, not including, the
// builtin scope.
func visibleNames(scope *vm.Scope) []string {
	seen := make(map[string]bool)
	var names []string
	for s := scope; s != nil && s.Parent() != nil; s = s.Parent() {
		for _, n := range s.Names() {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}
