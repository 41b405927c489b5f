package env

import (
	"errors"

	"github.com/eischet/janitor-sub000/compiler"
	"github.com/eischet/janitor-sub000/vm"
)

// RegisteredTypes returns the registered host types in registration order.
func (e *Environment) RegisteredTypes() []*vm.DispatchTable {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*vm.DispatchTable(nil), e.registered...)
}

// RegisteredType returns the registered type called name, or nil.
func (e *Environment) RegisteredType(name string) *vm.DispatchTable {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, t := range e.registered {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

func (e *Environment) isBuiltin(name string) bool {
	_, ok := e.scope.RetrieveLocal(name)
	return ok
}

func (e *Environment) isKnown(name string) bool {
	return e.isBuiltin(name) || e.RegisteredType(name) != nil
}

// Check compiles source without running it. Syntax errors come back as
// the error, a *vm.Error with Diagnostics; warnings come from the linter.
// extra names, such as host globals, are treated as bound.
func (e *Environment) Check(name, source string, extra ...string) ([]vm.Diagnostic, error) {
	script, err := compiler.Compile(name, source)
	if err != nil {
		return nil, err
	}
	known := e.isKnown
	if len(extra) > 0 {
		set := make(map[string]bool, len(extra))
		for _, n := range extra {
			set[n] = true
		}
		known = func(n string) bool { return set[n] || e.isKnown(n) }
	}
	return compiler.NewLinter(known, e.isBuiltin).Lint(script.Program()), nil
}

// Diagnostics returns the positioned messages of a compile error, or a
// single unpositioned one for any other error.
func Diagnostics(err error) []vm.Diagnostic {
	if err == nil {
		return nil
	}
	var se *vm.Error
	if errors.As(err, &se) && len(se.Diagnostics) > 0 {
		return se.Diagnostics
	}
	return []vm.Diagnostic{{Message: err.Error()}}
}
