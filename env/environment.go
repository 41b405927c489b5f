package env

import (
	"strings"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/eischet/janitor-sub000/compiler"
	"github.com/eischet/janitor-sub000/vm"
)

var log = commonlog.GetLogger("janitor.env")

// Environment owns the builtin tables and the sealed builtin scope shared by
// every runtime created from it. Host types registered with RegisterType are
// exposed as constructors in each new global scope.
type Environment struct {
	types  *BuiltinTypes
	scope  *vm.Scope
	onWarn func(string)

	mu         sync.RWMutex
	registered []*vm.DispatchTable
}

// Option configures an Environment.
type Option func(*Environment)

// WithWarningHandler forwards warnings to fn in addition to the log.
func WithWarningHandler(fn func(msg string)) Option {
	return func(e *Environment) { e.onWarn = fn }
}

// NewEnvironment builds the builtin tables and the builtin scope.
func NewEnvironment(opts ...Option) *Environment {
	e := &Environment{types: NewBuiltinTypes(), scope: vm.NewBuiltinScope()}
	for _, opt := range opts {
		opt(e)
	}
	e.bindBuiltins()
	e.scope.Seal()
	return e
}

// Types returns the value constructors of this environment.
func (e *Environment) Types() *BuiltinTypes { return e.types }

// Builtins returns the dispatch tables of the builtin variants.
func (e *Environment) Builtins() *vm.Builtins { return e.types.Builtins }

// BuiltinScope returns the sealed root scope.
func (e *Environment) BuiltinScope() *vm.Scope { return e.scope }

// Warn logs msg and passes it to the warning handler, if any.
func (e *Environment) Warn(msg string) {
	log.Warningf("%s", msg)
	if e.onWarn != nil {
		e.onWarn(msg)
	}
}

// Print sends output of processes run directly on the environment, such as
// filters, to the log.
func (e *Environment) Print(s string) {
	log.Infof("%s", strings.TrimRight(s, "\n"))
}

// RegisterType makes the constructor of t available to scripts under the
// table name. Only global scopes created afterwards see the type.
func (e *Environment) RegisterType(t *vm.DispatchTable) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, have := range e.registered {
		if have.Name() == t.Name() {
			e.registered[i] = t
			return
		}
	}
	e.registered = append(e.registered, t)
	log.Debugf("registered type %s", t.Name())
}

// NewGlobalScope creates a global scope for module over the builtin scope,
// with the constructors of all registered types bound.
func (e *Environment) NewGlobalScope(module *vm.ModuleInfo) *vm.Scope {
	s := vm.NewGlobalScope(e.scope, module)
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, t := range e.registered {
		if ctor := t.ConstructorFunction(); ctor != nil {
			_ = s.Bind(t.Name(), ctor)
		}
	}
	return s
}

// LenientJSON parses data as strict JSON and falls back to YAML flow syntax,
// which accepts unquoted keys, single quotes and trailing commas.
func (e *Environment) LenientJSON(data []byte) (vm.Value, error) {
	v, err := vm.FromJSON(data)
	if err == nil {
		return v, nil
	}
	if y, yerr := vm.FromYAML(data); yerr == nil {
		return y, nil
	}
	return nil, err
}

// NativeToScript converts a host value into a script value.
func (e *Environment) NativeToScript(v any) vm.Value {
	return vm.FromHost(e.types.Builtins, v)
}

// Filter decides whether a value passes a filter script.
type Filter func(v vm.Value) bool

func acceptAll(vm.Value) bool { return true }

// FilterScript compiles code into a predicate. The script sees the tested
// value as "value" and its attributes as plain names; globals may bind more
// names before each run. Empty code and code that fails to compile accept
// everything. A run that fails is reported as a warning and rejects the
// value; only a boolean true result accepts it.
func (e *Environment) FilterScript(name, code string, globals func(*vm.Scope) error) Filter {
	if strings.TrimSpace(code) == "" {
		return acceptAll
	}
	script, err := compiler.Compile(name, code)
	if err != nil {
		e.Warn("filter " + name + " does not compile, accepting all values: " + err.Error())
		return acceptAll
	}
	return func(v vm.Value) bool {
		v = vm.OrNull(v)
		scope := e.NewGlobalScope(script.Module())
		if globals != nil {
			if err := globals(scope); err != nil {
				e.Warn("filter " + name + ": " + err.Error())
				return false
			}
		}
		if err := scope.Bind("value", v); err != nil {
			e.Warn("filter " + name + ": " + err.Error())
			return false
		}
		scope.SetImplicit(v)
		result, err := script.Run(vm.NewProcess(e, script.Module()), scope)
		if err != nil {
			e.Warn("filter " + name + " failed: " + err.Error())
			return false
		}
		return result == vm.Bool(true)
	}
}
