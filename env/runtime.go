package env

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/eischet/janitor-sub000/compiler"
	"github.com/eischet/janitor-sub000/vm"
)

// Runtime compiles and runs scripts against an environment, writing script
// output to a sink.
type Runtime struct {
	env *Environment

	mu  sync.Mutex
	out io.Writer
}

// NewRuntime creates a runtime printing to out, or to stdout when out is nil.
func NewRuntime(e *Environment, out io.Writer) *Runtime {
	if out == nil {
		out = os.Stdout
	}
	return &Runtime{env: e, out: out}
}

// Environment returns the environment the runtime runs in.
func (r *Runtime) Environment() *Environment { return r.env }

func (r *Runtime) Builtins() *vm.Builtins { return r.env.Builtins() }

func (r *Runtime) Print(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := io.WriteString(r.out, s); err != nil {
		log.Errorf("script output: %s", err)
	}
}

func (r *Runtime) Warn(msg string) { r.env.Warn(msg) }

// Script is a compiled script bound to a runtime.
type Script struct {
	rt       *Runtime
	compiled *compiler.Script
}

// Compile compiles source as the module name.
func (r *Runtime) Compile(name, source string) (*Script, error) {
	compiled, err := compiler.Compile(name, source)
	if err != nil {
		return nil, err
	}
	return &Script{rt: r, compiled: compiled}, nil
}

// Module returns the module the script was compiled as.
func (s *Script) Module() *vm.ModuleInfo { return s.compiled.Module() }

// Compiled returns the underlying compiled program.
func (s *Script) Compiled() *compiler.Script { return s.compiled }

// Run executes the script in a fresh global scope. prepare, if not nil, may
// bind host values into the scope first.
func (s *Script) Run(prepare func(*vm.Scope) error) (vm.Value, error) {
	v, _, err := s.RunAndKeepGlobals(prepare)
	return v, err
}

// RunAndKeepGlobals is Run but also returns the global scope, so hosts can
// pull out functions the script defined and call them later.
func (s *Script) RunAndKeepGlobals(prepare func(*vm.Scope) error) (vm.Value, *vm.Scope, error) {
	globals := s.rt.env.NewGlobalScope(s.Module())
	if prepare != nil {
		if err := prepare(globals); err != nil {
			return nil, globals, vm.Native(nil, err)
		}
	}
	v, err := s.RunIn(globals)
	return v, globals, err
}

// RunIn executes the script in an existing global scope, for hosts that
// keep state between runs.
func (s *Script) RunIn(globals *vm.Scope) (vm.Value, error) {
	return s.compiled.Run(vm.NewProcess(s.rt, s.Module()), globals)
}

// Call invokes a script function on a new process, for callbacks obtained
// from RetrieveLocal.
func (r *Runtime) Call(fn vm.Value, args ...vm.Value) (vm.Value, error) {
	var module *vm.ModuleInfo
	if s := closureScope(fn); s != nil {
		module = s.Module()
	}
	if module == nil {
		module = vm.NewModule("<callback>", "")
	}
	p := vm.NewProcess(r, module)
	p.Enter(0, 0)
	defer p.Exit()
	v, err := vm.Call(p, fn, args...)
	if err != nil {
		return nil, vm.Native(p, err)
	}
	return vm.OrNull(v), nil
}

func closureScope(fn vm.Value) *vm.Scope {
	if c, ok := fn.(*vm.Closure); ok {
		return c.Scope()
	}
	return nil
}

// OutputCatchingRuntime is a Runtime that records all script output.
type OutputCatchingRuntime struct {
	*Runtime
	buf *strings.Builder
}

// NewOutputCatchingRuntime creates a runtime whose output is kept in memory.
func NewOutputCatchingRuntime(e *Environment) *OutputCatchingRuntime {
	buf := new(strings.Builder)
	return &OutputCatchingRuntime{Runtime: NewRuntime(e, buf), buf: buf}
}

// AllOutput returns everything printed since the last reset.
func (r *OutputCatchingRuntime) AllOutput() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}

// ResetOutput discards recorded output.
func (r *OutputCatchingRuntime) ResetOutput() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf.Reset()
}
