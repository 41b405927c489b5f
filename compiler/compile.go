package compiler

import (
	"github.com/tliron/commonlog"

	"github.com/eischet/janitor-sub000/vm"
)

var log = commonlog.GetLogger("janitor.compiler")

// Script is a compiled module. A script holds no run state and may be run
// any number of times, also concurrently on different processes.
type Script struct {
	module  *vm.ModuleInfo
	program *Program
}

// Compile parses source as the module name. All syntax errors are reported
// together in one CompileError.
func Compile(module, source string) (*Script, error) {
	prog, diags := Parse(source)
	if len(diags) > 0 {
		log.Debugf("module %s: %d diagnostics", module, len(diags))
		return nil, vm.NewCompileError(module, diags)
	}
	return &Script{module: vm.NewModule(module, source), program: prog}, nil
}

// Module returns the module info used for tracebacks.
func (s *Script) Module() *vm.ModuleInfo { return s.module }

// Program returns the parsed program.
func (s *Script) Program() *Program { return s.program }

// Run executes the script on p with globals as its global scope. The result
// is the value of the last statement executed, or the value of a top-level
// return.
func (s *Script) Run(p *vm.Process, globals *vm.Scope) (vm.Value, error) {
	if p.Module() != s.module {
		defer p.SwitchModule(s.module)()
	}
	p.Enter(0, 0)
	defer p.Exit()
	p.Enter(1, 1)
	defer p.Exit()

	_, result, err := execBlock(p, globals, s.program.Statements)
	if err != nil {
		return nil, vm.Native(p, err)
	}
	return vm.OrNull(result), nil
}
