package vm

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Runtime is what a running process needs from its host environment.
type Runtime interface {
	Builtins() *Builtins
	// Print writes script output.
	Print(s string)
	// Warn reports a non-fatal problem.
	Warn(msg string)
}

// ModuleInfo describes the source a process executes.
type ModuleInfo struct {
	Name   string
	Source string
	lines  []string
}

// NewModule creates module info for source.
func NewModule(name, source string) *ModuleInfo {
	return &ModuleInfo{Name: name, Source: source, lines: strings.Split(source, "\n")}
}

// Line returns the 1-based source line n, or "".
func (m *ModuleInfo) Line(n int) string {
	if m == nil || n < 1 || n > len(m.lines) {
		return ""
	}
	return m.lines[n-1]
}

// Frame is one entry of a traceback. A frame with Line 0 marks the start of
// a module.
type Frame struct {
	Module *ModuleInfo
	Line   int
	Column int
}

func (f Frame) String() string {
	name := "<unknown>"
	if f.Module != nil {
		name = f.Module.Name
	}
	if f.Line == 0 {
		return fmt.Sprintf("Module '%s'", name)
	}
	return fmt.Sprintf("Module '%s', line %d, column %d", name, f.Line, f.Column)
}

// SourceLine returns the source text at the frame's line.
func (f Frame) SourceLine() string {
	if f.Line == 0 {
		return ""
	}
	return f.Module.Line(f.Line)
}

// Process is one synchronous execution of a script. A process is used by a
// single goroutine at a time.
type Process struct {
	id     string
	rt     Runtime
	module *ModuleInfo
	frames []Frame
	scopes []*Scope
}

// NewProcess creates a process executing module on rt.
func NewProcess(rt Runtime, module *ModuleInfo) *Process {
	return &Process{id: uuid.NewString(), rt: rt, module: module}
}

// ID returns the unique process ID.
func (p *Process) ID() string { return p.id }

// Runtime returns the host runtime.
func (p *Process) Runtime() Runtime { return p.rt }

// Builtins returns the builtin tables of the runtime.
func (p *Process) Builtins() *Builtins { return p.rt.Builtins() }

// Module returns the module currently executing.
func (p *Process) Module() *ModuleInfo { return p.module }

// Print writes script output.
func (p *Process) Print(s string) { p.rt.Print(s) }

// Warn reports a non-fatal problem through the runtime.
func (p *Process) Warn(format string, args ...any) {
	p.rt.Warn(fmt.Sprintf(format, args...))
}

// Enter pushes a frame for the given position in the current module.
func (p *Process) Enter(line, column int) {
	p.frames = append(p.frames, Frame{Module: p.module, Line: line, Column: column})
}

// Mark moves the innermost frame to a new position in its module.
func (p *Process) Mark(line, column int) {
	if n := len(p.frames); n > 0 {
		p.frames[n-1].Line = line
		p.frames[n-1].Column = column
	}
}

// Exit pops the innermost frame.
func (p *Process) Exit() {
	if n := len(p.frames); n > 0 {
		p.frames = p.frames[:n-1]
	}
}

// SwitchModule makes m the current module, for calls into closures defined
// in another module. The returned function restores the previous module.
func (p *Process) SwitchModule(m *ModuleInfo) func() {
	prev := p.module
	p.module = m
	return func() { p.module = prev }
}

// Depth returns the number of active frames.
func (p *Process) Depth() int { return len(p.frames) }

// Trace returns a copy of the active frames, outermost first.
func (p *Process) Trace() []Frame {
	return append([]Frame(nil), p.frames...)
}

// PushScope records the scope a block is executing in.
func (p *Process) PushScope(s *Scope) { p.scopes = append(p.scopes, s) }

// PopScope undoes PushScope.
func (p *Process) PopScope() {
	if n := len(p.scopes); n > 0 {
		p.scopes = p.scopes[:n-1]
	}
}

// CurrentScope returns the innermost executing scope, or nil.
func (p *Process) CurrentScope() *Scope {
	if n := len(p.scopes); n > 0 {
		return p.scopes[n-1]
	}
	return nil
}
