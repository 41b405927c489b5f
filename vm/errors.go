package vm

import (
	"errors"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Runtime error taxonomy
// ---------------------------------------------------------------------------

// ErrorClass identifies the kind of a script failure. An ErrorClass is
// itself an error, so errors.Is(err, vm.NameError) tests the class of any
// error chain that contains an *Error.
type ErrorClass uint8

const (
	CompileError ErrorClass = iota + 1
	NameError
	TypeError
	ArgumentError
	NativeError
	ScriptThrownError
	AssertionError
	ArithmeticError
)

var errorClassNames = map[ErrorClass]string{
	CompileError:      "CompileError",
	NameError:         "NameError",
	TypeError:         "TypeError",
	ArgumentError:     "ArgumentError",
	NativeError:       "NativeError",
	ScriptThrownError: "ScriptThrownError",
	AssertionError:    "AssertionError",
	ArithmeticError:   "ArithmeticError",
}

func (c ErrorClass) String() string {
	if name, ok := errorClassNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorClass(%d)", c)
}

func (c ErrorClass) Error() string { return c.String() }

// Diagnostic is one compiler complaint with its source position.
type Diagnostic struct {
	Line    int
	Column  int
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d, column %d: %s", d.Line, d.Column, d.Message)
}

// Error is a script failure. Runtime errors carry the traceback of the
// process that raised them.
type Error struct {
	Class   ErrorClass
	Message string
	// Cause is the host error behind a NativeError.
	Cause error
	// Thrown is the value passed to a script throw.
	Thrown Value
	// Trace lists the active frames when the error was raised, outermost
	// first.
	Trace []Frame
	// Diagnostics are set on compile errors.
	Diagnostics []Diagnostic
	// Process is the ID of the raising process.
	Process string
}

// NewError creates an error of the given class. p may be nil when no
// process is running, in which case the error has no traceback.
func NewError(p *Process, class ErrorClass, format string, args ...any) *Error {
	e := &Error{Class: class, Message: fmt.Sprintf(format, args...)}
	if p != nil {
		e.Trace = p.Trace()
		e.Process = p.ID()
	}
	return e
}

// Native wraps a host error as a NativeError. Script errors pass through
// unchanged.
func Native(p *Process, err error) *Error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	e := NewError(p, NativeError, "%s", err.Error())
	e.Cause = err
	return e
}

// Wrapf wraps a host error as a NativeError with a message prefix. The
// cause stays reachable through errors.Unwrap.
func Wrapf(p *Process, err error, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	e := NewError(p, NativeError, "%s: %s", fmt.Sprintf(format, args...), err.Error())
	e.Cause = err
	return e
}

// Thrown creates the error raised by a script throw statement.
func Thrown(p *Process, v Value) *Error {
	if ev, ok := v.(*ErrorValue); ok {
		return ev.err
	}
	e := NewError(p, ScriptThrownError, "%s", Display(v))
	e.Thrown = v
	return e
}

// NewCompileError bundles parser diagnostics for a module.
func NewCompileError(module string, diags []Diagnostic) *Error {
	msg := fmt.Sprintf("module '%s' failed to compile", module)
	if len(diags) > 0 {
		msg = fmt.Sprintf("module '%s', %s", module, diags[0])
		if len(diags) > 1 {
			msg += fmt.Sprintf(" (and %d more)", len(diags)-1)
		}
	}
	return &Error{Class: CompileError, Message: msg, Diagnostics: diags}
}

func (e *Error) Error() string { return e.Class.String() + ": " + e.Message }

func (e *Error) Unwrap() error { return e.Cause }

// Is matches an ErrorClass target against the error's class.
func (e *Error) Is(target error) bool {
	c, ok := target.(ErrorClass)
	return ok && c == e.Class
}

// Traceback renders the error with the frames that were active when it was
// raised.
func (e *Error) Traceback() string {
	var b strings.Builder
	b.WriteString("Traceback (most recent call last):\n")
	for _, f := range e.Trace {
		b.WriteString("  ")
		b.WriteString(f.String())
		b.WriteByte('\n')
		if src := f.SourceLine(); src != "" {
			b.WriteString("    ")
			b.WriteString(strings.TrimSpace(src))
			b.WriteByte('\n')
		}
	}
	for _, d := range e.Diagnostics {
		b.WriteString("  ")
		b.WriteString(d.String())
		b.WriteByte('\n')
	}
	b.WriteString(e.Error())
	if e.Cause != nil {
		fmt.Fprintf(&b, "\n caused by %v", e.Cause)
	}
	return b.String()
}

// ClassOf returns the class of a script error, NativeError for any other
// non-nil error and 0 for nil.
func ClassOf(err error) ErrorClass {
	if err == nil {
		return 0
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Class
	}
	return NativeError
}

// ---------------------------------------------------------------------------
// ErrorValue: caught errors as script values
// ---------------------------------------------------------------------------

// ErrorValue exposes a caught error to scripts.
type ErrorValue struct {
	err *Error
}

// NewErrorValue wraps err for use in a catch block.
func NewErrorValue(err *Error) *ErrorValue { return &ErrorValue{err: err} }

func (v *ErrorValue) Kind() Kind       { return KindError }
func (v *ErrorValue) TypeName() string { return "exception" }
func (v *ErrorValue) IsTruthy() bool   { return true }
func (v *ErrorValue) String() string   { return v.err.Error() }
func (v *ErrorValue) HostValue() any   { return v.err }

// Err returns the wrapped error.
func (v *ErrorValue) Err() *Error { return v.err }

func (v *ErrorValue) GetAttribute(p *Process, name string, required bool) (Value, error) {
	switch name {
	case "message":
		return String(v.err.Message), nil
	case "type":
		return String(v.err.Class.String()), nil
	case "traceback":
		return String(v.err.Traceback()), nil
	case "value":
		return OrNull(v.err.Thrown), nil
	}
	return nil, nil
}
