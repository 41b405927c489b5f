package vm

import (
	"errors"
	"fmt"
	"testing"
)

func TestTracebackFormat(t *testing.T) {
	rt := &testRuntime{}
	p := NewProcess(rt, NewModule("demo", "a = 1\n  b = c\n"))
	p.Enter(0, 0)
	p.Enter(2, 7)
	err := NewError(p, NameError, "name '%s' is not defined", "c")
	p.Exit()
	p.Exit()

	want := "Traceback (most recent call last):\n" +
		"  Module 'demo'\n" +
		"  Module 'demo', line 2, column 7\n" +
		"    b = c\n" +
		"NameError: name 'c' is not defined"
	if got := err.Traceback(); got != want {
		t.Errorf("Traceback() =\n%s\nwant\n%s", got, want)
	}
	if p.Depth() != 0 {
		t.Errorf("Depth() = %d after Exit, want 0", p.Depth())
	}
}

func TestNativeWrapsHostErrors(t *testing.T) {
	p, _ := newTestProcess()
	cause := fmt.Errorf("disk full")
	err := Native(p, cause)
	if err.Class != NativeError || !errors.Is(err, cause) {
		t.Errorf("Native() = %v, want NativeError wrapping cause", err)
	}
	if ClassOf(fmt.Errorf("wrapped: %w", err)) != NativeError {
		t.Error("ClassOf does not see through wrapping")
	}

	script := NewError(p, TypeError, "bad")
	if Native(p, script) != script {
		t.Error("Native re-wrapped a script error")
	}
}

func TestThrownKeepsValue(t *testing.T) {
	p, _ := newTestProcess()
	err := Thrown(p, Int(42))
	if err.Class != ScriptThrownError || err.Thrown != Int(42) {
		t.Errorf("Thrown = %+v", err)
	}
	ev := NewErrorValue(err)
	if v, _ := GetAttribute(p, ev, "value", true); v != Int(42) {
		t.Errorf("e.value = %v, want 42", v)
	}
	if v, _ := GetAttribute(p, ev, "type", true); v != String("ScriptThrownError") {
		t.Errorf("e.type = %v", v)
	}
	// Rethrowing a caught error keeps the original.
	if Thrown(p, ev) != err {
		t.Error("Thrown(ErrorValue) did not return the wrapped error")
	}
}

func TestCompileErrorListsDiagnostics(t *testing.T) {
	err := NewCompileError("m", []Diagnostic{
		{Line: 1, Column: 3, Message: "unexpected '}'"},
		{Line: 4, Column: 1, Message: "missing ')'"},
	})
	if !errors.Is(err, CompileError) {
		t.Fatalf("class = %v", err.Class)
	}
	if want := "CompileError: module 'm', line 1, column 3: unexpected '}' (and 1 more)"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
