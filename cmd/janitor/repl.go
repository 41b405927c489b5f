package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/eischet/janitor-sub000/compiler"
	"github.com/eischet/janitor-sub000/env"
	"github.com/eischet/janitor-sub000/vm"
	"github.com/eischet/janitor-sub000/vm/dist"
)

// repl is an interactive session. Globals survive between inputs.
type repl struct {
	app     *app
	rt      *env.Runtime
	module  *vm.ModuleInfo
	globals *vm.Scope
	policy  *dist.TypePolicy
}

func (a *app) newREPL() (*repl, error) {
	module := vm.NewModule("<repl>", "")
	r := &repl{
		app:     a,
		rt:      env.NewRuntime(a.env, a.stdout),
		module:  module,
		globals: a.env.NewGlobalScope(module),
		policy:  dist.NewPermissivePolicy(),
	}
	if err := a.bindHost(r.globals); err != nil {
		return nil, err
	}
	return r, nil
}

func (a *app) replCommand(in io.Reader) int {
	if err := a.openStore(); err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	r, err := a.newREPL()
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(a.stdout, a.paint(bold, "Janitor REPL")+" (type 'exit' to quit, ':help' for commands)")
	r.loop(in)
	return 0
}

// pending reports whether input has unclosed brackets and needs more lines.
func pending(input string) bool {
	depth := 0
	var quote rune
	escaped := false
	for _, ch := range input {
		switch {
		case escaped:
			escaped = false
		case quote != 0:
			if ch == '\\' {
				escaped = true
			} else if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '(' || ch == '[' || ch == '{':
			depth++
		case ch == ')' || ch == ']' || ch == '}':
			depth--
		}
	}
	return depth > 0
}

func (r *repl) loop(in io.Reader) {
	out := r.app.stdout
	scanner := bufio.NewScanner(in)
	var buf strings.Builder

	for {
		if buf.Len() == 0 {
			fmt.Fprint(out, ">> ")
		} else {
			fmt.Fprint(out, ".. ")
		}
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()

		if buf.Len() == 0 {
			trimmed := strings.TrimSpace(line)
			if trimmed == "exit" || trimmed == "quit" {
				break
			}
			if strings.HasPrefix(trimmed, ":") {
				if !r.command(trimmed) {
					break
				}
				continue
			}
		}

		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(line)
		if pending(buf.String()) {
			continue
		}
		input := strings.TrimSpace(buf.String())
		buf.Reset()
		if input != "" {
			r.eval(input)
		}
	}
	fmt.Fprintln(out)
}

func (r *repl) eval(input string) {
	script, err := r.rt.Compile("<repl>", input)
	if err == nil {
		var v vm.Value
		v, err = script.RunIn(r.globals)
		if err == nil {
			if v != vm.Null && echoes(script) {
				fmt.Fprintln(r.app.stdout, vm.Display(v))
			}
			return
		}
	}
	r.app.reportError("<repl>", err)
}

// echoes reports whether the value of s should be printed. Assignments and
// statements other than expressions stay quiet.
func echoes(s *env.Script) bool {
	stmts := s.Compiled().Program().Statements
	if len(stmts) == 0 {
		return false
	}
	es, ok := stmts[len(stmts)-1].(*compiler.ExprStmt)
	if !ok {
		return false
	}
	_, assign := es.Expr.(*compiler.AssignExpr)
	return !assign
}

// command runs a ':' command and reports whether the session continues.
func (r *repl) command(line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	out := r.app.stdout

	switch name {
	case ":help", ":h", ":?":
		fmt.Fprintln(out, "REPL Commands:")
		fmt.Fprintln(out, "  :help, :h, :?     Show this help")
		fmt.Fprintln(out, "  :vars             List the session's globals")
		fmt.Fprintln(out, "  :types            List registered types")
		fmt.Fprintln(out, "  :check SOURCE     Lint SOURCE against the session")
		fmt.Fprintln(out, "  :save FILE        Save the session's globals")
		fmt.Fprintln(out, "  :load FILE        Restore globals saved with :save")
		fmt.Fprintln(out, "  :quit, exit       Exit REPL")
	case ":vars":
		names := r.globals.Names()
		sort.Strings(names)
		for _, n := range names {
			v, _ := r.globals.RetrieveLocal(n)
			fmt.Fprintf(out, "%s: %s\n", n, v.TypeName())
		}
	case ":types":
		for _, t := range r.app.env.RegisteredTypes() {
			fmt.Fprintln(out, t.Name())
		}
	case ":check":
		warnings, err := r.app.env.Check("<repl>", arg, r.globals.Names()...)
		if err != nil {
			r.app.reportError("<repl>", err)
			break
		}
		for _, d := range warnings {
			fmt.Fprintln(out, r.app.paint(yellow, "warning: "+d.Message))
		}
		if len(warnings) == 0 {
			fmt.Fprintln(out, "ok")
		}
	case ":save":
		if err := r.save(arg); err != nil {
			fmt.Fprintf(r.app.stderr, "Error: %v\n", err)
		}
	case ":load":
		if err := r.load(arg); err != nil {
			fmt.Fprintf(r.app.stderr, "Error: %v\n", err)
		}
	case ":quit", ":q":
		return false
	default:
		fmt.Fprintf(out, "Unknown command: %s (try :help)\n", name)
	}
	return true
}

func (r *repl) process() *vm.Process {
	return vm.NewProcess(r.rt, r.module)
}

func (r *repl) save(path string) error {
	if path == "" {
		return fmt.Errorf(":save needs a file name")
	}
	snap, err := dist.Capture(r.process(), r.globals)
	if err != nil {
		return err
	}
	data, err := dist.MarshalSnapshot(snap)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(r.app.stdout, "saved %d globals to %s\n", len(snap.Bindings), path)
	if len(snap.Skipped) > 0 {
		fmt.Fprintf(r.app.stdout, "not saved: %s\n", strings.Join(snap.Skipped, ", "))
	}
	return nil
}

func (r *repl) load(path string) error {
	if path == "" {
		return fmt.Errorf(":load needs a file name")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	snap, err := dist.UnmarshalSnapshot(data)
	if err != nil {
		return err
	}
	if err := r.policy.Check(snap); err != nil {
		return err
	}
	if err := dist.Restore(r.process(), snap, r.globals, r.policy.Lookup(r.app.env.RegisteredType)); err != nil {
		return err
	}
	fmt.Fprintf(r.app.stdout, "restored %d globals from %s\n", len(snap.Bindings), path)
	return nil
}
