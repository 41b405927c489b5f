package main

import (
	"fmt"
	"os"

	"github.com/eischet/janitor-sub000/env"
	"github.com/eischet/janitor-sub000/vm"
)

// checkCommand compiles and lints files. Warnings are printed but only
// compile errors fail the command.
func (a *app) checkCommand(files []string) int {
	if len(files) == 0 {
		fmt.Fprintln(a.stderr, "Error: check needs at least one script")
		return 2
	}
	code := 0
	for _, file := range files {
		if !a.checkFile(file) {
			code = 1
		}
	}
	return code
}

func (a *app) checkFile(file string) bool {
	source, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(a.stderr, "%s: %v\n", file, err)
		return false
	}
	warnings, err := a.env.Check(file, string(source), a.hostNames()...)
	report := func(kind, color string, ds []vm.Diagnostic) {
		for _, d := range ds {
			fmt.Fprintf(a.stdout, "%s:%d:%d: %s\n", file, d.Line, d.Column, a.paint(color, kind+": "+d.Message))
		}
	}
	report("error", red, env.Diagnostics(err))
	report("warning", yellow, warnings)
	return err == nil
}

// hostNames are the names bindHost provides.
func (a *app) hostNames() []string {
	if a.project {
		return []string{"db"}
	}
	return nil
}
