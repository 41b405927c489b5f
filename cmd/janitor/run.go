package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/eischet/janitor-sub000/env"
	"github.com/eischet/janitor-sub000/vm"
)

// runResult is the outcome of one script run.
type runResult struct {
	output string
	err    error
}

func (a *app) runCommand(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	jobs := fs.Int("j", runtime.GOMAXPROCS(0), "Maximum number of scripts running at once")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(a.stderr, "Error: run needs at least one script")
		return 2
	}
	if err := a.openStore(); err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}

	results, err := a.runFiles(ctx, fs.Args(), *jobs)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	failed := 0
	for i, r := range results {
		fmt.Fprint(a.stdout, r.output)
		if r.err != nil {
			failed++
			a.reportError(fs.Arg(i), r.err)
		}
	}
	if failed > 0 {
		return 1
	}
	return 0
}

// runFiles runs each file in its own global scope, at most jobs at a time.
// Results come back in argument order with each script's output kept
// whole. A script failing does not stop the others; a cancelled context
// does.
func (a *app) runFiles(ctx context.Context, files []string, jobs int) ([]runResult, error) {
	results := make([]runResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = a.runFile(file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (a *app) runFile(file string) runResult {
	source, err := os.ReadFile(file)
	if err != nil {
		return runResult{err: err}
	}
	var out bytes.Buffer
	rt := env.NewRuntime(a.env, &out)
	script, err := rt.Compile(file, string(source))
	if err != nil {
		return runResult{err: err}
	}
	log.Debugf("running %s", file)
	_, err = script.Run(a.bindHost)
	return runResult{output: out.String(), err: err}
}

// reportError prints a script error with its traceback.
func (a *app) reportError(file string, err error) {
	var se *vm.Error
	if errors.As(err, &se) {
		if len(se.Diagnostics) > 0 {
			for _, d := range se.Diagnostics {
				fmt.Fprintf(a.stderr, "%s:%d:%d: %s\n", file, d.Line, d.Column, a.paint(red, "error: "+d.Message))
			}
			return
		}
		fmt.Fprintln(a.stderr, a.paint(red, se.Traceback()))
		return
	}
	fmt.Fprintf(a.stderr, "%s: %s\n", file, a.paint(red, err.Error()))
}
