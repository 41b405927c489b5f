// Janitor CLI: runs, checks and serves scripts.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/eischet/janitor-sub000/env"
	"github.com/eischet/janitor-sub000/manifest"
	"github.com/eischet/janitor-sub000/store"
	"github.com/eischet/janitor-sub000/vm"
)

var log = commonlog.GetLogger("janitor.cmd")

// app holds what every subcommand needs.
type app struct {
	manifest *manifest.Manifest
	project  bool // a janitor.toml was found
	env      *env.Environment
	store    *store.Store
	color    bool
	stdout   io.Writer
	stderr   io.Writer
}

func newApp(dir string, stdout, stderr io.Writer) (*app, error) {
	m, err := manifest.FindAndLoad(dir)
	if err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}
	a := &app{manifest: m, project: m != nil, stdout: stdout, stderr: stderr}
	if m == nil {
		a.manifest = manifest.Default(dir)
	}
	a.env = env.NewEnvironment(env.WithWarningHandler(func(msg string) {
		fmt.Fprintln(a.stderr, a.paint(yellow, "warning: "+msg))
	}))

	switch a.manifest.Runtime.Color {
	case "always":
		a.color = true
	case "never":
	default:
		if f, ok := stdout.(*os.File); ok {
			a.color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
	}
	return a, nil
}

// openStore connects the project's object store. Only projects get one, so
// that running a loose script never creates a database file.
func (a *app) openStore() error {
	if !a.project || a.store != nil {
		return nil
	}
	s, err := store.Open(a.manifest.Store.Driver, a.manifest.StoreDSN())
	if err != nil {
		return err
	}
	a.store = s
	return nil
}

// bindHost binds the host values every script sees.
func (a *app) bindHost(scope *vm.Scope) error {
	if a.store != nil {
		return scope.Bind("db", a.store.ScriptValue())
	}
	return nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Errorf("closing store: %s", err)
		}
		a.store = nil
	}
}

const (
	red    = "31"
	yellow = "33"
	bold   = "1"
)

func (a *app) paint(code, s string) string {
	if !a.color {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: janitor [options] <command> [arguments]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  run [-j N] files...      Run scripts, up to N at a time\n")
	fmt.Fprintf(os.Stderr, "  check files...           Compile and lint scripts without running them\n")
	fmt.Fprintf(os.Stderr, "  repl                     Start an interactive session\n")
	fmt.Fprintf(os.Stderr, "  serve [-addr host:port]  Serve the script service over gRPC and Connect\n")
	fmt.Fprintf(os.Stderr, "  lsp                      Start the language server on stdio\n")
	fmt.Fprintf(os.Stderr, "  remote [-addr] method [source]  Call a running script service\n")
	fmt.Fprintf(os.Stderr, "  wrap [-o dir] [packages...]     Generate wrapper tables for Go packages\n")
	fmt.Fprintf(os.Stderr, "\nOptions:\n")
	flag.PrintDefaults()
}

func main() {
	verbosity := flag.Int("v", -1, "Log verbosity (0-2); overrides runtime.log-level")
	dir := flag.String("C", ".", "Project directory to search for janitor.toml")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	a, err := newApp(*dir, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	level := a.manifest.Runtime.LogLevel
	if *verbosity >= 0 {
		level = *verbosity
	}
	commonlog.Configure(level, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	var code int
	switch cmd {
	case "run":
		code = a.runCommand(ctx, args)
	case "check":
		code = a.checkCommand(args)
	case "repl":
		code = a.replCommand(os.Stdin)
	case "serve":
		code = a.serveCommand(ctx, args)
	case "lsp":
		code = a.lspCommand()
	case "remote":
		code = a.remoteCommand(ctx, args)
	case "wrap":
		code = a.wrapCommand(args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", cmd)
		usage()
		code = 2
	}
	stop()
	a.close()
	os.Exit(code)
}
