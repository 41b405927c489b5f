package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eischet/janitor-sub000/server"
)

func (a *app) serveCommand(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	addr := fs.String("addr", a.manifest.Server.Address, "Address to listen on")
	ttl := fs.Duration("session-ttl", 30*time.Minute, "Idle time after which sessions are dropped")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *ttl < time.Minute {
		fmt.Fprintln(a.stderr, "Error: -session-ttl must be at least a minute")
		return 2
	}

	l, err := net.Listen("tcp", *addr)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	srv := server.New(a.env, server.WithSessionTTL(*ttl/4, *ttl))
	defer srv.Stop()

	done := make(chan error, 1)
	go func() { done <- srv.Serve(l) }()

	select {
	case err = <-done:
	case <-ctx.Done():
		log.Infof("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err = srv.Shutdown(shutdownCtx)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(a.stderr, "Server error: %v\n", err)
		return 1
	}
	return 0
}

func (a *app) lspCommand() int {
	if err := server.NewLSP(a.env).Run(); err != nil {
		fmt.Fprintf(a.stderr, "Language server error: %v\n", err)
		return 1
	}
	return 0
}

// remoteCommand calls a method of a running script service. The source
// argument of Eval and Check may be "-" to read stdin.
func (a *app) remoteCommand(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("remote", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	addr := fs.String("addr", a.manifest.Server.Address, "Address of the script service")
	session := fs.String("session", "", "Session to evaluate in")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	c, err := server.Dial(ctx, *addr)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	defer c.Close()

	if fs.NArg() == 0 {
		fmt.Fprintf(a.stdout, "%s: %s\n", server.ScriptServiceName, strings.Join(c.Methods(), ", "))
		return 0
	}

	fields, err := remoteRequest(fs.Arg(0), fs.Args()[1:], *session, os.Stdin)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 2
	}
	res, err := c.Call(ctx, fs.Arg(0), fields)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	return a.printRemote(res)
}

// remoteRequest builds the request fields of method from positional args.
func remoteRequest(method string, args []string, session string, stdin io.Reader) (map[string]any, error) {
	fields := make(map[string]any)
	if session != "" {
		fields["session"] = session
	}
	switch method {
	case server.MethodEval, server.MethodCheck:
		if len(args) != 1 {
			return nil, fmt.Errorf("%s needs one source argument", method)
		}
		source := args[0]
		if source == "-" {
			data, err := io.ReadAll(stdin)
			if err != nil {
				return nil, err
			}
			source = string(data)
		}
		fields["source"] = source
	case server.MethodCreateSession:
		if len(args) > 0 {
			fields["name"] = args[0]
		}
	case server.MethodDestroySession:
		if len(args) != 1 {
			return nil, fmt.Errorf("%s needs a session ID", method)
		}
		fields["session"] = args[0]
	}
	return fields, nil
}

func (a *app) printRemote(res map[string]any) int {
	if _, ok := res["success"]; ok {
		fmt.Fprint(a.stdout, res["output"])
		if res["success"] != true {
			if tb, ok := res["traceback"].(string); ok && tb != "" {
				fmt.Fprintln(a.stderr, a.paint(red, tb))
			} else {
				fmt.Fprintln(a.stderr, a.paint(red, fmt.Sprint(res["error"])))
			}
			return 1
		}
		if res["kind"] != "null" {
			fmt.Fprintln(a.stdout, res["result"])
		}
		return 0
	}
	data, err := yaml.Marshal(res)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprint(a.stdout, string(data))
	return 0
}
