package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/eischet/janitor-sub000/env"
)

func mustStruct(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func newTestService(t *testing.T) *ScriptService {
	t.Helper()
	e := testEnvironment()
	w := NewWorker(e)
	t.Cleanup(w.Stop)
	return NewScriptService(w, NewSessionStore(e))
}

// ---------------------------------------------------------------------------
// Worker
// ---------------------------------------------------------------------------

func TestWorkerRecoversPanics(t *testing.T) {
	w := NewWorker(env.NewEnvironment())
	defer w.Stop()

	if _, err := w.Do(func(*env.Environment) (any, error) { panic("boom") }); err == nil || err.Error() != "boom" {
		t.Errorf("Do(panic) error = %v, want boom", err)
	}
	v, err := w.Do(func(*env.Environment) (any, error) { return 42, nil })
	if err != nil || v != 42 {
		t.Errorf("Do = %v, %v, want 42 after a panic", v, err)
	}
}

func TestWorkerStopped(t *testing.T) {
	w := NewWorker(env.NewEnvironment())
	w.Stop()
	if _, err := w.Do(func(*env.Environment) (any, error) { return nil, nil }); !errors.Is(err, ErrStopped) {
		t.Errorf("Do after Stop error = %v, want ErrStopped", err)
	}
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

func TestSessionStore(t *testing.T) {
	store := NewSessionStore(env.NewEnvironment())

	a := store.Create("a")
	b := store.Create("")
	if a.ID == b.ID {
		t.Error("two sessions should have different IDs")
	}
	if got, ok := store.Get(a.ID); !ok || got.Name != "a" {
		t.Errorf("Get(a) = %v, %v", got, ok)
	}
	if !store.Destroy(b.ID) || store.Destroy(b.ID) {
		t.Error("Destroy should report true once")
	}

	a.lastUsed = time.Now().Add(-time.Hour)
	if n := store.Sweep(time.Minute); n != 1 || store.Len() != 0 {
		t.Errorf("Sweep removed %d, %d left, want 1 and 0", n, store.Len())
	}
}

// ---------------------------------------------------------------------------
// Script service
// ---------------------------------------------------------------------------

func TestEval(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name   string
		source string
		want   map[string]any
	}{
		{
			"value and output",
			"print('hi')\n6 * 7",
			map[string]any{"success": true, "result": "42", "kind": "int", "output": "hi\n"},
		},
		{
			"registered type",
			"r = Robot()\nr.serial = 'X1'\nr.serial",
			map[string]any{"success": true, "result": "X1", "kind": "string", "output": ""},
		},
	}
	for _, tc := range tests {
		res, err := svc.Eval(context.Background(), mustStruct(t, map[string]any{"source": tc.source}))
		if err != nil {
			t.Errorf("%s: Eval error: %v", tc.name, err)
			continue
		}
		if diff := cmp.Diff(tc.want, res.AsMap()); diff != "" {
			t.Errorf("%s: Eval mismatch (-want +got):\n%s", tc.name, diff)
		}
	}
}

func TestEvalScriptError(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.Eval(context.Background(), mustStruct(t, map[string]any{"source": "print('before')\nnope()"}))
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	got := res.AsMap()
	if got["success"] != false {
		t.Errorf("success = %v, want false", got["success"])
	}
	if got["error"] != "NameError: name 'nope' is not defined" {
		t.Errorf("error = %v", got["error"])
	}
	if got["output"] != "before\n" {
		t.Errorf("output = %q, want the output before the failure", got["output"])
	}
	if _, ok := got["traceback"]; !ok {
		t.Error("traceback missing")
	}
}

func TestEvalValidation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Eval(context.Background(), mustStruct(t, map[string]any{}))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("Eval without source: code = %v, want invalid_argument", connect.CodeOf(err))
	}
	_, err = svc.Eval(context.Background(), mustStruct(t, map[string]any{"source": "1", "session": "missing"}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("Eval with unknown session: code = %v, want not_found", connect.CodeOf(err))
	}
}

func TestSessionsKeepGlobals(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateSession(ctx, mustStruct(t, map[string]any{"name": "work"}))
	if err != nil {
		t.Fatal(err)
	}
	id := created.AsMap()["session"].(string)

	for _, src := range []string{"count = 1", "count += 1"} {
		if _, err := svc.Eval(ctx, mustStruct(t, map[string]any{"source": src, "session": id})); err != nil {
			t.Fatalf("Eval(%q): %v", src, err)
		}
	}
	res, err := svc.Eval(ctx, mustStruct(t, map[string]any{"source": "count", "session": id}))
	if err != nil {
		t.Fatal(err)
	}
	if got := res.AsMap()["result"]; got != "2" {
		t.Errorf("count in session = %v, want 2", got)
	}

	res, err = svc.Eval(ctx, mustStruct(t, map[string]any{"source": "count"}))
	if err != nil {
		t.Fatal(err)
	}
	if res.AsMap()["success"] != false {
		t.Error("count leaked out of the session")
	}

	destroyed, err := svc.DestroySession(ctx, mustStruct(t, map[string]any{"session": id}))
	if err != nil {
		t.Fatal(err)
	}
	if destroyed.AsMap()["destroyed"] != true {
		t.Error("DestroySession should report true")
	}
}

func TestCheck(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.Check(context.Background(), mustStruct(t, map[string]any{"source": "x = (1 +"}))
	if err != nil {
		t.Fatal(err)
	}
	got := res.AsMap()
	if got["valid"] != false {
		t.Errorf("valid = %v, want false", got["valid"])
	}
	diags := got["diagnostics"].([]any)
	if len(diags) == 0 || diags[0].(map[string]any)["severity"] != "error" {
		t.Errorf("diagnostics = %v, want an error", diags)
	}

	res, err = svc.Check(context.Background(), mustStruct(t, map[string]any{"source": "y = undefinedThing"}))
	if err != nil {
		t.Fatal(err)
	}
	got = res.AsMap()
	want := map[string]any{
		"valid": true,
		"diagnostics": []any{map[string]any{
			"line": 1.0, "column": 5.0, "message": "'undefinedThing' may be undefined", "severity": "warning",
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Check mismatch (-want +got):\n%s", diff)
	}
}

// ---------------------------------------------------------------------------
// Transports
// ---------------------------------------------------------------------------

func startServer(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := New(testEnvironment())
	go s.Serve(l)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Shutdown(ctx)
	})
	return l.Addr().String()
}

func TestConnectTransport(t *testing.T) {
	addr := startServer(t)

	client := connect.NewClient[structpb.Struct, structpb.Struct](
		http.DefaultClient,
		"http://"+addr+"/"+ScriptServiceName+"/"+MethodEval,
		connect.WithProtoJSON(),
	)
	res, err := client.CallUnary(context.Background(), connect.NewRequest(mustStruct(t, map[string]any{"source": "'con' + 'nect'"})))
	if err != nil {
		t.Fatalf("CallUnary: %v", err)
	}
	if got := res.Msg.AsMap()["result"]; got != "connect" {
		t.Errorf("result = %v, want connect", got)
	}
}

func TestGRPCReflectionClient(t *testing.T) {
	addr := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := Dial(ctx, addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	if diff := cmp.Diff(scriptMethods, c.Methods()); diff != "" {
		t.Errorf("Methods mismatch (-want +got):\n%s", diff)
	}

	got, err := c.Call(ctx, MethodEval, map[string]any{"source": "[1, 2, 3].size()"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got["result"] != "3" {
		t.Errorf("result = %v, want 3", got["result"])
	}

	if _, err := c.Call(ctx, MethodEval, map[string]any{}); err == nil {
		t.Error("Call without source succeeded, want InvalidArgument")
	}
	if _, err := c.Call(ctx, "Nope", nil); err == nil {
		t.Error("Call of unknown method succeeded")
	}
}
