package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/eischet/janitor-sub000/vm"
)

var testBuiltins = vm.NewBuiltins()

type testRuntime struct {
	out   strings.Builder
	warns []string
	scope *vm.Scope
}

func newTestRuntime() *testRuntime {
	rt := &testRuntime{scope: vm.NewBuiltinScope()}
	rt.scope.Bind("print", vm.NewNativeFunction("print", func(p *vm.Process, args *vm.CallArgs) (vm.Value, error) {
		parts := make([]string, args.Len())
		for i, v := range args.Values() {
			parts[i] = vm.Display(v)
		}
		p.Print(strings.Join(parts, " ") + "\n")
		return vm.Null, nil
	}))
	rt.scope.Seal()
	return rt
}

func (r *testRuntime) Builtins() *vm.Builtins { return testBuiltins }
func (r *testRuntime) Print(s string)         { r.out.WriteString(s) }
func (r *testRuntime) Warn(msg string)        { r.warns = append(r.warns, msg) }

// run compiles and runs src in a fresh global scope.
func run(t *testing.T, src string) (vm.Value, string, error) {
	t.Helper()
	script, err := Compile("test", src)
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	rt := newTestRuntime()
	p := vm.NewProcess(rt, script.Module())
	v, err := script.Run(p, vm.NewGlobalScope(rt.scope, script.Module()))
	if p.Depth() != 0 {
		t.Errorf("Depth() = %d after Run, want 0", p.Depth())
	}
	return v, rt.out.String(), err
}

func TestRunResults(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"1 + 2 * 3", "7"},
		{"7 / 2", "3"},
		{"7.0 / 2", "3.5"},
		{"function fib(n) {\n  if (n < 2) return n\n  return fib(n - 1) + fib(n - 2)\n}\nfib(15)", "610"},
		{"[1, 2, 3][3:0]", "[3, 2, 1]"},
		{"'hello'[1:3]", "el"},
		{"x = 0\nfor (i in [1, 2, 3]) x += i\nx", "6"},
		{"s = 0; i = 0\nwhile (true) {\n  i++\n  if (i > 5) break\n  if (i % 2 == 0) continue\n  s += i\n}\ns", "9"},
		{"i = 0; do { i++ } while (i < 0); i", "1"},
		{"'abc'.toUpperCase()", "ABC"},
		{"m = {a: 1}\nm['k'] = 5\nm['a'] + m['k']", "6"},
		{"l = [1, 2]\nl[0] += 10\nl", "[11, 2]"},
		{"@2022-10-12", "@2022-10-12"},
		{"@2022-03-30-11:48:46 + @1h", "@2022-03-30-12:48:46"},
		{"'a' in ['a', 'b'] and not ('c' in ['a'])", "true"},
		{"'c' not in 'abc'", "false"},
		{"x = 5\nx > 3 ? 'big' : 'small'", "big"},
		{"f = (a, b) -> a * b\nf(6, 7)", "42"},
		{"n = 1\nn++ + n", "3"},
		{"n = 1\n++n + n", "4"},
		{`re/(\d+)/.extract('ab12')`, "12"},
		{"return 5\n6", "5"},
		{"s = 'x'\ns *= 3\ns", "xxx"},
		{"t = ''\ntry { t = 'a'; throw 1 } catch (e) { t = t + e } finally { t = t + 'f' }\nt", "a1f"},
		{"function f() {\n  try { return 1 } finally { x = 2 }\n}\nf()", "1"},
		{"try { undefinedName } catch (e) { e.type }", "NameError"},
		{"try { [].get(3) } catch (e) { e.message }", "list index 3 out of range for size 0"},
		{"function g(name) { return 'hi ${name}'.expand() }\ng('bob')", "hi bob"},
		{"null or 0 or 'x'", "true"},
		{"r = []\nfor (c in 'ab') r.add(c)\nr", "[a, b]"},
		{"fs = []\nfor (i in [1, 2]) fs.add(() -> i)\nfs[0]() + fs[1]()", "3"},
	}

	for _, tc := range tests {
		got, _, err := run(t, tc.src)
		if err != nil {
			t.Errorf("Run(%q) error: %v", tc.src, err)
			continue
		}
		if vm.Display(got) != tc.want {
			t.Errorf("Run(%q) = %s, want %s", tc.src, vm.Display(got), tc.want)
		}
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		src   string
		class vm.ErrorClass
	}{
		{"undefinedName", vm.NameError},
		{"1 + true", vm.TypeError},
		{"1 / 0", vm.ArithmeticError},
		{"throw 'boom'", vm.ScriptThrownError},
		{"f = x -> x\nf(1, 2)", vm.ArgumentError},
		{"if (true) { y = 1 }\ny", vm.NameError},
		{"'abc'.nope()", vm.NameError},
		{"3()", vm.TypeError},
		{"for (x in 5) {}", vm.TypeError},
		{"function r() { return r() }\nr()", vm.NativeError},
		{"try { 1 / 0 } finally { print('f') }", vm.ArithmeticError},
	}

	for _, tc := range tests {
		_, _, err := run(t, tc.src)
		if !errors.Is(err, tc.class) {
			t.Errorf("Run(%q) error = %v, want %v", tc.src, err, tc.class)
		}
	}
}

func TestTracebackPointsAtFailingName(t *testing.T) {
	_, _, err := run(t, "function f(x) {\n  return x + y\n}\nf(1)\n")
	var se *vm.Error
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *vm.Error", err)
	}
	want := "Traceback (most recent call last):\n" +
		"  Module 'test'\n" +
		"  Module 'test', line 4, column 1\n" +
		"    f(1)\n" +
		"  Module 'test', line 2, column 14\n" +
		"    return x + y\n" +
		"NameError: name 'y' is not defined"
	if got := se.Traceback(); got != want {
		t.Errorf("Traceback() =\n%s\nwant\n%s", got, want)
	}
}

func TestClosureGetsFreshScopePerCall(t *testing.T) {
	src := `
function foo(prefix) {
    return text -> prefix + text;
}
pa = foo("a");
print(pa("x"));
pb = foo("b");
print(pb("x"));
print(pa("x"));
`
	_, out, err := run(t, src)
	if err != nil {
		t.Fatal(err)
	}
	if out != "ax\nbx\nax\n" {
		t.Errorf("output = %q, want %q", out, "ax\nbx\nax\n")
	}
}

func TestCompileErrorCollectsDiagnostics(t *testing.T) {
	_, err := Compile("bad", "a = }\nb = (\n")
	if !errors.Is(err, vm.CompileError) {
		t.Fatalf("Compile error = %v, want CompileError", err)
	}
	var se *vm.Error
	errors.As(err, &se)
	if len(se.Diagnostics) != 2 {
		t.Errorf("diagnostics = %v, want 2", se.Diagnostics)
	}
	if !strings.HasPrefix(se.Error(), "CompileError: module 'bad', line 1, column 5: unexpected '}'") {
		t.Errorf("Error() = %q", se.Error())
	}
}

func TestScriptRunsRepeatedly(t *testing.T) {
	script, err := Compile("counter", "n = n + 1\nn")
	if err != nil {
		t.Fatal(err)
	}
	rt := newTestRuntime()
	globals := vm.NewGlobalScope(rt.scope, script.Module())
	globals.Bind("n", vm.Int(0))
	for i := 1; i <= 3; i++ {
		v, err := script.Run(vm.NewProcess(rt, script.Module()), globals)
		if err != nil {
			t.Fatal(err)
		}
		if v != vm.Int(int64(i)) {
			t.Errorf("run %d = %v, want %d", i, v, i)
		}
	}
}
