package dist

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/eischet/janitor-sub000/env"
	"github.com/eischet/janitor-sub000/vm"
)

type dog struct {
	vm.Composed
	Name string
	Legs int64
}

var dogTable = func() *vm.TypedTable[*dog] {
	t := vm.NewTypedTable[*dog]("Dog", nil)
	t.StringProperty("name", func(d *dog) string { return d.Name }, func(d *dog, s string) { d.Name = s })
	t.IntProperty("legs", func(d *dog) int64 { return d.Legs }, func(d *dog, n int64) { d.Legs = n })
	t.SetConstructorFunc(func(p *vm.Process, args *vm.CallArgs) (*dog, error) {
		name, err := args.OptionalString(0, "")
		if err != nil {
			return nil, err
		}
		d := &dog{Name: name, Legs: 4}
		d.Init(d, t.DispatchTable)
		return d, nil
	})
	return t
}()

func lookupDog(name string) *vm.DispatchTable {
	if name == "Dog" {
		return dogTable.DispatchTable
	}
	return nil
}

func newProcess(e *env.Environment) *vm.Process {
	return vm.NewProcess(e, vm.NewModule("test", ""))
}

func TestNodeRoundTrip(t *testing.T) {
	e := env.NewEnvironment()
	p := newProcess(e)
	b := e.Builtins()

	m := vm.NewMap()
	m.Put(vm.String("a"), vm.Int(1))
	m.Put(vm.Int(2), vm.NewList(vm.Float(2.5), vm.Null))

	values := []vm.Value{
		vm.Null,
		vm.Bool(true),
		vm.Int(-17),
		vm.Float(3.25),
		vm.String("hällo"),
		vm.NewList(vm.Int(1), vm.String("x")),
		vm.NewSet(vm.Int(1), vm.Int(2)),
		m,
		vm.NewDate(2024, time.February, 29),
		vm.DateTimeFromEpoch(1700000000),
		vm.NewDuration(90 * time.Minute),
		b.NewRegex(regexp.MustCompile(`^a+b$`)),
		b.NewBinary([]byte{0, 1, 2, 255}),
	}

	for _, v := range values {
		n, err := ToNode(p, v)
		if err != nil {
			t.Errorf("ToNode(%s): %v", vm.Display(v), err)
			continue
		}
		data, err := MarshalNode(n)
		if err != nil {
			t.Errorf("MarshalNode(%s): %v", vm.Display(v), err)
			continue
		}
		decoded, err := UnmarshalNode(data)
		if err != nil {
			t.Errorf("UnmarshalNode(%s): %v", vm.Display(v), err)
			continue
		}
		got, err := FromNode(p, decoded, nil)
		if err != nil {
			t.Errorf("FromNode(%s): %v", vm.Display(v), err)
			continue
		}
		if vm.Display(got) != vm.Display(v) || got.Kind() != v.Kind() {
			t.Errorf("round trip = %s (%s), want %s (%s)", vm.Display(got), got.TypeName(), vm.Display(v), v.TypeName())
		}
	}
}

func TestObjectNodes(t *testing.T) {
	e := env.NewEnvironment()
	p := newProcess(e)

	d := &dog{Name: "Rex", Legs: 3}
	d.Init(d, dogTable.DispatchTable)

	n, err := ToNode(p, vm.NewList(d))
	if err != nil {
		t.Fatalf("ToNode: %v", err)
	}
	if _, err := FromNode(p, n, nil); err == nil {
		t.Error("FromNode without a type lookup succeeded, want error")
	}

	v, err := FromNode(p, n, lookupDog)
	if err != nil {
		t.Fatalf("FromNode: %v", err)
	}
	item, _ := v.(*vm.List).At(0)
	got, ok := item.(*dog)
	if !ok {
		t.Fatalf("restored item is %T, want *dog", item)
	}
	if got.Name != "Rex" || got.Legs != 3 {
		t.Errorf("restored dog = %s/%d, want Rex/3", got.Name, got.Legs)
	}
}

func TestFunctionsHaveNoWireForm(t *testing.T) {
	e := env.NewEnvironment()
	p := newProcess(e)
	fn, err := e.BuiltinScope().Lookup(p, "print")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ToNode(p, fn); !errors.Is(err, ErrNoWireForm) {
		t.Errorf("ToNode(print) error = %v, want ErrNoWireForm", err)
	}
	if _, err := ToNode(p, vm.NewList(fn)); !errors.Is(err, ErrNoWireForm) {
		t.Errorf("ToNode([print]) error = %v, want ErrNoWireForm", err)
	}
}

func TestCaptureAndRestore(t *testing.T) {
	e := env.NewEnvironment()
	e.RegisterType(dogTable.DispatchTable)
	rt := env.NewOutputCatchingRuntime(e)

	script, err := rt.Compile("source", "count = 3\nnames = ['a', 'b']\nrex = Dog('Rex')\ntwice = (x) -> x * 2\n")
	if err != nil {
		t.Fatal(err)
	}
	_, globals, err := script.RunAndKeepGlobals(nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	p := newProcess(e)
	snap, err := Capture(p, globals)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if snap.Module != "source" {
		t.Errorf("Module = %q, want source", snap.Module)
	}
	if diff := cmp.Diff([]string{"Dog", "twice"}, snap.Skipped); diff != "" {
		t.Errorf("Skipped mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Dog"}, snap.Types); diff != "" {
		t.Errorf("Types mismatch (-want +got):\n%s", diff)
	}

	data, err := MarshalSnapshot(snap)
	if err != nil {
		t.Fatalf("MarshalSnapshot: %v", err)
	}
	again, err := MarshalSnapshot(snap)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(again) {
		t.Error("encoding is not deterministic")
	}

	decoded, err := UnmarshalSnapshot(data)
	if err != nil {
		t.Fatalf("UnmarshalSnapshot: %v", err)
	}
	if decoded.Hash != snap.Hash {
		t.Error("hash changed across the wire")
	}

	target := e.NewGlobalScope(vm.NewModule("target", ""))
	if err := Restore(p, decoded, target, lookupDog); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	check, err := rt.Compile("check", "print(count + names.size(), rex.name)")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := check.RunIn(target); err != nil {
		t.Fatalf("RunIn: %v", err)
	}
	if got := rt.AllOutput(); got != "5 Rex\n" {
		t.Errorf("output = %q, want %q", got, "5 Rex\n")
	}
}

func TestRestoreIsAllOrNothing(t *testing.T) {
	e := env.NewEnvironment()
	p := newProcess(e)

	scope := vm.NewGlobalScope(e.BuiltinScope(), vm.NewModule("x", ""))
	if err := scope.Bind("a", vm.Int(1)); err != nil {
		t.Fatal(err)
	}
	d := &dog{Name: "Rex"}
	d.Init(d, dogTable.DispatchTable)
	if err := scope.Bind("b", d); err != nil {
		t.Fatal(err)
	}
	snap, err := Capture(p, scope)
	if err != nil {
		t.Fatal(err)
	}

	target := vm.NewGlobalScope(e.BuiltinScope(), vm.NewModule("y", ""))
	if err := Restore(p, snap, target, nil); err == nil {
		t.Fatal("Restore without type lookup succeeded, want error")
	}
	if names := target.Names(); len(names) != 0 {
		t.Errorf("target bindings = %v, want none", names)
	}
}

func TestUnmarshalSnapshotRejectsTampering(t *testing.T) {
	e := env.NewEnvironment()
	p := newProcess(e)

	scope := vm.NewGlobalScope(e.BuiltinScope(), vm.NewModule("x", ""))
	if err := scope.Bind("secret", vm.Int(41)); err != nil {
		t.Fatal(err)
	}
	snap, err := Capture(p, scope)
	if err != nil {
		t.Fatal(err)
	}
	snap.Bindings[0].Value.Int = 42

	data, err := MarshalSnapshot(snap)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := UnmarshalSnapshot(data); err == nil {
		t.Error("UnmarshalSnapshot accepted a snapshot with a wrong hash")
	}

	snap.Version = 99
	data, _ = MarshalSnapshot(snap)
	if _, err := UnmarshalSnapshot(data); err == nil {
		t.Error("UnmarshalSnapshot accepted an unknown version")
	}
	if _, err := UnmarshalSnapshot([]byte{0xff, 0x00}); err == nil {
		t.Error("UnmarshalSnapshot accepted garbage")
	}
}
