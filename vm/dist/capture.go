package dist

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/eischet/janitor-sub000/vm"
)

// ErrNoWireForm is returned for values that cannot leave the process, like
// functions, modules and host wrappers.
var ErrNoWireForm = errors.New("dist: value has no wire form")

// TypeLookup finds an object type by name during a restore.
type TypeLookup func(name string) *vm.DispatchTable

// ToNode converts a value to its wire form.
func ToNode(p *vm.Process, v vm.Value) (Node, error) {
	v = vm.OrNull(v)
	switch v.Kind() {
	case vm.KindNull:
		return Node{Kind: NodeNull}, nil
	case vm.KindBool:
		return Node{Kind: NodeBool, Bool: v.IsTruthy()}, nil
	case vm.KindInt:
		return Node{Kind: NodeInt, Int: int64(v.(vm.Int))}, nil
	case vm.KindFloat:
		return Node{Kind: NodeFloat, Float: float64(v.(vm.Float))}, nil
	case vm.KindString:
		return Node{Kind: NodeString, Text: string(v.(vm.String))}, nil
	case vm.KindList:
		items, err := toNodes(p, v.(*vm.List).Items())
		return Node{Kind: NodeList, Items: items}, err
	case vm.KindSet:
		items, err := toNodes(p, v.(*vm.Set).Elements())
		return Node{Kind: NodeSet, Items: items}, err
	case vm.KindMap:
		m := v.(*vm.Map)
		items := make([]Node, 0, 2*m.Len())
		for _, k := range m.Keys() {
			val, _ := m.Get(k)
			kn, err := ToNode(p, k)
			if err != nil {
				return Node{}, err
			}
			vn, err := ToNode(p, val)
			if err != nil {
				return Node{}, err
			}
			items = append(items, kn, vn)
		}
		return Node{Kind: NodeMap, Items: items}, nil
	case vm.KindDate:
		t := v.(vm.Date).Time()
		return Node{Kind: NodeDate, Int: int64(t.Year())*10000 + int64(t.Month())*100 + int64(t.Day())}, nil
	case vm.KindDateTime:
		return Node{Kind: NodeDateTime, Int: v.(vm.DateTime).Epoch()}, nil
	case vm.KindDuration:
		return Node{Kind: NodeDuration, Int: int64(v.(vm.Duration).Std())}, nil
	case vm.KindRegex:
		if w, ok := v.(*vm.Wrapper[*regexp.Regexp]); ok {
			return Node{Kind: NodeRegex, Text: w.Host().String()}, nil
		}
	case vm.KindBinary:
		if w, ok := v.(*vm.Wrapper[[]byte]); ok {
			return Node{Kind: NodeBinary, Bytes: append([]byte(nil), w.Host()...)}, nil
		}
	case vm.KindComposed:
		t := vm.TableOf(p, v)
		if t == nil {
			break
		}
		data, err := t.WriteJSON(p, v)
		if err != nil {
			return Node{}, fmt.Errorf("dist: encoding %s: %w", t.Name(), err)
		}
		return Node{Kind: NodeObject, Text: t.Name(), Bytes: data}, nil
	}
	return Node{}, fmt.Errorf("%w: %s", ErrNoWireForm, v.TypeName())
}

func toNodes(p *vm.Process, vs []vm.Value) ([]Node, error) {
	out := make([]Node, len(vs))
	for i, v := range vs {
		n, err := ToNode(p, v)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// FromNode rebuilds a value. Objects are made with the constructor of the
// type lookup returns for their name.
func FromNode(p *vm.Process, n Node, lookup TypeLookup) (vm.Value, error) {
	switch n.Kind {
	case NodeNull:
		return vm.Null, nil
	case NodeBool:
		return vm.Bool(n.Bool), nil
	case NodeInt:
		return vm.Int(n.Int), nil
	case NodeFloat:
		return vm.Float(n.Float), nil
	case NodeString:
		return vm.String(n.Text), nil
	case NodeList:
		items, err := fromNodes(p, n.Items, lookup)
		if err != nil {
			return nil, err
		}
		return vm.NewList(items...), nil
	case NodeSet:
		items, err := fromNodes(p, n.Items, lookup)
		if err != nil {
			return nil, err
		}
		return vm.NewSet(items...), nil
	case NodeMap:
		if len(n.Items)%2 != 0 {
			return nil, fmt.Errorf("dist: map with odd item count %d", len(n.Items))
		}
		items, err := fromNodes(p, n.Items, lookup)
		if err != nil {
			return nil, err
		}
		m := vm.NewMap()
		for i := 0; i < len(items); i += 2 {
			m.Put(items[i], items[i+1])
		}
		return m, nil
	case NodeDate:
		return vm.NewDate(int(n.Int/10000), time.Month(n.Int/100%100), int(n.Int%100)), nil
	case NodeDateTime:
		return vm.DateTimeFromEpoch(n.Int), nil
	case NodeDuration:
		return vm.NewDuration(time.Duration(n.Int)), nil
	case NodeRegex:
		re, err := regexp.Compile(n.Text)
		if err != nil {
			return nil, fmt.Errorf("dist: regex %q: %w", n.Text, err)
		}
		return p.Builtins().NewRegex(re), nil
	case NodeBinary:
		return p.Builtins().NewBinary(n.Bytes), nil
	case NodeObject:
		var t *vm.DispatchTable
		if lookup != nil {
			t = lookup(n.Text)
		}
		if t == nil {
			return nil, fmt.Errorf("dist: unknown type %q", n.Text)
		}
		ctor := t.Constructor()
		if ctor == nil {
			return nil, fmt.Errorf("dist: type %q has no constructor", n.Text)
		}
		obj, err := ctor.Invoke(p, vm.Null, vm.NewCallArgs(p, t.Name()))
		if err != nil {
			return nil, err
		}
		if err := t.ReadJSONInto(p, obj, n.Bytes); err != nil {
			return nil, fmt.Errorf("dist: decoding %s: %w", n.Text, err)
		}
		return obj, nil
	}
	return nil, fmt.Errorf("dist: unknown node kind %d", n.Kind)
}

func fromNodes(p *vm.Process, ns []Node, lookup TypeLookup) ([]vm.Value, error) {
	out := make([]vm.Value, len(ns))
	for i, n := range ns {
		v, err := FromNode(p, n, lookup)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func collectTypes(n Node, into map[string]bool) {
	if n.Kind == NodeObject {
		into[n.Text] = true
	}
	for _, item := range n.Items {
		collectTypes(item, into)
	}
}

// Capture takes a snapshot of the bindings made directly in scope. Values
// without a wire form are listed in Skipped.
func Capture(p *vm.Process, scope *vm.Scope) (*Snapshot, error) {
	s := &Snapshot{Version: SnapshotVersion}
	if m := scope.Module(); m != nil {
		s.Module = m.Name
	}
	types := make(map[string]bool)
	for _, name := range scope.Names() {
		v, _ := scope.RetrieveLocal(name)
		n, err := ToNode(p, v)
		if errors.Is(err, ErrNoWireForm) {
			s.Skipped = append(s.Skipped, name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("dist: capturing %s: %w", name, err)
		}
		collectTypes(n, types)
		s.Bindings = append(s.Bindings, Binding{Name: name, Value: n})
	}
	for t := range types {
		s.Types = append(s.Types, t)
	}
	sort.Strings(s.Types)

	hash, err := hashBindings(s.Bindings)
	if err != nil {
		return nil, fmt.Errorf("dist: hashing bindings: %w", err)
	}
	s.Hash = hash
	return s, nil
}

// Restore binds every global of s into scope. Nothing is bound if any value
// fails to decode.
func Restore(p *vm.Process, s *Snapshot, scope *vm.Scope, lookup TypeLookup) error {
	values := make([]vm.Value, len(s.Bindings))
	for i, b := range s.Bindings {
		v, err := FromNode(p, b.Value, lookup)
		if err != nil {
			return fmt.Errorf("dist: restoring %s: %w", b.Name, err)
		}
		values[i] = v
	}
	for i, b := range s.Bindings {
		if err := scope.Bind(b.Name, values[i]); err != nil {
			return err
		}
	}
	return nil
}
