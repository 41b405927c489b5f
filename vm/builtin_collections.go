package vm

import (
	"strings"
)

func registerCollectionMethods(b *Builtins) {
	registerListMethods(b.Lists)
	registerSetMethods(b.Sets)
	registerMapMethods(b.Maps)
}

func registerListMethods(t *TypedTable[*List]) {
	Help.SetOnTable(t.DispatchTable, "A mutable, ordered list. Indexes may be negative to count from the end.")

	Help.Set(t.Method("size", func(p *Process, l *List, args *CallArgs) (Value, error) {
		return Int(l.Len()), args.RequireExactly(0)
	}), "list.size(): Returns the number of elements.")
	t.Method("isEmpty", func(p *Process, l *List, args *CallArgs) (Value, error) {
		return Bool(l.Len() == 0), nil
	})
	t.Method("contains", func(p *Process, l *List, args *CallArgs) (Value, error) {
		if err := args.RequireExactly(1); err != nil {
			return nil, err
		}
		return Bool(l.Contains(args.Get(0))), nil
	})
	Help.Set(t.Method("add", func(p *Process, l *List, args *CallArgs) (Value, error) {
		if err := args.RequireAtLeast(1); err != nil {
			return nil, err
		}
		for _, v := range args.Values() {
			l.Append(OrNull(v))
		}
		return l, nil
	}), "list.add(value...): Appends values and returns the list.")
	t.Method("addAll", func(p *Process, l *List, args *CallArgs) (Value, error) {
		other, err := args.List(0)
		if err != nil {
			return nil, err
		}
		l.Append(other.Items()...)
		return l, nil
	})
	t.Method("remove", func(p *Process, l *List, args *CallArgs) (Value, error) {
		if err := args.RequireExactly(1); err != nil {
			return nil, err
		}
		target := args.Get(0)
		for i, item := range l.items {
			if Equal(item, target) {
				l.items = append(l.items[:i], l.items[i+1:]...)
				return True, nil
			}
		}
		return False, nil
	})
	t.Method("get", func(p *Process, l *List, args *CallArgs) (Value, error) {
		i, err := args.Int(0)
		if err != nil {
			return nil, err
		}
		return listAt(p, l, i)
	})
	t.Method("put", func(p *Process, l *List, args *CallArgs) (Value, error) {
		if err := args.RequireExactly(2); err != nil {
			return nil, err
		}
		i, err := args.Int(0)
		if err != nil {
			return nil, err
		}
		return Null, listPut(p, l, i, args.Get(1))
	})
	t.Method("first", func(p *Process, l *List, args *CallArgs) (Value, error) {
		v, _ := l.At(0)
		return OrNull(v), nil
	})
	t.Method("last", func(p *Process, l *List, args *CallArgs) (Value, error) {
		v, _ := l.At(-1)
		return OrNull(v), nil
	})
	Help.Set(t.Method("filter", func(p *Process, l *List, args *CallArgs) (Value, error) {
		fn, err := args.Callable(0)
		if err != nil {
			return nil, err
		}
		out := NewList()
		for _, item := range l.items {
			keep, err := Call(p, fn, item)
			if err != nil {
				return nil, err
			}
			if Truthy(keep) {
				out.Append(item)
			}
		}
		return out, nil
	}), "list.filter(fn): Returns the elements for which fn returns a true value.")
	Help.Set(t.Method("map", func(p *Process, l *List, args *CallArgs) (Value, error) {
		fn, err := args.Callable(0)
		if err != nil {
			return nil, err
		}
		out := make([]Value, len(l.items))
		for i, item := range l.items {
			v, err := Call(p, fn, item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return NewList(out...), nil
	}), "list.map(fn): Returns a new list with fn applied to every element.")
	t.Method("count", func(p *Process, l *List, args *CallArgs) (Value, error) {
		if args.Len() == 0 {
			return Int(l.Len()), nil
		}
		fn, err := args.Callable(0)
		if err != nil {
			return nil, err
		}
		n := 0
		for _, item := range l.items {
			v, err := Call(p, fn, item)
			if err != nil {
				return nil, err
			}
			if Truthy(v) {
				n++
			}
		}
		return Int(n), nil
	})
	t.Method("join", func(p *Process, l *List, args *CallArgs) (Value, error) {
		sep, err := args.OptionalString(0, "")
		if err != nil {
			return nil, err
		}
		parts := make([]string, len(l.items))
		for i, item := range l.items {
			parts[i] = Display(item)
		}
		return String(strings.Join(parts, sep)), nil
	})
	t.Method("sort", func(p *Process, l *List, args *CallArgs) (Value, error) {
		l.Sort()
		return l, nil
	})
	t.Method("reverse", func(p *Process, l *List, args *CallArgs) (Value, error) {
		return l.Slice(l.Len(), 0), nil
	})
	t.Method("toList", func(p *Process, l *List, args *CallArgs) (Value, error) {
		return l.Slice(0, l.Len()), nil
	})
	t.Method("toSet", func(p *Process, l *List, args *CallArgs) (Value, error) {
		return NewSet(l.items...), nil
	})
	t.Method("toJson", valueToJSON[*List])
	t.Method("toYaml", valueToYAML[*List])

	t.Method(IndexGet, func(p *Process, l *List, args *CallArgs) (Value, error) {
		i, err := args.Int(0)
		if err != nil {
			return nil, err
		}
		return listAt(p, l, i)
	})
	t.Method(IndexSet, func(p *Process, l *List, args *CallArgs) (Value, error) {
		i, err := args.Int(0)
		if err != nil {
			return nil, err
		}
		return Null, listPut(p, l, i, args.Get(1))
	})
	t.Method(SliceGet, func(p *Process, l *List, args *CallArgs) (Value, error) {
		from, to, err := sliceArgs(args, l.Len())
		if err != nil {
			return nil, err
		}
		return l.Slice(from, to), nil
	})
}

func listAt(p *Process, l *List, i int64) (Value, error) {
	v, ok := l.At(int(i))
	if !ok {
		return nil, NewError(p, ArgumentError, "list index %d out of range for size %d", i, l.Len())
	}
	return OrNull(v), nil
}

func listPut(p *Process, l *List, i int64, v Value) error {
	if !l.Put(int(i), OrNull(v)) {
		return NewError(p, ArgumentError, "list index %d out of range for size %d", i, l.Len())
	}
	return nil
}

func registerSetMethods(t *TypedTable[*Set]) {
	t.Method("size", func(p *Process, s *Set, args *CallArgs) (Value, error) {
		return Int(s.Len()), nil
	})
	t.Method("isEmpty", func(p *Process, s *Set, args *CallArgs) (Value, error) {
		return Bool(s.Len() == 0), nil
	})
	t.Method("add", func(p *Process, s *Set, args *CallArgs) (Value, error) {
		if err := args.RequireAtLeast(1); err != nil {
			return nil, err
		}
		for _, v := range args.Values() {
			s.Add(v)
		}
		return s, nil
	})
	t.Method("remove", func(p *Process, s *Set, args *CallArgs) (Value, error) {
		if err := args.RequireExactly(1); err != nil {
			return nil, err
		}
		return Bool(s.Remove(args.Get(0))), nil
	})
	t.Method("contains", func(p *Process, s *Set, args *CallArgs) (Value, error) {
		if err := args.RequireExactly(1); err != nil {
			return nil, err
		}
		return Bool(s.Contains(args.Get(0))), nil
	})
	t.Method("toList", func(p *Process, s *Set, args *CallArgs) (Value, error) {
		return NewList(s.Elements()...), nil
	})
	t.Method("toSet", func(p *Process, s *Set, args *CallArgs) (Value, error) {
		return NewSet(s.Elements()...), nil
	})
	t.Method("toJson", valueToJSON[*Set])
}

func registerMapMethods(t *TypedTable[*Map]) {
	Help.SetOnTable(t.DispatchTable, "A mutable map that keeps keys in insertion order.")

	Help.Set(t.Method("get", func(p *Process, m *Map, args *CallArgs) (Value, error) {
		if err := args.Require(1, 2); err != nil {
			return nil, err
		}
		if v, ok := m.Get(args.Get(0)); ok {
			return OrNull(v), nil
		}
		return args.Get(1), nil
	}), "map.get(key[, default]): Returns the value for key, or default.")
	t.Method("put", func(p *Process, m *Map, args *CallArgs) (Value, error) {
		if err := args.RequireExactly(2); err != nil {
			return nil, err
		}
		m.Put(args.Get(0), args.Get(1))
		return m, nil
	})
	t.Method("remove", func(p *Process, m *Map, args *CallArgs) (Value, error) {
		if err := args.RequireExactly(1); err != nil {
			return nil, err
		}
		v, _ := m.Get(args.Get(0))
		m.Delete(args.Get(0))
		return OrNull(v), nil
	})
	t.Method("containsKey", func(p *Process, m *Map, args *CallArgs) (Value, error) {
		if err := args.RequireExactly(1); err != nil {
			return nil, err
		}
		_, ok := m.Get(args.Get(0))
		return Bool(ok), nil
	})
	t.Method("size", func(p *Process, m *Map, args *CallArgs) (Value, error) {
		return Int(m.Len()), nil
	})
	t.Method("isEmpty", func(p *Process, m *Map, args *CallArgs) (Value, error) {
		return Bool(m.Len() == 0), nil
	})
	t.Method("keys", func(p *Process, m *Map, args *CallArgs) (Value, error) {
		return NewList(m.Keys()...), nil
	})
	t.Method("values", func(p *Process, m *Map, args *CallArgs) (Value, error) {
		return NewList(m.Values()...), nil
	})
	t.Method("toJson", valueToJSON[*Map])
	t.Method("toYaml", valueToYAML[*Map])

	t.Method(IndexGet, func(p *Process, m *Map, args *CallArgs) (Value, error) {
		v, _ := m.Get(args.Get(0))
		return OrNull(v), nil
	})
	t.Method(IndexSet, func(p *Process, m *Map, args *CallArgs) (Value, error) {
		m.Put(args.Get(0), args.Get(1))
		return Null, nil
	})
}

func valueToJSON[T Value](p *Process, v T, args *CallArgs) (Value, error) {
	data, err := ToJSON(p, v)
	if err != nil {
		return nil, Native(p, err)
	}
	return String(data), nil
}

func valueToYAML[T Value](p *Process, v T, args *CallArgs) (Value, error) {
	data, err := ToYAML(p, v)
	if err != nil {
		return nil, Native(p, err)
	}
	return String(data), nil
}
