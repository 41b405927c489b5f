package vm

import (
	"sort"
	"strings"
)

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

// List is a mutable, ordered script list.
type List struct {
	items []Value
}

// NewList creates a list holding items. The slice is used as is.
func NewList(items ...Value) *List {
	return &List{items: items}
}

func (l *List) Kind() Kind       { return KindList }
func (l *List) TypeName() string { return "list" }
func (l *List) IsTruthy() bool   { return len(l.items) > 0 }
func (l *List) HostValue() any   { return l.items }

func (l *List) String() string {
	parts := make([]string, len(l.items))
	for i, v := range l.items {
		parts[i] = Display(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Len returns the number of elements.
func (l *List) Len() int { return len(l.items) }

// At returns the element at i. Negative indexes count from the end.
func (l *List) At(i int) (Value, bool) {
	if i < 0 {
		i += len(l.items)
	}
	if i < 0 || i >= len(l.items) {
		return nil, false
	}
	return l.items[i], true
}

// Put replaces the element at i, growing the list with nulls if needed.
func (l *List) Put(i int, v Value) bool {
	if i < 0 {
		i += len(l.items)
		if i < 0 {
			return false
		}
	}
	for len(l.items) <= i {
		l.items = append(l.items, Null)
	}
	l.items[i] = v
	return true
}

// Append adds values to the end of the list.
func (l *List) Append(vs ...Value) {
	l.items = append(l.items, vs...)
}

// Items returns the backing slice.
func (l *List) Items() []Value { return l.items }

// Contains reports whether an element equal to v is present.
func (l *List) Contains(v Value) bool {
	for _, item := range l.items {
		if Equal(item, v) {
			return true
		}
	}
	return false
}

// Slice returns a new list with the elements from..to. When from > to the
// elements are returned in reverse order, walking down from from to to+1.
func (l *List) Slice(from, to int) *List {
	from, to = sliceBounds(len(l.items), from, to)
	if from <= to {
		return NewList(append([]Value(nil), l.items[from:to]...)...)
	}
	out := make([]Value, 0, from-to)
	for i := from - 1; i >= to; i-- {
		out = append(out, l.items[i])
	}
	return NewList(out...)
}

// Sort sorts the list in place using Compare. Elements that cannot be
// compared keep their relative order.
func (l *List) Sort() {
	sort.SliceStable(l.items, func(i, j int) bool {
		c, err := Compare(l.items[i], l.items[j])
		return err == nil && c < 0
	})
}

// sliceBounds normalizes negative indexes and clamps both ends to [0, n].
func sliceBounds(n, from, to int) (int, int) {
	if from < 0 {
		from += n
	}
	if to < 0 {
		to += n
	}
	from = clamp(from, 0, n)
	to = clamp(to, 0, n)
	return from, to
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ---------------------------------------------------------------------------
// Map
// ---------------------------------------------------------------------------

// Map is a mutable script map. Keys keep their insertion order so that
// display strings and JSON output are stable.
type Map struct {
	keys    []string
	entries map[string]Value
	orig    map[string]Value
}

// NewMap creates an empty map.
func NewMap() *Map {
	return &Map{entries: make(map[string]Value), orig: make(map[string]Value)}
}

func (m *Map) Kind() Kind       { return KindMap }
func (m *Map) TypeName() string { return "map" }
func (m *Map) IsTruthy() bool   { return len(m.keys) > 0 }

// HostValue returns a map[string]any with host values.
func (m *Map) HostValue() any {
	out := make(map[string]any, len(m.keys))
	for _, k := range m.keys {
		out[k] = OrNull(m.entries[k]).HostValue()
	}
	return out
}

func (m *Map) String() string {
	parts := make([]string, len(m.keys))
	for i, k := range m.keys {
		parts[i] = Display(m.orig[k]) + ": " + Display(m.entries[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.keys) }

func mapKey(k Value) string {
	if k == nil {
		return "null"
	}
	return k.TypeName() + ":" + k.String()
}

// Put stores v under key k.
func (m *Map) Put(k, v Value) {
	key := mapKey(k)
	if _, ok := m.entries[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.entries[key] = v
	m.orig[key] = k
}

// Get returns the value stored under k.
func (m *Map) Get(k Value) (Value, bool) {
	v, ok := m.entries[mapKey(k)]
	return v, ok
}

// GetString is Get with a string key.
func (m *Map) GetString(k string) (Value, bool) {
	return m.Get(String(k))
}

// PutString is Put with a string key.
func (m *Map) PutString(k string, v Value) {
	m.Put(String(k), v)
}

// Delete removes the entry under k.
func (m *Map) Delete(k Value) {
	key := mapKey(k)
	if _, ok := m.entries[key]; !ok {
		return
	}
	delete(m.entries, key)
	delete(m.orig, key)
	for i, existing := range m.keys {
		if existing == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []Value {
	out := make([]Value, len(m.keys))
	for i, k := range m.keys {
		out[i] = m.orig[k]
	}
	return out
}

// Values returns the values in key insertion order.
func (m *Map) Values() []Value {
	out := make([]Value, len(m.keys))
	for i, k := range m.keys {
		out[i] = m.entries[k]
	}
	return out
}

// Each calls fn for every entry in insertion order.
func (m *Map) Each(fn func(k, v Value)) {
	for _, k := range m.keys {
		fn(m.orig[k], m.entries[k])
	}
}

// ---------------------------------------------------------------------------
// Set
// ---------------------------------------------------------------------------

// Set is a mutable, insertion-ordered set of values.
type Set struct {
	keys  []string
	elems map[string]Value
}

// NewSet creates a set holding vs.
func NewSet(vs ...Value) *Set {
	s := &Set{elems: make(map[string]Value)}
	for _, v := range vs {
		s.Add(v)
	}
	return s
}

func (s *Set) Kind() Kind       { return KindSet }
func (s *Set) TypeName() string { return "set" }
func (s *Set) IsTruthy() bool   { return len(s.keys) > 0 }

func (s *Set) HostValue() any {
	out := make([]any, len(s.keys))
	for i, k := range s.keys {
		out[i] = s.elems[k].HostValue()
	}
	return out
}

func (s *Set) String() string {
	parts := make([]string, len(s.keys))
	for i, k := range s.keys {
		parts[i] = Display(s.elems[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Len returns the number of elements.
func (s *Set) Len() int { return len(s.keys) }

// Add inserts v and reports whether it was new.
func (s *Set) Add(v Value) bool {
	v = OrNull(v)
	key := mapKey(v)
	if _, ok := s.elems[key]; ok {
		return false
	}
	s.keys = append(s.keys, key)
	s.elems[key] = v
	return true
}

// Remove deletes v and reports whether it was present.
func (s *Set) Remove(v Value) bool {
	key := mapKey(OrNull(v))
	if _, ok := s.elems[key]; !ok {
		return false
	}
	delete(s.elems, key)
	for i, existing := range s.keys {
		if existing == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports whether v is in the set.
func (s *Set) Contains(v Value) bool {
	_, ok := s.elems[mapKey(OrNull(v))]
	return ok
}

// Elements returns the elements in insertion order.
func (s *Set) Elements() []Value {
	out := make([]Value, len(s.keys))
	for i, k := range s.keys {
		out[i] = s.elems[k]
	}
	return out
}
