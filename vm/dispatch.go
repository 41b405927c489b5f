package vm

import (
	"fmt"
	"sync"
)

// ---------------------------------------------------------------------------
// DispatchTable: named attributes of a type, with single inheritance
// ---------------------------------------------------------------------------

// Reserved entry names used by the index and slice operators.
const (
	IndexGet = "[]"
	IndexSet = "[]="
	SliceGet = "[:]"
)

// EntryKind distinguishes the accessors an entry carries.
type EntryKind uint8

const (
	EntryProperty EntryKind = iota
	EntryMethod
	EntryConstructor
)

func (k EntryKind) String() string {
	switch k {
	case EntryProperty:
		return "property"
	case EntryMethod:
		return "method"
	case EntryConstructor:
		return "constructor"
	}
	return "unknown"
}

// Getter reads a property of self.
type Getter func(p *Process, self Value) (Value, error)

// Setter writes a property of self.
type Setter func(p *Process, self Value, v Value) error

// Method implements a method on self.
type Method func(p *Process, self Value, args *CallArgs) (Value, error)

// Constructor creates a new instance of the table's type.
type Constructor func(p *Process, args *CallArgs) (Value, error)

// Entry is one named attribute of a dispatch table.
type Entry struct {
	name  string
	kind  EntryKind
	table *DispatchTable

	getter Getter
	setter Setter
	method Method
	ctor   Constructor
	codec  *fieldCodec

	// inherits is set on entries created by Override; accessors come from
	// the inherited entry, only metadata is local.
	inherits *Entry
	meta     map[string]any
}

// Name returns the entry name.
func (e *Entry) Name() string { return e.name }

// Kind returns the entry kind.
func (e *Entry) Kind() EntryKind { return e.kind }

// Table returns the table the entry was declared on.
func (e *Entry) Table() *DispatchTable { return e.table }

// IsOverride reports whether the entry only carries metadata for an
// inherited entry.
func (e *Entry) IsOverride() bool { return e.inherits != nil }

func (e *Entry) origin() *Entry {
	for e.inherits != nil {
		e = e.inherits
	}
	return e
}

// Writable reports whether the property has a setter.
func (e *Entry) Writable() bool { return e.origin().setter != nil }

// Read invokes the property getter.
func (e *Entry) Read(p *Process, self Value) (Value, error) {
	o := e.origin()
	if o.getter == nil {
		return nil, NewError(p, TypeError, "'%s' is not a property", e.name)
	}
	return o.getter(p, self)
}

// Write invokes the property setter.
func (e *Entry) Write(p *Process, self Value, v Value) error {
	o := e.origin()
	if o.setter == nil {
		return NewError(p, TypeError, "property '%s' of %s is read-only", e.name, self.TypeName())
	}
	return o.setter(p, self, v)
}

// Invoke calls the method with self as the receiver.
func (e *Entry) Invoke(p *Process, self Value, args *CallArgs) (Value, error) {
	o := e.origin()
	switch {
	case o.method != nil:
		return o.method(p, self, args)
	case o.ctor != nil:
		return o.ctor(p, args)
	case o.getter != nil:
		// Calling a property yields a callable property value, if any.
		v, err := o.getter(p, self)
		if err != nil {
			return nil, err
		}
		if fn, ok := v.(Callable); ok {
			return fn.Call(p, args)
		}
	}
	return nil, NewError(p, TypeError, "'%s' is not callable", e.name)
}

// DispatchTable maps attribute names to entries. Lookups that miss locally
// continue in the parent table.
type DispatchTable struct {
	mu      sync.RWMutex
	name    string
	parent  *DispatchTable
	entries map[string]*Entry
	order   []string
	ctor    *Entry
	meta    map[string]any
}

// NewDispatchTable creates a table. parent may be nil.
func NewDispatchTable(name string, parent *DispatchTable) *DispatchTable {
	return &DispatchTable{
		name:    name,
		parent:  parent,
		entries: make(map[string]*Entry),
	}
}

// Name returns the type name of values dispatched through this table.
func (t *DispatchTable) Name() string { return t.name }

// Parent returns the parent table.
func (t *DispatchTable) Parent() *DispatchTable { return t.parent }

func (t *DispatchTable) put(e *Entry) *Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	e.table = t
	if _, exists := t.entries[e.name]; !exists {
		t.order = append(t.order, e.name)
	}
	t.entries[e.name] = e
	return e
}

// AddProperty registers a property. set may be nil for read-only properties.
func (t *DispatchTable) AddProperty(name string, get Getter, set Setter) *Entry {
	return t.put(&Entry{name: name, kind: EntryProperty, getter: get, setter: set})
}

// AddMethod registers a method.
func (t *DispatchTable) AddMethod(name string, fn Method) *Entry {
	return t.put(&Entry{name: name, kind: EntryMethod, method: fn})
}

// SetConstructor registers the factory used to create new instances.
func (t *DispatchTable) SetConstructor(fn Constructor) *Entry {
	e := &Entry{name: t.name, kind: EntryConstructor, ctor: fn, table: t}
	t.mu.Lock()
	t.ctor = e
	t.mu.Unlock()
	return e
}

// Constructor returns the constructor entry of this table or the nearest
// parent that has one.
func (t *DispatchTable) Constructor() *Entry {
	for tt := t; tt != nil; tt = tt.parent {
		tt.mu.RLock()
		c := tt.ctor
		tt.mu.RUnlock()
		if c != nil {
			return c
		}
	}
	return nil
}

// ConstructorFunction exposes the constructor as a script function named
// after the table. It returns nil when no constructor is registered.
func (t *DispatchTable) ConstructorFunction() *NativeFunction {
	ctor := t.Constructor()
	if ctor == nil {
		return nil
	}
	return NewNativeFunction(t.name, func(p *Process, args *CallArgs) (Value, error) {
		return ctor.Invoke(p, Null, args)
	})
}

// Override creates a local entry for an inherited name so that metadata can
// be attached without touching the parent. The accessors stay those of the
// inherited entry.
func (t *DispatchTable) Override(name string) (*Entry, error) {
	if e, ok := t.LookupLocal(name); ok {
		return e, nil
	}
	if t.parent == nil {
		return nil, fmt.Errorf("cannot override '%s' on %s: no parent table", name, t.name)
	}
	inherited, ok := t.parent.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("cannot override '%s' on %s: not defined in a parent", name, t.name)
	}
	return t.put(&Entry{name: name, kind: inherited.kind, inherits: inherited}), nil
}

// LookupLocal finds an entry in this table only.
func (t *DispatchTable) LookupLocal(name string) (*Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[name]
	return e, ok
}

// Lookup finds an entry by name, walking the inheritance chain.
func (t *DispatchTable) Lookup(name string) (*Entry, bool) {
	for tt := t; tt != nil; tt = tt.parent {
		if e, ok := tt.LookupLocal(name); ok {
			return e, true
		}
	}
	return nil, false
}

// Get returns the raw entry for name, or nil.
func (t *DispatchTable) Get(name string) *Entry {
	e, _ := t.Lookup(name)
	return e
}

// Has reports whether name resolves on this table or a parent.
func (t *DispatchTable) Has(name string) bool {
	_, ok := t.Lookup(name)
	return ok
}

// chain returns the tables from the root down to t.
func (t *DispatchTable) chain() []*DispatchTable {
	var tables []*DispatchTable
	for tt := t; tt != nil; tt = tt.parent {
		tables = append(tables, tt)
	}
	for i, j := 0, len(tables)-1; i < j; i, j = i+1, j-1 {
		tables[i], tables[j] = tables[j], tables[i]
	}
	return tables
}

// Entries returns the resolved entries visible on t: parent entries first,
// each table's entries in declaration order. An overridden name keeps the
// position of its first declaration and resolves to the most derived entry.
func (t *DispatchTable) Entries() []*Entry {
	var (
		names []string
		seen  = make(map[string]bool)
	)
	for _, tt := range t.chain() {
		tt.mu.RLock()
		for _, n := range tt.order {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
		tt.mu.RUnlock()
	}
	out := make([]*Entry, 0, len(names))
	for _, n := range names {
		if e, ok := t.Lookup(n); ok {
			out = append(out, e)
		}
	}
	return out
}

// Names returns the attribute names visible on t, in Entries order.
func (t *DispatchTable) Names() []string {
	entries := t.Entries()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

// Resolve looks up name for self. Properties yield their current value,
// methods a bound method. A miss returns (nil, nil).
func (t *DispatchTable) Resolve(p *Process, self Value, name string) (Value, error) {
	e, ok := t.Lookup(name)
	if !ok {
		return nil, nil
	}
	if e.kind == EntryProperty {
		return e.Read(p, self)
	}
	return &BoundMethod{receiver: self, entry: e, table: t}, nil
}

// Assign writes the property name of self.
func (t *DispatchTable) Assign(p *Process, self Value, name string, v Value) error {
	e, ok := t.Lookup(name)
	if !ok {
		return NewError(p, NameError, "invalid property '%s' on %s", name, self.TypeName())
	}
	if e.kind != EntryProperty {
		return NewError(p, TypeError, "cannot assign to method '%s' of %s", name, self.TypeName())
	}
	return e.Write(p, self, v)
}
