package vm

import (
	"fmt"
	"reflect"
)

// ---------------------------------------------------------------------------
// Wrapper: host values exposed through a dispatch table
// ---------------------------------------------------------------------------

// Wrapper pairs a host value with the dispatch table that gives it script
// behavior. The host value is stored as given; slices and pointers are
// shared with the host, never copied.
type Wrapper[H any] struct {
	table *DispatchTable
	kind  Kind
	host  H
}

// NewWrapperTable creates a typed table for wrappers around H.
func NewWrapperTable[H any](name string, parent *DispatchTable) *TypedTable[*Wrapper[H]] {
	return NewTypedTable[*Wrapper[H]](name, parent)
}

// Wrap wraps host with table. Host applications use KindWrapped.
func Wrap[H any](table *TypedTable[*Wrapper[H]], kind Kind, host H) *Wrapper[H] {
	return &Wrapper[H]{table: table.DispatchTable, kind: kind, host: host}
}

// Host returns the wrapped value.
func (w *Wrapper[H]) Host() H { return w.host }

func (w *Wrapper[H]) Kind() Kind            { return w.kind }
func (w *Wrapper[H]) TypeName() string      { return w.table.Name() }
func (w *Wrapper[H]) HostValue() any        { return w.host }
func (w *Wrapper[H]) Table() *DispatchTable { return w.table }
func (w *Wrapper[H]) String() string        { return fmt.Sprint(w.host) }

// IsTruthy is false for a nil host value, including nil slices, maps and
// pointers.
func (w *Wrapper[H]) IsTruthy() bool {
	h := any(w.host)
	if h == nil {
		return false
	}
	switch rv := reflect.ValueOf(h); rv.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// Unpack returns the host value when it is itself a script value.
func (w *Wrapper[H]) Unpack() Value {
	if v, ok := any(w.host).(Value); ok {
		return v
	}
	return w
}

// GetAttribute resolves name in the wrapper's table. A required miss goes
// through GetAttribute for the pseudo attributes and the NameError.
func (w *Wrapper[H]) GetAttribute(p *Process, name string, required bool) (Value, error) {
	found, err := w.table.Resolve(p, w, name)
	if err != nil || found != nil || !required {
		return found, err
	}
	return GetAttribute(p, w, name, true)
}

func (w *Wrapper[H]) SetAttribute(p *Process, name string, v Value) error {
	return w.table.Assign(p, w, name, v)
}

// ---------------------------------------------------------------------------
// Composed: host structs that are script objects
// ---------------------------------------------------------------------------

// Composed is embedded by host structs that act as script objects. Call
// Init from the struct's constructor so attribute lookups receive the outer
// struct.
//
//	type Person struct {
//		vm.Composed
//		Name string
//	}
//
//	func NewPerson() *Person {
//		p := &Person{}
//		p.Init(p, personTable.DispatchTable)
//		return p
//	}
type Composed struct {
	table *DispatchTable
	self  Value
}

// Init binds the object to its table.
func (c *Composed) Init(self Value, table *DispatchTable) {
	c.self = self
	c.table = table
}

func (c *Composed) Kind() Kind            { return KindComposed }
func (c *Composed) TypeName() string      { return c.table.Name() }
func (c *Composed) IsTruthy() bool        { return true }
func (c *Composed) HostValue() any        { return c.self }
func (c *Composed) Table() *DispatchTable { return c.table }

// String renders the object as JSON, falling back to the type name.
func (c *Composed) String() string {
	data, err := c.table.WriteJSON(nil, c.self)
	if err != nil {
		return "<" + c.table.Name() + ">"
	}
	return string(data)
}

func (c *Composed) GetAttribute(p *Process, name string, required bool) (Value, error) {
	found, err := c.table.Resolve(p, c.self, name)
	if err != nil || found != nil || !required {
		return found, err
	}
	return GetAttribute(p, c.self, name, true)
}

func (c *Composed) SetAttribute(p *Process, name string, v Value) error {
	return c.table.Assign(p, c.self, name, v)
}
