package vm

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"time"
)

// Module exposes the bindings of a scope as attributes, e.g. __builtin__.
type Module struct {
	name  string
	scope *Scope
}

// NewModuleValue creates a module value over scope.
func NewModuleValue(name string, scope *Scope) *Module {
	return &Module{name: name, scope: scope}
}

func (m *Module) Kind() Kind       { return KindModule }
func (m *Module) TypeName() string { return "module" }
func (m *Module) IsTruthy() bool   { return true }
func (m *Module) String() string   { return "<module " + m.name + ">" }
func (m *Module) HostValue() any   { return m.scope }

// Scope returns the scope behind the module.
func (m *Module) Scope() *Scope { return m.scope }

func (m *Module) GetAttribute(p *Process, name string, required bool) (Value, error) {
	if v, ok := m.scope.RetrieveLocal(name); ok {
		return v, nil
	}
	if p != nil && p.rt != nil {
		return p.Builtins().Modules.Resolve(p, m, name)
	}
	return nil, nil
}

// ---------------------------------------------------------------------------
// Host values -> script values
// ---------------------------------------------------------------------------

// FromHost converts a Go value into a script value. Script values pass
// through; slices and maps are converted element-wise; unknown types
// become their fmt string.
func FromHost(b *Builtins, v any) Value {
	switch x := v.(type) {
	case nil:
		return Null
	case Value:
		return x
	case bool:
		return Bool(x)
	case int:
		return Int(x)
	case int8:
		return Int(x)
	case int16:
		return Int(x)
	case int32:
		return Int(x)
	case int64:
		return Int(x)
	case uint8:
		return Int(x)
	case uint16:
		return Int(x)
	case uint32:
		return Int(x)
	case uint:
		return Int(x)
	case uint64:
		return Int(x)
	case float32:
		return Float(x)
	case float64:
		return Float(x)
	case string:
		return String(x)
	case []byte:
		return b.NewBinary(x)
	case time.Time:
		return NewDateTime(x)
	case time.Duration:
		return NewDuration(x)
	case *regexp.Regexp:
		return b.NewRegex(x)
	case []any:
		items := make([]Value, len(x))
		for i, item := range x {
			items[i] = FromHost(b, item)
		}
		return NewList(items...)
	case map[string]any:
		// Go maps have no order; sort keys so results are stable.
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := NewMap()
		for _, k := range keys {
			m.PutString(k, FromHost(b, x[k]))
		}
		return m
	case fmt.Stringer:
		return String(x.String())
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]Value, rv.Len())
		for i := range items {
			items[i] = FromHost(b, rv.Index(i).Interface())
		}
		return NewList(items...)
	case reflect.Map:
		m := NewMap()
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		for _, k := range keys {
			m.Put(FromHost(b, k.Interface()), FromHost(b, rv.MapIndex(k).Interface()))
		}
		return m
	case reflect.Pointer:
		if rv.IsNil() {
			return Null
		}
		return FromHost(b, rv.Elem().Interface())
	}
	return String(fmt.Sprint(v))
}
