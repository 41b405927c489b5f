package vm

import (
	"math"
	"strconv"
	"strings"
	"sync"
)

// ---------------------------------------------------------------------------
// Value: the script-visible value contract
// ---------------------------------------------------------------------------

// Kind tags a value variant. The kind of a value never changes.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindSet
	KindMap
	KindDate
	KindDateTime
	KindDuration
	KindRegex
	KindBinary
	KindCallable
	KindWrapped
	KindComposed
	KindError
	KindModule

	kindCount
)

var kindNames = [...]string{
	KindNull:     "null",
	KindBool:     "bool",
	KindInt:      "int",
	KindFloat:    "float",
	KindString:   "string",
	KindList:     "list",
	KindSet:      "set",
	KindMap:      "map",
	KindDate:     "date",
	KindDateTime: "datetime",
	KindDuration: "duration",
	KindRegex:    "regex",
	KindBinary:   "binary",
	KindCallable: "function",
	KindWrapped:  "wrapped",
	KindComposed: "object",
	KindError:    "exception",
	KindModule:   "module",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is implemented by everything a script can hold.
type Value interface {
	Kind() Kind
	// TypeName is the script-visible name of the variant, also returned by
	// the class and _type pseudo attributes.
	TypeName() string
	IsTruthy() bool
	// String returns the display string used by print.
	String() string
	// HostValue returns the underlying Go value.
	HostValue() any
}

// AttributeGetter is implemented by values that resolve attributes on their
// own instead of through the builtin table for their kind.
type AttributeGetter interface {
	GetAttribute(p *Process, name string, required bool) (Value, error)
}

// Unpacker is implemented by values that wrap another value.
type Unpacker interface {
	Unpack() Value
}

// Unpack peels one layer of wrapping. Values that do not wrap anything are
// returned unchanged.
func Unpack(v Value) Value {
	if u, ok := v.(Unpacker); ok {
		if inner := u.Unpack(); inner != nil {
			return inner
		}
	}
	return v
}

// Coerce converts v to T if v is a T, or if unpacking v once yields a T.
// It never unpacks more than one level.
func Coerce[T Value](v Value) (T, bool) {
	if t, ok := v.(T); ok {
		return t, true
	}
	if inner := Unpack(v); inner != v {
		if t, ok := inner.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// ---------------------------------------------------------------------------
// Null
// ---------------------------------------------------------------------------

type nullValue struct{}

// Null is the only null value.
var Null Value = nullValue{}

func (nullValue) Kind() Kind       { return KindNull }
func (nullValue) TypeName() string { return "null" }
func (nullValue) IsTruthy() bool   { return false }
func (nullValue) String() string   { return "null" }
func (nullValue) HostValue() any   { return nil }

// IsNull reports whether v is absent or null.
func IsNull(v Value) bool {
	return v == nil || v.Kind() == KindNull
}

// OrNull maps a nil Value to Null.
func OrNull(v Value) Value {
	if v == nil {
		return Null
	}
	return v
}

// ---------------------------------------------------------------------------
// Bool
// ---------------------------------------------------------------------------

// Bool is a script boolean.
type Bool bool

const (
	True  Bool = true
	False Bool = false
)

func (b Bool) Kind() Kind       { return KindBool }
func (b Bool) TypeName() string { return "bool" }
func (b Bool) IsTruthy() bool   { return bool(b) }
func (b Bool) HostValue() any   { return bool(b) }

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

// ---------------------------------------------------------------------------
// Int and Float
// ---------------------------------------------------------------------------

// Int is a 64-bit script integer.
type Int int64

func (i Int) Kind() Kind       { return KindInt }
func (i Int) TypeName() string { return "int" }
func (i Int) IsTruthy() bool   { return i != 0 }
func (i Int) String() string   { return strconv.FormatInt(int64(i), 10) }
func (i Int) HostValue() any   { return int64(i) }

// Float is a 64-bit script float.
type Float float64

func (f Float) Kind() Kind       { return KindFloat }
func (f Float) TypeName() string { return "float" }
func (f Float) IsTruthy() bool   { return f != 0 }
func (f Float) HostValue() any   { return float64(f) }

// String always shows a decimal point, so 3.0 prints as "3.0".
func (f Float) String() string {
	v := float64(f)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// ---------------------------------------------------------------------------
// String
// ---------------------------------------------------------------------------

// String is a script string.
type String string

func (s String) Kind() Kind       { return KindString }
func (s String) TypeName() string { return "string" }
func (s String) IsTruthy() bool   { return s != "" }
func (s String) String() string   { return string(s) }
func (s String) HostValue() any   { return string(s) }

const internMaxLen = 16

var internTable = struct {
	sync.RWMutex
	m map[string]String
}{m: make(map[string]String)}

// Intern returns a shared String for short strings. Longer strings are
// returned as is.
func Intern(s string) String {
	if len(s) > internMaxLen {
		return String(s)
	}
	internTable.RLock()
	v, ok := internTable.m[s]
	internTable.RUnlock()
	if ok {
		return v
	}
	internTable.Lock()
	defer internTable.Unlock()
	if v, ok = internTable.m[s]; ok {
		return v
	}
	v = String(s)
	internTable.m[s] = v
	return v
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// Truthy reports whether v counts as true in a condition. Absent values are
// false.
func Truthy(v Value) bool {
	return v != nil && v.IsTruthy()
}

// Display returns the display string of v, or "null" for absent values.
func Display(v Value) string {
	if v == nil {
		return "null"
	}
	return v.String()
}

// Equal compares two values the way the == operator does. Numbers compare
// across int and float; collections compare element-wise.
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	switch x := a.(type) {
	case Int:
		switch y := b.(type) {
		case Int:
			return x == y
		case Float:
			return Float(x) == y
		}
		return false
	case Float:
		switch y := b.(type) {
		case Int:
			return x == Float(y)
		case Float:
			return x == y
		}
		return false
	case *List:
		y, ok := b.(*List)
		if !ok || len(x.items) != len(y.items) {
			return false
		}
		for i := range x.items {
			if !Equal(x.items[i], y.items[i]) {
				return false
			}
		}
		return true
	case *Map:
		y, ok := b.(*Map)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for _, k := range x.keys {
			yv, ok := y.entries[k]
			if !ok || !Equal(x.entries[k], yv) {
				return false
			}
		}
		return true
	case *Set:
		y, ok := b.(*Set)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for _, k := range x.keys {
			if !y.Contains(x.elems[k]) {
				return false
			}
		}
		return true
	}
	if a.Kind() != b.Kind() {
		return false
	}
	if eq, ok := a.(interface{ equals(Value) bool }); ok {
		return eq.equals(b)
	}
	return a == b
}
