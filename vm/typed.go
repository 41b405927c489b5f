package vm

import (
	"encoding/json"
)

// ---------------------------------------------------------------------------
// TypedTable: registration helpers with typed receivers
// ---------------------------------------------------------------------------

// TypedTable is a dispatch table whose entries receive a T. The typed
// property helpers also install the JSON codec of the property.
type TypedTable[T Value] struct {
	*DispatchTable
}

// NewTypedTable creates a typed table.
func NewTypedTable[T Value](name string, parent *DispatchTable) *TypedTable[T] {
	return &TypedTable[T]{DispatchTable: NewDispatchTable(name, parent)}
}

func (t *TypedTable[T]) receiver(p *Process, v Value) (T, error) {
	if self, ok := Coerce[T](v); ok {
		return self, nil
	}
	var zero T
	return zero, NewError(p, TypeError, "%s entry called on %s", t.name, OrNull(v).TypeName())
}

// Method registers a method with a typed receiver.
func (t *TypedTable[T]) Method(name string, fn func(p *Process, self T, args *CallArgs) (Value, error)) *Entry {
	return t.AddMethod(name, func(p *Process, v Value, args *CallArgs) (Value, error) {
		self, err := t.receiver(p, v)
		if err != nil {
			return nil, err
		}
		return fn(p, self, args)
	})
}

// Property registers a script-only property. set may be nil.
func (t *TypedTable[T]) Property(name string, get func(p *Process, self T) (Value, error), set func(p *Process, self T, v Value) error) *Entry {
	getter := func(p *Process, v Value) (Value, error) {
		self, err := t.receiver(p, v)
		if err != nil {
			return nil, err
		}
		return get(p, self)
	}
	var setter Setter
	if set != nil {
		setter = func(p *Process, v Value, nv Value) error {
			self, err := t.receiver(p, v)
			if err != nil {
				return err
			}
			return set(p, self, nv)
		}
	}
	return t.AddProperty(name, getter, setter)
}

// SetConstructorFunc registers a typed constructor.
func (t *TypedTable[T]) SetConstructorFunc(fn func(p *Process, args *CallArgs) (T, error)) *Entry {
	return t.SetConstructor(func(p *Process, args *CallArgs) (Value, error) {
		v, err := fn(p, args)
		if err != nil {
			return nil, err
		}
		return v, nil
	})
}

// field registers a declarative property. hint is stored as TypeHint so
// other layers, such as persistence, know the property's shape.
func (t *TypedTable[T]) field(name, hint string, get Getter, set Setter, codec *fieldCodec) *Entry {
	e := t.AddProperty(name, get, set)
	t.mu.Lock()
	e.codec = codec
	t.mu.Unlock()
	return TypeHint.Set(e, hint)
}

// typedGetter adapts a plain Go getter.
func typedGetter[T Value, F any](t *TypedTable[T], get func(T) F, conv func(F) Value) Getter {
	return func(p *Process, v Value) (Value, error) {
		self, err := t.receiver(p, v)
		if err != nil {
			return nil, err
		}
		return conv(get(self)), nil
	}
}

// typedSetter adapts a plain Go setter. A nil set yields a read-only
// property.
func typedSetter[T Value, F any](t *TypedTable[T], name string, set func(T, F), conv func(Value) (F, bool), want string) Setter {
	if set == nil {
		return nil
	}
	return func(p *Process, v Value, nv Value) error {
		self, err := t.receiver(p, v)
		if err != nil {
			return err
		}
		f, ok := conv(nv)
		if !ok {
			return NewError(p, TypeError, "property '%s' of %s expects %s, got %s", name, t.name, want, OrNull(nv).TypeName())
		}
		set(self, f)
		return nil
	}
}

func typedCodec[T Value, F any](t *TypedTable[T], get func(T) F, omit func(F) bool, set func(T, F)) *fieldCodec {
	return &fieldCodec{
		encode: func(p *Process, v Value) (json.RawMessage, bool, error) {
			self, err := t.receiver(p, v)
			if err != nil {
				return nil, false, err
			}
			f := get(self)
			if omit(f) {
				return nil, false, nil
			}
			raw, err := json.Marshal(f)
			return raw, err == nil, err
		},
		decode: func(p *Process, v Value, raw json.RawMessage) error {
			if set == nil {
				return nil
			}
			self, err := t.receiver(p, v)
			if err != nil {
				return err
			}
			var f F
			if err := json.Unmarshal(raw, &f); err != nil {
				return err
			}
			set(self, f)
			return nil
		},
	}
}

// StringProperty registers a string property. The empty string is omitted
// from JSON; use NullableStringProperty when "" must survive a round trip.
func (t *TypedTable[T]) StringProperty(name string, get func(T) string, set func(T, string)) *Entry {
	return t.field(name, "string",
		typedGetter(t, get, func(s string) Value { return String(s) }),
		typedSetter(t, name, set, func(v Value) (string, bool) {
			if IsNull(v) {
				return "", true
			}
			s, ok := Coerce[String](v)
			return string(s), ok
		}, "string"),
		typedCodec(t, get, func(s string) bool { return s == "" }, set),
	)
}

// NullableStringProperty registers a string property that may be null. Null
// values are omitted from JSON.
func (t *TypedTable[T]) NullableStringProperty(name string, get func(T) *string, set func(T, *string)) *Entry {
	return t.field(name, "string",
		typedGetter(t, get, func(s *string) Value {
			if s == nil {
				return Null
			}
			return String(*s)
		}),
		typedSetter(t, name, set, func(v Value) (*string, bool) {
			if IsNull(v) {
				return nil, true
			}
			s, ok := Coerce[String](v)
			str := string(s)
			return &str, ok
		}, "string"),
		typedCodec(t, get, func(s *string) bool { return s == nil }, set),
	)
}

// IntProperty registers an integer property. Zero is omitted from JSON.
func (t *TypedTable[T]) IntProperty(name string, get func(T) int64, set func(T, int64)) *Entry {
	return t.field(name, "int",
		typedGetter(t, get, func(n int64) Value { return Int(n) }),
		typedSetter(t, name, set, func(v Value) (int64, bool) {
			n, ok := Coerce[Int](v)
			return int64(n), ok
		}, "int"),
		typedCodec(t, get, func(n int64) bool { return n == 0 }, set),
	)
}

// FloatProperty registers a float property. Zero is omitted from JSON.
func (t *TypedTable[T]) FloatProperty(name string, get func(T) float64, set func(T, float64)) *Entry {
	return t.field(name, "float",
		typedGetter(t, get, func(f float64) Value { return Float(f) }),
		typedSetter(t, name, set, func(v Value) (float64, bool) {
			switch n := Unpack(OrNull(v)).(type) {
			case Float:
				return float64(n), true
			case Int:
				return float64(n), true
			}
			return 0, false
		}, "float"),
		typedCodec(t, get, func(f float64) bool { return f == 0 }, set),
	)
}

// BoolProperty registers a boolean property. False is omitted from JSON.
func (t *TypedTable[T]) BoolProperty(name string, get func(T) bool, set func(T, bool)) *Entry {
	return t.field(name, "bool",
		typedGetter(t, get, func(b bool) Value { return Bool(b) }),
		typedSetter(t, name, set, func(v Value) (bool, bool) {
			b, ok := Coerce[Bool](v)
			return bool(b), ok
		}, "bool"),
		typedCodec(t, get, func(b bool) bool { return !b }, set),
	)
}

// StringListProperty registers a list-of-strings property. Nil and empty
// lists are omitted from JSON.
func (t *TypedTable[T]) StringListProperty(name string, get func(T) []string, set func(T, []string)) *Entry {
	return t.field(name, "list",
		typedGetter(t, get, func(ss []string) Value {
			items := make([]Value, len(ss))
			for i, s := range ss {
				items[i] = String(s)
			}
			return NewList(items...)
		}),
		typedSetter(t, name, set, func(v Value) ([]string, bool) {
			if IsNull(v) {
				return nil, true
			}
			l, ok := Coerce[*List](v)
			if !ok {
				return nil, false
			}
			out := make([]string, 0, l.Len())
			for _, item := range l.Items() {
				s, ok := Coerce[String](item)
				if !ok {
					return nil, false
				}
				out = append(out, string(s))
			}
			return out, true
		}, "list of strings"),
		typedCodec(t, get, func(ss []string) bool { return len(ss) == 0 }, set),
	)
}

// ObjectProperty registers a property holding a nested object described by
// its own table. Nil objects are omitted from JSON; when reading, the
// nested object is created with the nested table's constructor.
func ObjectProperty[T Value, C any, PC interface {
	*C
	Value
}](t *TypedTable[T], name string, nested *TypedTable[PC], get func(T) PC, set func(T, PC)) *Entry {
	getter := typedGetter(t, get, func(c PC) Value {
		if c == nil {
			return Null
		}
		return c
	})
	setter := typedSetter(t, name, set, func(v Value) (PC, bool) {
		if IsNull(v) {
			return nil, true
		}
		return Coerce[PC](v)
	}, nested.name)
	codec := &fieldCodec{
		encode: func(p *Process, v Value) (json.RawMessage, bool, error) {
			self, err := t.receiver(p, v)
			if err != nil {
				return nil, false, err
			}
			c := get(self)
			if c == nil {
				return nil, false, nil
			}
			raw, err := nested.WriteJSON(p, c)
			return raw, err == nil, err
		},
		decode: func(p *Process, v Value, raw json.RawMessage) error {
			if set == nil {
				return nil
			}
			self, err := t.receiver(p, v)
			if err != nil {
				return err
			}
			if string(raw) == "null" {
				set(self, nil)
				return nil
			}
			c, err := ReadJSON(p, nested, raw, nil)
			if err != nil {
				return err
			}
			set(self, c)
			return nil
		},
	}
	return t.field(name, "object", getter, setter, codec)
}
