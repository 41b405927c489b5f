package vm

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ---------------------------------------------------------------------------
// Declarative JSON for dispatch tables
// ---------------------------------------------------------------------------

// fieldCodec reads and writes one property. encode returns false for values
// that are at their default and are left out of the output.
type fieldCodec struct {
	encode func(p *Process, self Value) (json.RawMessage, bool, error)
	decode func(p *Process, self Value, raw json.RawMessage) error
}

// HasJSON reports whether the entry takes part in JSON (de)serialization.
func (e *Entry) HasJSON() bool { return e.origin().codec != nil }

// WriteJSON serializes the properties of self that carry a codec. Parent
// table properties come first, each table in declaration order. Properties
// at their default value are omitted.
func (t *DispatchTable) WriteJSON(p *Process, self Value) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, e := range t.Entries() {
		c := e.origin().codec
		if c == nil {
			continue
		}
		raw, ok, err := c.encode(p, self)
		if err != nil {
			return nil, fmt.Errorf("write %s.%s: %w", t.name, e.name, err)
		}
		if !ok {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, err := json.Marshal(e.name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ReadJSONInto applies the keys of a JSON object to self. Unknown keys are
// skipped; properties whose keys are missing keep their current value.
func (t *DispatchTable) ReadJSONInto(p *Process, self Value, data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read %s: %w", t.name, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("read %s: expected object, got %v", t.name, tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read %s: %w", t.name, err)
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("read %s.%s: %w", t.name, key, err)
		}
		e, ok := t.Lookup(key)
		if !ok {
			continue
		}
		c := e.origin().codec
		if c == nil {
			continue
		}
		if err := c.decode(p, self, raw); err != nil {
			return fmt.Errorf("read %s.%s: %w", t.name, key, err)
		}
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("read %s: %w", t.name, err)
	}
	return nil
}

// ReadJSON creates an instance with factory, or with the table's
// constructor when factory is nil, and fills it from data.
func ReadJSON[T Value](p *Process, t *TypedTable[T], data []byte, factory func() T) (T, error) {
	var zero T
	var self T
	if factory != nil {
		self = factory()
	} else {
		ctor := t.Constructor()
		if ctor == nil {
			return zero, fmt.Errorf("read %s: no constructor registered", t.name)
		}
		v, err := ctor.Invoke(p, nil, NewCallArgs(p, t.name))
		if err != nil {
			return zero, err
		}
		typed, ok := Coerce[T](v)
		if !ok {
			return zero, fmt.Errorf("read %s: constructor returned %s", t.name, OrNull(v).TypeName())
		}
		self = typed
	}
	if err := t.ReadJSONInto(p, self, data); err != nil {
		return zero, err
	}
	return self, nil
}

// ---------------------------------------------------------------------------
// Generic values <-> JSON
// ---------------------------------------------------------------------------

// ToJSON serializes a script value. Maps become objects, lists and sets
// arrays, dates ISO strings; composed objects use their table.
func ToJSON(p *Process, v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValueJSON(p, &buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeValueJSON(p *Process, buf *bytes.Buffer, v Value) error {
	switch x := OrNull(v).(type) {
	case nullValue:
		buf.WriteString("null")
	case Bool, Int, Float, String:
		raw, err := json.Marshal(x.HostValue())
		if err != nil {
			return err
		}
		buf.Write(raw)
	case Date:
		buf.WriteString(`"` + x.t.Format("2006-01-02") + `"`)
	case DateTime:
		buf.WriteString(`"` + x.t.Format("2006-01-02T15:04:05") + `"`)
	case *List:
		return writeArrayJSON(p, buf, x.items)
	case *Set:
		return writeArrayJSON(p, buf, x.Elements())
	case *Map:
		buf.WriteByte('{')
		for i, k := range x.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(Display(x.orig[k]))
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeValueJSON(p, buf, x.entries[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		if d, ok := x.(Dispatched); ok && x.Kind() == KindComposed {
			raw, err := d.Table().WriteJSON(p, x)
			if err != nil {
				return err
			}
			buf.Write(raw)
			return nil
		}
		raw, err := json.Marshal(x.String())
		if err != nil {
			return err
		}
		buf.Write(raw)
	}
	return nil
}

func writeArrayJSON(p *Process, buf *bytes.Buffer, items []Value) error {
	buf.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeValueJSON(p, buf, item); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

// FromJSON parses JSON into script values, keeping object key order.
func FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := readValueJSON(dec)
	if err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

func readValueJSON(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch x := tok.(type) {
	case nil:
		return Null, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return Int(n), nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, err
		}
		return Float(f), nil
	case json.Delim:
		switch x {
		case '[':
			l := NewList()
			for dec.More() {
				item, err := readValueJSON(dec)
				if err != nil {
					return nil, err
				}
				l.Append(item)
			}
			_, err := dec.Token()
			return l, err
		case '{':
			m := NewMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := keyTok.(string)
				item, err := readValueJSON(dec)
				if err != nil {
					return nil, err
				}
				m.PutString(key, item)
			}
			_, err := dec.Token()
			return m, err
		}
	}
	return nil, fmt.Errorf("unexpected JSON token %v", tok)
}
