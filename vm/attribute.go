package vm

// Dispatched is implemented by values that carry their own dispatch table.
type Dispatched interface {
	Table() *DispatchTable
}

// TableOf returns the dispatch table that serves v: its own table when it
// has one, else the builtin table for its kind.
func TableOf(p *Process, v Value) *DispatchTable {
	if d, ok := v.(Dispatched); ok {
		return d.Table()
	}
	if p == nil || p.rt == nil {
		return nil
	}
	return p.Builtins().TableFor(v.Kind())
}

// GetAttribute resolves name on v.
//
// Values implementing AttributeGetter are asked first; everything else goes
// through its dispatch table. A miss retries once on the unpacked value,
// then falls back to the class and _type pseudo attributes. A final miss
// is a NameError when required, else (nil, nil).
func GetAttribute(p *Process, v Value, name string, required bool) (Value, error) {
	v = OrNull(v)
	if ag, ok := v.(AttributeGetter); ok {
		found, err := ag.GetAttribute(p, name, false)
		if err != nil || found != nil {
			return found, err
		}
	} else if t := TableOf(p, v); t != nil {
		found, err := t.Resolve(p, v, name)
		if err != nil || found != nil {
			return found, err
		}
	}
	if inner := Unpack(v); inner != v {
		found, err := GetAttribute(p, inner, name, false)
		if err != nil || found != nil {
			return found, err
		}
	}
	if name == "class" || name == "_type" {
		return String(v.TypeName()), nil
	}
	if required {
		return nil, NewError(p, NameError, "invalid method '%s' on %s (%s)", name, v.String(), v.TypeName())
	}
	return nil, nil
}

// AttributeSetter is implemented by values that handle attribute
// assignment themselves.
type AttributeSetter interface {
	SetAttribute(p *Process, name string, v Value) error
}

// SetAttribute assigns the property name of target.
func SetAttribute(p *Process, target Value, name string, v Value) error {
	target = OrNull(target)
	if as, ok := target.(AttributeSetter); ok {
		return as.SetAttribute(p, name, v)
	}
	if t := TableOf(p, target); t != nil {
		return t.Assign(p, target, name, v)
	}
	return NewError(p, TypeError, "cannot set '%s' on %s", name, target.TypeName())
}

// Invoke calls the method name on v with args.
func Invoke(p *Process, v Value, name string, args ...Value) (Value, error) {
	fn, err := GetAttribute(p, v, name, true)
	if err != nil {
		return nil, err
	}
	return Call(p, fn, args...)
}

// AttributeNames lists the attributes v exposes through its table.
func AttributeNames(p *Process, v Value) []string {
	if t := TableOf(p, OrNull(v)); t != nil {
		return t.Names()
	}
	return nil
}
