package vm

import "fmt"

// CallArgs are the arguments of one call, together with the name of the
// callee for error messages.
type CallArgs struct {
	p    *Process
	name string
	args []Value
}

// NewCallArgs creates arguments for a call to name.
func NewCallArgs(p *Process, name string, args ...Value) *CallArgs {
	return &CallArgs{p: p, name: name, args: args}
}

// Name returns the callee name.
func (a *CallArgs) Name() string { return a.name }

// Len returns the argument count.
func (a *CallArgs) Len() int { return len(a.args) }

// Values returns all arguments.
func (a *CallArgs) Values() []Value { return a.args }

func plural(n int) string {
	if n == 1 {
		return "argument"
	}
	return "arguments"
}

// Require checks that between min and max arguments were passed. A negative
// max means no upper bound.
func (a *CallArgs) Require(min, max int) error {
	n := len(a.args)
	if n >= min && (max < 0 || n <= max) {
		return nil
	}
	var want string
	switch {
	case max < 0:
		want = fmt.Sprintf("at least %d %s", min, plural(min))
	case min == max:
		want = fmt.Sprintf("%d %s", min, plural(min))
	default:
		want = fmt.Sprintf("between %d and %d arguments", min, max)
	}
	return NewError(a.p, ArgumentError, "%s() expected %s, got %d", a.name, want, n)
}

// RequireExactly checks for exactly n arguments.
func (a *CallArgs) RequireExactly(n int) error { return a.Require(n, n) }

// RequireAtLeast checks for n or more arguments.
func (a *CallArgs) RequireAtLeast(n int) error { return a.Require(n, -1) }

// Get returns argument i, or Null when it was not passed.
func (a *CallArgs) Get(i int) Value {
	if i < 0 || i >= len(a.args) {
		return Null
	}
	return OrNull(a.args[i])
}

func (a *CallArgs) wrongType(i int, want string) error {
	v := a.Get(i)
	return NewError(a.p, ArgumentError, "%s() argument %d: expected %s, got %s", a.name, i+1, want, v.TypeName())
}

// String returns argument i as a string.
func (a *CallArgs) String(i int) (string, error) {
	if s, ok := Coerce[String](a.Get(i)); ok {
		return string(s), nil
	}
	return "", a.wrongType(i, "string")
}

// OptionalString returns argument i as a string, or def when it is missing
// or null.
func (a *CallArgs) OptionalString(i int, def string) (string, error) {
	if IsNull(a.Get(i)) {
		return def, nil
	}
	return a.String(i)
}

// Int returns argument i as an integer.
func (a *CallArgs) Int(i int) (int64, error) {
	if n, ok := Coerce[Int](a.Get(i)); ok {
		return int64(n), nil
	}
	return 0, a.wrongType(i, "int")
}

// OptionalInt returns argument i as an integer, or def when it is missing
// or null.
func (a *CallArgs) OptionalInt(i int, def int64) (int64, error) {
	if IsNull(a.Get(i)) {
		return def, nil
	}
	return a.Int(i)
}

// Float returns argument i as a float. Integers are widened.
func (a *CallArgs) Float(i int) (float64, error) {
	switch v := Unpack(a.Get(i)).(type) {
	case Float:
		return float64(v), nil
	case Int:
		return float64(v), nil
	}
	return 0, a.wrongType(i, "float")
}

// Bool returns argument i as a boolean.
func (a *CallArgs) Bool(i int) (bool, error) {
	if b, ok := Coerce[Bool](a.Get(i)); ok {
		return bool(b), nil
	}
	return false, a.wrongType(i, "bool")
}

// List returns argument i as a list.
func (a *CallArgs) List(i int) (*List, error) {
	if l, ok := Coerce[*List](a.Get(i)); ok {
		return l, nil
	}
	return nil, a.wrongType(i, "list")
}

// Map returns argument i as a map.
func (a *CallArgs) Map(i int) (*Map, error) {
	if m, ok := Coerce[*Map](a.Get(i)); ok {
		return m, nil
	}
	return nil, a.wrongType(i, "map")
}

// Callable returns argument i as a callable.
func (a *CallArgs) Callable(i int) (Callable, error) {
	if c, ok := a.Get(i).(Callable); ok {
		return c, nil
	}
	return nil, a.wrongType(i, "function")
}
