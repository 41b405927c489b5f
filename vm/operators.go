package vm

import (
	"math"
	"strings"
)

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

func numbers(a, b Value) (float64, float64, bool) {
	fa, ok := toFloat(a)
	if !ok {
		return 0, 0, false
	}
	fb, ok := toFloat(b)
	return fa, fb, ok
}

func toFloat(v Value) (float64, bool) {
	switch x := Unpack(OrNull(v)).(type) {
	case Int:
		return float64(x), true
	case Float:
		return float64(x), true
	}
	return 0, false
}

func ints(a, b Value) (Int, Int, bool) {
	x, ok := Unpack(OrNull(a)).(Int)
	if !ok {
		return 0, 0, false
	}
	y, ok := Unpack(OrNull(b)).(Int)
	return x, y, ok
}

func operandError(p *Process, op string, a, b Value) error {
	return NewError(p, TypeError, "unsupported operand types for %s: %s and %s", op, OrNull(a).TypeName(), OrNull(b).TypeName())
}

// Add implements a + b.
func Add(p *Process, a, b Value) (Value, error) {
	if x, y, ok := ints(a, b); ok {
		return x + y, nil
	}
	if x, y, ok := numbers(a, b); ok {
		return Float(x + y), nil
	}
	a, b = OrNull(a), OrNull(b)
	if a.Kind() == KindString || b.Kind() == KindString {
		return String(a.String() + b.String()), nil
	}
	switch x := a.(type) {
	case *List:
		if y, ok := b.(*List); ok {
			items := make([]Value, 0, x.Len()+y.Len())
			items = append(items, x.items...)
			return NewList(append(items, y.items...)...), nil
		}
	case DateTime:
		if y, ok := b.(Duration); ok {
			return NewDateTime(x.t.Add(y.d)), nil
		}
	case Date:
		if y, ok := b.(Duration); ok {
			return DateOf(x.t.Add(y.d)), nil
		}
	case Duration:
		switch y := b.(type) {
		case Duration:
			return NewDuration(x.d + y.d), nil
		case DateTime:
			return NewDateTime(y.t.Add(x.d)), nil
		}
	}
	return nil, operandError(p, "+", a, b)
}

// Sub implements a - b.
func Sub(p *Process, a, b Value) (Value, error) {
	if x, y, ok := ints(a, b); ok {
		return x - y, nil
	}
	if x, y, ok := numbers(a, b); ok {
		return Float(x - y), nil
	}
	a, b = OrNull(a), OrNull(b)
	switch x := a.(type) {
	case DateTime:
		switch y := b.(type) {
		case DateTime:
			return NewDuration(x.t.Sub(y.t)), nil
		case Duration:
			return NewDateTime(x.t.Add(-y.d)), nil
		}
	case Date:
		switch y := b.(type) {
		case Date:
			return NewDuration(x.t.Sub(y.t)), nil
		case Duration:
			return DateOf(x.t.Add(-y.d)), nil
		}
	case Duration:
		if y, ok := b.(Duration); ok {
			return NewDuration(x.d - y.d), nil
		}
	}
	return nil, operandError(p, "-", a, b)
}

// Mul implements a * b.
func Mul(p *Process, a, b Value) (Value, error) {
	if x, y, ok := ints(a, b); ok {
		return x * y, nil
	}
	if x, y, ok := numbers(a, b); ok {
		return Float(x * y), nil
	}
	if s, ok := Unpack(OrNull(a)).(String); ok {
		if n, ok := Unpack(OrNull(b)).(Int); ok && n >= 0 {
			return String(strings.Repeat(string(s), int(n))), nil
		}
	}
	return nil, operandError(p, "*", a, b)
}

// Div implements a / b. Integer division truncates; dividing an integer by
// zero is an ArithmeticError.
func Div(p *Process, a, b Value) (Value, error) {
	if x, y, ok := ints(a, b); ok {
		if y == 0 {
			return nil, NewError(p, ArithmeticError, "/ by zero")
		}
		return x / y, nil
	}
	if x, y, ok := numbers(a, b); ok {
		return Float(x / y), nil
	}
	return nil, operandError(p, "/", a, b)
}

// Mod implements a % b.
func Mod(p *Process, a, b Value) (Value, error) {
	if x, y, ok := ints(a, b); ok {
		if y == 0 {
			return nil, NewError(p, ArithmeticError, "%% by zero")
		}
		return x % y, nil
	}
	if x, y, ok := numbers(a, b); ok {
		return Float(math.Mod(x, y)), nil
	}
	return nil, operandError(p, "%", a, b)
}

// Negate implements -a.
func Negate(p *Process, a Value) (Value, error) {
	switch x := Unpack(OrNull(a)).(type) {
	case Int:
		return -x, nil
	case Float:
		return -x, nil
	case Duration:
		return NewDuration(-x.d), nil
	}
	return nil, NewError(p, TypeError, "bad operand type for unary -: %s", OrNull(a).TypeName())
}

// Compare orders a and b: negative, zero or positive. Numbers, strings,
// dates, datetimes and durations can be compared.
func Compare(a, b Value) (int, error) {
	if x, y, ok := ints(a, b); ok {
		return cmp3(x < y, x > y), nil
	}
	if x, y, ok := numbers(a, b); ok {
		return cmp3(x < y, x > y), nil
	}
	a, b = Unpack(OrNull(a)), Unpack(OrNull(b))
	switch x := a.(type) {
	case String:
		if y, ok := b.(String); ok {
			return strings.Compare(string(x), string(y)), nil
		}
	case Date:
		if y, ok := b.(Date); ok {
			return x.t.Compare(y.t), nil
		}
	case DateTime:
		if y, ok := b.(DateTime); ok {
			return x.t.Compare(y.t), nil
		}
	case Duration:
		if y, ok := b.(Duration); ok {
			return cmp3(x.d < y.d, x.d > y.d), nil
		}
	case Bool:
		if y, ok := b.(Bool); ok {
			return cmp3(!bool(x) && bool(y), bool(x) && !bool(y)), nil
		}
	}
	return 0, NewError(nil, TypeError, "cannot compare %s with %s", a.TypeName(), b.TypeName())
}

// CompareIn is Compare with the process attached to any error.
func CompareIn(p *Process, a, b Value) (int, error) {
	c, err := Compare(a, b)
	if err != nil {
		return 0, NewError(p, TypeError, "cannot compare %s with %s", OrNull(a).TypeName(), OrNull(b).TypeName())
	}
	return c, nil
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

// Contains implements the in operator: membership for lists, sets and map
// keys, substring tests for strings.
func Contains(p *Process, container, item Value) (bool, error) {
	switch c := Unpack(OrNull(container)).(type) {
	case *List:
		return c.Contains(item), nil
	case *Set:
		return c.Contains(item), nil
	case *Map:
		_, ok := c.Get(item)
		return ok, nil
	case String:
		s, ok := Coerce[String](item)
		if !ok {
			return false, NewError(p, TypeError, "'in <string>' requires string as left operand, not %s", OrNull(item).TypeName())
		}
		return strings.Contains(string(c), string(s)), nil
	}
	return false, NewError(p, TypeError, "argument of type %s is not iterable", OrNull(container).TypeName())
}
