package vm

import (
	"math"
	"strconv"
)

func registerNumberMethods(b *Builtins) {
	ints := b.Ints
	Help.Set(ints.Property("epoch", func(p *Process, n Int) (Value, error) {
		return DateTimeFromEpoch(int64(n)), nil
	}, nil), "int.epoch: The datetime n seconds after the Unix epoch.")
	ints.Property("int", func(p *Process, n Int) (Value, error) { return n, nil }, nil)
	ints.Property("float", func(p *Process, n Int) (Value, error) { return Float(n), nil }, nil)
	ints.Method("abs", func(p *Process, n Int, args *CallArgs) (Value, error) {
		if n < 0 {
			return -n, nil
		}
		return n, nil
	})
	ints.Method("toString", func(p *Process, n Int, args *CallArgs) (Value, error) {
		base, err := args.OptionalInt(0, 10)
		if err != nil {
			return nil, err
		}
		if base < 2 || base > 36 {
			return nil, NewError(p, ArgumentError, "toString() base must be between 2 and 36, got %d", base)
		}
		return String(strconv.FormatInt(int64(n), int(base))), nil
	})
	ints.Method("toHex", func(p *Process, n Int, args *CallArgs) (Value, error) {
		return String(strconv.FormatInt(int64(n), 16)), nil
	})

	floats := b.Floats
	floats.Property("int", func(p *Process, f Float) (Value, error) { return Int(f), nil }, nil)
	floats.Property("float", func(p *Process, f Float) (Value, error) { return f, nil }, nil)
	floats.Method("abs", func(p *Process, f Float, args *CallArgs) (Value, error) {
		return Float(math.Abs(float64(f))), nil
	})
	floats.Method("round", func(p *Process, f Float, args *CallArgs) (Value, error) {
		digits, err := args.OptionalInt(0, 0)
		if err != nil {
			return nil, err
		}
		if digits == 0 {
			return Int(math.Round(float64(f))), nil
		}
		scale := math.Pow(10, float64(digits))
		return Float(math.Round(float64(f)*scale) / scale), nil
	})
	floats.Method("floor", func(p *Process, f Float, args *CallArgs) (Value, error) {
		return Int(math.Floor(float64(f))), nil
	})
	floats.Method("ceil", func(p *Process, f Float, args *CallArgs) (Value, error) {
		return Int(math.Ceil(float64(f))), nil
	})
}
