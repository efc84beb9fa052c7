package natives

import (
	"fmt"
	"math"

	"lumen/dispatcher"
	"lumen/value"
)

func registerMath(r *dispatcher.Registry) {
	r.Register("abs", func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("abs() takes exactly 1 argument, got %d", len(args))
		}
		switch n := args[0].(type) {
		case value.Int:
			if n < 0 {
				return -n, nil
			}
			return n, nil
		case value.Float:
			return value.Float(math.Abs(float64(n))), nil
		}
		return nil, fmt.Errorf("abs() requires a numeric argument, got %s", args[0].Type())
	})

	r.Register("sqrt", floatOp1(math.Sqrt))
	r.Register("floor", floatOp1(math.Floor))
	r.Register("ceil", floatOp1(math.Ceil))

	r.Register("min", func(args []value.Value) (value.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("min() takes exactly 2 arguments, got %d", len(args))
		}
		af, ok1 := toFloatNative(args[0])
		bf, ok2 := toFloatNative(args[1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("min() requires numeric arguments")
		}
		if af < bf {
			return args[0], nil
		}
		return args[1], nil
	})

	r.Register("max", func(args []value.Value) (value.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("max() takes exactly 2 arguments, got %d", len(args))
		}
		af, ok1 := toFloatNative(args[0])
		bf, ok2 := toFloatNative(args[1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("max() requires numeric arguments")
		}
		if af > bf {
			return args[0], nil
		}
		return args[1], nil
	})
}

func floatOp1(f func(float64) float64) dispatcher.Fn {
	return func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("expected exactly 1 numeric argument, got %d", len(args))
		}
		n, ok := toFloatNative(args[0])
		if !ok {
			return nil, fmt.Errorf("expected a numeric argument, got %s", args[0].Type())
		}
		return value.Float(f(n)), nil
	}
}

func toFloatNative(v value.Value) (float64, bool) {
	switch n := v.(type) {
	case value.Int:
		return float64(n), true
	case value.Float:
		return float64(n), true
	}
	return 0, false
}
