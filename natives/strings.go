package natives

import (
	"fmt"
	"strings"

	"lumen/dispatcher"
	"lumen/value"
)

func registerStrings(r *dispatcher.Registry) {
	r.Register("upper", strOp1(strings.ToUpper))
	r.Register("lower", strOp1(strings.ToLower))
	r.Register("trim", strOp1(strings.TrimSpace))

	r.Register("split", func(args []value.Value) (value.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("split() takes exactly 2 arguments, got %d", len(args))
		}
		s, ok := args[0].(*value.Str)
		sep, ok2 := args[1].(*value.Str)
		if !ok || !ok2 {
			return nil, fmt.Errorf("split() requires (str, str)")
		}
		parts := strings.Split(s.String(), sep.String())
		elts := make([]value.Value, len(parts))
		for i, p := range parts {
			elts[i] = value.NewStr(p)
		}
		return value.NewArray(elts), nil
	})

	r.Register("join", func(args []value.Value) (value.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("join() takes exactly 2 arguments, got %d", len(args))
		}
		arr, ok := args[0].(*value.Array)
		sep, ok2 := args[1].(*value.Str)
		if !ok || !ok2 {
			return nil, fmt.Errorf("join() requires (array, str)")
		}
		parts := make([]string, arr.Len())
		for i, e := range arr.Elements() {
			parts[i] = e.String()
		}
		return value.NewStr(strings.Join(parts, sep.String())), nil
	})

	r.Register("contains", func(args []value.Value) (value.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("contains() takes exactly 2 arguments, got %d", len(args))
		}
		s, ok := args[0].(*value.Str)
		sub, ok2 := args[1].(*value.Str)
		if !ok || !ok2 {
			return nil, fmt.Errorf("contains() requires (str, str)")
		}
		return value.Bool(strings.Contains(s.String(), sub.String())), nil
	})

	r.Register("replace", func(args []value.Value) (value.Value, error) {
		if len(args) != 3 {
			return nil, fmt.Errorf("replace() takes exactly 3 arguments, got %d", len(args))
		}
		s, ok1 := args[0].(*value.Str)
		old, ok2 := args[1].(*value.Str)
		neu, ok3 := args[2].(*value.Str)
		if !ok1 || !ok2 || !ok3 {
			return nil, fmt.Errorf("replace() requires (str, str, str)")
		}
		return value.NewStr(strings.ReplaceAll(s.String(), old.String(), neu.String())), nil
	})
}

func strOp1(f func(string) string) dispatcher.Fn {
	return func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("expected exactly 1 string argument, got %d", len(args))
		}
		s, ok := args[0].(*value.Str)
		if !ok {
			return nil, fmt.Errorf("expected a string argument, got %s", args[0].Type())
		}
		return value.NewStr(f(s.String())), nil
	}
}
