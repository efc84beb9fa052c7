package natives

import (
	"fmt"

	"lumen/dispatcher"
	"lumen/value"
)

func registerCollections(r *dispatcher.Registry) {
	r.Register("push", func(args []value.Value) (value.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("push() takes exactly 2 arguments, got %d", len(args))
		}
		arr, ok := args[0].(*value.Array)
		if !ok {
			return nil, fmt.Errorf("push() requires an array receiver, got %s", args[0].Type())
		}
		return arr.Append(args[1]), nil
	})

	r.Register("keys", func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("keys() takes exactly 1 argument, got %d", len(args))
		}
		d, ok := args[0].(*value.Dict)
		if !ok {
			return nil, fmt.Errorf("keys() requires a dict receiver, got %s", args[0].Type())
		}
		ks := d.Keys()
		elts := make([]value.Value, len(ks))
		for i, k := range ks {
			elts[i] = value.NewStr(k)
		}
		return value.NewArray(elts), nil
	})

	r.Register("values", func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("values() takes exactly 1 argument, got %d", len(args))
		}
		d, ok := args[0].(*value.Dict)
		if !ok {
			return nil, fmt.Errorf("values() requires a dict receiver, got %s", args[0].Type())
		}
		ks := d.Keys()
		elts := make([]value.Value, len(ks))
		for i, k := range ks {
			v, _ := d.Get(k)
			elts[i] = v
		}
		return value.NewArray(elts), nil
	})

	r.Register("has_key", func(args []value.Value) (value.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("has_key() takes exactly 2 arguments, got %d", len(args))
		}
		d, ok := args[0].(*value.Dict)
		if !ok {
			return nil, fmt.Errorf("has_key() requires a dict receiver, got %s", args[0].Type())
		}
		_, found := d.Get(args[1].String())
		return value.Bool(found), nil
	})

	r.Register("delete", func(args []value.Value) (value.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("delete() takes exactly 2 arguments, got %d", len(args))
		}
		d, ok := args[0].(*value.Dict)
		if !ok {
			return nil, fmt.Errorf("delete() requires a dict receiver, got %s", args[0].Type())
		}
		return d.Delete(args[1].String()), nil
	})

	r.Register("sort", func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("sort() takes exactly 1 argument, got %d", len(args))
		}
		arr, ok := args[0].(*value.Array)
		if !ok {
			return nil, fmt.Errorf("sort() requires an array receiver, got %s", args[0].Type())
		}
		elts := append([]value.Value{}, arr.Elements()...)
		insertionSort(elts)
		return value.NewArray(elts), nil
	})
}

// insertionSort sorts Int/Float/Str elements in place by natural order;
// mixed or unorderable types are left in their relative position
// (spec.md does not mandate a total order over the full Value model).
func insertionSort(elts []value.Value) {
	for i := 1; i < len(elts); i++ {
		for j := i; j > 0 && lessValue(elts[j], elts[j-1]); j-- {
			elts[j], elts[j-1] = elts[j-1], elts[j]
		}
	}
}

func lessValue(a, b value.Value) bool {
	switch av := a.(type) {
	case value.Int:
		if bv, ok := b.(value.Int); ok {
			return av < bv
		}
	case value.Float:
		if bv, ok := b.(value.Float); ok {
			return av < bv
		}
	case *value.Str:
		if bv, ok := b.(*value.Str); ok {
			return av.String() < bv.String()
		}
	}
	return false
}
