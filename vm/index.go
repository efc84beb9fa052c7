package vm

import (
	"fmt"

	"lumen/value"
)

// indexGet implements the general `x[i]` / `x.field` read (spec.md
// §3.1): arrays index by int, dicts/structs by string key.
func indexGet(x, idx Value) (Value, error) {
	switch c := x.(type) {
	case *value.Array:
		i, ok := idx.(value.Int)
		if !ok {
			return nil, fmt.Errorf("array index must be int, got %s", idx.Type())
		}
		v, ok := c.Get(int(i))
		if !ok {
			return nil, fmt.Errorf("array index %d out of range (len %d)", i, c.Len())
		}
		return v, nil
	case *value.Dict:
		v, ok := c.Get(idx.String())
		if !ok {
			return nil, fmt.Errorf("key %q not found", idx.String())
		}
		return v, nil
	case *value.Struct:
		v, ok := c.Fields[idx.String()]
		if !ok {
			return nil, fmt.Errorf("field %q not found on %s", idx.String(), c.Name)
		}
		return v, nil
	case *value.Str:
		i, ok := idx.(value.Int)
		if !ok {
			return nil, fmt.Errorf("string index must be int, got %s", idx.Type())
		}
		s := c.String()
		if int(i) < 0 || int(i) >= len(s) {
			return nil, fmt.Errorf("string index %d out of range", i)
		}
		return value.NewStr(string(s[i])), nil
	default:
		return nil, fmt.Errorf("type %s does not support indexing", x.Type())
	}
}

// indexSet implements the general `x[i] = v` / `x.field = v` write,
// returning the (possibly copy-on-write-cloned) updated container
// (spec.md §3.3).
func indexSet(x, idx, val Value) (Value, error) {
	switch c := x.(type) {
	case *value.Array:
		i, ok := idx.(value.Int)
		if !ok {
			return nil, fmt.Errorf("array index must be int, got %s", idx.Type())
		}
		return c.Set(int(i), val), nil
	case *value.Dict:
		return c.Set(idx.String(), val), nil
	default:
		return nil, fmt.Errorf("type %s does not support index assignment", x.Type())
	}
}

// iterator is the VM-internal value backing MakeIterator/HasNext/Next
// (spec.md §4.2 for-in lowering). It is never exposed to user code as a
// first-class Value, only pushed/popped on the VM's own value stack, so
// it satisfies value.Value minimally for stack storage purposes.
type iterator struct {
	elts []Value
	pos  int
	keys []string
	dict *value.Dict
}

func (it *iterator) Type() value.TypeCode { return value.TypeArray }
func (it *iterator) String() string       { return "<iterator>" }
func (it *iterator) Truthy() bool         { return true }
func (it *iterator) Equal(o Value) bool   { return false }

func (it *iterator) hasNext() bool {
	if it.dict != nil {
		return it.pos < len(it.keys)
	}
	return it.pos < len(it.elts)
}

func (it *iterator) next() Value {
	if it.dict != nil {
		k := it.keys[it.pos]
		it.pos++
		return value.NewStr(k)
	}
	v := it.elts[it.pos]
	it.pos++
	return v
}

func makeIterator(v Value) (Value, error) {
	switch c := v.(type) {
	case *value.Array:
		return &iterator{elts: c.Elements()}, nil
	case *value.Dict:
		return &iterator{dict: c, keys: c.Keys()}, nil
	case *value.Str:
		s := c.String()
		elts := make([]Value, len(s))
		for i := 0; i < len(s); i++ {
			elts[i] = value.NewStr(string(s[i]))
		}
		return &iterator{elts: elts}, nil
	default:
		return nil, fmt.Errorf("type %s is not iterable", v.Type())
	}
}
