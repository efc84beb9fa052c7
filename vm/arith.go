package vm

import (
	"fmt"

	"lumen/bytecode"
	"lumen/value"
)

func arith(op bytecode.Op, a, b Value) (Value, error) {
	ai, aIsInt := a.(value.Int)
	bi, bIsInt := b.(value.Int)
	if aIsInt && bIsInt {
		switch op {
		case bytecode.OpAdd:
			return ai + bi, nil
		case bytecode.OpSub:
			return ai - bi, nil
		case bytecode.OpMul:
			return ai * bi, nil
		case bytecode.OpDiv:
			if bi == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return ai / bi, nil
		case bytecode.OpMod:
			if bi == 0 {
				return nil, fmt.Errorf("modulo by zero")
			}
			return ai % bi, nil
		case bytecode.OpPow:
			return value.Int(intPow(int64(ai), int64(bi))), nil
		}
	}
	if as, ok := a.(*value.Str); ok && op == bytecode.OpAdd {
		if bs, ok := b.(*value.Str); ok {
			return as.Concat(bs), nil
		}
	}
	if aa, ok := a.(*value.Array); ok && op == bytecode.OpAdd {
		if ba, ok := b.(*value.Array); ok {
			elts := append(append([]Value{}, aa.Elements()...), ba.Elements()...)
			return value.NewArray(elts), nil
		}
	}
	af, aOk := toFloat(a)
	bf, bOk := toFloat(b)
	if !aOk || !bOk {
		return nil, fmt.Errorf("unsupported operand types for arithmetic: %s, %s", a.Type(), b.Type())
	}
	switch op {
	case bytecode.OpAdd:
		return value.Float(af + bf), nil
	case bytecode.OpSub:
		return value.Float(af - bf), nil
	case bytecode.OpMul:
		return value.Float(af * bf), nil
	case bytecode.OpDiv:
		if bf == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return value.Float(af / bf), nil
	case bytecode.OpMod:
		return value.Float(modFloat(af, bf)), nil
	case bytecode.OpPow:
		return value.Float(floatPow(af, bf)), nil
	}
	return nil, fmt.Errorf("vm: unhandled arithmetic opcode %s", op)
}

func toFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case value.Int:
		return float64(n), true
	case value.Float:
		return float64(n), true
	}
	return 0, false
}

func intPow(base, exp int64) int64 {
	if exp < 0 {
		return 0
	}
	result := int64(1)
	for i := int64(0); i < exp; i++ {
		result *= base
	}
	return result
}

func floatPow(base, exp float64) float64 {
	result := 1.0
	neg := exp < 0
	if neg {
		exp = -exp
	}
	for i := 0; i < int(exp); i++ {
		result *= base
	}
	if neg {
		return 1 / result
	}
	return result
}

func modFloat(a, b float64) float64 {
	for a >= b {
		a -= b
	}
	return a
}

func compare(op bytecode.Op, a, b Value) (bool, error) {
	af, aOk := toFloat(a)
	bf, bOk := toFloat(b)
	if aOk && bOk {
		switch op {
		case bytecode.OpLt:
			return af < bf, nil
		case bytecode.OpLe:
			return af <= bf, nil
		case bytecode.OpGt:
			return af > bf, nil
		case bytecode.OpGe:
			return af >= bf, nil
		}
	}
	as, aIsStr := a.(*value.Str)
	bs, bIsStr := b.(*value.Str)
	if aIsStr && bIsStr {
		switch op {
		case bytecode.OpLt:
			return as.String() < bs.String(), nil
		case bytecode.OpLe:
			return as.String() <= bs.String(), nil
		case bytecode.OpGt:
			return as.String() > bs.String(), nil
		case bytecode.OpGe:
			return as.String() >= bs.String(), nil
		}
	}
	return false, fmt.Errorf("unsupported operand types for comparison: %s, %s", a.Type(), b.Type())
}

func bitwise(op bytecode.Op, a, b Value) (Value, error) {
	ai, aOk := a.(value.Int)
	bi, bOk := b.(value.Int)
	if !aOk || !bOk {
		return nil, fmt.Errorf("bitwise operators require int operands, got %s, %s", a.Type(), b.Type())
	}
	switch op {
	case bytecode.OpBitOr:
		return ai | bi, nil
	case bytecode.OpBitAnd:
		return ai & bi, nil
	case bytecode.OpBitXor:
		return ai ^ bi, nil
	case bytecode.OpShl:
		return ai << uint(bi), nil
	case bytecode.OpShr:
		return ai >> uint(bi), nil
	}
	return nil, fmt.Errorf("vm: unhandled bitwise opcode %s", op)
}

func containsValue(container, needle Value) bool {
	switch c := container.(type) {
	case *value.Array:
		for _, e := range c.Elements() {
			if value.StructuralEqual(e, needle) {
				return true
			}
		}
	case *value.Dict:
		_, ok := c.Get(needle.String())
		return ok
	case *value.Str:
		if ns, ok := needle.(*value.Str); ok {
			return contains(c.String(), ns.String())
		}
	}
	return false
}

func contains(haystack, needle string) bool {
	if len(needle) == 0 {
		return true
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

func lengthOf(v Value) int {
	switch c := v.(type) {
	case *value.Array:
		return c.Len()
	case *value.Dict:
		return c.Len()
	case *value.Str:
		return c.Len()
	case *value.Bytes:
		return c.Len()
	}
	return 0
}
