// Package value implements the tagged runtime value model shared by the
// interpreter, compiler, VM, JIT, and native dispatcher.
package value

import "fmt"

// TypeCode identifies a Value's runtime variant for typeof()-style
// introspection and JIT type guards.
type TypeCode int

const (
	TypeInt TypeCode = iota
	TypeFloat
	TypeBool
	TypeNull
	TypeStr
	TypeBytes
	TypeArray
	TypeDict
	TypeSet
	TypeQueue
	TypeStack
	TypeBytecodeFunction
	TypeNativeFunction
	TypeAsyncFunction
	TypePromise
	TypeTaskHandle
	TypeError
	TypeErrorObject
	TypeStruct
	TypeTagged
	TypeEnumDef
	TypeEnumInstance
	TypeResult
	TypeOption
	TypeResource
)

func (t TypeCode) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeNull:
		return "null"
	case TypeStr:
		return "str"
	case TypeBytes:
		return "bytes"
	case TypeArray:
		return "array"
	case TypeDict:
		return "dict"
	case TypeSet:
		return "set"
	case TypeQueue:
		return "queue"
	case TypeStack:
		return "stack"
	case TypeBytecodeFunction:
		return "function"
	case TypeNativeFunction:
		return "native_function"
	case TypeAsyncFunction:
		return "async_function"
	case TypePromise:
		return "promise"
	case TypeTaskHandle:
		return "task_handle"
	case TypeError:
		return "error"
	case TypeErrorObject:
		return "error_object"
	case TypeStruct:
		return "struct"
	case TypeTagged:
		return "tagged"
	case TypeEnumDef:
		return "enum_def"
	case TypeEnumInstance:
		return "enum_instance"
	case TypeResult:
		return "result"
	case TypeOption:
		return "option"
	case TypeResource:
		return "resource"
	default:
		return "unknown"
	}
}

// Value is the tagged discriminated value every other component speaks.
//
// Value deliberately does not satisfy comparable / support `==`: Promise
// variants hold interior mutability (lock + receiver + cache slot), so a
// generic equality operator over the interface would be unsound. Use
// Equal for MOO/LambdaMOO-style deep equality, or StructuralEqual for the
// explicit helper spec.md §3.1 requires native dispatch tests to use
// instead of comparing Values with ==.
type Value interface {
	Type() TypeCode
	String() string
	Truthy() bool
	// Equal reports value equality. Implementations must not assume the
	// other side only ever holds the same concrete type.
	Equal(other Value) bool
}

// StructuralEqual is the explicit deep-equality helper spec.md §3.1
// requires: Value variants are not totally ordered/equatable, so native
// dispatch and test code must go through this instead of `==`.
func StructuralEqual(a, b Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(b)
}

// Unbound is a sentinel for a local slot read before its first store.
// Nothing in this build creates one (newFrame leaves such slots nil). It
// is not a user-facing error variant, so it is not part of TypeCode.
type Unbound struct{}

func (Unbound) Type() TypeCode      { return TypeNull }
func (Unbound) String() string      { return "<unbound>" }
func (Unbound) Truthy() bool        { return false }
func (Unbound) Equal(o Value) bool  { _, ok := o.(Unbound); return ok }

// Null is the Value model's Null primitive.
type Null struct{}

func (Null) Type() TypeCode     { return TypeNull }
func (Null) String() string     { return "null" }
func (Null) Truthy() bool       { return false }
func (Null) Equal(o Value) bool { _, ok := o.(Null); return ok }

// Bool wraps a boolean primitive.
type Bool bool

func (b Bool) Type() TypeCode { return TypeBool }
func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (b Bool) Truthy() bool { return bool(b) }
func (b Bool) Equal(o Value) bool {
	ob, ok := o.(Bool)
	return ok && ob == b
}

// Int wraps a 64-bit signed integer primitive.
type Int int64

func (i Int) Type() TypeCode     { return TypeInt }
func (i Int) String() string     { return fmt.Sprintf("%d", int64(i)) }
func (i Int) Truthy() bool       { return i != 0 }
func (i Int) Equal(o Value) bool { oi, ok := o.(Int); return ok && oi == i }

// Float wraps a 64-bit IEEE float primitive.
type Float float64

func (f Float) Type() TypeCode { return TypeFloat }
func (f Float) String() string { return fmt.Sprintf("%g", float64(f)) }
func (f Float) Truthy() bool   { return f != 0 }
func (f Float) Equal(o Value) bool {
	of, ok := o.(Float)
	return ok && of == f
}
