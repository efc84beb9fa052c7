package value

// Chunk is the minimal view of a compiled function body that the value
// package needs; the concrete type lives in package bytecode to avoid an
// import cycle (bytecode.Chunk implements this).
type Chunk interface {
	ChunkName() string
	Async() bool
	Generator() bool
}

// Scope is the minimal view of a captured lexical environment the value
// package needs. No type in this build implements it; the compiler
// always passes nil as a function's captured scope.
type Scope interface {
	ScopeDepth() int
}

// BytecodeFunction is a compiled function value: a chunk plus an
// optionally captured defining scope (for closures).
type BytecodeFunction struct {
	Chunk    Chunk
	Captured Scope // always nil in this build (see Scope)
	Name     string
}

func NewBytecodeFunction(name string, chunk Chunk, captured Scope) *BytecodeFunction {
	return &BytecodeFunction{Chunk: chunk, Captured: captured, Name: name}
}

func (f *BytecodeFunction) Type() TypeCode { return TypeBytecodeFunction }
func (f *BytecodeFunction) String() string { return "<function " + f.Name + ">" }
func (f *BytecodeFunction) Truthy() bool   { return true }
func (f *BytecodeFunction) Equal(o Value) bool {
	of, ok := o.(*BytecodeFunction)
	return ok && of == f
}

// NativeFunction is a name tag dispatched through the native dispatcher
// (package dispatcher); the Value model itself carries no handler
// pointer so that dispatcher registration can be rebuilt per interpreter
// without value package import cycles.
type NativeFunction struct {
	Name string
}

func NewNativeFunction(name string) *NativeFunction { return &NativeFunction{Name: name} }

func (f *NativeFunction) Type() TypeCode { return TypeNativeFunction }
func (f *NativeFunction) String() string { return "<native " + f.Name + ">" }
func (f *NativeFunction) Truthy() bool   { return true }
func (f *NativeFunction) Equal(o Value) bool {
	of, ok := o.(*NativeFunction)
	return ok && of.Name == f.Name
}

// AsyncFunction marks a BytecodeFunction for the Promise-returning call
// convention (spec.md §3.1, §4.2 Call opcode): calling it creates a
// Promise and runs the body on its own goroutine and sub-VM (not on the
// async executor) instead of pushing a normal call frame.
type AsyncFunction struct {
	*BytecodeFunction
}

func NewAsyncFunction(fn *BytecodeFunction) *AsyncFunction {
	return &AsyncFunction{BytecodeFunction: fn}
}

func (f *AsyncFunction) Type() TypeCode { return TypeAsyncFunction }
func (f *AsyncFunction) String() string { return "<async function " + f.Name + ">" }
func (f *AsyncFunction) Equal(o Value) bool {
	of, ok := o.(*AsyncFunction)
	return ok && of.BytecodeFunction == f.BytecodeFunction
}
