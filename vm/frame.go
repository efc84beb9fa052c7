package vm

import "lumen/bytecode"

// CallFrame is one activation record on the VM's call-frame stack
// (spec.md §2 item 1, §3.5). Grounded on this codebase's vm.StackFrame,
// generalized to carry locals as a Value slice instead of an
// object/verb-call context.
type CallFrame struct {
	Chunk   *bytecode.Chunk
	PC      int
	Locals  []Value
	FuncName string
	Line    int
}

func newFrame(chunk *bytecode.Chunk, args []Value) *CallFrame {
	locals := make([]Value, chunk.NumLocals)
	for i, a := range args {
		if i < len(locals) {
			locals[i] = a
		}
	}
	return &CallFrame{Chunk: chunk, Locals: locals, FuncName: chunk.Name}
}
