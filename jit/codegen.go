package jit

import (
	"lumen/bytecode"
	"lumen/value"
)

// evalSpecialized runs chunk's code as a flat int64-only mini
// evaluator: the interpreter's own stack machine, narrowed to the
// opcode subset Build proved eligible (arithmetic, comparison, a
// single local slot holding the argument, and self-recursive Call).
// This is the "compiled" function spec.md §4.3 describes: a Go closure
// standing in for emitted machine code (see package doc and DESIGN.md
// for why no real codegen backend is wired).
//
// recur is called for a self-recursive OpCall; it is always the
// closure that owns this chunk, wired up by Compiled below via the
// usual Go "declare then assign" closure self-reference trick.
func evalSpecialized(chunk *bytecode.Chunk, arg int64, recur func(int64) int64) int64 {
	code := chunk.Code
	stack := make([]int64, 0, 8)
	push := func(v int64) { stack = append(stack, v) }
	pop := func() int64 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}

	pc := 0
	for pc < len(code) {
		op := bytecode.Op(code[pc])
		switch op {
		case bytecode.OpPush:
			idx := int(code[pc+1])<<8 | int(code[pc+2])
			push(constInt(chunk, idx))
			pc += 3
		case bytecode.OpLoadLocal:
			push(arg) // eligibility requires exactly one param, in slot 0
			pc += 3
		case bytecode.OpStoreLocal:
			arg = stack[len(stack)-1] // peek-and-store into the single local slot
			pc += 3
		case bytecode.OpPop:
			pop()
			pc++
		case bytecode.OpDup:
			push(stack[len(stack)-1])
			pc++
		case bytecode.OpAdd:
			b, a := pop(), pop()
			push(a + b)
			pc++
		case bytecode.OpSub:
			b, a := pop(), pop()
			push(a - b)
			pc++
		case bytecode.OpMul:
			b, a := pop(), pop()
			push(a * b)
			pc++
		case bytecode.OpDiv:
			b, a := pop(), pop()
			if b == 0 {
				push(0)
			} else {
				push(a / b)
			}
			pc++
		case bytecode.OpMod:
			b, a := pop(), pop()
			if b == 0 {
				push(0)
			} else {
				push(a % b)
			}
			pc++
		case bytecode.OpNeg:
			push(-pop())
			pc++
		case bytecode.OpEq:
			b, a := pop(), pop()
			push(boolInt(a == b))
			pc++
		case bytecode.OpNe:
			b, a := pop(), pop()
			push(boolInt(a != b))
			pc++
		case bytecode.OpLt:
			b, a := pop(), pop()
			push(boolInt(a < b))
			pc++
		case bytecode.OpLe:
			b, a := pop(), pop()
			push(boolInt(a <= b))
			pc++
		case bytecode.OpGt:
			b, a := pop(), pop()
			push(boolInt(a > b))
			pc++
		case bytecode.OpGe:
			b, a := pop(), pop()
			push(boolInt(a >= b))
			pc++
		case bytecode.OpJump:
			offset := readI32At(code, pc+1)
			pc = pc + 5 + offset
		case bytecode.OpJumpIfFalse:
			offset := readI32At(code, pc+1)
			cond := pop()
			next := pc + 5
			if cond == 0 {
				pc = next + offset
			} else {
				pc = next
			}
		case bytecode.OpJumpIfTrue:
			offset := readI32At(code, pc+1)
			cond := pop()
			next := pc + 5
			if cond != 0 {
				pc = next + offset
			} else {
				pc = next
			}
		case bytecode.OpLoadGlobal:
			// Build admits only a load of the function's own name, the
			// callee of a self-recursive call; OpCall discards it.
			push(0)
			pc += 3
		case bytecode.OpCall:
			argc := int(code[pc+1])
			if argc != 1 {
				return 0
			}
			a := pop()
			pop() // discard callee reference; self-recursion is the only eligible call target
			push(recur(a))
			pc += 2
		case bytecode.OpReturn:
			return pop()
		case bytecode.OpReturnNull:
			return 0
		default:
			// Build only admits opcodes this switch covers; anything else
			// reaching here means eligibility classification has a gap.
			return 0
		}
	}
	if len(stack) == 0 {
		return 0
	}
	return stack[len(stack)-1]
}

func constInt(chunk *bytecode.Chunk, idx int) int64 {
	if idx < 0 || idx >= len(chunk.Constants) {
		return 0
	}
	if i, ok := chunk.Constants[idx].(value.Int); ok {
		return int64(i)
	}
	return 0
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
