package jit

import "lumen/bytecode"

// operandLen returns the number of operand bytes following op's opcode
// byte, mirroring the decode widths vm/opdispatch.go reads (u8 argc,
// u16 index/slot, i32 jump offset). Needed here because the builder
// walks a chunk's raw code without a running VM frame.
func operandLen(op bytecode.Op) int {
	switch op {
	case bytecode.OpPush, bytecode.OpLoadLocal, bytecode.OpStoreLocal,
		bytecode.OpLoadGlobal, bytecode.OpStoreGlobal, bytecode.OpLoadUpvalue,
		bytecode.OpIndexGetInPlace, bytecode.OpIndexSetInPlace,
		bytecode.OpBeginCatch, bytecode.OpMakeClosure, bytecode.OpSpawn,
		bytecode.OpMakeArray, bytecode.OpMakeDict:
		return 2
	case bytecode.OpCall:
		return 1
	case bytecode.OpCallNative:
		return 3 // u16 name index + u8 argc
	case bytecode.OpAnd, bytecode.OpOr, bytecode.OpJump, bytecode.OpJumpIfFalse,
		bytecode.OpJumpIfTrue, bytecode.OpLoop, bytecode.OpBeginTry, bytecode.OpMatch,
		bytecode.OpBreak, bytecode.OpContinue:
		return 4
	case bytecode.OpFusedMapFill, bytecode.OpFusedArrayFill:
		return 6 // u16 slot + i32 bodyLen
	default:
		return 0
	}
}

// Build partitions chunk into a block-sealed CFG (two passes: pass one
// discovers leaders — jump/branch targets and fallthrough successors —
// pass two slices the code between consecutive leaders) and classifies
// the function as JIT-eligible only when it is loop-free (no OpLoop,
// the interpreter already runs loops fine) and touches only integer
// arithmetic, comparison, locals, and self-recursive Call/Return
// (spec.md §4.3's "hot, stable-typed, self-recursive" specialization
// target — archetypally `fib`).
func Build(chunk *bytecode.Chunk) *Function {
	fn := &Function{Chunk: chunk}
	code := chunk.Code

	leaders := map[int]bool{0: true}
	ineligible := ""
	pc := 0
	for pc < len(code) {
		op := bytecode.Op(code[pc])
		opStart := pc
		oplen := operandLen(op)
		next := pc + 1 + oplen

		switch op {
		case bytecode.OpLoop:
			ineligible = "contains a backward loop (interpreter-only)"
		case bytecode.OpJump, bytecode.OpJumpIfFalse, bytecode.OpJumpIfTrue, bytecode.OpAnd, bytecode.OpOr:
			offset := readI32At(code, opStart+1+oplen-4)
			target := next + offset
			leaders[target] = true
			leaders[next] = true
			if op == bytecode.OpAnd || op == bytecode.OpOr {
				ineligible = "uses a short-circuit opcode outside the specializer's scope"
			}
		case bytecode.OpLoadGlobal:
			idx := int(code[opStart+1])<<8 | int(code[opStart+2])
			if idx >= len(chunk.Constants) || chunk.Constants[idx].String() != chunk.Name {
				ineligible = "loads a global other than its own name"
			}
		case bytecode.OpPush, bytecode.OpLoadLocal, bytecode.OpStoreLocal, bytecode.OpPop, bytecode.OpDup,
			bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod, bytecode.OpNeg,
			bytecode.OpEq, bytecode.OpNe, bytecode.OpLt, bytecode.OpLe, bytecode.OpGt, bytecode.OpGe,
			bytecode.OpCall, bytecode.OpReturn, bytecode.OpReturnNull:
		case bytecode.OpBeginTry:
			ineligible = "contains a try/catch handler"
		case bytecode.OpAwait, bytecode.OpYield, bytecode.OpSpawn:
			ineligible = "contains a suspension point"
		case bytecode.OpCallNative, bytecode.OpMakeArray, bytecode.OpMakeDict,
			bytecode.OpIndexGet, bytecode.OpIndexSet, bytecode.OpMakeClosure,
			bytecode.OpMatch, bytecode.OpMakeOk, bytecode.OpMakeErr,
			bytecode.OpMakeSome, bytecode.OpMakeNone, bytecode.OpTryUnwrap:
			ineligible = "uses a non-arithmetic opcode outside the specializer's scope"
		default:
			ineligible = "uses an opcode evalSpecialized does not handle"
		}
		pc = next
	}

	offsets := make([]int, 0, len(leaders))
	for off := range leaders {
		if off >= 0 && off <= len(code) {
			offsets = append(offsets, off)
		}
	}
	sortInts(offsets)

	for i, start := range offsets {
		end := len(code)
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		if start >= end {
			continue
		}
		term := blockTerminator(code, start, end)
		fn.Blocks = append(fn.Blocks, &BasicBlock{Start: start, End: end, Term: term})
	}

	if chunk.IsAsync || chunk.IsGenerator {
		ineligible = "async/generator chunks are not specialized"
	}
	if len(chunk.ParamNames) != 1 || chunk.NumLocals != 1 {
		ineligible = "specializer only handles single-argument functions"
	}

	fn.Eligible = ineligible == ""
	fn.Ineligible = ineligible
	return fn
}

func blockTerminator(code []byte, start, end int) Terminator {
	pc := start
	for pc < end {
		op := bytecode.Op(code[pc])
		oplen := operandLen(op)
		opNext := pc + 1 + oplen
		switch op {
		case bytecode.OpReturn, bytecode.OpReturnNull:
			return Terminator{Kind: TermReturn}
		case bytecode.OpJump:
			offset := readI32At(code, opNext-4)
			target := opNext + offset
			if target < pc {
				return Terminator{Kind: TermLoop, Target: target}
			}
			return Terminator{Kind: TermJump, Target: target}
		case bytecode.OpJumpIfFalse, bytecode.OpJumpIfTrue:
			offset := readI32At(code, opNext-4)
			return Terminator{Kind: TermBranch, Target: opNext + offset}
		}
		pc = opNext
	}
	return Terminator{Kind: TermFallthrough, Target: end}
}

func readI32At(code []byte, i int) int {
	if i < 0 || i+4 > len(code) {
		return 0
	}
	u := uint32(code[i])<<24 | uint32(code[i+1])<<16 | uint32(code[i+2])<<8 | uint32(code[i+3])
	return int(int32(u))
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
