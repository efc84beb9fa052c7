package compiler

import (
	"encoding/binary"
	"fmt"

	"lumen/bytecode"
)

// stackEffect is the net value-stack delta of an opcode, used by Verify
// to catch a value-stack underflow at compile time rather than letting
// it corrupt the VM's value stack at run time.
func stackEffect(op bytecode.Op, argc byte) (int, bool) {
	switch op {
	case bytecode.OpPush, bytecode.OpLoadLocal, bytecode.OpLoadGlobal, bytecode.OpLoadUpvalue:
		return 1, true
	case bytecode.OpPop, bytecode.OpThrow, bytecode.OpReturn:
		return -1, true
	case bytecode.OpDup:
		return 1, true
	case bytecode.OpStoreLocal, bytecode.OpStoreGlobal:
		return 0, true // peek-and-store: net zero, value stays
	case bytecode.OpIndexGetInPlace:
		return 0, true // pop index, push result
	case bytecode.OpIndexSetInPlace:
		return -2, true // pop value, index
	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod, bytecode.OpPow,
		bytecode.OpEq, bytecode.OpNe, bytecode.OpLt, bytecode.OpLe, bytecode.OpGt, bytecode.OpGe, bytecode.OpIn,
		bytecode.OpBitOr, bytecode.OpBitAnd, bytecode.OpBitXor, bytecode.OpShl, bytecode.OpShr:
		return -1, true
	case bytecode.OpNeg, bytecode.OpNot, bytecode.OpBitNot:
		return 0, true
	case bytecode.OpAnd, bytecode.OpOr:
		return 0, true // conditionally pop on the taken branch only; treated as net-zero at verify granularity
	case bytecode.OpJump, bytecode.OpLoop:
		return 0, true
	case bytecode.OpJumpIfFalse, bytecode.OpJumpIfTrue:
		return -1, true
	case bytecode.OpReturnNull:
		return 0, true
	case bytecode.OpMakeIterator:
		return 0, true
	case bytecode.OpIteratorHasNext:
		return 1, true
	case bytecode.OpIteratorNext:
		return 1, true
	case bytecode.OpBreak, bytecode.OpContinue:
		return 0, true
	case bytecode.OpBeginTry, bytecode.OpEndTry, bytecode.OpEndCatch:
		return 0, true
	case bytecode.OpBeginCatch:
		return 1, true
	case bytecode.OpCall:
		return -int(argc), true // pops callee+args (argc includes callee handled by caller), pushes result
	case bytecode.OpCallNative:
		return -int(argc) + 1, true
	case bytecode.OpMakeClosure:
		return 0, true
	case bytecode.OpAwait:
		return 0, true
	case bytecode.OpYield:
		return 0, true
	case bytecode.OpSpawn:
		return 1, true
	case bytecode.OpMakeArray, bytecode.OpMakeDict:
		return 0, false // variable: depends on u16 count operand, handled inline below
	case bytecode.OpIndexGet:
		return -1, true
	case bytecode.OpIndexSet:
		return -2, true
	case bytecode.OpSlice:
		return -2, true
	case bytecode.OpLength:
		return 0, true
	case bytecode.OpSpread:
		return 0, true
	case bytecode.OpMakeOk, bytecode.OpMakeErr, bytecode.OpMakeSome:
		return 0, true
	case bytecode.OpMakeNone:
		return 1, true
	case bytecode.OpTryUnwrap:
		return 0, true
	case bytecode.OpMatch:
		return 0, true
	}
	return 0, true
}

// Verify performs a best-effort linear scan of a chunk's bytecode,
// tracking the value-stack depth opcode by opcode and failing if it ever
// goes negative. It does not attempt control-flow-sensitive verification
// (branches are walked in isolation, not merged) and checks no per-block
// or end-of-chunk balance, so a surplus value, such as the one a missing
// Pop after StoreLocal/StoreGlobal leaves behind, is not reported.
func Verify(chunk *bytecode.Chunk) error {
	depth := 0
	pc := 0
	code := chunk.Code
	for pc < len(code) {
		op := bytecode.Op(code[pc])
		pc++
		var argc byte
		switch op {
		case bytecode.OpPush, bytecode.OpLoadLocal, bytecode.OpStoreLocal,
			bytecode.OpLoadGlobal, bytecode.OpStoreGlobal, bytecode.OpLoadUpvalue,
			bytecode.OpIndexGetInPlace, bytecode.OpIndexSetInPlace,
			bytecode.OpMakeArray, bytecode.OpMakeDict, bytecode.OpCallNative,
			bytecode.OpMakeClosure, bytecode.OpSpawn, bytecode.OpBeginCatch:
			if pc+2 > len(code) {
				return fmt.Errorf("verify: truncated u16 operand at pc=%d", pc)
			}
			n := int(binary.BigEndian.Uint16(code[pc : pc+2]))
			pc += 2
			if op == bytecode.OpMakeArray {
				depth += 1 - n
				continue
			}
			if op == bytecode.OpMakeDict {
				depth += 1 - 2*n
				continue
			}
			if op == bytecode.OpCallNative {
				// followed by argc byte
				if pc >= len(code) {
					return fmt.Errorf("verify: missing CALL_NATIVE argc at pc=%d", pc)
				}
				argc = code[pc]
				pc++
				depth += 1 - int(argc)
				continue
			}
		case bytecode.OpJump, bytecode.OpJumpIfFalse, bytecode.OpJumpIfTrue,
			bytecode.OpLoop, bytecode.OpAnd, bytecode.OpOr, bytecode.OpBeginTry,
			bytecode.OpBreak, bytecode.OpContinue:
			if pc+4 > len(code) {
				return fmt.Errorf("verify: truncated i32 operand at pc=%d", pc)
			}
			pc += 4
		case bytecode.OpCall:
			if pc >= len(code) {
				return fmt.Errorf("verify: missing CALL argc at pc=%d", pc)
			}
			argc = code[pc]
			pc++
			depth -= int(argc) // callee + args popped, result pushed net -argc
		}
		eff, exact := stackEffect(op, argc)
		if exact && op != bytecode.OpCall && op != bytecode.OpCallNative &&
			op != bytecode.OpMakeArray && op != bytecode.OpMakeDict {
			depth += eff
		}
		if depth < 0 {
			return fmt.Errorf("verify: %s: stack underflow at pc=%d (depth=%d)", chunk.Name, pc, depth)
		}
	}
	return nil
}
