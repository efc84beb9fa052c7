// Package compiler lowers parser AST nodes into bytecode.Chunk,
// generalized from this codebase's tree-walking evaluator onto an
// explicit compile step (spec.md §2 item 2, §4). Locals are resolved to
// slots at compile time; every other name is a global, resolved by name.
package compiler

import (
	"encoding/binary"
	"fmt"

	"lumen/bytecode"
	"lumen/parser"
	"lumen/value"
)

// loopCtx tracks break/continue patch sites for the innermost loop.
type loopCtx struct {
	breaks    []int // pc of each OpBreak's operand needing a patch
	continues []int
	loopStart int
}

// funcCtx is one nested function-compilation scope: its own locals table
// and chunk.
type funcCtx struct {
	chunk    *bytecode.Chunk
	parent   *funcCtx
	locals   []localVar
	scopeDep int
	loops    []*loopCtx
}

type localVar struct {
	name  string
	depth int
	slot  int
}

// Compiler compiles one Program (or one function literal at a time,
// recursively) into a tree of bytecode.Chunk values.
type Compiler struct {
	fn *funcCtx
}

func New() *Compiler {
	return &Compiler{}
}

// CompileProgram compiles a top-level program into its entry chunk.
// Top-level `let`/assignment targets globals by name (OpLoadGlobal /
// OpStoreGlobal); function bodies get their own locals.
func CompileProgram(prog *parser.Program) (*bytecode.Chunk, error) {
	c := &Compiler{}
	c.fn = &funcCtx{chunk: bytecode.New("<script>")}
	for _, s := range prog.Statements {
		if err := c.compileStmt(s); err != nil {
			return nil, err
		}
	}
	c.emit(bytecode.OpReturnNull)
	return c.fn.chunk, nil
}

func (c *Compiler) chunk() *bytecode.Chunk { return c.fn.chunk }

func (c *Compiler) emit(op bytecode.Op) int {
	c.chunk().Code = append(c.chunk().Code, byte(op))
	return len(c.chunk().Code) - 1
}

func (c *Compiler) emitByte(b byte) {
	c.chunk().Code = append(c.chunk().Code, b)
}

func (c *Compiler) emitU16(v int) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(v))
	c.chunk().Code = append(c.chunk().Code, buf[:]...)
}

func (c *Compiler) emitI32(v int) int {
	pos := len(c.chunk().Code)
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(int32(v)))
	c.chunk().Code = append(c.chunk().Code, buf[:]...)
	return pos
}

func (c *Compiler) patchI32(pos int, v int) {
	binary.BigEndian.PutUint32(c.chunk().Code[pos:pos+4], uint32(int32(v)))
}

// emitJump emits op followed by a placeholder i32 operand and returns
// the operand's byte position for later patching with patchJump. This
// is the two-pass jump handling spec.md §4.1 requires: op.HasPCOperand()
// marks which opcodes carry a patchable target, BeginTry included.
func (c *Compiler) emitJump(op bytecode.Op) int {
	c.emit(op)
	return c.emitI32(0)
}

// patchJump rewrites the operand at pos to be the relative offset from
// just after the operand to the current end of code.
func (c *Compiler) patchJump(pos int) {
	target := len(c.chunk().Code) - (pos + 4)
	c.patchI32(pos, target)
}

func (c *Compiler) addConstant(v value.Value) int {
	return c.chunk().AddConstant(v)
}

func (c *Compiler) pushScope() { c.fn.scopeDep++ }

func (c *Compiler) popScope() {
	c.fn.scopeDep--
	// Drop locals declared in the scope being closed. declareLocal
	// allocates slot len(locals), so their slots are reused by later
	// declarations; NumLocals keeps the high-water mark.
	for len(c.fn.locals) > 0 && c.fn.locals[len(c.fn.locals)-1].depth > c.fn.scopeDep {
		c.fn.locals = c.fn.locals[:len(c.fn.locals)-1]
	}
}

func (c *Compiler) declareLocal(name string) int {
	slot := len(c.fn.locals)
	c.fn.locals = append(c.fn.locals, localVar{name: name, depth: c.fn.scopeDep, slot: slot})
	if slot+1 > c.fn.chunk.NumLocals {
		c.fn.chunk.NumLocals = slot + 1
	}
	return slot
}

func (c *Compiler) resolveLocal(name string) (int, bool) {
	for i := len(c.fn.locals) - 1; i >= 0; i-- {
		if c.fn.locals[i].name == name {
			return c.fn.locals[i].slot, true
		}
	}
	return 0, false
}

// inFunction reports whether we're compiling inside a function body
// (as opposed to top-level script scope), i.e. whether plain identifiers
// should resolve to locals first.
func (c *Compiler) inFunction() bool { return c.fn.parent != nil }

func (c *Compiler) pushLoop() *loopCtx {
	lc := &loopCtx{loopStart: len(c.chunk().Code)}
	c.fn.loops = append(c.fn.loops, lc)
	return lc
}

func (c *Compiler) popLoop() *loopCtx {
	lc := c.fn.loops[len(c.fn.loops)-1]
	c.fn.loops = c.fn.loops[:len(c.fn.loops)-1]
	return lc
}

func (c *Compiler) currentLoop() (*loopCtx, error) {
	if len(c.fn.loops) == 0 {
		return nil, fmt.Errorf("break/continue outside of a loop")
	}
	return c.fn.loops[len(c.fn.loops)-1], nil
}

func nameConst(c *Compiler, name string) int {
	return c.addConstant(value.NewStr(name))
}
