package compiler

import (
	"fmt"

	"lumen/bytecode"
	"lumen/parser"
	"lumen/value"
)

func (c *Compiler) compileStmt(n parser.Node) error {
	switch s := n.(type) {
	case *parser.LetStmt:
		return c.compileLet(s)
	case *parser.AssignStmt:
		return c.compileAssign(s)
	case *parser.ExprStmt:
		if err := c.compileExpr(s.Expr); err != nil {
			return err
		}
		c.emit(bytecode.OpPop)
		return nil
	case *parser.BlockStmt:
		c.pushScope()
		for _, st := range s.Statements {
			if err := c.compileStmt(st); err != nil {
				return err
			}
		}
		c.popScope()
		return nil
	case *parser.IfStmt:
		return c.compileIf(s)
	case *parser.WhileStmt:
		return c.compileWhile(s)
	case *parser.ForInStmt:
		return c.compileForIn(s)
	case *parser.ReturnStmt:
		if s.Value != nil {
			if err := c.compileExpr(s.Value); err != nil {
				return err
			}
			c.emit(bytecode.OpReturn)
		} else {
			c.emit(bytecode.OpReturnNull)
		}
		return nil
	case *parser.BreakStmt:
		lc, err := c.currentLoop()
		if err != nil {
			return err
		}
		pos := c.emitJump(bytecode.OpBreak)
		lc.breaks = append(lc.breaks, pos)
		return nil
	case *parser.ContinueStmt:
		lc, err := c.currentLoop()
		if err != nil {
			return err
		}
		pos := c.emitJump(bytecode.OpContinue)
		lc.continues = append(lc.continues, pos)
		return nil
	case *parser.ThrowStmt:
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		c.emit(bytecode.OpThrow)
		return nil
	case *parser.TryStmt:
		return c.compileTry(s)
	case *parser.FuncDecl:
		return c.compileFuncDecl(s)
	case *parser.SpawnStmt:
		return c.compileSpawn(s)
	case *parser.TestDecl:
		// A test body compiles like a function declaration bound to
		// "test$"+name; nothing in this build enumerates or runs it.
		return c.compileFuncDecl(&parser.FuncDecl{Name: "test$" + s.Name, Body: s.Body})
	default:
		return fmt.Errorf("compiler: unhandled statement node %T", n)
	}
}

func (c *Compiler) compileLet(s *parser.LetStmt) error {
	if err := c.compileExpr(s.Value); err != nil {
		return err
	}
	if c.inFunction() {
		slot := c.declareLocal(s.Name)
		c.emit(bytecode.OpStoreLocal)
		c.emitU16(slot)
		c.emit(bytecode.OpPop) // mandatory stack-hygiene pop after peek-and-store
		return nil
	}
	idx := nameConst(c, s.Name)
	c.emit(bytecode.OpStoreGlobal)
	c.emitU16(idx)
	c.emit(bytecode.OpPop)
	return nil
}

func (c *Compiler) compileAssign(s *parser.AssignStmt) error {
	switch target := s.Target.(type) {
	case *parser.Ident:
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		if slot, ok := c.resolveLocal(target.Name); ok {
			c.emit(bytecode.OpStoreLocal)
			c.emitU16(slot)
			c.emit(bytecode.OpPop)
			return nil
		}
		idx := nameConst(c, target.Name)
		c.emit(bytecode.OpStoreGlobal)
		c.emitU16(idx)
		c.emit(bytecode.OpPop)
		return nil
	case *parser.IndexExpr:
		if slot, ok := asLocalSlot(c, target.X); ok {
			if err := c.compileExpr(target.Index); err != nil {
				return err
			}
			if err := c.compileExpr(s.Value); err != nil {
				return err
			}
			c.emit(bytecode.OpIndexSetInPlace)
			c.emitU16(slot)
			return nil
		}
		if err := c.compileExpr(target.X); err != nil {
			return err
		}
		if err := c.compileExpr(target.Index); err != nil {
			return err
		}
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		c.emit(bytecode.OpIndexSet)
		if id, ok := target.X.(*parser.Ident); ok {
			c.emit(bytecode.OpStoreGlobal) // not a local: asLocalSlot failed
			c.emitU16(nameConst(c, id.Name))
		}
		c.emit(bytecode.OpPop)
		return nil
	case *parser.FieldExpr:
		if err := c.compileExpr(target.X); err != nil {
			return err
		}
		idx := c.addConstant(value.NewStr(target.Field))
		c.emit(bytecode.OpPush)
		c.emitU16(idx)
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		c.emit(bytecode.OpIndexSet)
		if id, ok := target.X.(*parser.Ident); ok {
			if slot, ok := c.resolveLocal(id.Name); ok {
				c.emit(bytecode.OpStoreLocal)
				c.emitU16(slot)
			} else {
				c.emit(bytecode.OpStoreGlobal)
				c.emitU16(nameConst(c, id.Name))
			}
		}
		c.emit(bytecode.OpPop)
		return nil
	default:
		return fmt.Errorf("compiler: invalid assignment target %T", s.Target)
	}
}

// asLocalSlot reports whether x is a bare identifier resolving to a
// local slot, enabling the IndexSetInPlace/IndexGetInPlace fast path
// (spec.md §4.1 "local optimization") instead of the general
// push-clone-store sequence.
func asLocalSlot(c *Compiler, x parser.Node) (int, bool) {
	id, ok := x.(*parser.Ident)
	if !ok {
		return 0, false
	}
	return c.resolveLocal(id.Name)
}

func (c *Compiler) compileIf(s *parser.IfStmt) error {
	if err := c.compileExpr(s.Cond); err != nil {
		return err
	}
	elseJump := c.emitJump(bytecode.OpJumpIfFalse)
	if err := c.compileStmt(s.Then); err != nil {
		return err
	}
	endJump := c.emitJump(bytecode.OpJump)
	c.patchJump(elseJump)
	if s.Else != nil {
		if err := c.compileStmt(s.Else); err != nil {
			return err
		}
	}
	c.patchJump(endJump)
	return nil
}

func (c *Compiler) compileWhile(s *parser.WhileStmt) error {
	lc := c.pushLoop()
	if err := c.compileExpr(s.Cond); err != nil {
		return err
	}
	exitJump := c.emitJump(bytecode.OpJumpIfFalse)
	if err := c.compileStmt(s.Body); err != nil {
		return err
	}
	c.emitLoopBack(lc.loopStart)
	c.patchJump(exitJump)
	c.patchLoopExits(lc, len(c.chunk().Code))
	c.popLoop()
	return nil
}

// emitLoopBack emits OpLoop with an operand equal to the distance to
// jump backward from just after the operand to start.
func (c *Compiler) emitLoopBack(start int) {
	c.emit(bytecode.OpLoop)
	offset := (len(c.chunk().Code) + 4) - start
	c.emitI32(offset)
}

func (c *Compiler) patchLoopExits(lc *loopCtx, breakTarget int) {
	for _, pos := range lc.breaks {
		c.patchI32(pos, breakTarget-(pos+4))
	}
	for _, pos := range lc.continues {
		// continue re-enters the condition check, i.e. loopStart.
		c.patchI32(pos, lc.loopStart-(pos+4))
	}
}

func (c *Compiler) compileForIn(s *parser.ForInStmt) error {
	if err := c.compileExpr(s.Iter); err != nil {
		return err
	}
	c.emit(bytecode.OpMakeIterator)
	lc := c.pushLoop()
	c.emit(bytecode.OpIteratorHasNext)
	exitJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emit(bytecode.OpIteratorNext)
	c.pushScope()
	var slot int
	var global int
	isLocal := c.inFunction()
	if isLocal {
		slot = c.declareLocal(s.VarName)
		c.emit(bytecode.OpStoreLocal)
		c.emitU16(slot)
		c.emit(bytecode.OpPop)
	} else {
		global = nameConst(c, s.VarName)
		c.emit(bytecode.OpStoreGlobal)
		c.emitU16(global)
		c.emit(bytecode.OpPop)
	}
	if err := c.compileStmt(s.Body); err != nil {
		return err
	}
	c.popScope()
	c.emitLoopBack(lc.loopStart)
	c.patchJump(exitJump)
	c.patchLoopExits(lc, len(c.chunk().Code))
	c.emit(bytecode.OpPop) // discard the iterator left on the stack
	c.popLoop()
	return nil
}

// compileTry lowers try/catch/finally using BeginTry/EndTry/BeginCatch/
// EndCatch plus an exception-table entry (spec.md §3.6, §4.1, §4.2).
// BeginTry's pc operand is patched exactly like a jump target
// (op.HasPCOperand() covers it).
func (c *Compiler) compileTry(s *parser.TryStmt) error {
	tryStart := len(c.chunk().Code)
	catchJump := c.emitJump(bytecode.OpBeginTry)
	if err := c.compileStmt(s.Body); err != nil {
		return err
	}
	c.emit(bytecode.OpEndTry)
	doneJump := c.emitJump(bytecode.OpJump)
	tryEnd := len(c.chunk().Code)
	catchPC := len(c.chunk().Code)
	c.patchJump(catchJump)

	bindName := s.CatchName
	if s.CatchBody != nil {
		c.emit(bytecode.OpBeginCatch)
		if bindName != "" && c.inFunction() {
			slot := c.declareLocal(bindName)
			c.emitU16(slot)
		} else if bindName != "" {
			idx := nameConst(c, bindName)
			c.emitU16(idx)
		} else {
			c.emitU16(0xFFFF) // no binding requested
		}
		if err := c.compileStmt(s.CatchBody); err != nil {
			return err
		}
		c.emit(bytecode.OpEndCatch)
	}
	c.patchJump(doneJump)

	if s.FinallyBody != nil {
		if err := c.compileStmt(s.FinallyBody); err != nil {
			return err
		}
	}

	c.chunk().Handlers = append(c.chunk().Handlers, bytecode.ExceptionHandlerEntry{
		Kind:     bytecode.HandlerCatch,
		TryStart: tryStart,
		TryEnd:   tryEnd,
		CatchPC:  catchPC,
		FinallyPC: -1,
		BindName: bindName,
	})
	return nil
}

func (c *Compiler) compileFuncDecl(s *parser.FuncDecl) error {
	fn, err := c.compileFunction(s.Name, s.Params, s.Body, s.IsAsync, s.IsGenerator)
	if err != nil {
		return err
	}
	idx := c.addConstant(fn)
	c.emit(bytecode.OpPush)
	c.emitU16(idx)
	c.emit(bytecode.OpMakeClosure)
	c.emitU16(idx)
	if c.inFunction() {
		slot := c.declareLocal(s.Name)
		c.emit(bytecode.OpStoreLocal)
		c.emitU16(slot)
		c.emit(bytecode.OpPop)
		return nil
	}
	nidx := nameConst(c, s.Name)
	c.emit(bytecode.OpStoreGlobal)
	c.emitU16(nidx)
	c.emit(bytecode.OpPop)
	return nil
}

// compileFunction compiles a nested function body into its own Chunk,
// wrapped in a value.BytecodeFunction (or AsyncFunction). No upvalue
// names are recorded and no scope is captured (Captured is nil): a name
// that is not one of the function's own locals compiles to a global
// load, so an enclosing function's locals are not visible inside it.
func (c *Compiler) compileFunction(name string, params []string, body *parser.BlockStmt, isAsync, isGenerator bool) (value.Value, error) {
	child := &Compiler{fn: &funcCtx{chunk: bytecode.New(name), parent: c.fn}}
	child.fn.chunk.ParamNames = params
	child.fn.chunk.IsAsync = isAsync
	child.fn.chunk.IsGenerator = isGenerator
	for _, p := range params {
		child.declareLocal(p)
	}
	if err := child.compileStmt(body); err != nil {
		return nil, err
	}
	child.emit(bytecode.OpReturnNull)

	bf := value.NewBytecodeFunction(name, child.fn.chunk, nil)
	if isAsync {
		return value.NewAsyncFunction(bf), nil
	}
	return bf, nil
}

func (c *Compiler) compileSpawn(s *parser.SpawnStmt) error {
	fnVal, err := c.compileFunction("<spawn>", nil, s.Body, false, false)
	if err != nil {
		return err
	}
	idx := c.addConstant(fnVal)
	c.emit(bytecode.OpSpawn)
	c.emitU16(idx)
	return nil
}
