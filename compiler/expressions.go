package compiler

import (
	"fmt"

	"lumen/bytecode"
	"lumen/parser"
	"lumen/value"
)

func (c *Compiler) compileExpr(n parser.Node) error {
	switch e := n.(type) {
	case *parser.IntLit:
		idx := c.addConstant(value.Int(e.Value))
		c.emit(bytecode.OpPush)
		c.emitU16(idx)
		return nil
	case *parser.FloatLit:
		idx := c.addConstant(value.Float(e.Value))
		c.emit(bytecode.OpPush)
		c.emitU16(idx)
		return nil
	case *parser.StringLit:
		idx := c.addConstant(value.NewStr(e.Value))
		c.emit(bytecode.OpPush)
		c.emitU16(idx)
		return nil
	case *parser.BoolLit:
		idx := c.addConstant(value.Bool(e.Value))
		c.emit(bytecode.OpPush)
		c.emitU16(idx)
		return nil
	case *parser.NullLit:
		idx := c.addConstant(value.Null{})
		c.emit(bytecode.OpPush)
		c.emitU16(idx)
		return nil
	case *parser.Ident:
		return c.compileIdent(e)
	case *parser.ArrayLit:
		return c.compileArrayLit(e)
	case *parser.DictLit:
		return c.compileDictLit(e)
	case *parser.UnaryExpr:
		return c.compileUnary(e)
	case *parser.BinaryExpr:
		return c.compileBinary(e)
	case *parser.CallExpr:
		return c.compileCall(e)
	case *parser.MethodCallExpr:
		return c.compileMethodCall(e)
	case *parser.IndexExpr:
		if slot, ok := asLocalSlot(c, e.X); ok {
			if err := c.compileExpr(e.Index); err != nil {
				return err
			}
			c.emit(bytecode.OpIndexGetInPlace)
			c.emitU16(slot)
			return nil
		}
		if err := c.compileExpr(e.X); err != nil {
			return err
		}
		if err := c.compileExpr(e.Index); err != nil {
			return err
		}
		c.emit(bytecode.OpIndexGet)
		return nil
	case *parser.FieldExpr:
		if err := c.compileExpr(e.X); err != nil {
			return err
		}
		idx := c.addConstant(value.NewStr(e.Field))
		c.emit(bytecode.OpPush)
		c.emitU16(idx)
		c.emit(bytecode.OpIndexGet)
		return nil
	case *parser.FuncLit:
		fn, err := c.compileFunction("<anonymous>", e.Params, e.Body, e.IsAsync, e.IsGenerator)
		if err != nil {
			return err
		}
		idx := c.addConstant(fn)
		c.emit(bytecode.OpPush)
		c.emitU16(idx)
		c.emit(bytecode.OpMakeClosure)
		c.emitU16(idx)
		return nil
	case *parser.AwaitExpr:
		if err := c.compileExpr(e.X); err != nil {
			return err
		}
		c.emit(bytecode.OpAwait)
		return nil
	case *parser.YieldExpr:
		if e.X != nil {
			if err := c.compileExpr(e.X); err != nil {
				return err
			}
		} else {
			idx := c.addConstant(value.Null{})
			c.emit(bytecode.OpPush)
			c.emitU16(idx)
		}
		c.emit(bytecode.OpYield)
		return nil
	case *parser.TryExpr:
		if err := c.compileExpr(e.X); err != nil {
			return err
		}
		c.emit(bytecode.OpTryUnwrap)
		return nil
	case *parser.OkExpr:
		if err := c.compileExpr(e.X); err != nil {
			return err
		}
		c.emit(bytecode.OpMakeOk)
		return nil
	case *parser.ErrExpr:
		if err := c.compileExpr(e.X); err != nil {
			return err
		}
		c.emit(bytecode.OpMakeErr)
		return nil
	case *parser.SomeExpr:
		if err := c.compileExpr(e.X); err != nil {
			return err
		}
		c.emit(bytecode.OpMakeSome)
		return nil
	case *parser.NoneExpr:
		c.emit(bytecode.OpMakeNone)
		return nil
	case *parser.MatchExpr:
		return c.compileMatch(e)
	default:
		return fmt.Errorf("compiler: unhandled expression node %T", n)
	}
}

func (c *Compiler) compileIdent(e *parser.Ident) error {
	if slot, ok := c.resolveLocal(e.Name); ok {
		c.emit(bytecode.OpLoadLocal)
		c.emitU16(slot)
		return nil
	}
	idx := nameConst(c, e.Name)
	c.emit(bytecode.OpLoadGlobal)
	c.emitU16(idx)
	return nil
}

func (c *Compiler) compileArrayLit(e *parser.ArrayLit) error {
	hasSpread := len(e.Spreads) > 0
	for i, el := range e.Elements {
		if err := c.compileExpr(el); err != nil {
			return err
		}
		if e.Spreads[i] {
			c.emit(bytecode.OpSpread)
		}
	}
	c.emit(bytecode.OpMakeArray)
	c.emitU16(len(e.Elements))
	_ = hasSpread
	return nil
}

func (c *Compiler) compileDictLit(e *parser.DictLit) error {
	for _, ent := range e.Entries {
		if err := c.compileExpr(ent.Key); err != nil {
			return err
		}
		if err := c.compileExpr(ent.Value); err != nil {
			return err
		}
	}
	c.emit(bytecode.OpMakeDict)
	c.emitU16(len(e.Entries))
	return nil
}

func (c *Compiler) compileUnary(e *parser.UnaryExpr) error {
	if err := c.compileExpr(e.X); err != nil {
		return err
	}
	switch e.Op {
	case "-":
		c.emit(bytecode.OpNeg)
	case "!":
		c.emit(bytecode.OpNot)
	case "~":
		c.emit(bytecode.OpBitNot)
	default:
		return fmt.Errorf("compiler: unknown unary operator %q", e.Op)
	}
	return nil
}

// compileBinary lowers short-circuit && / || to jump-based sequences
// (spec.md §4.1: AND/OR carry a jump offset operand) and everything
// else to a plain binary opcode.
func (c *Compiler) compileBinary(e *parser.BinaryExpr) error {
	switch e.Op {
	case "&&":
		if err := c.compileExpr(e.Left); err != nil {
			return err
		}
		jmp := c.emitJump(bytecode.OpAnd)
		c.emit(bytecode.OpPop)
		if err := c.compileExpr(e.Right); err != nil {
			return err
		}
		c.patchJump(jmp)
		return nil
	case "||":
		if err := c.compileExpr(e.Left); err != nil {
			return err
		}
		jmp := c.emitJump(bytecode.OpOr)
		c.emit(bytecode.OpPop)
		if err := c.compileExpr(e.Right); err != nil {
			return err
		}
		c.patchJump(jmp)
		return nil
	}
	if err := c.compileExpr(e.Left); err != nil {
		return err
	}
	if err := c.compileExpr(e.Right); err != nil {
		return err
	}
	op, ok := binOpcodes[e.Op]
	if !ok {
		return fmt.Errorf("compiler: unknown binary operator %q", e.Op)
	}
	c.emit(op)
	return nil
}

var binOpcodes = map[string]bytecode.Op{
	"+": bytecode.OpAdd, "-": bytecode.OpSub, "*": bytecode.OpMul,
	"/": bytecode.OpDiv, "%": bytecode.OpMod, "^": bytecode.OpPow,
	"==": bytecode.OpEq, "!=": bytecode.OpNe,
	"<": bytecode.OpLt, "<=": bytecode.OpLe, ">": bytecode.OpGt, ">=": bytecode.OpGe,
	"&": bytecode.OpBitAnd, "|": bytecode.OpBitOr,
	"<<": bytecode.OpShl, ">>": bytecode.OpShr,
	"in": bytecode.OpIn,
}

func (c *Compiler) compileCall(e *parser.CallExpr) error {
	if err := c.compileExpr(e.Callee); err != nil {
		return err
	}
	for _, a := range e.Args {
		if err := c.compileExpr(a); err != nil {
			return err
		}
	}
	if len(e.Args) > 255 {
		return fmt.Errorf("compiler: too many call arguments (%d)", len(e.Args))
	}
	c.emit(bytecode.OpCall)
	c.emitByte(byte(len(e.Args)))
	return nil
}

// compileMethodCall always lowers receiver.method(args) to a native
// dispatch on the method name, with the receiver passed as the first
// argument, matching spec.md §4.5's model of native builtins as
// namespaced methods over builtin types (e.g. string/list/dict methods).
// Method syntax never resolves to a user function.
func (c *Compiler) compileMethodCall(e *parser.MethodCallExpr) error {
	if err := c.compileExpr(e.Receiver); err != nil {
		return err
	}
	for _, a := range e.Args {
		if err := c.compileExpr(a); err != nil {
			return err
		}
	}
	idx := nameConst(c, e.Method)
	if len(e.Args)+1 > 255 {
		return fmt.Errorf("compiler: too many call arguments")
	}
	c.emit(bytecode.OpCallNative)
	c.emitU16(idx)
	c.emitByte(byte(len(e.Args) + 1)) // +1 for the receiver
	return nil
}

// compileMatch lowers match into a chain of per-arm tests rather than
// an OpMatch: for each arm the subject is duplicated and compared with
// the arm's pattern; on a match the subject is popped and the arm body's
// value is the result, and when no arm matches the result is null
// (spec.md §3.7 algebraic values / Result / Option pattern matching).
func (c *Compiler) compileMatch(e *parser.MatchExpr) error {
	if err := c.compileExpr(e.Subject); err != nil {
		return err
	}
	var endJumps []int
	for i, arm := range e.Arms {
		isLast := i == len(e.Arms)-1
		c.emit(bytecode.OpDup)
		if err := c.compileMatchTest(arm.Pattern); err != nil {
			return err
		}
		nextArm := c.emitJump(bytecode.OpJumpIfFalse)
		c.emit(bytecode.OpPop) // discard the subject before the arm body
		if err := c.compileMatchBind(arm.Pattern); err != nil {
			return err
		}
		if err := c.compileExpr(arm.Body); err != nil {
			return err
		}
		endJumps = append(endJumps, c.emitJump(bytecode.OpJump))
		c.patchJump(nextArm)
		if isLast {
			c.emit(bytecode.OpPop) // no arm matched: discard subject
			idx := c.addConstant(value.Null{})
			c.emit(bytecode.OpPush)
			c.emitU16(idx)
		}
	}
	for _, pos := range endJumps {
		c.patchJump(pos)
	}
	return nil
}

// compileMatchTest replaces the duplicated subject on top of the stack
// with a boolean indicating whether it equals pattern; the `_` wildcard
// always matches.
func (c *Compiler) compileMatchTest(pattern parser.Node) error {
	if id, ok := pattern.(*parser.Ident); ok && id.Name == "_" {
		c.emit(bytecode.OpPop)
		idx := c.addConstant(value.Bool(true))
		c.emit(bytecode.OpPush)
		c.emitU16(idx)
		return nil
	}
	if err := c.compileExpr(pattern); err != nil {
		return err
	}
	c.emit(bytecode.OpEq)
	return nil
}

// compileMatchBind emits nothing: no pattern binds a variable, including
// constructor patterns that carry a payload.
func (c *Compiler) compileMatchBind(pattern parser.Node) error {
	return nil
}
