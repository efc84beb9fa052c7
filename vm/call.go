package vm

import (
	"fmt"

	"lumen/bytecode"
	"lumen/errors"
	"lumen/value"
)

// doCall pops argc arguments and a callee, then either pushes a new
// call frame (bytecode function) or creates a Promise and runs the body
// on a new goroutine with its own sub-VM seeded from a snapshot of the
// globals (async function) — spec.md §4.2 Call opcode. The async body
// does not go through the async executor, so the task pool size does
// not bound it.
func (m *VM) doCall(argc int) error {
	args := make([]Value, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = m.pop()
	}
	callee := m.pop()

	switch fn := callee.(type) {
	case *value.BytecodeFunction:
		chunk, ok := fn.Chunk.(*bytecode.Chunk)
		if !ok {
			return m.throwGo(fmt.Errorf("call: function %q has no compiled chunk", fn.Name))
		}
		m.callCounts[chunk]++
		if m.jit != nil {
			m.jit.RecordCall(chunk)
			if len(args) == 1 {
				if argI, ok := args[0].(value.Int); ok {
					if native, ok := m.jit.Compiled(chunk); ok {
						ctx := &VMContext{m: m}
						m.push(value.Int(native(ctx, int64(argI))))
						return nil
					}
				} else {
					// Chunk may already be specialized for the int64 guard
					// but this call's argument doesn't satisfy it (e.g. a
					// float or string where the hot path saw only ints
					// before) — record the guard miss so jit_stats reflects
					// it, then fall through to the ordinary interpreted call.
					m.jit.DeoptHit(chunk)
				}
			}
		}
		m.frames = append(m.frames, newFrame(chunk, args))
		return nil
	case *value.AsyncFunction:
		chunk, ok := fn.Chunk.(*bytecode.Chunk)
		if !ok {
			return m.throwGo(fmt.Errorf("call: async function %q has no compiled chunk", fn.Name))
		}
		snapshot := make(map[string]Value, len(m.globals))
		for k, v := range m.globals {
			snapshot[k] = v
		}
		p, resolve := value.NewPromise()
		go func() {
			sub := New(m.cfg, snapshot, m.dispatcher, m.async, m.jit)
			res, err := sub.Run(chunk, args)
			if err != nil {
				resolve(value.ErrOutcome(value.NewErrorObject(err.Error(), 0)))
				return
			}
			resolve(value.OkOutcome(res))
		}()
		m.push(p)
		return nil
	case *value.NativeFunction:
		return m.doCallNative(fn.Name, len(args))
	default:
		return m.throwGo(fmt.Errorf("value of type %s is not callable", callee.Type()))
	}
}

// doCallNative pops argc arguments (receiver first when it's a method
// call) and dispatches them through the native dispatcher (spec.md
// §4.5, §6.4): unknown names become an explicit shape error rather than
// a panic, with a bounded "did you mean" suggestion.
func (m *VM) doCallNative(name string, argc int) error {
	args := make([]Value, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = m.pop()
	}
	if m.dispatcher == nil || !m.dispatcher.Has(name) {
		suggestion := ""
		if m.dispatcher != nil {
			if names, ok := m.dispatcher.(interface{ Names() []string }); ok {
				suggestion = errors.SuggestName(name, names.Names())
			}
		}
		msg := fmt.Sprintf("unknown native function %q", name)
		if suggestion != "" {
			msg += fmt.Sprintf(" (did you mean %q?)", suggestion)
		}
		m.push(value.NewError(msg))
		return nil
	}
	res, err := m.dispatcher.Dispatch(name, args)
	if err != nil {
		return &thrownError{val: value.NewErrorObject(err.Error(), m.frame().Chunk.LineForPC(m.frame().PC))}
	}
	m.push(res)
	return nil
}
