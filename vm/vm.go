// Package vm implements the stack-based bytecode interpreter (spec.md
// §2 item 1, §3, §4): a value stack, a call-frame stack, an
// exception-handler stack, cooperative await/yield suspension, and a
// pluggable JIT hook. Grounded on this codebase's vm/vm.go executeLoop
// dispatch-switch structure, generalized from MOO verb-calls onto
// spec.md's Value/Chunk model.
package vm

import (
	"fmt"
	"log/slog"

	"lumen/bytecode"
	"lumen/config"
	"lumen/diag"
	"lumen/value"
)

// Value is a local alias so the rest of the package reads naturally
// without repeating the import qualifier on every line.
type Value = value.Value

// Dispatcher is the minimal surface the VM needs from package
// dispatcher (kept as an interface here to avoid vm<->dispatcher import
// cycles, the same pattern value.Chunk/value.Scope use).
type Dispatcher interface {
	Dispatch(name string, args []Value) (Value, error)
	Has(name string) bool
}

// AsyncExecutor is the minimal surface the VM needs from package async.
type AsyncExecutor interface {
	Spawn(chunk *bytecode.Chunk, snapshot map[string]Value) *value.TaskHandle
	AwaitNonBlocking(p *value.Promise) (value.Outcome, bool)
}

// JITHook lets package jit plug compiled native functions in without vm
// importing jit (jit imports vm's VMContext instead).
type JITHook interface {
	RecordCall(chunk *bytecode.Chunk)
	Compiled(chunk *bytecode.Chunk) (func(ctx *VMContext, arg int64) int64, bool)
	DeoptHit(chunk *bytecode.Chunk)
}

// State is the VM's run/suspend lifecycle state (spec.md §4.4
// cooperative suspension at await/yield points).
type State int

const (
	StateRunning State = iota
	StateSuspended
	StateCompleted
	StateFailed
)

// VM is one interpreter instance: its own value stack, call stack,
// exception-handler stack, and global bindings. Multiple VMs coexist
// when `spawn` creates isolated OS-thread interpreters (spec.md §4.4,
// §9 "spawn stays snapshot-only").
type VM struct {
	stack    []Value
	frames   []*CallFrame
	handlers []excFrame
	globals  map[string]Value

	cfg        *config.Config
	dispatcher Dispatcher
	async      AsyncExecutor
	jit        JITHook
	sched      *Scheduler
	ctxID      string

	State State
	// Suspension resumes in place: Await leaves f.PC already past the
	// opcode, so Resume only has to push/throw the settled outcome and
	// re-enter executeLoop from the frame stack exactly as it was parked
	// (generator/async suspension both reuse the same frame-PC-based
	// resumption this codebase's task.Manager uses).
	callCounts map[*bytecode.Chunk]int

	returned    bool
	returnValue Value

	log *slog.Logger
}

func New(cfg *config.Config, globals map[string]Value, d Dispatcher, a AsyncExecutor, j JITHook) *VM {
	if cfg == nil {
		cfg = config.Default()
	}
	if globals == nil {
		globals = make(map[string]Value)
	}
	return &VM{
		globals:    globals,
		cfg:        cfg,
		dispatcher: d,
		async:      a,
		jit:        j,
		callCounts: make(map[*bytecode.Chunk]int),
		log:        diag.With("vm"),
	}
}

// Globals exposes the VM's global-binding table so cmd/lumen can seed
// native-constructed values (e.g. enum defs) before a run.
func (m *VM) Globals() map[string]Value { return m.globals }

// AttachScheduler opts this VM into cooperative suspension (spec.md
// §4.2/§6.2): an Await on a not-yet-settled promise parks the whole
// interpreter state instead of blocking the goroutine, and is driven
// forward later by s.ResumeExecutionContext / s.RunSchedulerRound. A VM
// with no scheduler attached keeps the old blocking-Await fallback,
// which spawned sub-VMs and tests still rely on.
func (m *VM) AttachScheduler(s *Scheduler) { m.sched = s }

// ContextID returns the execution-context id this VM was last parked
// under, or "" if it has never suspended.
func (m *VM) ContextID() string { return m.ctxID }

func (m *VM) push(v Value) {
	if len(m.stack) >= m.cfg.VM.MaxValueStack {
		panic(fmt.Errorf("value stack overflow (max %d)", m.cfg.VM.MaxValueStack))
	}
	m.stack = append(m.stack, v)
}

func (m *VM) pop() Value {
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v
}

func (m *VM) peek() Value {
	return m.stack[len(m.stack)-1]
}

func (m *VM) frame() *CallFrame {
	return m.frames[len(m.frames)-1]
}

// Run executes chunk as a fresh top-level call with the given arguments
// and returns its final result value.
func (m *VM) Run(chunk *bytecode.Chunk, args []Value) (result Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			m.State = StateFailed
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("vm panic: %v", r)
			}
		}
	}()
	m.frames = append(m.frames, newFrame(chunk, args))
	m.State = StateRunning
	res, rerr := m.executeLoop()
	if rerr != nil {
		if rerr == ErrSuspended {
			// executeLoop / suspendSelf already set State = StateSuspended
			// and registered this VM with its scheduler.
			return nil, rerr
		}
		m.State = StateFailed
		return nil, rerr
	}
	m.State = StateCompleted
	return res, nil
}

// resumeWith delivers a settled Await outcome to a previously-suspended
// VM and runs it forward from exactly where it parked. isErr selects
// between pushing v as the Await result and throwing it the way OpAwait
// would have on an immediately-rejected promise. Called only by
// Scheduler.ResumeExecutionContext, never directly by user code.
func (m *VM) resumeWith(v Value, isErr bool) (result Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			m.State = StateFailed
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("vm panic: %v", r)
			}
		}
	}()
	if isErr {
		if !m.unwindToHandler(normalizeThrow(v, m.frame())) {
			m.State = StateFailed
			return nil, fmt.Errorf("uncaught exception: %s", v.String())
		}
	} else {
		m.push(v)
	}
	m.State = StateRunning
	res, rerr := m.executeLoop()
	if rerr != nil {
		if rerr == ErrSuspended {
			return nil, rerr
		}
		m.State = StateFailed
		return nil, rerr
	}
	m.State = StateCompleted
	return res, nil
}

// suspendSelf parks m on p via its attached scheduler, minting a
// context id on first suspension and reusing it across any later
// suspensions of the same run. Only called when m.sched != nil.
func (m *VM) suspendSelf(p *value.Promise) error {
	if m.ctxID == "" {
		m.ctxID = m.sched.newContextID()
	}
	m.sched.suspend(m.ctxID, m, p)
	m.State = StateSuspended
	return ErrSuspended
}

// executeLoop is the opcode-dispatch loop (spec.md §4.1/§4.2). It
// returns when the outermost call frame returns.
func (m *VM) executeLoop() (Value, error) {
	for len(m.frames) > 0 {
		f := m.frame()
		if f.PC >= len(f.Chunk.Code) {
			// Implicit fallthrough end-of-chunk acts like ReturnNull.
			if err := m.doReturn(value.Null{}); err != nil {
				return nil, err
			}
			continue
		}
		op := bytecode.Op(f.Chunk.Code[f.PC])
		f.PC++
		if err := m.step(f, op); err != nil {
			if thrown, ok := err.(*thrownError); ok {
				if !m.unwindToHandler(thrown.val) {
					return nil, fmt.Errorf("uncaught exception: %s", thrown.val.String())
				}
				continue
			}
			return nil, err
		}
		if m.returned {
			v := m.returnValue
			m.returned = false
			if len(m.frames) == 0 {
				return v, nil
			}
		}
	}
	if len(m.stack) > 0 {
		return m.pop(), nil
	}
	return value.Null{}, nil
}

// thrownError carries a Value through Go's error-return channel between
// step() and executeLoop()'s unwind handling, without making every
// native-call site pattern-match on a sentinel type.
type thrownError struct{ val Value }

func (t *thrownError) Error() string { return t.val.String() }

// doReturn pops the current frame, leaving v as the caller's result.
// readU16/readI32 below read operands following f.PC advancing past
// the opcode byte itself.
func (m *VM) doReturn(v Value) error {
	m.frames = m.frames[:len(m.frames)-1]
	m.returned = true
	m.returnValue = v
	if len(m.frames) > 0 {
		m.push(v)
	}
	return nil
}

func readU16(code []byte, pc int) int {
	return int(code[pc])<<8 | int(code[pc+1])
}

func readI32(code []byte, pc int) int {
	u := uint32(code[pc])<<24 | uint32(code[pc+1])<<16 | uint32(code[pc+2])<<8 | uint32(code[pc+3])
	return int(int32(u))
}

// VMContext is the C-ABI-safe handle a compiled JIT function receives
// (spec.md §3.8, §6.3): enough surface to read and write the current
// frame's locals without exposing the whole VM struct layout (which
// could change shape across builds). It offers no way to raise or
// observe errors.
type VMContext struct {
	m *VM
}

func (c *VMContext) Local(slot int) Value       { return c.m.frame().Locals[slot] }
func (c *VMContext) SetLocal(slot int, v Value) { c.m.frame().Locals[slot] = v }
