package value

import "sync"

// Outcome is a Promise's eventual resolution: either a Value or an
// error. It stands in for this design's `Result<Value, Error>`.
type Outcome struct {
	Val Value
	Err *ErrorObject
}

func OkOutcome(v Value) Outcome  { return Outcome{Val: v} }
func ErrOutcome(e *ErrorObject) Outcome { return Outcome{Err: e} }

func (o Outcome) IsErr() bool { return o.Err != nil }

// Promise owns a oneshot receiver plus a one-shot cache (spec.md §3.4).
// The receiver is a buffered channel of capacity 1 standing in for the
// "oneshot channel" this design names — the idiomatic Go realization of a
// single-producer single-resolution future. First consumer to Await
// drains the channel and writes into the cache under polled/mu; every
// subsequent Await must read the cache directly and must never touch
// the channel again (testable property 6).
type Promise struct {
	mu       sync.Mutex
	recv     chan Outcome
	polled   bool
	cached   Outcome
	canceled bool
	cancelFn func()
}

// NewPromise creates a pending Promise and returns it along with the
// resolver function the spawned task must call exactly once.
func NewPromise() (*Promise, func(Outcome)) {
	p := &Promise{recv: make(chan Outcome, 1)}
	resolve := func(o Outcome) {
		// Non-blocking send: the channel has capacity 1 and is only ever
		// written once, so this cannot block under correct usage.
		select {
		case p.recv <- o:
		default:
		}
	}
	return p, resolve
}

// Resolved returns an already-resolved Promise, used by async builtins
// whose value is available immediately (e.g. awaiting a non-Promise in
// Promise.all).
func Resolved(o Outcome) *Promise {
	p, resolve := NewPromise()
	resolve(o)
	return p
}

func (p *Promise) Type() TypeCode { return TypePromise }
func (p *Promise) String() string { return "<promise>" }
func (p *Promise) Truthy() bool   { return true }
func (p *Promise) Equal(o Value) bool {
	op, ok := o.(*Promise)
	return ok && op == p
}

// Cached reports whether the promise has already been polled to
// completion, returning the cached outcome if so. Callers must check
// this before touching the receiver (spec.md §3.4, §4.2 Await).
func (p *Promise) Cached() (Outcome, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.polled {
		return p.cached, true
	}
	return Outcome{}, false
}

// Await blocks the calling goroutine until the promise resolves,
// consuming the receiver at most once across the Promise's lifetime and
// caching the result for all later callers. Safe to call concurrently;
// only the first caller (of however many observe polled==false) drains
// the channel, the rest block on the mutex and then see the cache.
func (p *Promise) Await() Outcome {
	p.mu.Lock()
	if p.polled {
		defer p.mu.Unlock()
		return p.cached
	}
	// Hold the lock across the blocking receive: concurrent Await callers
	// serialize here rather than racing on the channel, which is what
	// guarantees the receiver is drained exactly once.
	defer p.mu.Unlock()
	out := <-p.recv
	p.cached = out
	p.polled = true
	return out
}

// TryAwait is the non-blocking poll used by the VM's Await opcode: it
// never suspends. ok is false when the promise is still pending.
func (p *Promise) TryAwait() (Outcome, bool) {
	p.mu.Lock()
	if p.polled {
		out := p.cached
		p.mu.Unlock()
		return out, true
	}
	p.mu.Unlock()
	select {
	case out := <-p.recv:
		p.mu.Lock()
		p.cached = out
		p.polled = true
		p.mu.Unlock()
		return out, true
	default:
		return Outcome{}, false
	}
}

// SetCancel registers the function that cancels the upstream resolver
// task; called by async builtins right after spawning.
func (p *Promise) SetCancel(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelFn = fn
}

// Cancel drops this promise's interest in its result. Per spec.md §3.4 /
// §5, dropping the last reference before resolution cancels the
// upstream task cooperatively; the task may still complete but its
// result is discarded.
func (p *Promise) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.canceled || p.polled {
		return
	}
	p.canceled = true
	if p.cancelFn != nil {
		p.cancelFn()
	}
}

// TaskHandle is a handle to a spawned cooperative task (spec.md §3.1),
// supporting cooperative cancellation observed at the task's next await.
type TaskHandle struct {
	ID       string
	cancelFn func()
	canceled *bool
	mu       *sync.Mutex
}

func NewTaskHandle(id string, cancelFn func()) *TaskHandle {
	canceled := false
	return &TaskHandle{ID: id, cancelFn: cancelFn, canceled: &canceled, mu: &sync.Mutex{}}
}

func (t *TaskHandle) Type() TypeCode { return TypeTaskHandle }
func (t *TaskHandle) String() string { return "<task " + t.ID + ">" }
func (t *TaskHandle) Truthy() bool   { return true }
func (t *TaskHandle) Equal(o Value) bool {
	ot, ok := o.(*TaskHandle)
	return ok && ot.ID == t.ID
}

// Cancel requests cooperative cancellation; the task observes this at
// its next suspension point (spec.md §5).
func (t *TaskHandle) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if *t.canceled {
		return
	}
	*t.canceled = true
	if t.cancelFn != nil {
		t.cancelFn()
	}
}

func (t *TaskHandle) Canceled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return *t.canceled
}
