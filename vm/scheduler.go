package vm

import (
	"fmt"
	"runtime"
	"sort"
	"sync"

	"lumen/value"
)

// ErrSuspended is returned by Run/Resume when the VM parked itself at an
// Await whose promise had not yet settled instead of blocking the
// calling goroutine (spec.md §4.2/§6.2's cooperative-suspension
// contract). Callers that attach a Scheduler should treat it as "call
// back later", not as a failure.
var ErrSuspended = fmt.Errorf("vm: execution suspended")

// Scheduler is the cooperative-suspension registry spec.md §4.2/§6.2
// names directly (resume_execution_context, run_scheduler_round,
// run_scheduler_until_complete, pending_execution_context_count,
// list_execution_context_ids): every VM that suspends on an unresolved
// Await registers itself here under a stable context id and is driven
// forward by polling the awaited Promise, rather than by blocking the
// goroutine that called Run. Grounded on this codebase's task/
// manager.go central-registry shape (async.Executor's task table),
// generalized from a spawn-tracking table to a suspended-interpreter
// table.
type Scheduler struct {
	mu      sync.Mutex
	pending map[string]*suspendedContext
	results map[string]contextResult
	nextID  int
}

type suspendedContext struct {
	vm   *VM
	wait *value.Promise
}

type contextResult struct {
	val Value
	err error
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		pending: make(map[string]*suspendedContext),
		results: make(map[string]contextResult),
	}
}

func (s *Scheduler) newContextID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return fmt.Sprintf("ctx-%d", s.nextID)
}

// suspend records m as parked on p under id, creating id on first
// suspension and reusing it across any further suspensions of the same
// logical run (a context that awaits twice keeps one id throughout).
func (s *Scheduler) suspend(id string, m *VM, p *value.Promise) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[id] = &suspendedContext{vm: m, wait: p}
}

// PendingExecutionContextCount reports how many contexts are parked.
func (s *Scheduler) PendingExecutionContextCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// ListExecutionContextIDs returns the ids of all parked contexts, sorted
// for deterministic scripting (spec.md §6.2).
func (s *Scheduler) ListExecutionContextIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ResumeExecutionContext resumes id if its awaited promise has settled.
// Resuming may run the context to completion (its result is then stored
// and retrievable via Result) or may re-suspend it on a new Await (it
// stays pending under the same id). Reports whether anything advanced.
func (s *Scheduler) ResumeExecutionContext(id string) bool {
	s.mu.Lock()
	ctx, ok := s.pending[id]
	s.mu.Unlock()
	if !ok {
		return false
	}
	out, ready := ctx.wait.TryAwait()
	if !ready {
		return false
	}
	var resumeVal Value = out.Val
	if out.IsErr() {
		resumeVal = out.Err
	}
	val, err := ctx.vm.resumeWith(resumeVal, out.IsErr())
	if err == ErrSuspended {
		// The VM parked itself again; it already re-registered under the
		// same id via suspendSelf, so there's nothing further to do here.
		return true
	}
	s.mu.Lock()
	delete(s.pending, id)
	s.results[id] = contextResult{val: val, err: err}
	s.mu.Unlock()
	return true
}

// RunSchedulerRound attempts to resume every currently pending context
// once, returning (completed, stillPending) — a context only counts as
// completed if this round's resume actually finished it rather than
// re-suspending it on a further Await (spec.md §6.2).
func (s *Scheduler) RunSchedulerRound() (completed, stillPending int) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.mu.Lock()
		_, stillThere := s.pending[id]
		s.mu.Unlock()
		if !stillThere {
			continue
		}
		if s.ResumeExecutionContext(id) {
			s.mu.Lock()
			_, reparked := s.pending[id]
			s.mu.Unlock()
			if !reparked {
				completed++
			}
		}
	}
	return completed, s.PendingExecutionContextCount()
}

// RunSchedulerUntilComplete drives rounds, up to maxRounds (<=0 means
// unbounded), yielding the goroutine between empty rounds so promises
// resolving on other goroutines get a chance to land. Reports whether
// every context had drained by the time it returned.
func (s *Scheduler) RunSchedulerUntilComplete(maxRounds int) bool {
	rounds := 0
	for s.PendingExecutionContextCount() > 0 {
		if maxRounds > 0 && rounds >= maxRounds {
			return false
		}
		rounds++
		if _, pending := s.RunSchedulerRound(); pending > 0 {
			runtime.Gosched()
		}
	}
	return true
}

// ExecutionContextStatus reports id's lifecycle state for
// resume_execution_context's Running/Suspended/Completed return value.
// "unknown" covers an id that was never registered.
func (s *Scheduler) ExecutionContextStatus(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[id]; ok {
		return "suspended"
	}
	if _, ok := s.results[id]; ok {
		return "completed"
	}
	return "unknown"
}

// Result returns the final (value, error) of a completed context.
func (s *Scheduler) Result(id string) (Value, error, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[id]
	return r.val, r.err, ok
}
