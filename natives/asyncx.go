// RegisterAsync wires the cooperative-runtime surface spec.md §4.4/§6.5
// requires as natives: the four-primitive executor wrapper (spawn_task,
// block_on, sleep, timeout), the await_all/parallel_map aggregators over
// async.ParallelMap and promise_race over async.Race, the shared-state
// cross-thread channel (async.SharedState), the scheduler-introspection
// family (resume_execution_context, run_scheduler_round,
// run_scheduler_until_complete, pending_execution_context_count,
// list_execution_context_ids), and the JIT runtime toggles
// (set_jit_enabled, jit_stats).
//
// Unlike the rest of this package, these natives close over live
// runtime instances (an *async.Executor, a *vm.Scheduler, a
// *jit.Hook, an *async.SharedState) rather than being pure functions
// of their arguments — RegisterAsync is called once from cmd/lumen
// after those instances exist, separately from RegisterAll.
package natives

import (
	"fmt"
	"time"

	"lumen/async"
	"lumen/bytecode"
	"lumen/dispatcher"
	"lumen/jit"
	"lumen/value"
	"lumen/vm"
)

// GlobalsProvider returns the snapshot of bindings spawn_task should
// seed a newly spawned interpreter with. cmd/lumen wires this to the
// top-level VM's Globals(); nested spawn_task calls from inside an
// already-spawned task therefore snapshot the top-level script's
// globals rather than their own caller's — natives have no handle on
// "the VM that is calling me" (see DESIGN.md's dispatcher-scoping note).
type GlobalsProvider func() map[string]value.Value

// RegisterAsync wires the async/scheduler/JIT-control native surface
// into r. sched or jitHook may be nil (e.g. a build with JIT disabled
// entirely); the natives that need them return a shape error instead
// of panicking when so.
func RegisterAsync(r *dispatcher.Registry, executor *async.Executor, sched *vm.Scheduler, shared *async.SharedState, jitHook *jit.Hook, globals GlobalsProvider) {
	registerTaskPrimitives(r, executor, globals)
	registerAggregators(r, executor)
	registerSharedState(r, shared)
	registerScheduler(r, sched)
	registerJITControls(r, jitHook)
}

func asPromise(v value.Value) (*value.Promise, bool) {
	p, ok := v.(*value.Promise)
	return p, ok
}

func registerTaskPrimitives(r *dispatcher.Registry, executor *async.Executor, globals GlobalsProvider) {
	r.Register("spawn_task", func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("spawn_task() takes exactly 1 argument, got %d", len(args))
		}
		fn, ok := args[0].(*value.BytecodeFunction)
		if !ok {
			return nil, fmt.Errorf("spawn_task() requires a function, got %s", args[0].Type())
		}
		chunk, ok := fn.Chunk.(*bytecode.Chunk)
		if !ok {
			return nil, fmt.Errorf("spawn_task() function %q has no compiled chunk", fn.Name)
		}
		return executor.Spawn(chunk, globals()), nil
	})

	r.Register("block_on", func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("block_on() takes exactly 1 argument, got %d", len(args))
		}
		p, ok := asPromise(args[0])
		if !ok {
			return nil, fmt.Errorf("block_on() requires a promise, got %s", args[0].Type())
		}
		out := p.Await()
		if out.IsErr() {
			return nil, out.Err
		}
		return out.Val, nil
	})

	r.Register("sleep", func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("sleep() takes exactly 1 argument, got %d", len(args))
		}
		ms, ok := args[0].(value.Int)
		if !ok {
			return nil, fmt.Errorf("sleep() requires an int millisecond count, got %s", args[0].Type())
		}
		if ms < 0 {
			return nil, fmt.Errorf("sleep() duration must be >= 0, got %d", ms)
		}
		time.Sleep(time.Duration(ms) * time.Millisecond)
		return value.Null{}, nil
	})

	r.Register("timeout", func(args []value.Value) (value.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("timeout() takes exactly 2 arguments, got %d", len(args))
		}
		p, ok := asPromise(args[0])
		if !ok {
			return nil, fmt.Errorf("timeout() requires a promise as its first argument, got %s", args[0].Type())
		}
		ms, ok := args[1].(value.Int)
		if !ok {
			return nil, fmt.Errorf("timeout() requires an int millisecond bound, got %s", args[1].Type())
		}
		done := make(chan value.Outcome, 1)
		go func() { done <- p.Await() }()
		select {
		case out := <-done:
			if out.IsErr() {
				return nil, out.Err
			}
			return out.Val, nil
		case <-time.After(time.Duration(ms) * time.Millisecond):
			return nil, fmt.Errorf("timeout() exceeded %dms", ms)
		}
	})

	r.Register("set_task_pool_size", func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("set_task_pool_size() takes exactly 1 argument, got %d", len(args))
		}
		n, ok := args[0].(value.Int)
		if !ok {
			return nil, fmt.Errorf("set_task_pool_size() requires an int, got %s", args[0].Type())
		}
		prev := executor.PoolSize()
		executor.SetPoolSize(int(n))
		return value.Int(prev), nil
	})

	r.Register("get_task_pool_size", func(args []value.Value) (value.Value, error) {
		if len(args) != 0 {
			return nil, fmt.Errorf("get_task_pool_size() takes no arguments, got %d", len(args))
		}
		return value.Int(executor.PoolSize()), nil
	})
}

// awaitAllBounded awaits every promise with at most concurrency in
// flight at once, built directly on async.ParallelMap so that
// combinator is actually exercised from script-reachable code (rather
// than sitting unreachable behind only its own tests).
func awaitAllBounded(promises []*value.Promise, concurrency int) ([]value.Value, error) {
	items := make([]value.Value, len(promises))
	for i, p := range promises {
		items[i] = p
	}
	return async.ParallelMap(items, concurrency, func(v value.Value) (value.Value, error) {
		p := v.(*value.Promise)
		out := p.Await()
		if out.IsErr() {
			return nil, out.Err
		}
		return out.Val, nil
	})
}

func registerAggregators(r *dispatcher.Registry, executor *async.Executor) {
	awaitAll := func(args []value.Value) (value.Value, error) {
		if len(args) < 1 || len(args) > 2 {
			return nil, fmt.Errorf("await_all() takes 1 or 2 arguments, got %d", len(args))
		}
		arr, ok := args[0].(*value.Array)
		if !ok {
			return nil, fmt.Errorf("await_all() requires an array, got %s", args[0].Type())
		}
		limit := executor.PoolSize()
		if len(args) == 2 {
			n, ok := args[1].(value.Int)
			if !ok {
				return nil, fmt.Errorf("await_all() concurrency limit must be an int, got %s", args[1].Type())
			}
			if n == 0 {
				return nil, fmt.Errorf("await_all() concurrency limit of 0 is a shape error")
			}
			limit = int(n)
		}
		elts := arr.Elements()
		promises := make([]*value.Promise, len(elts))
		for i, e := range elts {
			p, ok := asPromise(e)
			if !ok {
				return nil, fmt.Errorf("await_all() element %d is not a promise, got %s", i, e.Type())
			}
			promises[i] = p
		}
		results, err := awaitAllBounded(promises, limit)
		if err != nil {
			return nil, err
		}
		return value.NewArray(results), nil
	}
	// Aliases must both dispatch (spec.md §6.5).
	r.Register("await_all", awaitAll)
	r.Register("promise_all", awaitAll)

	r.Register("promise_race", func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("promise_race() takes exactly 1 argument, got %d", len(args))
		}
		arr, ok := args[0].(*value.Array)
		if !ok {
			return nil, fmt.Errorf("promise_race() requires an array, got %s", args[0].Type())
		}
		elts := arr.Elements()
		promises := make([]*value.Promise, len(elts))
		for i, e := range elts {
			p, ok := asPromise(e)
			if !ok {
				return nil, fmt.Errorf("promise_race() element %d is not a promise, got %s", i, e.Type())
			}
			promises[i] = p
		}
		out := async.Race(promises)
		if out.IsErr() {
			return nil, out.Err
		}
		return out.Val, nil
	})

	r.Register("parallel_map", func(args []value.Value) (value.Value, error) {
		if len(args) < 2 || len(args) > 3 {
			return nil, fmt.Errorf("parallel_map() takes 2 or 3 arguments, got %d", len(args))
		}
		arr, ok := args[0].(*value.Array)
		if !ok {
			return nil, fmt.Errorf("parallel_map() requires an array as its first argument, got %s", args[0].Type())
		}
		nameVal, ok := args[1].(*value.Str)
		if !ok {
			return nil, fmt.Errorf("parallel_map() requires a native function name string, got %s", args[1].Type())
		}
		concurrency := executor.PoolSize()
		if len(args) == 3 {
			n, ok := args[2].(value.Int)
			if !ok {
				return nil, fmt.Errorf("parallel_map() concurrency limit must be an int, got %s", args[2].Type())
			}
			if n == 0 {
				return nil, fmt.Errorf("parallel_map() concurrency limit of 0 is a shape error")
			}
			concurrency = int(n)
		}
		name := nameVal.String()
		if !r.Has(name) {
			return nil, fmt.Errorf("parallel_map() unknown native function %q", name)
		}
		results, err := async.ParallelMap(arr.Elements(), concurrency, func(v value.Value) (value.Value, error) {
			return r.Dispatch(name, []value.Value{v})
		})
		if err != nil {
			return nil, err
		}
		return value.NewArray(results), nil
	})
}

// registerSharedState wires the sole sanctioned cross-thread mutable
// channel for spawn's snapshot-only tasks (spec.md §4.4, §9 Open
// Questions) onto async.SharedState. shared may be nil (no spawn_task
// usage expected for this interpreter); the natives then return a
// shape error instead of a nil-pointer panic.
func registerSharedState(r *dispatcher.Registry, shared *async.SharedState) {
	requireShared := func() error {
		if shared == nil {
			return fmt.Errorf("shared state is not configured for this interpreter")
		}
		return nil
	}

	r.Register("shared_set", func(args []value.Value) (value.Value, error) {
		if err := requireShared(); err != nil {
			return nil, err
		}
		if len(args) != 2 {
			return nil, fmt.Errorf("shared_set() takes exactly 2 arguments, got %d", len(args))
		}
		key, ok := args[0].(*value.Str)
		if !ok {
			return nil, fmt.Errorf("shared_set() key must be a string, got %s", args[0].Type())
		}
		shared.Set(key.String(), args[1])
		return value.Null{}, nil
	})

	r.Register("shared_get", func(args []value.Value) (value.Value, error) {
		if err := requireShared(); err != nil {
			return nil, err
		}
		if len(args) != 1 {
			return nil, fmt.Errorf("shared_get() takes exactly 1 argument, got %d", len(args))
		}
		key, ok := args[0].(*value.Str)
		if !ok {
			return nil, fmt.Errorf("shared_get() key must be a string, got %s", args[0].Type())
		}
		v, ok := shared.Get(key.String())
		if !ok {
			return value.NewNone(), nil
		}
		vv, ok := v.(value.Value)
		if !ok {
			return nil, fmt.Errorf("shared_get() stored entry for %q is not a runtime value", key.String())
		}
		return value.NewSome(vv), nil
	})

	r.Register("shared_has", func(args []value.Value) (value.Value, error) {
		if err := requireShared(); err != nil {
			return nil, err
		}
		if len(args) != 1 {
			return nil, fmt.Errorf("shared_has() takes exactly 1 argument, got %d", len(args))
		}
		key, ok := args[0].(*value.Str)
		if !ok {
			return nil, fmt.Errorf("shared_has() key must be a string, got %s", args[0].Type())
		}
		return value.Bool(shared.Has(key.String())), nil
	})

	r.Register("shared_delete", func(args []value.Value) (value.Value, error) {
		if err := requireShared(); err != nil {
			return nil, err
		}
		if len(args) != 1 {
			return nil, fmt.Errorf("shared_delete() takes exactly 1 argument, got %d", len(args))
		}
		key, ok := args[0].(*value.Str)
		if !ok {
			return nil, fmt.Errorf("shared_delete() key must be a string, got %s", args[0].Type())
		}
		shared.Delete(key.String())
		return value.Null{}, nil
	})

	r.Register("shared_add_int", func(args []value.Value) (value.Value, error) {
		if err := requireShared(); err != nil {
			return nil, err
		}
		if len(args) != 2 {
			return nil, fmt.Errorf("shared_add_int() takes exactly 2 arguments, got %d", len(args))
		}
		key, ok := args[0].(*value.Str)
		if !ok {
			return nil, fmt.Errorf("shared_add_int() key must be a string, got %s", args[0].Type())
		}
		delta, ok := args[1].(value.Int)
		if !ok {
			return nil, fmt.Errorf("shared_add_int() delta must be an int, got %s", args[1].Type())
		}
		return value.Int(shared.AddInt(key.String(), int64(delta))), nil
	})
}

// registerScheduler wires resume_execution_context / run_scheduler_round
// / run_scheduler_until_complete / pending_execution_context_count /
// list_execution_context_ids onto the attached *vm.Scheduler (spec.md
// §4.2, §6.2). sched may be nil when cooperative suspension is disabled
// for an interpreter; each native then reports a shape error.
func registerScheduler(r *dispatcher.Registry, sched *vm.Scheduler) {
	requireSched := func() error {
		if sched == nil {
			return fmt.Errorf("scheduler is not configured for this interpreter")
		}
		return nil
	}

	r.Register("resume_execution_context", func(args []value.Value) (value.Value, error) {
		if err := requireSched(); err != nil {
			return nil, err
		}
		if len(args) != 1 {
			return nil, fmt.Errorf("resume_execution_context() takes exactly 1 argument, got %d", len(args))
		}
		id, ok := args[0].(*value.Str)
		if !ok {
			return nil, fmt.Errorf("resume_execution_context() requires a string id, got %s", args[0].Type())
		}
		sched.ResumeExecutionContext(id.String())
		switch sched.ExecutionContextStatus(id.String()) {
		case "suspended":
			return value.NewStr("Suspended"), nil
		case "completed":
			return value.NewStr("Completed"), nil
		case "unknown":
			return nil, fmt.Errorf("resume_execution_context() unknown context id %q", id.String())
		default:
			return value.NewStr("Running"), nil
		}
	})

	r.Register("run_scheduler_round", func(args []value.Value) (value.Value, error) {
		if err := requireSched(); err != nil {
			return nil, err
		}
		if len(args) != 0 {
			return nil, fmt.Errorf("run_scheduler_round() takes no arguments, got %d", len(args))
		}
		completed, pending := sched.RunSchedulerRound()
		d := value.NewEmptyDict()
		d = d.Set("completed", value.Int(completed))
		d = d.Set("pending", value.Int(pending))
		return d, nil
	})

	r.Register("run_scheduler_until_complete", func(args []value.Value) (value.Value, error) {
		if err := requireSched(); err != nil {
			return nil, err
		}
		if len(args) > 1 {
			return nil, fmt.Errorf("run_scheduler_until_complete() takes 0 or 1 arguments, got %d", len(args))
		}
		maxRounds := 0
		if len(args) == 1 {
			n, ok := args[0].(value.Int)
			if !ok {
				return nil, fmt.Errorf("run_scheduler_until_complete() round budget must be an int, got %s", args[0].Type())
			}
			maxRounds = int(n)
		}
		return value.Bool(sched.RunSchedulerUntilComplete(maxRounds)), nil
	})

	r.Register("pending_execution_context_count", func(args []value.Value) (value.Value, error) {
		if err := requireSched(); err != nil {
			return nil, err
		}
		if len(args) != 0 {
			return nil, fmt.Errorf("pending_execution_context_count() takes no arguments, got %d", len(args))
		}
		return value.Int(sched.PendingExecutionContextCount()), nil
	})

	r.Register("list_execution_context_ids", func(args []value.Value) (value.Value, error) {
		if err := requireSched(); err != nil {
			return nil, err
		}
		if len(args) != 0 {
			return nil, fmt.Errorf("list_execution_context_ids() takes no arguments, got %d", len(args))
		}
		ids := sched.ListExecutionContextIDs()
		elts := make([]value.Value, len(ids))
		for i, id := range ids {
			elts[i] = value.NewStr(id)
		}
		return value.NewArray(elts), nil
	})
}

// registerJITControls wires set_jit_enabled/jit_stats onto the
// *jit.Hook (spec.md §6.2). jitHook may be nil when the JIT is compiled
// out entirely; the natives then report a shape error.
func registerJITControls(r *dispatcher.Registry, jitHook *jit.Hook) {
	r.Register("set_jit_enabled", func(args []value.Value) (value.Value, error) {
		if jitHook == nil {
			return nil, fmt.Errorf("JIT is not configured for this interpreter")
		}
		if len(args) != 1 {
			return nil, fmt.Errorf("set_jit_enabled() takes exactly 1 argument, got %d", len(args))
		}
		b, ok := args[0].(value.Bool)
		if !ok {
			return nil, fmt.Errorf("set_jit_enabled() requires a bool, got %s", args[0].Type())
		}
		jitHook.SetEnabled(bool(b))
		return value.Null{}, nil
	})

	r.Register("jit_stats", func(args []value.Value) (value.Value, error) {
		if jitHook == nil {
			return nil, fmt.Errorf("JIT is not configured for this interpreter")
		}
		if len(args) != 0 {
			return nil, fmt.Errorf("jit_stats() takes no arguments, got %d", len(args))
		}
		stats := jitHook.Stats()
		d := value.NewEmptyDict()
		d = d.Set("enabled", value.Bool(stats.Enabled))
		d = d.Set("compiles", value.Int(stats.Compiles))
		d = d.Set("deopts", value.Int(stats.Deopts))
		return d, nil
	})
}
