// Package async implements the cooperative async runtime (spec.md §2
// item 3, §3.4, §4.4, §6.5): Promises, `spawn`'s isolated-interpreter
// model, and the await_all/parallel_map/Promise.race combinators.
// Grounded on this codebase's task/manager.go Manager (singleton
// task-table + ActivationFrame snapshots), generalized from MOO's
// single-process task queue onto a goroutine-per-task executor bounded
// by golang.org/x/sync/semaphore, the concurrency-limiting primitive
// ProbeChain-go-probe's module graph also depends on.
package async

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"

	"lumen/bytecode"
	"lumen/value"
)

// RunFunc runs chunk to completion against a fresh interpreter seeded
// with globals, returning its result. Supplied by package vm at
// construction time so async never imports vm (avoiding an import
// cycle: vm depends on async's Executor through the AsyncExecutor
// interface, not the other way around).
type RunFunc func(chunk *bytecode.Chunk, globals map[string]value.Value) (value.Value, error)

// Executor runs spawned tasks and async function bodies, bounding the
// number of live ones by the configured pool size (spec.md §4.4
// "per-interpreter async pool size", §6.5).
type Executor struct {
	run RunFunc
	sem *semaphore.Weighted

	mu       sync.Mutex
	tasks    map[string]*value.TaskHandle
	nextID   int
	poolSize int
	metrics  *Metrics
}

func NewExecutor(poolSize int, run RunFunc) *Executor {
	if poolSize <= 0 {
		poolSize = 32
	}
	return &Executor{
		run:      run,
		sem:      semaphore.NewWeighted(int64(poolSize)),
		tasks:    make(map[string]*value.TaskHandle),
		poolSize: poolSize,
		metrics:  NewMetrics(),
	}
}

// Spawn launches chunk on its own OS thread (runtime.LockOSThread),
// seeded only with a snapshot of globals captured at spawn time — no
// write-back to the parent's bindings (spec.md §9 Open Questions:
// "spawn stays snapshot-only with no write-back"). Returns immediately
// with a TaskHandle; the task's eventual result is only observable
// through the shared-state primitives (package natives' shared_set
// family), matching this design's explicit non-goal of a spawn-return
// Promise.
func (e *Executor) Spawn(chunk *bytecode.Chunk, snapshot map[string]value.Value) *value.TaskHandle {
	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.nextID++
	id := fmt.Sprintf("task-%x", e.nextID)
	e.mu.Unlock()

	th := value.NewTaskHandle(id, cancel)
	e.mu.Lock()
	e.tasks[id] = th
	e.mu.Unlock()

	e.metrics.TasksSpawned.Inc()
	e.mu.Lock()
	sem := e.sem
	e.mu.Unlock()
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer e.metrics.TasksCompleted.Inc()

		if err := sem.Acquire(ctx, 1); err != nil {
			return // canceled before a slot opened up
		}
		defer sem.Release(1)

		globalsCopy := make(map[string]value.Value, len(snapshot))
		for k, v := range snapshot {
			globalsCopy[k] = v
		}
		_, _ = e.run(chunk, globalsCopy)
	}()
	return th
}

// AwaitNonBlocking implements vm.AsyncExecutor: a non-blocking poll used
// by the VM's Await opcode so a pending promise suspends the calling
// fiber instead of parking the whole OS thread (spec.md §4.4).
func (e *Executor) AwaitNonBlocking(p *value.Promise) (value.Outcome, bool) {
	return p.TryAwait()
}

// SetPoolSize replaces the concurrency-limiting semaphore with one
// sized to n (spec.md §4.4/§6.5's set_task_pool_size). Tasks already
// holding a slot on the old semaphore keep running to completion; this
// is not atomic with in-flight Acquire calls against it, so a resize
// under heavy concurrent spawning only takes full effect once the old
// generation drains.
func (e *Executor) SetPoolSize(n int) {
	if n <= 0 {
		n = 1
	}
	e.mu.Lock()
	e.sem = semaphore.NewWeighted(int64(n))
	e.poolSize = n
	e.mu.Unlock()
}

// PoolSize reports the most recently configured pool size.
func (e *Executor) PoolSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.poolSize
}
