// Package jit's entry point: Hook implements vm.JITHook so the
// interpreter's Call opcode can ask "has this chunk gotten hot and
// stable enough to specialize?" without importing this package's
// internals (spec.md §4.2, §4.3).
package jit

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"lumen/bytecode"
	"lumen/config"
	"lumen/vm"
)

// Hook is the concrete vm.JITHook: call-count profiling feeding a
// block-sealed CFG builder (build.go) and a cache of specialized int64
// closures (codegen.go/cache.go). Grounded on this codebase's
// vm/profiler.go call-count-threshold pattern. A chunk is specialized
// on hotness and Build's verdict alone: no argument-type samples are
// collected (SpecializationInfo.recordSample has no caller), so there is
// no type-stability gate.
type Hook struct {
	cfg      *config.Config
	profiles *ProfileStore
	compiled *codeCache
	compiles prometheus.Counter
	deopts   prometheus.Counter

	// compilesSeen/deoptsSeen duplicate the Prometheus counters as plain
	// atomics: prometheus.Counter doesn't expose a cheap readback outside
	// testutil, and jit_stats (spec.md §6.2) needs one.
	compilesSeen atomic.Int64
	deoptsSeen   atomic.Int64
}

func NewHook(cfg *config.Config, reg *prometheus.Registry) *Hook {
	if cfg == nil {
		cfg = config.Default()
	}
	h := &Hook{
		cfg:      cfg,
		profiles: NewProfileStore(cfg),
		compiled: newCodeCache(cfg.JIT.CodeCacheSize),
		compiles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lumen_jit_compiles_total",
			Help: "Total number of chunks specialized by the method-JIT.",
		}),
		deopts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lumen_jit_deopts_total",
			Help: "Total number of specialized calls that fell back to the interpreter on a guard miss.",
		}),
	}
	if reg != nil {
		reg.MustRegister(h.compiles, h.deopts)
	}
	return h
}

// RecordCall bumps chunk's hotness counter (spec.md §4.2's "at
// threshold (e.g., 100)" trigger), which Compiled checks against the
// configured hotness threshold. Neither method records type samples.
func (h *Hook) RecordCall(chunk *bytecode.Chunk) {
	if !h.cfg.JIT.Enabled {
		return
	}
	h.profiles.infoFor(chunk).recordCall()
}

// Compiled returns a specialized native-calling-convention closure for
// chunk if it is hot and structurally eligible (Build's verdict),
// compiling and caching it on first qualifying call. vm/call.go only
// consults this for single-int-argument calls, so the (ctx, int64) ->
// int64 signature always matches what Build verified.
func (h *Hook) Compiled(chunk *bytecode.Chunk) (func(ctx *vm.VMContext, arg int64) int64, bool) {
	if !h.cfg.JIT.Enabled {
		return nil, false
	}
	info := h.profiles.infoFor(chunk)
	if !info.hot(h.cfg.JIT.HotnessThreshold) {
		return nil, false
	}
	if cached, ok := h.compiled.get(chunk); ok {
		return wrapCached(cached), true
	}

	fn := Build(chunk)
	if !fn.Eligible {
		return nil, false
	}

	var self func(int64) int64
	self = func(arg int64) int64 { return evalSpecialized(chunk, arg, self) }
	h.compiled.put(chunk, self)
	h.compiles.Inc()
	h.compilesSeen.Add(1)
	return wrapCached(self), true
}

func wrapCached(fn func(arg int64) int64) func(ctx *vm.VMContext, arg int64) int64 {
	return func(ctx *vm.VMContext, arg int64) int64 { return fn(arg) }
}

// DeoptHit records a guard miss: a chunk that is already specialized
// was called with an argument shape the specialized closure can't
// handle (vm/call.go's single-int-arg fast path requires value.Int),
// so the interpreter ran the call itself instead. A no-op for chunks
// that were never actually compiled.
func (h *Hook) DeoptHit(chunk *bytecode.Chunk) {
	if _, ok := h.compiled.get(chunk); !ok {
		return
	}
	h.deopts.Inc()
	h.deoptsSeen.Add(1)
}

// SetEnabled flips the JIT on/off at runtime (spec.md §6.2's
// set_jit_enabled). Mutates the shared *config.Config in place rather
// than swapping h.cfg, so other holders of the same *Config observe the
// change too; not goroutine-safe against concurrent reads of the bool,
// same caveat this build's config.Config carries everywhere else.
func (h *Hook) SetEnabled(enabled bool) { h.cfg.JIT.Enabled = enabled }

// Stats reports the JIT's lifetime compile/deopt counts (spec.md
// §6.2's jit_stats) plus whether it is currently enabled.
type HookStats struct {
	Enabled  bool
	Compiles int64
	Deopts   int64
}

func (h *Hook) Stats() HookStats {
	return HookStats{
		Enabled:  h.cfg.JIT.Enabled,
		Compiles: h.compilesSeen.Load(),
		Deopts:   h.deoptsSeen.Load(),
	}
}
