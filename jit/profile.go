// Package jit implements the method-JIT's profiling, SSA construction,
// and specialized-code cache (spec.md §2 item 4, §4.3). Grounded on
// ProbeChain-go-probe's lang/ir package for the SSA shape (Program/
// Function/BasicBlock/Value/TypeRef), generalized from a standalone
// compiler IR into an in-process tier triggered by call-count hotness.
//
// Native machine code is not emitted: DESIGN.md documents this
// simplification explicitly — "compiled" functions are
// specialized Go closures conforming to this design's self-recursive
// calling convention fn(*vm.VMContext, i64) -> i64, cached exactly the
// way a real native-code cache would be keyed and evicted.
package jit

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"lumen/bytecode"
	"lumen/config"
)

// TypeSample is one observed argument-type outcome for a call site,
// feeding the type-profile-driven specialization spec.md §4.3 describes.
type TypeSample int

const (
	SampleInt TypeSample = iota
	SampleFloat
	SampleOther
)

// SpecializationInfo tracks a chunk's call count and type-sample
// histogram until it either stabilizes (>= ProfileStabilityPct same-type
// samples after ProfileSampleSize observations) or is deemed polymorphic.
type SpecializationInfo struct {
	mu        sync.Mutex
	callCount int
	samples   []TypeSample
	stable    bool
	stableOn  TypeSample
}

func (s *SpecializationInfo) recordCall() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callCount++
}

func (s *SpecializationInfo) recordSample(t TypeSample, sampleSize, stabilityPct int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.samples) >= sampleSize {
		s.samples = s.samples[1:]
	}
	s.samples = append(s.samples, t)
	if len(s.samples) < sampleSize {
		return
	}
	counts := map[TypeSample]int{}
	for _, sm := range s.samples {
		counts[sm]++
	}
	for kind, n := range counts {
		if n*100/len(s.samples) >= stabilityPct {
			s.stable = true
			s.stableOn = kind
			return
		}
	}
	s.stable = false
}

func (s *SpecializationInfo) hot(threshold int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount >= threshold
}

func (s *SpecializationInfo) specialization() (TypeSample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stableOn, s.stable
}

// ProfileStore holds one SpecializationInfo per chunk, bounded by an LRU
// so long-running interpreters don't leak profile entries for chunks
// that are compiled once and never called again (e.g. one-shot spawn
// bodies).
type ProfileStore struct {
	cfg     *config.Config
	entries *lru.Cache[*bytecode.Chunk, *SpecializationInfo]
}

func NewProfileStore(cfg *config.Config) *ProfileStore {
	size := cfg.JIT.CodeCacheSize
	if size <= 0 {
		size = 512
	}
	cache, _ := lru.New[*bytecode.Chunk, *SpecializationInfo](size)
	return &ProfileStore{cfg: cfg, entries: cache}
}

func (p *ProfileStore) infoFor(chunk *bytecode.Chunk) *SpecializationInfo {
	if info, ok := p.entries.Get(chunk); ok {
		return info
	}
	info := &SpecializationInfo{}
	p.entries.Add(chunk, info)
	return info
}
