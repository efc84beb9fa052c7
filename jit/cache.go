package jit

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"lumen/bytecode"
)

// codeCache holds compiled closures keyed by chunk, bounded the same
// way ProfileStore is — spec.md §4.3's code cache, sized by
// JIT.CodeCacheSize (SPEC_FULL.md Ambient Stack config knob).
type codeCache struct {
	entries *lru.Cache[*bytecode.Chunk, func(arg int64) int64]
}

func newCodeCache(size int) *codeCache {
	if size <= 0 {
		size = 512
	}
	c, _ := lru.New[*bytecode.Chunk, func(arg int64) int64](size)
	return &codeCache{entries: c}
}

func (c *codeCache) get(chunk *bytecode.Chunk) (func(arg int64) int64, bool) {
	return c.entries.Get(chunk)
}

func (c *codeCache) put(chunk *bytecode.Chunk, fn func(arg int64) int64) {
	c.entries.Add(chunk, fn)
}
