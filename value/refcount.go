package value

import "sync/atomic"

// handle is the shared refcount header embedded in every container Value
// (Str, Bytes, Array, Dict, Set, Queue, Stack). It implements the
// copy-on-write ownership model of spec.md §3.3: mutation is safe
// in-place only when the handle is uniquely owned (count == 1); otherwise
// the caller must clone the backing storage before writing.
//
// The containers' mutating methods (e.g. Array.Set, Array.Append,
// Str.Append) check Unique() themselves: a uniquely owned container is
// written in place and returned as is, a shared one is copied first and
// the copy is returned. The VM does not check Unique() itself.
type handle struct {
	count int32
}

func newHandle() *handle {
	return &handle{count: 1}
}

// Retain increments the reference count. Called whenever a new Value
// wrapper is created that shares this handle's backing storage (e.g.
// Array.Share or Str.Share handing out a second header over the same
// elements).
func (h *handle) Retain() {
	atomic.AddInt32(&h.count, 1)
}

// Release decrements the reference count and reports whether this was the
// last reference (count dropped to 0).
func (h *handle) Release() bool {
	return atomic.AddInt32(&h.count, -1) == 0
}

// Unique reports whether this handle has exactly one owner, the condition
// under which the VM may mutate the backing storage in place instead of
// copying.
func (h *handle) Unique() bool {
	return atomic.LoadInt32(&h.count) == 1
}

// Count returns the current reference count, for diagnostics/tests only.
func (h *handle) Count() int32 {
	return atomic.LoadInt32(&h.count)
}
