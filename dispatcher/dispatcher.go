// Package dispatcher implements the native-function registry the VM's
// CallNative opcode consults (spec.md §4.5, §6.4). Grounded on the
// teacher's builtins/registry.go Registry (Register/GetID/CallByID/Get),
// generalized from MOO's fixed numeric builtin-id table to a plain
// name-keyed map since this runtime has no persistent-DB id-stability
// requirement to preserve.
package dispatcher

import (
	"fmt"
	"sort"
	"sync"

	"lumen/value"
)

// Fn is a native function's Go implementation.
type Fn func(args []value.Value) (value.Value, error)

// Registry is the name -> Fn table. Safe for concurrent registration and
// dispatch (natives may be registered by multiple packages' init-style
// setup functions before the VM starts running).
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Fn
}

func New() *Registry {
	return &Registry{funcs: make(map[string]Fn)}
}

// Register adds name to the table. Registering the same name twice is a
// programmer error (panics), matching this codebase's registry.Register
// duplicate-detection behavior.
func (r *Registry) Register(name string, fn Fn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.funcs[name]; exists {
		panic(fmt.Sprintf("dispatcher: native %q registered twice", name))
	}
	r.funcs[name] = fn
}

// Has reports whether name is a known native.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.funcs[name]
	return ok
}

// Names returns every registered name, sorted (used for the bounded
// Levenshtein "did you mean" suggestion — spec.md §7).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.funcs))
	for n := range r.funcs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Dispatch invokes name with args. Calling an unknown name here (as
// opposed to through the VM, which checks Has first and returns a
// Value::Error instead of calling Dispatch at all) is itself a
// programming error in the caller.
func (r *Registry) Dispatch(name string, args []value.Value) (value.Value, error) {
	r.mu.RLock()
	fn, ok := r.funcs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("dispatcher: unknown native %q", name)
	}
	return fn(args)
}
