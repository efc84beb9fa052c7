package jit

import "lumen/value"

// deoptSignal describes a specialized closure's int64-only assumption
// being violated at runtime, e.g. a call arriving with a Float. Nothing
// in this build constructs or checks it: evalSpecialized returns a bare
// int64, and the guard actually applied is vm/call.go's value.Int check
// on the argument, whose misses run in the interpreter and are counted
// by Hook.DeoptHit.
type deoptSignal struct{ reason string }

// checkIntGuard reports whether v is safely representable as the
// int64 the specialized closure operates on (spec.md §4.3's type-guard
// requirement before running profile-specialized code). It has no
// caller; vm/call.go performs the same value.Int check inline.
func checkIntGuard(v value.Value) (int64, bool) {
	i, ok := v.(value.Int)
	if !ok {
		return 0, false
	}
	return int64(i), true
}
