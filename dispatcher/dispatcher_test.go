package dispatcher_test

import (
	"testing"

	"lumen/dispatcher"
	"lumen/natives"
	"lumen/value"
)

func TestUnknownNameIsNotDispatched(t *testing.T) {
	r := dispatcher.New()
	r.Register("one", func(args []value.Value) (value.Value, error) {
		return value.Int(1), nil
	})
	if r.Has("two") {
		t.Fatalf("expected 'two' to be unknown")
	}
	if _, err := r.Dispatch("two", nil); err == nil {
		t.Fatalf("expected error dispatching unknown native")
	}
}

// TestDispatchCoverage probes every native this build actually ships —
// natives.RegisterAll plus natives.RegisterAsync with every dependency
// left nil — against a real registry, the property spec.md §4.5/§8
// calls out: a native must never panic or silently return a zero value
// for a shape it doesn't expect, but return an error instead.
//
// The probe argument list (three ints) is deliberately wrong for every
// native in this catalog: it violates every fixed arity, the high end
// of every bounded arity (await_all's 1-2, parallel_map's 2-3,
// run_scheduler_until_complete's 0-1), and every zero-arity check, and
// where arity alone wouldn't catch it (parallel_map's 2-or-3-arg shape),
// the first argument's wrong type does. Side-effecting natives this
// probe would otherwise actually trigger (sleep, file_open, spawn_task)
// never get that far: their argument-count/type checks run first and
// reject this probe before touching any side effect, exactly as
// spec.md §4.5's "probe with intentionally wrong argument types to
// force the validation path" contract describes.
func TestDispatchCoverage(t *testing.T) {
	r := dispatcher.New()
	natives.RegisterAll(r)
	natives.RegisterAsync(r, nil, nil, nil, nil, nil)

	probe := []value.Value{value.Int(1), value.Int(1), value.Int(1)}
	for _, n := range r.Names() {
		if _, err := r.Dispatch(n, probe); err == nil {
			t.Errorf("native %q accepted a 3-int probe call without a shape error", n)
		}
	}
}
