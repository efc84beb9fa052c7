package async

import (
	"testing"

	"lumen/bytecode"
	"lumen/value"
)

func TestSpawnSnapshotDoesNotWriteBack(t *testing.T) {
	ran := make(chan map[string]value.Value, 1)
	run := func(chunk *bytecode.Chunk, globals map[string]value.Value) (value.Value, error) {
		globals["x"] = value.Int(999) // mutate the task's own copy
		ran <- globals
		return value.Null{}, nil
	}
	exec := NewExecutor(2, run)
	parentGlobals := map[string]value.Value{"x": value.Int(1)}
	chunk := bytecode.New("spawned")
	exec.Spawn(chunk, parentGlobals)

	<-ran
	if v, _ := parentGlobals["x"].(value.Int); v != 1 {
		t.Fatalf("parent globals were mutated by spawned task: x=%v", parentGlobals["x"])
	}
}

func TestPromiseCachedAfterFirstAwait(t *testing.T) {
	p, resolve := value.NewPromise()
	resolve(value.OkOutcome(value.Int(42)))

	out1 := p.Await()
	out2 := p.Await()
	if out1.Val.(value.Int) != 42 || out2.Val.(value.Int) != 42 {
		t.Fatalf("expected both awaits to observe the cached value 42")
	}
	if _, cached := p.Cached(); !cached {
		t.Fatalf("expected promise to report cached after resolution")
	}
}

func TestAwaitAllFirstErrorWins(t *testing.T) {
	p1, resolve1 := value.NewPromise()
	p2, resolve2 := value.NewPromise()
	resolve1(value.ErrOutcome(value.NewErrorObject("boom", 1)))
	resolve2(value.OkOutcome(value.Int(1)))

	_, err := AwaitAll([]*value.Promise{p1, p2})
	if err == nil || err.Message != "boom" {
		t.Fatalf("expected first error 'boom', got %v", err)
	}
}

func TestSharedStateAddIntIsAtomicAcrossGoroutines(t *testing.T) {
	s := NewSharedState()
	done := make(chan struct{})
	const n = 100
	for i := 0; i < n; i++ {
		go func() {
			s.AddInt("counter", 1)
			done <- struct{}{}
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}
	v, _ := s.Get("counter")
	if v.(int64) != n {
		t.Fatalf("expected counter=%d, got %v", n, v)
	}
}
