package natives

import (
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"

	"lumen/dispatcher"
	"lumen/value"
)

// registerSystem wires process-introspection natives, grounded on the
// teacher's builtins/gc.go run_gc/gc_stats pair, generalized from a
// MOO-specific GC-pause trigger to a plain memory-stats read (this
// runtime's refcounted Value model has no stop-the-world collector to
// invoke). uuid_v4 exposes google/uuid's random v4 UUIDs to user code;
// the async executor's task ids are sequential "task-N" strings instead.
func registerSystem(r *dispatcher.Registry) {
	r.Register("gc_stats", func(args []value.Value) (value.Value, error) {
		if len(args) != 0 {
			return nil, fmt.Errorf("gc_stats() takes no arguments, got %d", len(args))
		}
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		d := value.NewEmptyDict()
		d = d.Set("heap_alloc", value.Int(ms.HeapAlloc))
		d = d.Set("heap_objects", value.Int(ms.HeapObjects))
		d = d.Set("num_gc", value.Int(ms.NumGC))
		return d, nil
	})

	r.Register("now_unix_ms", func(args []value.Value) (value.Value, error) {
		if len(args) != 0 {
			return nil, fmt.Errorf("now_unix_ms() takes no arguments, got %d", len(args))
		}
		return value.Int(time.Now().UnixMilli()), nil
	})

	r.Register("uuid_v4", func(args []value.Value) (value.Value, error) {
		if len(args) != 0 {
			return nil, fmt.Errorf("uuid_v4() takes no arguments, got %d", len(args))
		}
		return value.NewStr(uuid.NewString()), nil
	})
}
