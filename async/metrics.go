package async

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the async executor's Prometheus instruments (SPEC_FULL.md
// Domain Stack: prometheus/client_golang backs JIT and async runtime
// observability). Each Executor gets its own registry-less counters so
// multiple interpreter instances in one process (e.g. under test) don't
// collide on global registration.
type Metrics struct {
	TasksSpawned   prometheus.Counter
	TasksCompleted prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		TasksSpawned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lumen_async_tasks_spawned_total",
			Help: "Total number of spawn/async task bodies launched.",
		}),
		TasksCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lumen_async_tasks_completed_total",
			Help: "Total number of spawned task bodies that returned (success or error).",
		}),
	}
}

// Register adds m's instruments to reg, letting cmd/lumen expose them
// on a /metrics endpoint when observability is wanted.
func (m *Metrics) Register(reg *prometheus.Registry) {
	reg.MustRegister(m.TasksSpawned, m.TasksCompleted)
}
