package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for one run of the worker tree.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Worker lifecycle
	WorkersSpawned  prometheus.Counter
	WorkerStates    *prometheus.GaugeVec
	WorkerExits     *prometheus.CounterVec
	ScanDuration    prometheus.Histogram
	ElementsScanned prometheus.Counter

	// Disposition protocol
	Dispositions *prometheus.CounterVec
	Anomalies    *prometheus.CounterVec
	Interrupts   prometheus.Counter

	// Aggregate results
	HiddenTotal prometheus.Gauge
	GlobalMax   prometheus.Gauge
	RunDuration prometheus.Gauge

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current metric values for assertions and the final log line.
type Snapshot struct {
	Spawned      int64
	Dispositions map[string]int64
	Exits        map[string]int64
	Anomalies    int64
	Interrupts   int64
}

// NewMetrics creates a collector backed by its own registry, so several runs
// (or tests) can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		WorkersSpawned: factory.NewCounter(prometheus.CounterOpts{
			Name: "forktree_workers_spawned_total",
			Help: "Total number of workers spawned",
		}),
		WorkerStates: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "forktree_workers",
			Help: "Number of workers currently in each lifecycle state",
		}, []string{"state"}),
		WorkerExits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "forktree_worker_exits_total",
			Help: "Worker terminations by outcome",
		}, []string{"outcome"}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "forktree_scan_duration_seconds",
			Help:    "Time spent scanning one segment",
			Buckets: []float64{.00001, .0001, .001, .01, .1, 1},
		}),
		ElementsScanned: factory.NewCounter(prometheus.CounterOpts{
			Name: "forktree_elements_scanned_total",
			Help: "Array elements scanned by all members",
		}),

		Dispositions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "forktree_dispositions_total",
			Help: "Disposition decisions by rule",
		}, []string{"rule"}),
		Anomalies: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "forktree_anomalies_total",
			Help: "Unexpected child status observations",
		}, []string{"expected", "got"}),
		Interrupts: factory.NewCounter(prometheus.CounterOpts{
			Name: "forktree_interrupts_total",
			Help: "Interrupts acknowledged by workers",
		}),

		HiddenTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "forktree_hidden_total",
			Help: "Hidden markers found across the array",
		}),
		GlobalMax: factory.NewGauge(prometheus.GaugeOpts{
			Name: "forktree_global_max",
			Help: "Maximum regular value across the array",
		}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "forktree_run_duration_seconds",
			Help: "Wall-clock duration of the run",
		}),

		snapshot: Snapshot{
			Dispositions: map[string]int64{},
			Exits:        map[string]int64{},
		},
	}
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordSpawn counts a spawned worker.
func (m *Metrics) RecordSpawn() {
	if m == nil {
		return
	}
	m.WorkersSpawned.Inc()
	m.mu.Lock()
	m.snapshot.Spawned++
	m.mu.Unlock()
}

// RecordTransition moves one worker between state gauges. An empty from
// means the worker is new.
func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	if from != "" {
		m.WorkerStates.WithLabelValues(from).Dec()
	}
	m.WorkerStates.WithLabelValues(to).Inc()
}

// ObserveScan records one segment scan.
func (m *Metrics) ObserveScan(d time.Duration, elements int) {
	if m == nil {
		return
	}
	m.ScanDuration.Observe(d.Seconds())
	m.ElementsScanned.Add(float64(elements))
}

// RecordDisposition counts a disposition decision.
func (m *Metrics) RecordDisposition(rule string) {
	if m == nil {
		return
	}
	m.Dispositions.WithLabelValues(rule).Inc()
	m.mu.Lock()
	m.snapshot.Dispositions[rule]++
	m.mu.Unlock()
}

// RecordExit counts a worker termination.
func (m *Metrics) RecordExit(outcome string) {
	if m == nil {
		return
	}
	m.WorkerExits.WithLabelValues(outcome).Inc()
	m.mu.Lock()
	m.snapshot.Exits[outcome]++
	m.mu.Unlock()
}

// RecordAnomaly counts a wait that returned an unexpected status class.
func (m *Metrics) RecordAnomaly(expected, got string) {
	if m == nil {
		return
	}
	m.Anomalies.WithLabelValues(expected, got).Inc()
	m.mu.Lock()
	m.snapshot.Anomalies++
	m.mu.Unlock()
}

// RecordInterrupt counts an acknowledged interrupt.
func (m *Metrics) RecordInterrupt() {
	if m == nil {
		return
	}
	m.Interrupts.Inc()
	m.mu.Lock()
	m.snapshot.Interrupts++
	m.mu.Unlock()
}

// RecordResult publishes the aggregate outcome of a run.
func (m *Metrics) RecordResult(max, hidden int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.GlobalMax.Set(float64(max))
	m.HiddenTotal.Set(float64(hidden))
	m.RunDuration.Set(elapsed.Seconds())
}

// Snapshot returns a copy of the tracked values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := Snapshot{
		Spawned:      m.snapshot.Spawned,
		Anomalies:    m.snapshot.Anomalies,
		Interrupts:   m.snapshot.Interrupts,
		Dispositions: make(map[string]int64, len(m.snapshot.Dispositions)),
		Exits:        make(map[string]int64, len(m.snapshot.Exits)),
	}
	for k, v := range m.snapshot.Dispositions {
		out.Dispositions[k] = v
	}
	for k, v := range m.snapshot.Exits {
		out.Exits[k] = v
	}
	return out
}

// WriteTextfile writes the registry in the Prometheus text format, suitable
// for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
