package metrics

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using the Prometheus client library.
// All methods are non-blocking and fire-and-forget.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	// Runner metrics
	runsTotal            prometheus.Counter
	runErrorsTotal       prometheus.Counter
	entriesExecutedTotal *prometheus.CounterVec
	runDuration          prometheus.Histogram
	leaseContentionTotal prometheus.Counter
	entriesDue           prometheus.Gauge

	// Degradation metrics
	payloadWarningsTotal prometheus.Counter
	syncFailuresTotal    prometheus.Counter

	// Slot allocation metrics
	slotProbes prometheus.Histogram
}

// NewPrometheusSink creates a new Prometheus metrics sink.
// If registration fails, it logs a warning and returns a functional sink.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{}
	s.initRunnerMetrics(reg)
	s.initDegradationMetrics(reg)
	s.initSlotMetrics(reg)
	return s
}

func (s *PrometheusSink) initRunnerMetrics(reg prometheus.Registerer) {
	s.runsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "menurota_runner_runs_total",
		Help: "Total number of execution runs started.",
	})
	s.runErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "menurota_runner_run_errors_total",
		Help: "Total number of execution runs that finished with an error.",
	})
	s.entriesExecutedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "menurota_runner_entries_executed_total",
		Help: "Total number of entry executions by outcome.",
	}, []string{"outcome"})
	s.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "menurota_runner_run_duration_seconds",
		Help:    "Duration of each execution run in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	})
	s.leaseContentionTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "menurota_runner_lease_contention_total",
		Help: "Total number of runs skipped because the execution lease was held elsewhere.",
	})
	s.entriesDue = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "menurota_runner_entries_due",
		Help: "Number of due entries found at the start of the last run.",
	})

	s.register(reg, s.runsTotal, "menurota_runner_runs_total")
	s.register(reg, s.runErrorsTotal, "menurota_runner_run_errors_total")
	s.register(reg, s.entriesExecutedTotal, "menurota_runner_entries_executed_total")
	s.register(reg, s.runDuration, "menurota_runner_run_duration_seconds")
	s.register(reg, s.leaseContentionTotal, "menurota_runner_lease_contention_total")
	s.register(reg, s.entriesDue, "menurota_runner_entries_due")
}

func (s *PrometheusSink) initDegradationMetrics(reg prometheus.Registerer) {
	s.payloadWarningsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "menurota_payload_warnings_total",
		Help: "Total number of entry payloads that failed to decode and degraded to empty.",
	})
	s.syncFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "menurota_catalog_sync_failures_total",
		Help: "Total number of catalog sync failures while applying an entry.",
	})

	s.register(reg, s.payloadWarningsTotal, "menurota_payload_warnings_total")
	s.register(reg, s.syncFailuresTotal, "menurota_catalog_sync_failures_total")
}

func (s *PrometheusSink) initSlotMetrics(reg prometheus.Registerer) {
	s.slotProbes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "menurota_slot_probes",
		Help:    "Number of candidate instants probed per slot allocation.",
		Buckets: []float64{1, 2, 3, 5, 10, 50, 100, 366},
	})

	s.register(reg, s.slotProbes, "menurota_slot_probes")
}

// register registers a collector, logging a warning on failure.
// The sink remains functional; the unregistered metric is simply not exported.
func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return
		}
		log.Printf("metrics: failed to register %s: %v", name, err)
	}
}

func (s *PrometheusSink) RunStarted() {
	s.runsTotal.Inc()
}

func (s *PrometheusSink) RunCompleted(duration time.Duration, executed int, err error) {
	s.runDuration.Observe(duration.Seconds())
	if err != nil {
		s.runErrorsTotal.Inc()
	}
}

func (s *PrometheusSink) EntryExecuted(outcome string) {
	s.entriesExecutedTotal.WithLabelValues(outcome).Inc()
}

func (s *PrometheusSink) LeaseContention() {
	s.leaseContentionTotal.Inc()
}

func (s *PrometheusSink) EntriesDueUpdate(count int) {
	s.entriesDue.Set(float64(count))
}

func (s *PrometheusSink) PayloadWarning() {
	s.payloadWarningsTotal.Inc()
}

func (s *PrometheusSink) SyncFailure() {
	s.syncFailuresTotal.Inc()
}

func (s *PrometheusSink) SlotProbes(probes int) {
	s.slotProbes.Observe(float64(probes))
}
