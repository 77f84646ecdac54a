package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestPrometheusSink_RunCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg)

	sink.RunStarted()
	sink.RunStarted()
	sink.RunCompleted(200*time.Millisecond, 3, nil)
	sink.RunCompleted(50*time.Millisecond, 0, errors.New("boom"))

	if got := counterValue(t, sink.runsTotal); got != 2 {
		t.Errorf("runs_total = %v, want 2", got)
	}
	if got := counterValue(t, sink.runErrorsTotal); got != 1 {
		t.Errorf("run_errors_total = %v, want 1", got)
	}
}

func TestPrometheusSink_Outcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg)

	sink.EntryExecuted(OutcomeCompleted)
	sink.EntryExecuted(OutcomeCompleted)
	sink.EntryExecuted(OutcomeFailed)

	if got := counterValue(t, sink.entriesExecutedTotal.WithLabelValues(OutcomeCompleted)); got != 2 {
		t.Errorf("entries_executed_total{completed} = %v, want 2", got)
	}
	if got := counterValue(t, sink.entriesExecutedTotal.WithLabelValues(OutcomeFailed)); got != 1 {
		t.Errorf("entries_executed_total{failed} = %v, want 1", got)
	}
}

// Duplicate registration must not panic; the sink stays functional.
func TestPrometheusSink_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := NewPrometheusSink(reg)
	b := NewPrometheusSink(reg)

	a.LeaseContention()
	b.LeaseContention()
	a.PayloadWarning()
	b.SyncFailure()
	b.SlotProbes(3)
	b.EntriesDueUpdate(5)
}
