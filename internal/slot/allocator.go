// Package slot reserves a collision-free instant for a new entry on top
// of the recurrence calculator.
package slot

import (
	"time"

	"github.com/avesier/menurota/internal/recurrence"
)

// DefaultMaxProbes bounds the collision search to roughly one calendar
// year of daily steps.
const DefaultMaxProbes = 366

// MetricsSink records slot-allocation metrics. Must not block.
type MetricsSink interface {
	SlotProbes(n int)
}

type Allocator struct {
	calc      *recurrence.Calculator
	maxProbes int
	metrics   MetricsSink
}

func New(calc *recurrence.Calculator, maxProbes int) *Allocator {
	if maxProbes <= 0 {
		maxProbes = DefaultMaxProbes
	}
	return &Allocator{calc: calc, maxProbes: maxProbes}
}

// WithMetrics attaches a metrics sink to the allocator.
func (a *Allocator) WithMetrics(sink MetricsSink) *Allocator {
	a.metrics = sink
	return a
}

// Set builds the membership set for NextOpenSlot from the reserved
// instants of non-cancelled entries, normalized the way occurrences are.
func Set(instants []time.Time) map[time.Time]struct{} {
	set := make(map[time.Time]struct{}, len(instants))
	for _, t := range instants {
		set[t.UTC().Truncate(time.Minute)] = struct{}{}
	}
	return set
}

// NextOpenSlot returns the first occurrence after now that is not already
// reserved, advancing past collisions one occurrence at a time. If the
// probe bound is exhausted the last computed candidate is returned as-is;
// a collision at that point is accepted rather than blocking creation.
func (a *Allocator) NextOpenSlot(now time.Time, existing map[time.Time]struct{}) time.Time {
	cand := a.calc.Next(now)

	probes := 1
	for i := 0; i < a.maxProbes; i++ {
		if _, taken := existing[cand]; !taken {
			break
		}
		cand = a.calc.Next(cand.Add(time.Minute))
		probes++
	}

	if a.metrics != nil {
		a.metrics.SlotProbes(probes)
	}
	return cand
}
