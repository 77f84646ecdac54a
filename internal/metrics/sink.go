package metrics

import "time"

// Sink defines the interface for recording metrics.
// All methods are fire-and-forget: implementations MUST NOT block or propagate errors.
// If the metrics backend is unavailable, implementations log warnings and continue.
type Sink interface {
	// Runner metrics
	RunStarted()
	RunCompleted(duration time.Duration, executed int, err error)
	EntryExecuted(outcome string)
	LeaseContention()
	EntriesDueUpdate(count int)

	// Degradation metrics
	PayloadWarning()
	SyncFailure()

	// Slot allocation metrics
	SlotProbes(n int)
}

// Outcome constants for EntryExecuted.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)
