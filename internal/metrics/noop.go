package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) RunStarted()                                              {}
func (n *NoopSink) RunCompleted(duration time.Duration, executed int, err error) {}
func (n *NoopSink) EntryExecuted(outcome string)                             {}
func (n *NoopSink) LeaseContention()                                         {}
func (n *NoopSink) EntriesDueUpdate(count int)                               {}
func (n *NoopSink) PayloadWarning()                                          {}
func (n *NoopSink) SyncFailure()                                             {}
func (n *NoopSink) SlotProbes(probes int)                                    {}
