// Package runner executes due entries: under the execution lease it reads
// pending entries whose instant has passed and converges the catalog's
// tag membership to each entry's desired mapping.
//
// Applying an entry is diff-based: the desired member set is compared to
// the catalog's current set and only the difference is written. Running
// the same entry twice therefore converges to the same membership with no
// duplicate side effects, which is what makes re-running the currently
// active entry after an edit safe.
package runner

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/avesier/menurota/internal/domain"
)

// Store defines the entry persistence operations the runner needs.
type Store interface {
	Due(ctx context.Context, now time.Time, limit int) ([]domain.Entry, error)
	Find(ctx context.Context, id uuid.UUID) (domain.Entry, bool, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, now time.Time) error
}

// Catalog is the external catalog collaborator the runner syncs through.
type Catalog interface {
	ResolveTag(ctx context.Context, slug string) (tagID int64, ok bool, err error)
	MembersOf(ctx context.Context, tagID int64) ([]int64, error)
	AddMember(ctx context.Context, productID, tagID int64) error
	RemoveMember(ctx context.Context, productID, tagID int64) error
}

// Lease is the advisory lock preventing overlapping runs. A failed
// acquisition is a no-op for the caller, never an error.
type Lease interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// MetricsSink defines the interface for recording runner metrics.
// All methods must be non-blocking and fire-and-forget.
type MetricsSink interface {
	RunStarted()
	RunCompleted(duration time.Duration, executed int, err error)
	EntryExecuted(outcome string)
	LeaseContention()
	EntriesDueUpdate(count int)
	PayloadWarning()
	SyncFailure()
}

// Outcome constants reported via MetricsSink.EntryExecuted.
const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
	outcomeSkipped   = "skipped"
)

// Config holds runner configuration.
type Config struct {
	// BatchSize is the maximum number of due entries processed per run.
	// Default: 5.
	BatchSize int
}

// DefaultConfig returns the default runner configuration.
func DefaultConfig() Config {
	return Config{BatchSize: 5}
}

type Runner struct {
	config  Config
	store   Store
	catalog Catalog
	lease   Lease
	clock   func() time.Time
	metrics MetricsSink
}

func New(config Config, store Store, catalog Catalog, lease Lease) *Runner {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	return &Runner{
		config:  config,
		store:   store,
		catalog: catalog,
		lease:   lease,
		clock:   time.Now,
	}
}

// WithMetrics attaches a metrics sink to the runner.
func (r *Runner) WithMetrics(sink MetricsSink) *Runner {
	r.metrics = sink
	return r
}

// WithClock overrides the runner's clock. Intended for tests.
func (r *Runner) WithClock(clock func() time.Time) *Runner {
	r.clock = clock
	return r
}

// RunDue is the timer entry point: under the lease it executes every due
// pending entry, up to the batch size, oldest first. A held lease means
// another run is in flight; nothing is queued and no error surfaces.
// Returns the number of entries executed.
func (r *Runner) RunDue(ctx context.Context) (int, error) {
	ok, err := r.lease.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire lease: %w", err)
	}
	if !ok {
		if r.metrics != nil {
			r.metrics.LeaseContention()
		}
		log.Println("runner: lease held elsewhere, skipping run")
		return 0, nil
	}
	defer r.release(ctx)

	if r.metrics != nil {
		r.metrics.RunStarted()
	}
	start := r.clock()
	now := start.UTC()

	due, err := r.store.Due(ctx, now, r.config.BatchSize)
	if err != nil {
		if r.metrics != nil {
			r.metrics.RunCompleted(r.clock().Sub(start), 0, err)
		}
		return 0, fmt.Errorf("fetch due entries: %w", err)
	}
	if r.metrics != nil {
		r.metrics.EntriesDueUpdate(len(due))
	}

	executed := 0
	for _, entry := range due {
		// Re-check at the moment of processing; an earlier entry in the
		// batch may have taken a while.
		if !entry.Runnable(r.clock().UTC()) {
			if r.metrics != nil {
				r.metrics.EntryExecuted(outcomeSkipped)
			}
			continue
		}
		if err := r.processEntry(ctx, entry); err != nil {
			// Entry stays pending and retries on the next tick.
			log.Printf("runner: entry %s failed: %v", entry.ID, err)
			if r.metrics != nil {
				r.metrics.EntryExecuted(outcomeFailed)
			}
			continue
		}
		if r.metrics != nil {
			r.metrics.EntryExecuted(outcomeCompleted)
		}
		executed++
	}

	if r.metrics != nil {
		r.metrics.RunCompleted(r.clock().Sub(start), executed, nil)
	}
	if executed > 0 || len(due) > 0 {
		log.Printf("runner: run complete, executed=%d of %d due", executed, len(due))
	}
	return executed, nil
}

// RunEntry is the on-demand entry point: it executes exactly one entry by
// id. Returns false when the entry does not exist, is not runnable yet,
// or the lease is held elsewhere. Runnability is checked before the lease
// so a future entry is rejected regardless of lease availability.
func (r *Runner) RunEntry(ctx context.Context, id uuid.UUID) (bool, error) {
	entry, found, err := r.store.Find(ctx, id)
	if err != nil {
		return false, fmt.Errorf("find entry: %w", err)
	}
	if !found {
		log.Printf("runner: entry %s not found", id)
		return false, nil
	}
	if !entry.Runnable(r.clock().UTC()) {
		log.Printf("runner: entry %s not runnable (status=%s, scheduled_at=%s)",
			entry.ID, entry.Status, entry.ScheduledAt.Format(time.RFC3339))
		return false, nil
	}

	ok, err := r.lease.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire lease: %w", err)
	}
	if !ok {
		if r.metrics != nil {
			r.metrics.LeaseContention()
		}
		log.Printf("runner: lease held elsewhere, not running entry %s", id)
		return false, nil
	}
	defer r.release(ctx)

	if err := r.processEntry(ctx, entry); err != nil {
		if r.metrics != nil {
			r.metrics.EntryExecuted(outcomeFailed)
		}
		return false, err
	}
	if r.metrics != nil {
		r.metrics.EntryExecuted(outcomeCompleted)
	}
	return true, nil
}

// processEntry applies one entry's payload to the catalog and marks the
// entry completed. A sync failure aborts the remaining tags and leaves
// the status untouched, so the entry stays eligible for retry; there is
// no rollback of tags already applied.
func (r *Runner) processEntry(ctx context.Context, entry domain.Entry) error {
	payload, err := domain.DecodePayload(entry.Payload)
	if err != nil {
		// Malformed payload degrades to an empty mapping rather than
		// failing the run, but loudly.
		log.Printf("runner: entry %s payload malformed, applying empty mapping: %v", entry.ID, err)
		if r.metrics != nil {
			r.metrics.PayloadWarning()
		}
		payload = domain.Payload{}
	}

	for _, tag := range payload.Tags() {
		if err := r.syncTag(ctx, tag, payload[tag]); err != nil {
			if r.metrics != nil {
				r.metrics.SyncFailure()
			}
			return fmt.Errorf("sync tag %q: %w", tag, err)
		}
	}

	if err := r.store.MarkCompleted(ctx, entry.ID, r.clock().UTC()); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	log.Printf("runner: entry %s applied (%d tags)", entry.ID, len(payload))
	return nil
}

// syncTag converges one tag's membership: removals first, then additions.
func (r *Runner) syncTag(ctx context.Context, slug string, desired []int64) error {
	tagID, ok, err := r.catalog.ResolveTag(ctx, slug)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	if !ok {
		// The tag may have been deleted from the catalog after the entry
		// was authored; skip it rather than wedging the entry.
		log.Printf("runner: tag %q not in catalog, skipping", slug)
		return nil
	}

	current, err := r.catalog.MembersOf(ctx, tagID)
	if err != nil {
		return fmt.Errorf("members: %w", err)
	}

	for _, id := range difference(current, desired) {
		if err := r.catalog.RemoveMember(ctx, id, tagID); err != nil {
			return fmt.Errorf("remove product %d: %w", id, err)
		}
	}
	for _, id := range difference(desired, current) {
		if err := r.catalog.AddMember(ctx, id, tagID); err != nil {
			return fmt.Errorf("add product %d: %w", id, err)
		}
	}
	return nil
}

func (r *Runner) release(ctx context.Context) {
	if err := r.lease.Release(ctx); err != nil {
		log.Printf("runner: lease release failed: %v", err)
	}
}

// difference returns the elements of a that are not in b, preserving a's
// order.
func difference(a, b []int64) []int64 {
	inB := make(map[int64]struct{}, len(b))
	for _, id := range b {
		inB[id] = struct{}{}
	}
	var out []int64
	for _, id := range a {
		if _, ok := inB[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
