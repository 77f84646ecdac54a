// Package classifier derives which entry is active now and partitions the
// rest into the upcoming plan and the execution history.
package classifier

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/avesier/menurota/internal/domain"
)

// Config holds classifier configuration.
type Config struct {
	// HistoryLimit caps the history list; older completed entries are
	// dropped from the result, not deleted. Default: 60.
	HistoryLimit int
}

// DefaultConfig returns the default classifier configuration.
func DefaultConfig() Config {
	return Config{HistoryLimit: 60}
}

// Classified is an entry annotated with its position in the plan.
type Classified struct {
	domain.Entry
	IsCurrent bool
}

// Result is the output of Split: Current holds the active and upcoming
// entries ascending by schedule, History the superseded completed ones
// descending.
type Result struct {
	Current []Classified
	History []domain.Entry
}

// Split partitions entries around now. The current entry is the one with
// the greatest scheduled instant at-or-before now among pending and
// completed entries; at most one entry in the result carries IsCurrent.
func Split(entries []domain.Entry, now time.Time, cfg Config) Result {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultConfig().HistoryLimit
	}

	currentID, hasCurrent := currentEntryID(entries, now)

	var res Result
	for _, e := range entries {
		if e.Status == domain.EntryStatusCompleted && !(hasCurrent && e.ID == currentID) {
			res.History = append(res.History, e)
			continue
		}
		res.Current = append(res.Current, Classified{
			Entry:     e,
			IsCurrent: hasCurrent && e.ID == currentID,
		})
	}

	sort.Slice(res.Current, func(i, j int) bool {
		return res.Current[i].ScheduledAt.Before(res.Current[j].ScheduledAt)
	})
	sort.Slice(res.History, func(i, j int) bool {
		return res.History[i].ScheduledAt.After(res.History[j].ScheduledAt)
	})
	if len(res.History) > cfg.HistoryLimit {
		res.History = res.History[:cfg.HistoryLimit]
	}

	return res
}

// currentEntryID picks the entry with the greatest scheduled instant
// at-or-before now among pending and completed entries. Entries with a
// zero scheduled instant are never current.
func currentEntryID(entries []domain.Entry, now time.Time) (uuid.UUID, bool) {
	var (
		id    uuid.UUID
		best  time.Time
		found bool
	)
	for _, e := range entries {
		if e.Status != domain.EntryStatusPending && e.Status != domain.EntryStatusCompleted {
			continue
		}
		if e.ScheduledAt.IsZero() || e.ScheduledAt.After(now) {
			continue
		}
		if !found || e.ScheduledAt.After(best) {
			id = e.ID
			best = e.ScheduledAt
			found = true
		}
	}
	return id, found
}
