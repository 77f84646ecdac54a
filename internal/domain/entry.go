package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "pending"
	EntryStatusCompleted EntryStatus = "completed"
	EntryStatusCancelled EntryStatus = "cancelled"
)

// ValidStatus reports whether s is one of the known entry statuses.
func ValidStatus(s EntryStatus) bool {
	switch s {
	case EntryStatusPending, EntryStatusCompleted, EntryStatusCancelled:
		return true
	}
	return false
}

// Entry is one planned menu rotation: which product ids belong to which
// tag once ScheduledAt passes.
type Entry struct {
	ID uuid.UUID

	// ScheduledAt is stored normalized to UTC, truncated to the minute.
	ScheduledAt time.Time

	// Payload is the persisted JSON form of the tag membership mapping.
	// Consumers decode it with DecodePayload and degrade to an empty
	// mapping when it is malformed.
	Payload json.RawMessage

	Status EntryStatus

	CreatedBy uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Runnable reports whether the entry may be executed at now.
// Completed entries stay runnable so the currently active entry can be
// re-applied after an edit; cancelled entries never run.
func (e Entry) Runnable(now time.Time) bool {
	if e.Status != EntryStatusPending && e.Status != EntryStatusCompleted {
		return false
	}
	if e.ScheduledAt.IsZero() {
		return false
	}
	return !e.ScheduledAt.After(now)
}
