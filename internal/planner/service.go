// Package planner exposes the core's public operations: schedule
// snapshots, entry lifecycle, the current/history view, and the run entry
// points. Controllers consume this service; it owns payload normalization
// and the slot allocation performed on creation.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avesier/menurota/internal/classifier"
	"github.com/avesier/menurota/internal/domain"
	"github.com/avesier/menurota/internal/recurrence"
	"github.com/avesier/menurota/internal/slot"
)

var (
	// ErrSchemaMissing is returned by the store when the entries table
	// does not exist yet. Read paths degrade to empty results and a
	// needs-migration flag instead of surfacing it.
	ErrSchemaMissing = errors.New("entries table missing: run migrate")

	// ErrNotFound is returned when an entry id is unknown.
	ErrNotFound = errors.New("entry not found")

	// ErrStatusTerminal is returned when an update would transition a
	// cancelled entry; cancelled is never re-entered or left.
	ErrStatusTerminal = errors.New("entry is cancelled: status is terminal")

	// ErrInvalidStatus is returned for an unknown status value.
	ErrInvalidStatus = errors.New("invalid entry status")
)

// EntryUpdate carries the mutable entry fields for the store; nil members
// are left unchanged. The later of two racing writes wins; there is no
// conflict detection.
type EntryUpdate struct {
	Payload []byte
	Status  *domain.EntryStatus
}

// Store defines the entry persistence operations the planner needs.
type Store interface {
	List(ctx context.Context, limit, offset int) ([]domain.Entry, error)
	Find(ctx context.Context, id uuid.UUID) (domain.Entry, bool, error)
	FindPrevious(ctx context.Context, before time.Time) (domain.Entry, bool, error)
	FindNext(ctx context.Context, after time.Time) (domain.Entry, bool, error)
	ReservedInstants(ctx context.Context) ([]time.Time, error)
	Insert(ctx context.Context, entry domain.Entry) error
	Update(ctx context.Context, id uuid.UUID, fields EntryUpdate, now time.Time) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// Runner is the execution collaborator behind RunDue/RunEntry.
type Runner interface {
	RunDue(ctx context.Context) (int, error)
	RunEntry(ctx context.Context, id uuid.UUID) (bool, error)
}

// maxListEntries bounds the classifier read; the history cap is far
// below it.
const maxListEntries = 500

type Service struct {
	store   Store
	calc    *recurrence.Calculator
	alloc   *slot.Allocator
	runner  Runner
	history classifier.Config
	clock   func() time.Time
}

func New(store Store, calc *recurrence.Calculator, alloc *slot.Allocator, runner Runner, history classifier.Config) *Service {
	return &Service{
		store:   store,
		calc:    calc,
		alloc:   alloc,
		runner:  runner,
		history: history,
		clock:   time.Now,
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// Snapshot is the schedule configuration plus the computed next-slot
// preview.
type Snapshot struct {
	Config         domain.ScheduleConfig
	NextSlot       time.Time
	PreviousSlot   time.Time
	NeedsMigration bool
}

// ScheduleSnapshot returns the active configuration and where the next
// created entry would land. Missing schema degrades to a preview over an
// empty reservation set plus the needs-migration flag.
func (s *Service) ScheduleSnapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Config: s.calc.Config()}
	now := s.clock().UTC()

	reserved, err := s.store.ReservedInstants(ctx)
	if errors.Is(err, ErrSchemaMissing) {
		snap.NeedsMigration = true
	} else if err != nil {
		return Snapshot{}, fmt.Errorf("reserved instants: %w", err)
	}

	snap.NextSlot = s.alloc.NextOpenSlot(now, slot.Set(reserved))
	snap.PreviousSlot = s.calc.Previous(now)
	return snap, nil
}

// CreateEntry normalizes the payload, allocates the next open slot and
// inserts a pending entry.
func (s *Service) CreateEntry(ctx context.Context, p domain.Payload, creator uuid.UUID) (domain.Entry, error) {
	raw, err := p.Encode()
	if err != nil {
		return domain.Entry{}, fmt.Errorf("encode payload: %w", err)
	}

	reserved, err := s.store.ReservedInstants(ctx)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("reserved instants: %w", err)
	}

	now := s.clock().UTC()
	entry := domain.Entry{
		ID:          uuid.New(),
		ScheduledAt: s.alloc.NextOpenSlot(now, slot.Set(reserved)),
		Payload:     raw,
		Status:      domain.EntryStatusPending,
		CreatedBy:   creator,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Insert(ctx, entry); err != nil {
		return domain.Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	return entry, nil
}

// GetEntry returns one entry by id.
func (s *Service) GetEntry(ctx context.Context, id uuid.UUID) (domain.Entry, error) {
	entry, found, err := s.store.Find(ctx, id)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("find entry: %w", err)
	}
	if !found {
		return domain.Entry{}, ErrNotFound
	}
	return entry, nil
}

// UpdateParams carries an entry edit; nil fields are left unchanged.
type UpdateParams struct {
	Payload *domain.Payload
	Status  *domain.EntryStatus
}

// UpdateEntry applies an edit. Cancelled entries reject any further
// status change; payload edits renormalize before persistence.
func (s *Service) UpdateEntry(ctx context.Context, id uuid.UUID, params UpdateParams) (domain.Entry, error) {
	entry, found, err := s.store.Find(ctx, id)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("find entry: %w", err)
	}
	if !found {
		return domain.Entry{}, ErrNotFound
	}

	var update EntryUpdate
	if params.Status != nil {
		if !domain.ValidStatus(*params.Status) {
			return domain.Entry{}, ErrInvalidStatus
		}
		if entry.Status == domain.EntryStatusCancelled && *params.Status != domain.EntryStatusCancelled {
			return domain.Entry{}, ErrStatusTerminal
		}
		update.Status = params.Status
	}
	if params.Payload != nil {
		raw, err := params.Payload.Encode()
		if err != nil {
			return domain.Entry{}, fmt.Errorf("encode payload: %w", err)
		}
		update.Payload = raw
	}

	if _, err := s.store.Update(ctx, id, update, s.clock().UTC()); err != nil {
		return domain.Entry{}, fmt.Errorf("update entry: %w", err)
	}

	entry, _, err = s.store.Find(ctx, id)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("reload entry: %w", err)
	}
	return entry, nil
}

// DeleteEntry removes an entry unconditionally, regardless of status.
func (s *Service) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

// Plan is the classified entry view.
type Plan struct {
	Current        []classifier.Classified
	History        []domain.Entry
	NeedsMigration bool
}

// ListCurrentAndHistory returns the classified plan. Missing schema
// degrades to an empty plan plus the needs-migration flag.
func (s *Service) ListCurrentAndHistory(ctx context.Context) (Plan, error) {
	entries, err := s.store.List(ctx, maxListEntries, 0)
	if errors.Is(err, ErrSchemaMissing) {
		return Plan{NeedsMigration: true}, nil
	}
	if err != nil {
		return Plan{}, fmt.Errorf("list entries: %w", err)
	}

	res := classifier.Split(entries, s.clock().UTC(), s.history)
	return Plan{Current: res.Current, History: res.History}, nil
}

// RunDue triggers a batch execution run.
func (s *Service) RunDue(ctx context.Context) (int, error) {
	return s.runner.RunDue(ctx)
}

// RunEntry triggers on-demand execution of one entry.
func (s *Service) RunEntry(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.runner.RunEntry(ctx, id)
}
