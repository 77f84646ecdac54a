// Package postgres implements entry persistence on PostgreSQL.
//
// Absence of the entries table is a recognized, non-fatal condition: every
// operation maps an undefined-table error to planner.ErrSchemaMissing so
// callers can degrade to empty results and signal that a migration is
// needed.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avesier/menurota/internal/domain"
	"github.com/avesier/menurota/internal/planner"
	"github.com/avesier/menurota/internal/runner"
)

// Store implements the entry store on PostgreSQL.
type Store struct {
	db        *sql.DB
	opTimeout time.Duration
}

// New creates a PostgreSQL store. opTimeout bounds each operation; zero
// disables the bound.
func New(db *sql.DB, opTimeout time.Duration) *Store {
	return &Store{db: db, opTimeout: opTimeout}
}

func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// Migrate creates the entries schema. The partial unique index enforces
// that no two non-cancelled entries share a scheduled instant.
func (s *Store) Migrate(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, queryCreateSchema)
	return err
}

// List returns entries ordered ascending by scheduled instant.
func (s *Store) List(ctx context.Context, limit, offset int) ([]domain.Entry, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, queryListEntries, limit, offset)
	if err != nil {
		return nil, mapSchemaError(err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Find returns the entry with the given id; found is false when the id
// is unknown.
func (s *Store) Find(ctx context.Context, id uuid.UUID) (domain.Entry, bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	return s.findOne(s.db.QueryRowContext(ctx, queryFindEntry, id))
}

// FindPrevious returns the latest non-cancelled entry scheduled strictly
// before the given instant.
func (s *Store) FindPrevious(ctx context.Context, before time.Time) (domain.Entry, bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	return s.findOne(s.db.QueryRowContext(ctx, queryFindPrevious, before.UTC()))
}

// FindNext returns the earliest non-cancelled entry scheduled strictly
// after the given instant.
func (s *Store) FindNext(ctx context.Context, after time.Time) (domain.Entry, bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	return s.findOne(s.db.QueryRowContext(ctx, queryFindNext, after.UTC()))
}

func (s *Store) findOne(row rowScanner) (domain.Entry, bool, error) {
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Entry{}, false, nil
	}
	if err != nil {
		return domain.Entry{}, false, mapSchemaError(err)
	}
	return entry, true, nil
}

// ReservedInstants returns the scheduled instants of all non-cancelled
// entries, for slot-collision probing.
func (s *Store) ReservedInstants(ctx context.Context) ([]time.Time, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, queryReservedInstants)
	if err != nil {
		return nil, mapSchemaError(err)
	}
	defer rows.Close()

	var instants []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		instants = append(instants, t.UTC())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return instants, nil
}

// Insert writes a new entry.
func (s *Store) Insert(ctx context.Context, entry domain.Entry) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	payload := entry.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	_, err := s.db.ExecContext(ctx, queryInsertEntry,
		entry.ID,
		entry.ScheduledAt.UTC(),
		string(payload),
		string(entry.Status),
		entry.CreatedBy,
		entry.CreatedAt.UTC(),
		entry.UpdatedAt.UTC(),
	)
	return mapSchemaError(err)
}

// Update applies the given fields. Returns false if the entry is unknown.
func (s *Store) Update(ctx context.Context, id uuid.UUID, fields planner.EntryUpdate, now time.Time) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var payload interface{}
	if fields.Payload != nil {
		payload = string(fields.Payload)
	}
	var status interface{}
	if fields.Status != nil {
		status = string(*fields.Status)
	}

	result, err := s.db.ExecContext(ctx, queryUpdateEntry, id, payload, status, now.UTC())
	if err != nil {
		return false, mapSchemaError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Delete removes an entry unconditionally, regardless of status.
// Returns false if the entry is unknown.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	result, err := s.db.ExecContext(ctx, queryDeleteEntry, id)
	if err != nil {
		return false, mapSchemaError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MarkCompleted sets an entry's status to completed. Used by the runner
// for both the pending->completed transition and the idempotent re-apply
// of an already-completed entry.
func (s *Store) MarkCompleted(ctx context.Context, id uuid.UUID, now time.Time) error {
	status := domain.EntryStatusCompleted
	_, err := s.Update(ctx, id, planner.EntryUpdate{Status: &status}, now)
	return err
}

// Due returns up to limit pending entries scheduled at-or-before now,
// ascending by scheduled instant.
func (s *Store) Due(ctx context.Context, now time.Time, limit int) ([]domain.Entry, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, queryDueEntries, now.UTC(), limit)
	if err != nil {
		return nil, mapSchemaError(err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (domain.Entry, error) {
	var (
		entry   domain.Entry
		payload []byte
		status  string
	)
	err := row.Scan(
		&entry.ID,
		&entry.ScheduledAt,
		&payload,
		&status,
		&entry.CreatedBy,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return domain.Entry{}, err
	}
	entry.ScheduledAt = entry.ScheduledAt.UTC()
	entry.Payload = payload
	entry.Status = domain.EntryStatus(status)
	return entry, nil
}

func scanEntries(rows *sql.Rows) ([]domain.Entry, error) {
	var result []domain.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// mapSchemaError converts an undefined-table error to
// planner.ErrSchemaMissing. PostgreSQL's undefined_table code is 42P01;
// the message check covers drivers that do not expose the code.
func mapSchemaError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "42P01") ||
		(strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")) {
		return planner.ErrSchemaMissing
	}
	return err
}

// Compile-time interface assertions
var (
	_ planner.Store = (*Store)(nil)
	_ runner.Store  = (*Store)(nil)
)
