package postgres

const queryCreateSchema = `
CREATE TABLE IF NOT EXISTS entries (
    id           UUID PRIMARY KEY,
    scheduled_at TIMESTAMPTZ NOT NULL,
    payload      JSONB NOT NULL DEFAULT '{}',
    status       TEXT NOT NULL DEFAULT 'pending',
    created_by   UUID NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS entries_scheduled_at_active
    ON entries (scheduled_at) WHERE status <> 'cancelled';
CREATE INDEX IF NOT EXISTS entries_due
    ON entries (scheduled_at) WHERE status = 'pending'
`

const entryColumns = `id, scheduled_at, payload, status, created_by, created_at, updated_at`

const queryListEntries = `
SELECT ` + entryColumns + `
FROM entries
ORDER BY scheduled_at ASC
LIMIT $1 OFFSET $2
`

const queryFindEntry = `
SELECT ` + entryColumns + `
FROM entries
WHERE id = $1
`

const queryFindPrevious = `
SELECT ` + entryColumns + `
FROM entries
WHERE scheduled_at < $1
  AND status <> 'cancelled'
ORDER BY scheduled_at DESC
LIMIT 1
`

const queryFindNext = `
SELECT ` + entryColumns + `
FROM entries
WHERE scheduled_at > $1
  AND status <> 'cancelled'
ORDER BY scheduled_at ASC
LIMIT 1
`

const queryReservedInstants = `
SELECT scheduled_at
FROM entries
WHERE status <> 'cancelled'
`

const queryInsertEntry = `
INSERT INTO entries (id, scheduled_at, payload, status, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

const queryUpdateEntry = `
UPDATE entries
SET payload    = COALESCE($2::jsonb, payload),
    status     = COALESCE($3::text, status),
    updated_at = $4
WHERE id = $1
`

const queryDeleteEntry = `
DELETE FROM entries WHERE id = $1
`

const queryDueEntries = `
SELECT ` + entryColumns + `
FROM entries
WHERE status = 'pending'
  AND scheduled_at <= $1
ORDER BY scheduled_at ASC
LIMIT $2
`
