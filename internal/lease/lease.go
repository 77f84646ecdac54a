// Package lease provides the time-boxed advisory lock that keeps
// overlapping execution runs from working the same entries. Acquisition
// is non-blocking: a held lease means the caller backs off, nothing
// queues. The lease self-expires so a dead holder cannot wedge execution.
package lease

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is the lease expiry. Processing that legitimately exceeds it
// can overlap with a second acquirer; that is an accepted risk given the
// small batch size.
const DefaultTTL = 5 * time.Minute

// Lease is an advisory, time-boxed execution lock.
type Lease interface {
	// Acquire returns true if the lease was taken. false with a nil
	// error means a contending holder, not a fault.
	Acquire(ctx context.Context) (bool, error)
	// Release frees the lease. Safe to call when not held.
	Release(ctx context.Context) error
}

// Local is an in-process lease for single-instance deployments.
type Local struct {
	mu        sync.Mutex
	ttl       time.Duration
	held      bool
	expiresAt time.Time
	clock     func() time.Time
}

// NewLocal creates an in-process lease with the given TTL.
func NewLocal(ttl time.Duration) *Local {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Local{ttl: ttl, clock: time.Now}
}

func (l *Local) Acquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if l.held && now.Before(l.expiresAt) {
		return false, nil
	}
	l.held = true
	l.expiresAt = now.Add(l.ttl)
	return true, nil
}

func (l *Local) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	return nil
}
