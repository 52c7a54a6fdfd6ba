package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// LockRegistry serializes mutations per tournament. Every mutating
// operation runs between Acquire and its release func; read paths never
// touch it. Entries are created on first use and pruned once a
// tournament reaches a terminal state.
type LockRegistry struct {
	mu      sync.Mutex
	sems    map[int]*semaphore.Weighted
	timeout time.Duration
}

func NewLockRegistry(timeout time.Duration) *LockRegistry {
	return &LockRegistry{
		sems:    make(map[int]*semaphore.Weighted),
		timeout: timeout,
	}
}

// Acquire blocks until the tournament lock is held or the timeout
// elapses. The release func must run on every exit path.
func (r *LockRegistry) Acquire(ctx context.Context, tournamentID int) (release func(), err error) {
	r.mu.Lock()
	sem, ok := r.sems[tournamentID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		r.sems[tournamentID] = sem
	}
	r.mu.Unlock()

	acquireCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := sem.Acquire(acquireCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("tournament %d lock: %w", tournamentID, ctx.Err())
		}
		return nil, fmt.Errorf("tournament %d: %w", tournamentID, ErrLockTimeout)
	}
	return func() { sem.Release(1) }, nil
}

// Forget drops the registry entry once the tournament is terminal. Late
// callers recreate it and fail fast on the persisted terminal status.
func (r *LockRegistry) Forget(tournamentID int) {
	r.mu.Lock()
	delete(r.sems, tournamentID)
	r.mu.Unlock()
}
