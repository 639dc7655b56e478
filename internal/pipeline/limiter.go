package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyCenters is returned when every worker slot is occupied and the
// wait timeout expires.
var ErrTooManyCenters = errors.New("too many concurrent center runs, please retry")

// CenterLimiter bounds how many centers run concurrently, per §5's
// one-worker-per-center scheduling model. Grounded on the teacher's
// internal/core.UploadLimiter semaphore pattern, adapted from a per-request
// HTTP limiter into a per-center pipeline scheduler.
type CenterLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewCenterLimiter allows at most maxConcurrent centers to run at once.
// Callers that cannot acquire a slot within maxWait receive
// ErrTooManyCenters.
func NewCenterLimiter(maxConcurrent int, maxWait time.Duration) *CenterLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &CenterLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire blocks until a worker slot is free or maxWait elapses.
func (l *CenterLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyCenters
	}
}

// Release frees a previously acquired slot.
func (l *CenterLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
	<-l.semaphore
}

// ActiveCount returns the number of centers currently running.
func (l *CenterLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}
