// internal/flights/limiter.go
package flights

import (
	"context"
	"sync"
	"time"
)

// DualLimiter throttles fan-out dispatch on two axes at once: at most
// maxConcurrent requests in flight, and at most maxPerSecond requests newly
// started per rolling one-second window. Completions free concurrency slots
// but never refund the rate window, so a burst of fast responses cannot push
// throughput past the per-second ceiling.
type DualLimiter struct {
	slots        chan struct{}
	maxPerSecond int

	mu          sync.Mutex
	windowStart time.Time
	started     int
}

func NewDualLimiter(maxConcurrent, maxPerSecond int) *DualLimiter {
	return &DualLimiter{
		slots:        make(chan struct{}, maxConcurrent),
		maxPerSecond: maxPerSecond,
	}
}

// Acquire blocks until both a concurrency slot and a start permit for the
// current window are available. Callers must Release the slot when done.
func (l *DualLimiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	for {
		l.mu.Lock()
		now := time.Now()
		if now.Sub(l.windowStart) >= time.Second {
			l.windowStart = now
			l.started = 0
		}
		if l.started < l.maxPerSecond {
			l.started++
			l.mu.Unlock()
			return nil
		}
		wait := l.windowStart.Add(time.Second).Sub(now)
		l.mu.Unlock()

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			<-l.slots
			return ctx.Err()
		}
	}
}

// Release frees the concurrency slot taken by a successful Acquire.
func (l *DualLimiter) Release() {
	<-l.slots
}
