// internal/gc/sweeper.go
package gc

import (
	"context"
	"log/slog"
	"time"
)

// Store is the slice of the blob store the sweeper needs: full enumeration
// and bounded batch deletes.
type Store interface {
	Walk(fn func(key string, lastModified time.Time) error) error
	DeleteBatch(keys []string) error
}

const deleteChunkSize = 1000

// Sweeper periodically deletes result blobs older than the configured TTL.
// Invocations are not re-entrant; deletes are idempotent, so racing an
// already-deleted key is harmless.
type Sweeper struct {
	store    Store
	ttl      time.Duration
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(store Store, ttl, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		ttl:      ttl,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps on a fixed schedule until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(time.Now().UTC()); err != nil {
				s.logger.Error("sweep failed", "error", err)
			}
		}
	}
}

// Sweep scans the whole store once and deletes every key whose age, measured
// from its last-modified timestamp, has reached the TTL. A no-op on an empty
// store or when nothing has expired.
func (s *Sweeper) Sweep(now time.Time) error {
	var total int
	var toDelete []string

	err := s.store.Walk(func(key string, lastModified time.Time) error {
		total++
		if now.Sub(lastModified) >= s.ttl {
			toDelete = append(toDelete, key)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("sweep scan complete", "total_keys", total, "deleting", len(toDelete))

	if len(toDelete) == 0 {
		return nil
	}

	for start := 0; start < len(toDelete); start += deleteChunkSize {
		end := start + deleteChunkSize
		if end > len(toDelete) {
			end = len(toDelete)
		}
		chunk := toDelete[start:end]
		if err := s.store.DeleteBatch(chunk); err != nil {
			return err
		}
		s.logger.Info("sweep deleted keys", "count", len(chunk))
	}
	return nil
}
