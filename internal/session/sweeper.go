package session

import (
	"context"
	"log/slog"
	"time"
)

// StartSweeper runs a background goroutine that periodically evicts sessions
// idle beyond idleThreshold. It stops when ctx is canceled. Eviction runs
// independently of request handling and never terminates on its own.
func (s *Store) StartSweeper(ctx context.Context, interval, idleThreshold time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", interval, "idle_threshold", idleThreshold)

		for {
			select {
			case <-ticker.C:
				s.runSweep(idleThreshold)
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func (s *Store) runSweep(idleThreshold time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Session sweep panicked", "panic", r)
		}
	}()

	evicted := s.Sweep(s.now(), idleThreshold)
	if evicted > 0 {
		slog.Info("Session sweep evicted idle sessions", "count", evicted, "remaining", s.Len())
	}
}
