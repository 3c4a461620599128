package session

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper drops expired entries and reports how many went.
type Sweeper interface {
	Sweep() int
}

// Janitor calls every sweeper on each tick until ctx is done.
func Janitor(ctx context.Context, interval time.Duration, sweepers map[string]Sweeper) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for name, s := range sweepers {
				if n := s.Sweep(); n > 0 {
					slog.Debug("swept expired entries", "store", name, "removed", n)
				}
			}
		}
	}
}
