package health

import (
	"context"
	"fmt"
)

// Pinger is anything that can probe its backing connection, e.g. the
// Postgres store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Database returns a readiness checker probing the storage backend.
func Database(p Pinger) Checker {
	return Checker{
		Name: "database",
		Check: func(ctx context.Context) error {
			if p == nil {
				// In-memory backend: nothing to probe.
				return nil
			}
			if err := p.Ping(ctx); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			return nil
		},
	}
}

// Named wraps an arbitrary probe function as a [Checker].
func Named(name string, probe func(ctx context.Context) error) Checker {
	return Checker{Name: name, Check: probe}
}
