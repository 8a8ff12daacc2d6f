package tasks

import (
	"context"

	"venuebot/internal/session"
)

// maintainer is implemented by session store backends with periodic
// upkeep: the memory store sweeps expired entries, the SQLite store
// deletes expired rows and compacts the file. The Redis backend expires
// keys server-side and has nothing to do here.
type maintainer interface {
	Maintain(ctx context.Context) error
}

// newSessionMaintenanceTask returns the session store maintenance task.
func newSessionMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "session_maintenance")

	return func(ctx context.Context) error {
		switch store := deps.Store.(type) {
		case *session.MemoryStore:
			return store.Sweep(ctx)
		case maintainer:
			return store.Maintain(ctx)
		default:
			log.DebugContext(ctx, "Session backend needs no maintenance")
			return nil
		}
	}
}
