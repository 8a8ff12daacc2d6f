// Package tasks contains the scheduled maintenance tasks run alongside
// the bot.
package tasks

import (
	"context"
	"log/slog"

	"venuebot/internal/config"
	"venuebot/internal/session"
)

// ScheduledTaskFunc is the signature for all scheduled tasks. The context
// provided by the scheduler must be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// TaskDeps provides dependencies for scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Config *config.Config
	Store  session.Store
}
