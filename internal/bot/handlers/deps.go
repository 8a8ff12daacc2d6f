// Package handlers contains Telegram command and message handlers plus
// their registration logic. Handlers translate Telegram updates into
// dispatch events; all venue and session logic lives in the dispatcher.
package handlers

import (
	"log/slog"

	"venuebot/internal/config"
	"venuebot/internal/dispatch"
)

// HandlerDeps provides dependencies for Telegram handlers. Sink is either
// the dispatcher (direct mode) or a queue adapter (ingest mode).
type HandlerDeps struct {
	Logger *slog.Logger
	Config *config.Config
	Sink   dispatch.Sink
}
