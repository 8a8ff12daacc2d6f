package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"venuebot/internal/dispatch"
)

// NewCommandHandler returns a handler forwarding /venueN and /tipsN
// commands to the event sink. The dispatcher parses the index out of the
// command text.
func NewCommandHandler(deps HandlerDeps) bot.HandlerFunc {
	return commandHandler{deps}.Handle
}

type commandHandler struct {
	deps HandlerDeps
}

func (h commandHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "command")

	if update.Message == nil || update.Message.Text == "" {
		log.WarnContext(ctx, "Command handler received update without text", "update_id", update.ID)
		return
	}

	h.deps.Sink.Handle(ctx, dispatch.Event{
		ChatID: update.Message.Chat.ID,
		Text:   update.Message.Text,
	})
}
