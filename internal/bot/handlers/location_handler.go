package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"venuebot/internal/dispatch"
	"venuebot/internal/foursquare"
)

// NewLocationHandler returns the bot's default handler. It forwards shared
// locations to the event sink and ignores every other update shape.
func NewLocationHandler(deps HandlerDeps) bot.HandlerFunc {
	return locationHandler{deps}.Handle
}

type locationHandler struct {
	deps HandlerDeps
}

func (h locationHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Location == nil {
		// Not a location share; nothing for this bot to do.
		return
	}

	log := h.deps.Logger.With("handler", "location")
	log.InfoContext(ctx, "Received location",
		"chat_id", update.Message.Chat.ID,
		"lat", update.Message.Location.Latitude,
		"lng", update.Message.Location.Longitude)

	h.deps.Sink.Handle(ctx, dispatch.Event{
		ChatID: update.Message.Chat.ID,
		Location: &foursquare.Point{
			Latitude:  update.Message.Location.Latitude,
			Longitude: update.Message.Location.Longitude,
		},
	})
}
