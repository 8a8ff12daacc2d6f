// Package telegram handles the setup of the go-telegram/bot instance,
// handler registration, and the outbound Messenger implementation.
package telegram

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"venuebot/internal/bot/handlers"
)

// New creates a Telegram bot instance.
func New(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info("Telegram bot instance created")
	return b, nil
}

// RegisterHandlers registers command handlers with the bot instance.
func RegisterHandlers(b *bot.Bot, logger *slog.Logger, registered map[string]handlers.RegisteredHandler) error {
	if b == nil {
		return fmt.Errorf("bot instance cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "handler_registry")

	for name, h := range registered {
		if h.Handler == nil {
			log.Warn("Skipping registration for nil handler", "pattern", h.Pattern)
			continue
		}
		b.RegisterHandler(h.HandlerType, h.Pattern, h.MatchType, h.Handler)
		log.Debug("Registered handler", "name", name, "pattern", h.Pattern)
	}

	log.Info("Registered Telegram handlers", "count", len(registered))
	return nil
}

// Messenger emits outbound chat messages through the Telegram bot API.
// It implements dispatch.Messenger.
type Messenger struct {
	bot    *bot.Bot
	logger *slog.Logger
}

// NewMessenger wraps a bot instance as an outbound messenger.
func NewMessenger(b *bot.Bot, logger *slog.Logger) *Messenger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Messenger{
		bot:    b,
		logger: logger.With("component", "messenger"),
	}
}

// SendText sends a plain text message.
func (m *Messenger) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := m.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
	}
	return nil
}

// SendLocation sends a location pin.
func (m *Messenger) SendLocation(ctx context.Context, chatID int64, lat, lng float64) error {
	_, err := m.bot.SendLocation(ctx, &bot.SendLocationParams{
		ChatID:    chatID,
		Latitude:  lat,
		Longitude: lng,
	})
	if err != nil {
		return fmt.Errorf("failed to send location to chat %d: %w", chatID, err)
	}
	return nil
}

// SendPhoto uploads a photo with a caption.
func (m *Messenger) SendPhoto(ctx context.Context, chatID int64, photo []byte, caption string) error {
	_, err := m.bot.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:  chatID,
		Photo:   &models.InputFileUpload{Filename: "tip.jpg", Data: bytes.NewReader(photo)},
		Caption: caption,
	})
	if err != nil {
		return fmt.Errorf("failed to send photo to chat %d: %w", chatID, err)
	}
	return nil
}
