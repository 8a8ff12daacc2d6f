// Package bot implements the application orchestrator: it runs the
// inbound event listener (Telegram long-poll or queue drain) alongside the
// maintenance scheduler and handles graceful shutdown.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"
)

// Listener runs the inbound side of the application until ctx is
// cancelled. Returning a non-cancellation error stops the orchestrator.
type Listener func(ctx context.Context) error

// Bot orchestrates the listener and the scheduler.
type Bot struct {
	logger    *slog.Logger
	listener  Listener
	scheduler *Scheduler
}

// NewBot creates the orchestrator.
func NewBot(logger *slog.Logger, listener Listener, scheduler *Scheduler) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		logger:    logger.With("component", "orchestrator"),
		listener:  listener,
		scheduler: scheduler,
	}
}

// TelegramListener adapts a Telegram bot's long-poll loop to a Listener.
func TelegramListener(tg *tgbot.Bot, logger *slog.Logger) Listener {
	return func(ctx context.Context) error {
		logger.Info("Starting Telegram listener...")
		tg.Start(ctx)
		logger.Info("Telegram listener stopped.")

		if ctx.Err() == nil {
			return fmt.Errorf("telegram listener stopped unexpectedly")
		}
		return nil
	}
}

// Run starts all components and blocks until ctx is cancelled or a
// component fails.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := b.listener(gCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("listener failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := b.scheduler.Start(); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Orchestrator stopped gracefully.")
	return nil
}
