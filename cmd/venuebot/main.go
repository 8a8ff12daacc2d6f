// Package main is the entrypoint for the venuebot application.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbot "github.com/go-telegram/bot"

	"venuebot/internal/bot"
	"venuebot/internal/bot/handlers"
	"venuebot/internal/bot/tasks"
	"venuebot/internal/config"
	"venuebot/internal/dispatch"
	"venuebot/internal/foursquare"
	"venuebot/internal/logger"
	"venuebot/internal/queue"
	"venuebot/internal/session"
	"venuebot/internal/telegram"
	"venuebot/internal/web"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes the components for the selected mode and blocks until
// shutdown. Modes:
//
//	bot    - long-poll Telegram and dispatch updates directly
//	ingest - long-poll Telegram and enqueue events onto the Redis list
//	worker - drain the Redis list and dispatch
//	web    - serve the venue search over HTTP
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	mode := flag.String("mode", "bot", "Run mode: bot, ingest, worker, or web")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info("Logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)
	log.Info("Starting venuebot", "mode", *mode)

	switch *mode {
	case "bot":
		err = runBot(ctx, cfg, log)
	case "ingest":
		err = runIngest(ctx, cfg, log)
	case "worker":
		err = runWorker(ctx, cfg, log)
	case "web":
		err = runWeb(ctx, cfg, log)
	default:
		log.Error("Unknown run mode", "mode", *mode)
		return 1
	}

	if err != nil {
		log.Error("Stopped due to error", "mode", *mode, "error", err)
		return 1
	}

	log.Info("Stopped gracefully.", "mode", *mode)
	return 0
}

// runBot dispatches Telegram updates directly (push delivery).
func runBot(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	store, err := newStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore(store, log)

	fsq, err := newFoursquareClient(cfg, log)
	if err != nil {
		return err
	}

	var dispatcher *dispatch.Dispatcher

	// The dispatcher needs the messenger, which needs the bot, which
	// needs the default handler; break the cycle with a late binding.
	defaultHandler := handlers.NewLocationHandler(handlers.HandlerDeps{
		Logger: log,
		Config: cfg,
		Sink: dispatch.SinkFunc(func(ctx context.Context, ev dispatch.Event) {
			dispatcher.Handle(ctx, ev)
		}),
	})

	tg, err := telegram.New(cfg.Telegram.Token, log,
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(defaultHandler),
	)
	if err != nil {
		return err
	}

	dispatcher = newDispatcher(cfg, log, fsq, store, tg)

	hDeps := handlers.HandlerDeps{Logger: log, Config: cfg, Sink: dispatcher}
	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		return err
	}

	sched, err := newScheduler(cfg, log, store)
	if err != nil {
		return err
	}

	return bot.NewBot(log, bot.TelegramListener(tg, log), sched).Run(ctx)
}

// runIngest enqueues Telegram updates onto the Redis list without
// dispatching them.
func runIngest(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	q, err := queue.New(ctx, cfg.Redis.Addr, cfg.Redis.DB, cfg.Queue.Key, cfg.Queue.PollInterval, log)
	if err != nil {
		return err
	}
	defer q.Close()

	sink := dispatch.SinkFunc(func(ctx context.Context, ev dispatch.Event) {
		if err := q.Push(ctx, ev); err != nil {
			log.ErrorContext(ctx, "Failed to enqueue event", "chat_id", ev.ChatID, "error", err)
		}
	})

	deps := handlers.HandlerDeps{Logger: log, Config: cfg, Sink: sink}
	tg, err := telegram.New(cfg.Telegram.Token, log,
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewLocationHandler(deps)),
	)
	if err != nil {
		return err
	}
	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(deps)); err != nil {
		return err
	}

	sched, err := newScheduler(cfg, log, nil)
	if err != nil {
		return err
	}

	return bot.NewBot(log, bot.TelegramListener(tg, log), sched).Run(ctx)
}

// runWorker drains the Redis list and dispatches events (pull delivery).
// The Telegram bot instance is used for outbound sends only.
func runWorker(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	store, err := newStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore(store, log)

	fsq, err := newFoursquareClient(cfg, log)
	if err != nil {
		return err
	}

	tg, err := telegram.New(cfg.Telegram.Token, log)
	if err != nil {
		return err
	}

	dispatcher := newDispatcher(cfg, log, fsq, store, tg)

	q, err := queue.New(ctx, cfg.Redis.Addr, cfg.Redis.DB, cfg.Queue.Key, cfg.Queue.PollInterval, log)
	if err != nil {
		return err
	}
	defer q.Close()

	sched, err := newScheduler(cfg, log, store)
	if err != nil {
		return err
	}

	listener := func(ctx context.Context) error {
		return q.Run(ctx, dispatcher.Handle)
	}
	return bot.NewBot(log, listener, sched).Run(ctx)
}

// runWeb serves the venue search over HTTP.
func runWeb(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	fsq, err := newFoursquareClient(cfg, log)
	if err != nil {
		return err
	}

	srv := web.NewServer(cfg.Web.Addr, fsq, log)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func newFoursquareClient(cfg *config.Config, log *slog.Logger) (*foursquare.Client, error) {
	return foursquare.NewClient(foursquare.Config{
		ClientID:     cfg.Foursquare.ClientID,
		ClientSecret: cfg.Foursquare.ClientSecret,
		APIVersion:   cfg.Foursquare.APIVersion,
		Limit:        cfg.Foursquare.Limit,
		Section:      cfg.Foursquare.Section,
		Timeout:      cfg.Foursquare.Timeout,
	}, log)
}

func newDispatcher(cfg *config.Config, log *slog.Logger, fsq *foursquare.Client, store session.Store, tg *tgbot.Bot) *dispatch.Dispatcher {
	return dispatch.New(log, fsq, fsq, store, telegram.NewMessenger(tg, log), dispatch.Messages{
		NoSession:  cfg.Messages.NoSession,
		OutOfRange: cfg.Messages.OutOfRange,
	})
}

// newStore builds the configured session store backend.
func newStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (session.Store, error) {
	switch cfg.Session.Backend {
	case "memory":
		return session.NewMemoryStore(cfg.Session.TTL, log), nil
	case "redis":
		return session.NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.DB, cfg.Session.TTL, log)
	case "sqlite":
		return session.NewSQLiteStore(cfg.Database.Path, cfg.Session.TTL, log)
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}

func closeStore(store session.Store, log *slog.Logger) {
	if err := store.Close(); err != nil {
		log.Error("Error closing session store", "error", err)
	}
}

// newScheduler builds the maintenance scheduler. store may be nil for
// modes without a session store; no tasks are registered then.
func newScheduler(cfg *config.Config, log *slog.Logger, store session.Store) (*bot.Scheduler, error) {
	taskMap := map[string]tasks.ScheduledTaskFunc{}
	if store != nil {
		taskMap = tasks.RegisterAllTasks(tasks.TaskDeps{Logger: log, Config: cfg, Store: store})
	}
	return bot.NewScheduler(log, &cfg.Scheduler, taskMap)
}
