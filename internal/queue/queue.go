// Package queue implements the pull-based inbound event source: a Redis
// list that the ingest mode pushes chat events onto and the worker mode
// drains. Delivery is at-most-once with FIFO pop; there is no
// acknowledgement and no retry, per the transport contract.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"venuebot/internal/dispatch"
)

const defaultPollInterval = 200 * time.Millisecond

// Handler processes one dequeued event to completion before the next pop.
type Handler func(ctx context.Context, ev dispatch.Event)

// Queue is a Redis-list-backed event queue.
type Queue struct {
	client       *redis.Client
	key          string
	pollInterval time.Duration
	logger       *slog.Logger
}

// New creates an event queue on the given Redis list key and verifies the
// connection with a ping. pollInterval is the idle backoff of the drain
// loop; it is a latency trade-off, not a correctness mechanism.
func New(ctx context.Context, addr string, db int, key string, pollInterval time.Duration, logger *slog.Logger) (*Queue, error) {
	if key == "" {
		return nil, fmt.Errorf("queue key cannot be empty")
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	logger.Info("Event queue connected", "addr", addr, "db", db, "key", key)
	return &Queue{
		client:       client,
		key:          key,
		pollInterval: pollInterval,
		logger:       logger.With("component", "queue"),
	}, nil
}

// Push enqueues one event as JSON.
func (q *Queue) Push(ctx context.Context, ev dispatch.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		q.logger.ErrorContext(ctx, "Failed to enqueue event", "chat_id", ev.ChatID, "error", err)
		return fmt.Errorf("failed to enqueue event: %w", err)
	}
	q.logger.DebugContext(ctx, "Event enqueued", "chat_id", ev.ChatID)
	return nil
}

// Run drains the queue until ctx is cancelled, invoking handler for each
// event synchronously. An empty list sleeps for the poll interval before
// the next pop. Malformed entries are dropped and logged rather than
// stopping the loop.
func (q *Queue) Run(ctx context.Context, handler Handler) error {
	q.logger.InfoContext(ctx, "Starting queue drain loop", "poll_interval", q.pollInterval)

	for {
		if err := ctx.Err(); err != nil {
			q.logger.InfoContext(ctx, "Queue drain loop stopped")
			return err
		}

		data, err := q.client.RPop(ctx, q.key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			select {
			case <-ctx.Done():
			case <-time.After(q.pollInterval):
			}
			continue
		case err != nil:
			if ctx.Err() != nil {
				continue
			}
			q.logger.ErrorContext(ctx, "Failed to pop event, backing off", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(q.pollInterval):
			}
			continue
		}

		ev, err := DecodeEvent(data)
		if err != nil {
			q.logger.WarnContext(ctx, "Dropping malformed queue entry", "error", err)
			continue
		}

		handler(ctx, ev)
	}
}

// Close closes the underlying Redis client.
func (q *Queue) Close() error {
	return q.client.Close()
}

// DecodeEvent parses one queue entry. Entries that are not valid JSON or
// carry no chat identity are malformed.
func DecodeEvent(data []byte) (dispatch.Event, error) {
	var ev dispatch.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return dispatch.Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	if ev.ChatID == 0 {
		return dispatch.Event{}, fmt.Errorf("event has no chat id")
	}
	return ev, nil
}
