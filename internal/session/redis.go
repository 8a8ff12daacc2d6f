package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"venuebot/internal/foursquare"
)

const venuesField = "venues"

// RedisStore persists sessions in a Redis hash per chat
// (sessions:{chatID}, field "venues", JSON-encoded). With a non-zero TTL
// the key expires server-side; expiry policy is owned by Redis, not by the
// dispatcher.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisStore creates a Redis-backed session store and verifies the
// connection with a ping.
func NewRedisStore(ctx context.Context, addr string, db int, ttl time.Duration, logger *slog.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	logger.Info("Redis session store connected", "addr", addr, "db", db)
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "redis_store"),
	}, nil
}

func sessionKey(chatID int64) string {
	return fmt.Sprintf("sessions:%d", chatID)
}

// Put replaces the stored venue list for chatID.
func (s *RedisStore) Put(ctx context.Context, chatID int64, venues []foursquare.Venue) error {
	data, err := json.Marshal(venues)
	if err != nil {
		return fmt.Errorf("failed to encode session for chat %d: %w", chatID, err)
	}

	key := sessionKey(chatID)
	if err := s.client.HSet(ctx, key, venuesField, data).Err(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to store session", "chat_id", chatID, "error", err)
		return fmt.Errorf("failed to store session for chat %d: %w", chatID, err)
	}

	if s.ttl > 0 {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			s.logger.WarnContext(ctx, "Failed to set session TTL", "chat_id", chatID, "error", err)
		}
	}

	s.logger.DebugContext(ctx, "Session stored", "chat_id", chatID, "venues", len(venues))
	return nil
}

// Get returns the venue list last put for chatID, or ErrNoSession.
func (s *RedisStore) Get(ctx context.Context, chatID int64) ([]foursquare.Venue, error) {
	data, err := s.client.HGet(ctx, sessionKey(chatID), venuesField).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read session", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to read session for chat %d: %w", chatID, err)
	}

	var venues []foursquare.Venue
	if err := json.Unmarshal(data, &venues); err != nil {
		return nil, fmt.Errorf("failed to decode session for chat %d: %w", chatID, err)
	}
	return venues, nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
