package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"venuebot/internal/foursquare"
)

type memoryEntry struct {
	venues    []foursquare.Venue
	updatedAt time.Time
}

// MemoryStore is a process-local Store backed by a mutex-guarded map.
// With a non-zero TTL, entries past their age are dropped on read and by
// the periodic Sweep maintenance task.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[int64]memoryEntry
	ttl     time.Duration
	logger  *slog.Logger
}

// NewMemoryStore creates an in-memory session store. ttl of zero disables
// expiry.
func NewMemoryStore(ttl time.Duration, logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		entries: make(map[int64]memoryEntry),
		ttl:     ttl,
		logger:  logger.With("component", "memory_store"),
	}
}

// Put replaces the stored venue list for chatID.
func (s *MemoryStore) Put(_ context.Context, chatID int64, venues []foursquare.Venue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[chatID] = memoryEntry{venues: venues, updatedAt: time.Now()}
	return nil
}

// Get returns the venue list last put for chatID, or ErrNoSession.
func (s *MemoryStore) Get(_ context.Context, chatID int64) ([]foursquare.Venue, error) {
	s.mu.RLock()
	entry, ok := s.entries[chatID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNoSession
	}
	if s.expired(entry) {
		s.mu.Lock()
		delete(s.entries, chatID)
		s.mu.Unlock()
		return nil, ErrNoSession
	}
	return entry.venues, nil
}

// Sweep removes expired entries. It is a no-op without a TTL and is run by
// the maintenance scheduler.
func (s *MemoryStore) Sweep(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for chatID, entry := range s.entries {
		if s.expired(entry) {
			delete(s.entries, chatID)
			removed++
		}
	}
	if removed > 0 {
		s.logger.InfoContext(ctx, "Swept expired sessions", "removed", removed, "remaining", len(s.entries))
	}
	return nil
}

// Close releases the store. Nothing to do for the in-memory backend.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) expired(entry memoryEntry) bool {
	return s.ttl > 0 && time.Since(entry.updatedAt) > s.ttl
}
