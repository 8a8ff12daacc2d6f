package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"venuebot/internal/foursquare"
	"venuebot/migrations"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists sessions in a local SQLite file, one row per chat.
// It survives process restarts, unlike the memory backend.
type SQLiteStore struct {
	db     *sqlx.DB
	ttl    time.Duration
	logger *slog.Logger
}

type sessionRow struct {
	ChatID    int64     `db:"chat_id"`
	Venues    []byte    `db:"venues"`
	UpdatedAt time.Time `db:"updated_at"`
}

// NewSQLiteStore opens (or creates) the database at dbPath and applies the
// embedded migrations. ttl of zero disables expiry.
func NewSQLiteStore(dbPath string, ttl time.Duration, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sqlx.Connect("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite doesn't support concurrent writes, so max open conns = 1.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := applyMigrations(db.DB); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("Error closing database after migration failure", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	logger.Info("SQLite session store ready", "path", dbPath)
	return &SQLiteStore{
		db:     db,
		ttl:    ttl,
		logger: logger.With("component", "sqlite_store"),
	}, nil
}

func applyMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create embed source driver: %w", err)
	}

	dbDriver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite3 database driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Put replaces the stored venue list for chatID.
func (s *SQLiteStore) Put(ctx context.Context, chatID int64, venues []foursquare.Venue) error {
	data, err := json.Marshal(venues)
	if err != nil {
		return fmt.Errorf("failed to encode session for chat %d: %w", chatID, err)
	}

	row := sessionRow{ChatID: chatID, Venues: data, UpdatedAt: time.Now().UTC()}
	query := `
        INSERT INTO sessions (chat_id, venues, updated_at)
        VALUES (:chat_id, :venues, :updated_at)
        ON CONFLICT (chat_id) DO UPDATE SET
            venues = excluded.venues,
            updated_at = excluded.updated_at;
    `

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		s.logger.ErrorContext(ctx, "Error saving session", "chat_id", chatID, "error", err)
		return fmt.Errorf("failed to save session for chat %d: %w", chatID, err)
	}

	s.logger.DebugContext(ctx, "Session saved", "chat_id", chatID, "venues", len(venues))
	return nil
}

// Get returns the venue list last put for chatID, or ErrNoSession.
func (s *SQLiteStore) Get(ctx context.Context, chatID int64) ([]foursquare.Venue, error) {
	var row sessionRow
	query := `SELECT chat_id, venues, updated_at FROM sessions WHERE chat_id = ?`

	err := s.db.GetContext(ctx, &row, query, chatID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNoSession
	case err != nil:
		s.logger.ErrorContext(ctx, "Error reading session", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to read session for chat %d: %w", chatID, err)
	}

	if s.ttl > 0 && time.Since(row.UpdatedAt) > s.ttl {
		return nil, ErrNoSession
	}

	var venues []foursquare.Venue
	if err := json.Unmarshal(row.Venues, &venues); err != nil {
		return nil, fmt.Errorf("failed to decode session for chat %d: %w", chatID, err)
	}
	return venues, nil
}

// Maintain deletes expired rows and compacts the database file. It is run
// by the maintenance scheduler.
func (s *SQLiteStore) Maintain(ctx context.Context) error {
	if s.ttl > 0 {
		cutoff := time.Now().UTC().Add(-s.ttl)
		result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff)
		if err != nil {
			s.logger.ErrorContext(ctx, "Error deleting expired sessions", "error", err)
			return fmt.Errorf("failed to delete expired sessions: %w", err)
		}
		if removed, err := result.RowsAffected(); err == nil && removed > 0 {
			s.logger.InfoContext(ctx, "Deleted expired sessions", "removed", removed)
		}
	}

	// VACUUM must run outside a transaction in SQLite.
	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance completed")
	return nil
}

// Close closes the database connection pool.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
