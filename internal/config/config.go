// Package config provides configuration loading, defaulting, and
// validation for the venuebot application. Values come from defaults,
// then config.yaml, then VENUEBOT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config defines the application configuration for all components:
// logging, the Telegram transport, the Foursquare client, the session
// store, the queue, and the web interface.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Foursquare FoursquareConfig `mapstructure:"foursquare"`
	Session    SessionConfig    `mapstructure:"session"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Web        WebConfig        `mapstructure:"web"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Messages   MessagesConfig   `mapstructure:"messages"`
}

// SchedulerConfig maps task names to their schedule. Task names must match
// the registered task identifiers.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"` // cron expression, with seconds field
}

type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token" validate:"required"`
}

type FoursquareConfig struct {
	ClientID     string        `mapstructure:"client_id"     validate:"required"`
	ClientSecret string        `mapstructure:"client_secret" validate:"required"`
	APIVersion   string        `mapstructure:"api_version"   validate:"required"`
	Limit        int           `mapstructure:"limit"         validate:"min=1,max=50"`
	Section      string        `mapstructure:"section"       validate:"required"`
	Timeout      time.Duration `mapstructure:"timeout"       validate:"min=1s,max=1m"`
}

type SessionConfig struct {
	// Backend selects the session store implementation.
	Backend string `mapstructure:"backend" validate:"oneof=memory redis sqlite"`
	// TTL of zero disables session expiry.
	TTL time.Duration `mapstructure:"ttl" validate:"min=0"`
}

type RedisConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
	DB   int    `mapstructure:"db"   validate:"min=0"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type QueueConfig struct {
	Key          string        `mapstructure:"key"           validate:"required"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"min=10ms,max=1m"`
}

type WebConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

// MessagesConfig holds every user-visible bot text.
type MessagesConfig struct {
	Welcome    string `mapstructure:"welcome"      validate:"required"`
	Help       string `mapstructure:"help"         validate:"required"`
	NoSession  string `mapstructure:"no_session"   validate:"required"`
	OutOfRange string `mapstructure:"out_of_range" validate:"required"`
}

// Load reads configuration from the given YAML file (optional), applies
// defaults, overlays VENUEBOT_* environment variables, and validates the
// result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("VENUEBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env cover it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("foursquare.api_version", "20160820")
	v.SetDefault("foursquare.limit", 3)
	v.SetDefault("foursquare.section", "food")
	v.SetDefault("foursquare.timeout", 10*time.Second)

	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.ttl", time.Duration(0))

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("database.path", "venuebot.db")

	v.SetDefault("queue.key", "messages")
	v.SetDefault("queue.poll_interval", 200*time.Millisecond)

	v.SetDefault("web.addr", ":8000")

	v.SetDefault("scheduler.tasks.session_maintenance.enabled", true)
	v.SetDefault("scheduler.tasks.session_maintenance.schedule", "0 0 3 * * *")

	v.SetDefault("messages.welcome", "Share your location and I'll find food venues nearby. Pick one with /venue1, /venue2, ...")
	v.SetDefault("messages.help", "Send me a location (attachment button > Location) to get the top venues around you. Then use /venueN for details and /tipsN for tips about venue N.")
	v.SetDefault("messages.no_session", "I don't have a venue list for you yet. Share your location first.")
	v.SetDefault("messages.out_of_range", "That venue number isn't in your last search. Pick between 1 and %d.")
}
