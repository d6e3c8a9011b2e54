package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"

	"scrumpoker/internal/domain"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Room    RoomConfig
	Logging LoggingConfig
	Tracing TracingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Env  string `env:"ENV" envDefault:"development"` // "development" or "production"

	// AllowedOrigins limits browser origins for CORS and WebSocket upgrades; empty allows all
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

// RoomConfig holds room-related configuration
type RoomConfig struct {
	RoomCodeLength    int    `env:"ROOM_CODE_LENGTH" envDefault:"6"`
	DefaultSequence   string `env:"DEFAULT_CARD_SEQUENCE" envDefault:"tshirt"`
	MaxUsernameLength int    `env:"MAX_USERNAME_LENGTH" envDefault:"32"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// TracingConfig holds OpenTelemetry configuration. Tracing is off unless an
// endpoint is set.
type TracingConfig struct {
	Endpoint    string `env:"OTEL_ENDPOINT"`
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"true"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"scrumpoker"`
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that env parsing cannot
func (c *Config) Validate() error {
	if !domain.SequenceID(c.Room.DefaultSequence).IsValid() {
		return fmt.Errorf("DEFAULT_CARD_SEQUENCE: %w: %q", domain.ErrUnknownSequence, c.Room.DefaultSequence)
	}
	if c.Room.RoomCodeLength < 4 || c.Room.RoomCodeLength > domain.MaxRoomIDLength {
		return fmt.Errorf("ROOM_CODE_LENGTH must be between 4 and %d, got %d", domain.MaxRoomIDLength, c.Room.RoomCodeLength)
	}
	if c.Room.MaxUsernameLength <= 0 {
		return fmt.Errorf("MAX_USERNAME_LENGTH must be positive, got %d", c.Room.MaxUsernameLength)
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// OriginAllowed reports whether a browser origin may use the API
func (c *Config) OriginAllowed(origin string) bool {
	if len(c.Server.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range c.Server.AllowedOrigins {
		allowed = strings.TrimSpace(allowed)
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// GetAddr returns the server address in host:port format
func (c *Config) GetAddr() string {
	return c.Server.Host + ":" + c.Server.Port
}
