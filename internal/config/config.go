// Package config reads process settings from the environment, after loading
// an optional .env file from the working directory.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds the settings shared by the server and the CLI.
type Config struct {
	Addr            string
	LogLevel        zerolog.Level
	LogFormat       string
	MaxSessions     int
	ShutdownTimeout time.Duration
}

// Defaults used when a variable is unset or empty.
const (
	DefaultAddr            = ":8080"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"
	DefaultMaxSessions     = 1000
	DefaultShutdownTimeout = 10 * time.Second
)

// Load reads .env (if present) and then the TTT_* variables.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary lookup function.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(k, def string) string {
		if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := Config{
		Addr:      get("TTT_ADDR", DefaultAddr),
		LogFormat: strings.ToLower(get("TTT_LOG_FORMAT", DefaultLogFormat)),
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(get("TTT_LOG_LEVEL", DefaultLogLevel)))
	if err != nil {
		return Config{}, fmt.Errorf("TTT_LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = lvl

	if cfg.LogFormat != "console" && cfg.LogFormat != "json" {
		return Config{}, fmt.Errorf("TTT_LOG_FORMAT: unknown format %q", cfg.LogFormat)
	}

	n, err := strconv.Atoi(get("TTT_MAX_SESSIONS", strconv.Itoa(DefaultMaxSessions)))
	if err != nil || n <= 0 {
		return Config{}, fmt.Errorf("TTT_MAX_SESSIONS: must be a positive integer")
	}
	cfg.MaxSessions = n

	d, err := time.ParseDuration(get("TTT_SHUTDOWN_TIMEOUT", DefaultShutdownTimeout.String()))
	if err != nil || d <= 0 {
		return Config{}, fmt.Errorf("TTT_SHUTDOWN_TIMEOUT: must be a positive duration")
	}
	cfg.ShutdownTimeout = d

	return cfg, nil
}

// Logger returns a logger writing to w in the configured format and level.
func (c Config) Logger(w io.Writer) zerolog.Logger {
	if c.LogFormat == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(c.LogLevel).With().Timestamp().Logger()
}
