// Package config manages geoedit configuration. It handles finding, loading,
// saving, and initializing the .geoedit.toml file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const ConfigFile = ".geoedit.toml"

// ErrNotFound is returned when no config file exists in the directory or any
// of its parents
var ErrNotFound = errors.New("no " + ConfigFile + " found (or any parent up to root)")

// Config represents the geoedit configuration
type Config struct {
	LogLevel  string `toml:"log_level"`  // debug, info, warn, error
	LogFormat string `toml:"log_format"` // text or json
	Color     bool   `toml:"color"`
	Segments  bool   `toml:"segments"` // include way segments in query output
	Server    Server `toml:"server"`
	path      string // path to the config file
}

// Server is the [server] table read by geoedit-server. The admin token is
// never read from the file.
type Server struct {
	Listen            string   `toml:"listen"`
	RequestsPerMinute int      `toml:"requests_per_minute"`
	MaxRequestBody    int64    `toml:"max_request_body"` // bytes
	WebhookURLs       []string `toml:"webhook_urls"`
}

// Default returns the configuration used when no file is found
func Default() *Config {
	return &Config{
		LogLevel:  "warn",
		LogFormat: "text",
		Color:     true,
		Server: Server{
			Listen:            "127.0.0.1:8730",
			RequestsPerMinute: 300,
			MaxRequestBody:    64 * 1024 * 1024,
		},
	}
}

// FindConfigFile finds the config file by walking up from dir
func FindConfigFile(dir string) (string, error) {
	for {
		path := filepath.Join(dir, ConfigFile)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotFound
		}
		dir = parent
	}
}

// Load loads the configuration nearest to the current directory. Without a
// config file it returns the defaults, which Save writes to the current
// directory.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	path, err := FindConfigFile(cwd)
	if errors.Is(err, ErrNotFound) {
		cfg := Default()
		cfg.path = filepath.Join(cwd, ConfigFile)
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile loads the configuration from path. Keys missing from the file keep
// their default value.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.path = path
	return cfg, nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(c.path, data, 0644)
}

// Path returns the path of the config file
func (c *Config) Path() string {
	return c.path
}

// Initialize writes a default config file into dir
func Initialize(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFile)

	// Check if already initialized
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%s already exists", path)
	}

	cfg := Default()
	cfg.path = path
	if err := cfg.Save(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Level returns the slog level named by LogLevel, info if unknown
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a logger writing to w in the configured format and level
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level()}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
