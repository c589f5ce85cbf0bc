// Package config loads the padsync.json server configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/padsync/padsync/pkg/room"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "padsync.json"

	// DefaultAddr is the default listen address.
	DefaultAddr = ":8000"

	// DefaultBaseURL is the default frontend base URL used to build
	// session links.
	DefaultBaseURL = "http://localhost:5173"

	// DefaultWSBaseURL is the default WebSocket base URL.
	DefaultWSBaseURL = "ws://localhost:8000"
)

// Config is the complete padsync.json configuration.
type Config struct {
	// Addr is the listen address, e.g. ":8000".
	Addr string `json:"addr,omitempty"`

	// BaseURL is the frontend origin used when building session URLs.
	BaseURL string `json:"base_url,omitempty"`

	// WSBaseURL is the origin used when building websocket URLs.
	WSBaseURL string `json:"ws_base_url,omitempty"`

	// AllowedOrigins are the origins accepted on WebSocket upgrade.
	// Empty means same-origin only; "*" allows any origin.
	AllowedOrigins []string `json:"allowed_origins,omitempty"`

	// History bounds each room's replay buffer.
	History HistoryConfig `json:"history,omitempty"`

	// Timeouts bound per-connection reads and writes.
	Timeouts TimeoutConfig `json:"timeouts,omitempty"`

	// configPath stores the path the config was loaded from.
	configPath string
}

// HistoryConfig bounds the replay history of a room.
type HistoryConfig struct {
	// Cap is the length at which the buffer is truncated.
	Cap int `json:"cap,omitempty"`

	// Retain is how many of the newest entries survive truncation.
	Retain int `json:"retain,omitempty"`
}

// TimeoutConfig holds per-connection deadlines, in seconds.
type TimeoutConfig struct {
	// ReadSeconds bounds how long a connection may sit idle between
	// inbound frames.
	ReadSeconds int `json:"read_seconds,omitempty"`

	// WriteSeconds bounds one outbound send. A peer that cannot drain
	// within it is treated as disconnected.
	WriteSeconds int `json:"write_seconds,omitempty"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Addr:      DefaultAddr,
		BaseURL:   DefaultBaseURL,
		WSBaseURL: DefaultWSBaseURL,
		History: HistoryConfig{
			Cap:    room.DefaultHistoryCap,
			Retain: room.DefaultHistoryRetain,
		},
		Timeouts: TimeoutConfig{
			ReadSeconds:  300,
			WriteSeconds: 10,
		},
	}
}

// Load reads padsync.json from the directory. A missing file is not an
// error; the defaults stand in for it.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	cfg := New()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the file the config was loaded from, or empty when the
// defaults are in use.
func (c *Config) Path() string {
	return c.configPath
}

// Save writes the config back to the path it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return fmt.Errorf("config: no path to save to")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the config as indented JSON to the given path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// applyDefaults fills in zero-valued fields after parsing.
func (c *Config) applyDefaults() {
	d := New()
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.WSBaseURL == "" {
		c.WSBaseURL = d.WSBaseURL
	}
	if c.History.Cap == 0 {
		c.History.Cap = d.History.Cap
	}
	if c.History.Retain == 0 {
		c.History.Retain = d.History.Retain
	}
	if c.Timeouts.ReadSeconds == 0 {
		c.Timeouts.ReadSeconds = d.Timeouts.ReadSeconds
	}
	if c.Timeouts.WriteSeconds == 0 {
		c.Timeouts.WriteSeconds = d.Timeouts.WriteSeconds
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.History.Cap < 0 || c.History.Retain < 0 {
		return fmt.Errorf("config: history bounds must be non-negative")
	}
	if c.History.Retain > c.History.Cap {
		return fmt.Errorf("config: history retain (%d) exceeds cap (%d)",
			c.History.Retain, c.History.Cap)
	}
	if c.Timeouts.ReadSeconds < 0 || c.Timeouts.WriteSeconds < 0 {
		return fmt.Errorf("config: timeouts must be non-negative")
	}
	return nil
}
