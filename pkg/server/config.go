package server

import (
	"time"

	"github.com/padsync/padsync/pkg/room"
)

// Version reported by the health endpoint. Overridable at build time.
var Version = "1.0.0"

// Config holds the runtime configuration for the relay server.
type Config struct {
	// Addr is the listen address.
	Addr string

	// BaseURL is the frontend origin used to build session URLs.
	BaseURL string

	// WSBaseURL is the origin used to build websocket URLs.
	WSBaseURL string

	// AllowedOrigins are accepted on WebSocket upgrade. Empty means
	// same-origin only; a single "*" allows any origin.
	AllowedOrigins []string

	// ReadTimeout bounds how long a connection may sit idle between
	// inbound frames.
	ReadTimeout time.Duration

	// WriteTimeout bounds one outbound send. This is the backpressure
	// policy: a peer that cannot drain a frame within it fails the send
	// and is evicted from its room.
	WriteTimeout time.Duration

	// MaxMessageSize caps one inbound frame, in bytes.
	MaxMessageSize int64

	// HistoryCap and HistoryRetain bound each room's replay buffer.
	HistoryCap    int
	HistoryRetain int
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:           ":8000",
		BaseURL:        "http://localhost:5173",
		WSBaseURL:      "ws://localhost:8000",
		ReadTimeout:    5 * time.Minute,
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 1 << 20,
		HistoryCap:     room.DefaultHistoryCap,
		HistoryRetain:  room.DefaultHistoryRetain,
	}
}

// withDefaults fills zero fields in from the defaults.
func (c *Config) withDefaults() *Config {
	if c == nil {
		return DefaultConfig()
	}
	d := DefaultConfig()
	out := *c
	if out.Addr == "" {
		out.Addr = d.Addr
	}
	if out.BaseURL == "" {
		out.BaseURL = d.BaseURL
	}
	if out.WSBaseURL == "" {
		out.WSBaseURL = d.WSBaseURL
	}
	if out.ReadTimeout == 0 {
		out.ReadTimeout = d.ReadTimeout
	}
	if out.WriteTimeout == 0 {
		out.WriteTimeout = d.WriteTimeout
	}
	if out.MaxMessageSize == 0 {
		out.MaxMessageSize = d.MaxMessageSize
	}
	if out.HistoryCap == 0 {
		out.HistoryCap = d.HistoryCap
	}
	if out.HistoryRetain == 0 {
		out.HistoryRetain = d.HistoryRetain
	}
	return &out
}
