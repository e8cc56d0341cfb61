// Package config holds CLI and library configuration for couchsync.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds configuration for the sync engine.
type Config struct {
	// DataDir holds queue.json and local.db.
	DataDir string

	// RemoteURL is the base URL of the remote sync store. Empty means
	// the remote is not configured; the engine runs local-only and
	// every flush is skipped.
	RemoteURL string

	// SessionFile is the JSON file written by the host application's
	// login flow. Defaults to DataDir/session.json.
	SessionFile string

	// ProbeURL is the endpoint the connectivity monitor HEADs.
	// Defaults to RemoteURL.
	ProbeURL string

	DebounceInterval time.Duration
	ProbeInterval    time.Duration
	HTTPTimeout      time.Duration

	// RateLimit caps outgoing sync requests per second.
	RateLimit float64

	Realtime bool
	Once     bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		DebounceInterval: 1500 * time.Millisecond,
		ProbeInterval:    15 * time.Second,
		HTTPTimeout:      15 * time.Second,
		RateLimit:        5,
		Realtime:         true,
	}
}

// DefaultDataDir returns ~/.couchsync if the home directory is
// accessible.
func DefaultDataDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".couchsync")
	}
	return ""
}

// Validate checks the configuration for errors and sets derived
// defaults. An empty RemoteURL is valid: it means run unconfigured.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	if c.DataDir == "" {
		return fmt.Errorf("data-dir is required")
	}

	if c.SessionFile == "" {
		c.SessionFile = filepath.Join(c.DataDir, "session.json")
	}

	// Ensure no trailing slash
	for len(c.RemoteURL) > 0 && c.RemoteURL[len(c.RemoteURL)-1] == '/' {
		c.RemoteURL = c.RemoteURL[:len(c.RemoteURL)-1]
	}
	if c.ProbeURL == "" {
		c.ProbeURL = c.RemoteURL
	}

	if c.DebounceInterval <= 0 {
		return fmt.Errorf("debounce interval must be positive")
	}
	if c.ProbeInterval <= 0 {
		return fmt.Errorf("probe interval must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive")
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}

	return nil
}

// RemoteConfigured reports whether a remote store has been set up.
func (c *Config) RemoteConfigured() bool {
	return c.RemoteURL != ""
}

// configSetter helps apply configuration values while respecting flag
// precedence. It only applies values if the corresponding flag hasn't
// been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag
// not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not
// changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloatFromString parses a string to float64 and sets the
// destination if valid. Used for environment variables.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false. Used for
// environment variables.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
