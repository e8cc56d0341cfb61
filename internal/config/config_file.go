package config

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML
// friendly.
type FileConfig struct {
	DataDir          string  `toml:"data_dir"`
	RemoteURL        string  `toml:"remote_url"`
	SessionFile      string  `toml:"session_file"`
	ProbeURL         string  `toml:"probe_url"`
	DebounceInterval string  `toml:"debounce_interval"`
	ProbeInterval    string  `toml:"probe_interval"`
	HTTPTimeout      string  `toml:"http_timeout"`
	RateLimit        float64 `toml:"rate_limit"`
	Realtime         *bool   `toml:"realtime"`
	Once             *bool   `toml:"once"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.couchsync/config.toml if the user home
// directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".couchsync", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config
// struct. It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("data-dir", fc.DataDir, &cfg.DataDir)
	s.setString("remote-url", fc.RemoteURL, &cfg.RemoteURL)
	s.setString("session-file", fc.SessionFile, &cfg.SessionFile)
	s.setString("probe-url", fc.ProbeURL, &cfg.ProbeURL)

	if err := s.setDuration("debounce", fc.DebounceInterval, &cfg.DebounceInterval); err != nil {
		return err
	}
	if err := s.setDuration("probe-interval", fc.ProbeInterval, &cfg.ProbeInterval); err != nil {
		return err
	}
	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}

	s.setFloat("rate-limit", fc.RateLimit, &cfg.RateLimit)

	s.setBool("realtime", fc.Realtime, &cfg.Realtime)
	s.setBool("once", fc.Once, &cfg.Once)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
