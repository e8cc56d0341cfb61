package config

import "os"

// ApplyEnvConfig applies configuration from environment variables
// (COUCHSYNC_*). It respects flags that have been explicitly set
// (changed map). Returns an error if any environment variable has an
// invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("data-dir", os.Getenv("COUCHSYNC_DATA_DIR"), &cfg.DataDir)
	s.setString("remote-url", os.Getenv("COUCHSYNC_REMOTE_URL"), &cfg.RemoteURL)
	s.setString("session-file", os.Getenv("COUCHSYNC_SESSION_FILE"), &cfg.SessionFile)
	s.setString("probe-url", os.Getenv("COUCHSYNC_PROBE_URL"), &cfg.ProbeURL)

	if err := s.setDuration("debounce", os.Getenv("COUCHSYNC_DEBOUNCE_INTERVAL"), &cfg.DebounceInterval); err != nil {
		return err
	}
	if err := s.setDuration("probe-interval", os.Getenv("COUCHSYNC_PROBE_INTERVAL"), &cfg.ProbeInterval); err != nil {
		return err
	}
	if err := s.setDuration("timeout", os.Getenv("COUCHSYNC_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}

	if err := s.setFloatFromString("rate-limit", os.Getenv("COUCHSYNC_RATE_LIMIT"), &cfg.RateLimit); err != nil {
		return err
	}

	s.setBoolFromString("realtime", os.Getenv("COUCHSYNC_REALTIME"), &cfg.Realtime)
	s.setBoolFromString("once", os.Getenv("COUCHSYNC_ONCE"), &cfg.Once)

	return nil
}
