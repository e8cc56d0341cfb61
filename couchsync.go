// Package couchsync provides a local-first sync core for media watch
// data. Local mutations are queued durably and flushed to a remote
// store in the background; the host application reads and writes local
// state and never blocks on the network.
//
// Example usage:
//
//	cfg := couchsync.DefaultConfig()
//	cfg.DataDir = "/path/to/data"
//	cfg.RemoteURL = "https://sync.example.com"
//	eng, err := couchsync.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := eng.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
//	eng.Enqueue("watchlist", map[string]string{"externalId": "tt0111161"})
package couchsync

import (
	"context"

	"github.com/sofa-labs/couchsync/internal/config"
	"github.com/sofa-labs/couchsync/internal/domain"
	"github.com/sofa-labs/couchsync/internal/engine"
	"github.com/sofa-labs/couchsync/internal/ports"
)

// Config holds the configuration for the sync engine.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = config.Config

// Engine is the sync core. Use New() to create one.
type Engine = engine.Engine

// State is the engine lifecycle state.
type State = engine.State

// Lifecycle states.
const (
	StateStopped  = engine.StateStopped
	StateStarting = engine.StateStarting
	StateRunning  = engine.StateRunning
	StateStopping = engine.StateStopping
	StateCrashed  = engine.StateCrashed
)

// SyncStatus is a snapshot of the engine's sync health.
type SyncStatus = domain.SyncStatus

// FlushResult is the outcome of one queue-drain attempt.
type FlushResult = domain.FlushResult

// Option configures optional behavior of the engine.
type Option = engine.Option

// Logger is the structured logging interface the engine writes to.
// Implement it to route engine logs into the host application's logger.
type Logger = ports.Logger

// LogField is one structured log field.
type LogField = ports.Field

// EventHandler receives lifecycle state change events.
type EventHandler = engine.EventHandler

// Re-exported options.
var (
	WithLogger       = engine.WithLogger
	WithHTTPClient   = engine.WithHTTPClient
	WithEventHandler = engine.WithEventHandler
)

// DefaultConfig returns a Config with sensible default values.
// Set DataDir and RemoteURL before calling New; an empty RemoteURL runs
// the engine local-only.
func DefaultConfig() Config {
	return config.DefaultConfig()
}

// New creates a sync engine with the given configuration.
func New(cfg Config, opts ...Option) (*Engine, error) {
	return engine.New(cfg, opts...)
}

// Run starts the engine and blocks until the context is cancelled, then
// shuts down gracefully. Use cfg.Once = true to flush the queue once
// and return immediately.
func Run(ctx context.Context, cfg Config, opts ...Option) error {
	eng, err := engine.New(cfg, opts...)
	if err != nil {
		return err
	}
	if err := eng.Start(ctx); err != nil {
		return err
	}

	if cfg.Once {
		eng.Flush(ctx)
		return eng.Stop()
	}

	<-ctx.Done()
	return eng.Stop()
}
