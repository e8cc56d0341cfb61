package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/sofa-labs/couchsync"
	logAdapter "github.com/sofa-labs/couchsync/internal/adapters/log"
	"github.com/sofa-labs/couchsync/internal/config"
	"github.com/sofa-labs/couchsync/internal/engine"
	"github.com/sofa-labs/couchsync/internal/ports"
)

const helpDescription = `
Keep watchlists, watch progress, and preferences in sync across devices.

Highlights:
  - Local-first: mutations land in a durable queue and never block on the network.
  - Flushes are debounced, skipped cleanly while offline, and retried on reconnect.
  - Realtime change feed re-pulls a domain the moment another device writes it.
  - Configure via file ($HOME/.couchsync/config.toml), COUCHSYNC_* env, or flags.
`

var exampleUsage = strings.TrimSpace(`
  couchsync --remote-url https://sync.example.com
  couchsync --config $HOME/.couchsync/config.toml --once
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := couchsync.DefaultConfig()
	var cfgPath string

	logger := logAdapter.NewZerologAdapter()

	root := &cobra.Command{
		Use:     "couchsync",
		Short:   "Sync watch data between a local store and a remote service",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = config.DefaultConfigPath()
			}

			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && config.FileExists(cfgFile) {
				fc, err := config.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := config.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// Environment overrides file config but loses to flags.
			if err := config.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			eng, err := couchsync.New(cfg,
				couchsync.WithLogger(logger),
				couchsync.WithEventHandler(stateLogger{logger}),
			)
			if err != nil {
				return fmt.Errorf("create engine: %w", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			if err := eng.Start(ctx); err != nil {
				return fmt.Errorf("start engine: %w", err)
			}

			if cfg.Once {
				res := eng.Flush(ctx)
				logger.Info("flush finished",
					ports.Bool("success", res.Success),
					ports.String("skipped", string(res.Skipped)),
					ports.Int("queue_size", res.QueueSize),
				)
				return eng.Stop()
			}

			// Watch for crash alongside signals.
			doneCh := make(chan struct{})
			go func() {
				ticker := time.NewTicker(100 * time.Millisecond)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if eng.State() == couchsync.StateCrashed {
							close(doneCh)
							return
						}
					}
				}
			}()

			select {
			case <-sigCh:
				logger.Info("received signal, stopping...")
			case <-doneCh:
				logger.Error("engine crashed")
			}

			if err := eng.Stop(); err != nil {
				return fmt.Errorf("stop engine: %w", err)
			}
			return nil
		},
	}

	// Flags
	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.couchsync/config.toml)")
	root.Flags().StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for local database and queue (default: $HOME/.couchsync)")
	root.Flags().StringVar(&cfg.RemoteURL, "remote-url", cfg.RemoteURL, "base URL of the remote sync store")
	root.Flags().StringVar(&cfg.SessionFile, "session-file", cfg.SessionFile, "session file written by the login flow (defaults to data-dir/session.json)")
	root.Flags().StringVar(&cfg.ProbeURL, "probe-url", cfg.ProbeURL, "endpoint for connectivity probes (defaults to remote-url)")
	if err := root.Flags().MarkHidden("probe-url"); err != nil {
		logger.Info("failed to hide probe-url flag")
	}

	root.Flags().DurationVar(&cfg.DebounceInterval, "debounce", cfg.DebounceInterval, "quiet window before flushing queued mutations")
	root.Flags().DurationVar(&cfg.ProbeInterval, "probe-interval", cfg.ProbeInterval, "connectivity probe interval")
	root.Flags().DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout")
	root.Flags().Float64Var(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "maximum sync requests per second")

	root.Flags().BoolVar(&cfg.Realtime, "realtime", cfg.Realtime, "subscribe to the remote change feed")
	root.Flags().BoolVar(&cfg.Once, "once", cfg.Once, "flush the queue once and exit")

	if err := root.Execute(); err != nil {
		logger.Error("couchsync", ports.Err(err))
		os.Exit(1)
	}
}

// stateLogger logs lifecycle transitions at the CLI level.
type stateLogger struct {
	logger *logAdapter.ZerologAdapter
}

func (s stateLogger) OnStateChange(previous, current engine.State, reason string) {
	s.logger.Debug("engine state",
		ports.String("from", previous.String()),
		ports.String("to", current.String()),
		ports.String("reason", reason),
	)
}
