// Package engine assembles the sync components and manages their
// lifecycle.
package engine

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/time/rate"

	logAdapter "github.com/sofa-labs/couchsync/internal/adapters/log"
	"github.com/sofa-labs/couchsync/internal/config"
	"github.com/sofa-labs/couchsync/internal/domain"
	"github.com/sofa-labs/couchsync/internal/domains/prefs"
	"github.com/sofa-labs/couchsync/internal/domains/progress"
	"github.com/sofa-labs/couchsync/internal/domains/watchlist"
	"github.com/sofa-labs/couchsync/internal/localstore"
	"github.com/sofa-labs/couchsync/internal/netmon"
	"github.com/sofa-labs/couchsync/internal/ports"
	"github.com/sofa-labs/couchsync/internal/queue"
	"github.com/sofa-labs/couchsync/internal/realtime"
	"github.com/sofa-labs/couchsync/internal/remote"
	"github.com/sofa-labs/couchsync/internal/scheduler"
	"github.com/sofa-labs/couchsync/internal/session"
	"github.com/sofa-labs/couchsync/internal/status"
	"github.com/sofa-labs/couchsync/internal/syncer"
)

// Engine is the local-first sync core. Use New() to create an instance,
// then Start() to begin syncing in the background.
type Engine struct {
	config    config.Config
	opts      options
	lifecycle *Lifecycle
	logger    ports.Logger

	store     *localstore.Store
	queue     *queue.Store
	status    *status.Broadcaster
	session   *session.FileSource
	monitor   *netmon.Monitor
	scheduler *scheduler.Scheduler
	listener  *realtime.Listener

	mu     sync.RWMutex
	cancel context.CancelFunc
}

// New creates an Engine from the given configuration. The instance is
// created in StateStopped; call Start() to begin syncing. Returns an
// error if the configuration is invalid or local storage cannot be
// opened.
func New(cfg config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions(&http.Client{Timeout: cfg.HTTPTimeout})
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = logAdapter.NewNoopLogger()
	}

	var emitter EventEmitter
	if o.eventHandler != nil {
		emitter = &eventEmitterWrapper{handler: o.eventHandler}
	}
	lc := NewLifecycle(logger, emitter)

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	store, err := localstore.Open(filepath.Join(cfg.DataDir, "local.db"))
	if err != nil {
		return nil, err
	}

	st := status.NewBroadcaster()
	st.SetRemoteConfigured(cfg.RemoteConfigured())

	q := queue.NewStore(queue.NewFileRepository(cfg.DataDir), logger,
		queue.WithSizeListener(st.SetQueueSize))

	sess := session.NewFileSource(cfg.SessionFile, logger)

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	client := remote.NewClient(cfg.RemoteURL, o.httpClient, sess, limiter, logger)

	adapters := []ports.DomainAdapter{
		watchlist.New(store, client, sess),
		progress.New(store, client, sess),
		prefs.New(store, client, sess),
	}

	// The monitor's change callback needs the scheduler, which needs
	// the orchestrator, which needs the monitor. The callback only
	// fires once Run() is going, well after sched is assigned.
	var sched *scheduler.Scheduler
	monitor := netmon.New(cfg.ProbeURL, cfg.ProbeInterval, o.httpClient, logger,
		func(online bool) {
			st.SetOnline(online)
			if online && sched != nil {
				sched.NotifyReconnect()
			}
		})

	orch := syncer.NewOrchestrator(q, st, monitor, sess, cfg.RemoteConfigured(), logger, adapters...)
	sched = scheduler.New(orch, logger, scheduler.WithDebounce(cfg.DebounceInterval))

	var listener *realtime.Listener
	if cfg.Realtime && cfg.RemoteConfigured() {
		listener = realtime.New(cfg.RemoteURL, orch.Domains(), sess, st, logger, sched.Invalidate)
	}

	return &Engine{
		config:    cfg,
		opts:      o,
		lifecycle: lc,
		logger:    logger,
		store:     store,
		queue:     q,
		status:    st,
		session:   sess,
		monitor:   monitor,
		scheduler: sched,
		listener:  listener,
	}, nil
}

// Start begins syncing in the background. Returns immediately after the
// workers are launched. Calling Start on a running engine is a no-op.
// The provided context bounds the lifetime of the sync workers.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lifecycle.State() == StateRunning {
		return nil
	}
	if !e.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := e.lifecycle.TransitionTo(StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.lifecycle.SetCancel(cancel)

	e.session.Load()
	_ = e.queue.Restore(runCtx)

	e.runWorker(runCtx, e.scheduler.Run)
	e.runWorker(runCtx, e.session.Watch)
	e.runWorker(runCtx, e.monitor.Run)
	if e.listener != nil {
		e.runWorker(runCtx, e.listener.Run)
	}

	if err := e.lifecycle.TransitionTo(StateRunning, "workers started"); err != nil {
		cancel()
		return err
	}
	return nil
}

func (e *Engine) runWorker(ctx context.Context, run func(context.Context)) {
	e.lifecycle.AddWorker()
	go func() {
		defer e.lifecycle.WorkerDone()
		run(ctx)
	}()
}

// Stop gracefully shuts down the engine. In-flight flushes get to
// finish; waits up to ShutdownTimeout before forcing exit. Returns nil
// on graceful shutdown, ErrShutdownTimeout if forced.
func (e *Engine) Stop() error {
	e.mu.Lock()

	if !e.lifecycle.CanStop() {
		e.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := e.lifecycle.TransitionTo(StateStopping, "Stop() called"); err != nil {
		e.mu.Unlock()
		return err
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.mu.Unlock()

	err := e.lifecycle.WaitWithTimeout(ShutdownTimeout)

	if closeErr := e.store.Close(); closeErr != nil {
		e.logger.Warn("close local store", ports.Err(closeErr))
	}

	if err != nil {
		_ = e.lifecycle.TransitionTo(StateCrashed, "shutdown timeout")
	} else {
		_ = e.lifecycle.TransitionTo(StateStopped, "graceful shutdown")
	}
	return err
}

// State returns the current lifecycle state. Safe to call concurrently.
func (e *Engine) State() State {
	return e.lifecycle.State()
}

// Enqueue records a local mutation and schedules a debounced flush. It
// never blocks on network activity and never fails: if the queue cannot
// be persisted the entry is still held in memory. Returns the entry ID.
func (e *Engine) Enqueue(domainName string, metadata map[string]string) string {
	id := e.queue.Enqueue(domainName, metadata)
	e.scheduler.NotifyEnqueue()
	return id
}

// Flush forces an immediate flush, bypassing the debounce window.
// Blocks until the flush completes or ctx is done.
func (e *Engine) Flush(ctx context.Context) domain.FlushResult {
	return e.scheduler.Flush(ctx, "manual")
}

// Status returns a snapshot of the current sync status.
func (e *Engine) Status() domain.SyncStatus {
	return e.status.Snapshot()
}

// SubscribeStatus registers fn to be called on every status change.
// Returns an unsubscribe function.
func (e *Engine) SubscribeStatus(fn func(domain.SyncStatus)) func() {
	return e.status.Subscribe(fn)
}

// Local exposes the local store for host applications that render watch
// data directly from it.
func (e *Engine) Local() *localstore.Store {
	return e.store
}
