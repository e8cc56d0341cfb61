// Package netmon tracks raw network reachability of the remote store.
//
// Reachability is probed with a cheap HEAD request on an interval. The
// monitor owns the online flag; an offline-to-online transition fires
// the reconnect callback exactly once, which is what schedules the
// automatic post-reconnect flush.
package netmon

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sofa-labs/couchsync/internal/ports"
)

// DefaultProbeInterval is how often reachability is re-checked.
const DefaultProbeInterval = 15 * time.Second

// Monitor implements ports.ConnectivitySource.
type Monitor struct {
	probeURL string
	interval time.Duration
	client   ports.HTTPClient
	logger   ports.Logger

	online   atomic.Bool
	onChange func(online bool)
}

// New creates a monitor probing probeURL every interval. onChange is
// invoked from the monitor goroutine on every transition, with the new
// state; it must not block.
func New(probeURL string, interval time.Duration, client ports.HTTPClient, logger ports.Logger, onChange func(bool)) *Monitor {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &Monitor{
		probeURL: probeURL,
		interval: interval,
		client:   client,
		logger:   logger,
		onChange: onChange,
	}
}

// Online reports current reachability. Starts false until the first
// successful probe.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// Run probes until ctx is cancelled. The first probe happens
// immediately so startup does not wait a full interval to go online.
func (m *Monitor) Run(ctx context.Context) {
	m.probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	reachable := m.check(ctx)
	was := m.online.Swap(reachable)
	if was == reachable {
		return
	}

	m.logger.Info("connectivity changed", ports.Bool("online", reachable))
	if m.onChange != nil {
		m.onChange(reachable)
	}
}

func (m *Monitor) check(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, m.probeURL, nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	// Any response at all proves reachability; auth failures still mean
	// the network path is up.
	return true
}
