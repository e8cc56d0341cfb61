// Package syncer orchestrates per-domain sync rounds and queue draining.
//
// A round for one domain is pull then push, strictly in that order: a
// stale local write must never overwrite a newer remote value that
// arrived during the same round. Rounds for different domains are
// independent; one domain's failure never blocks another's.
//
// Adapter errors stop at this boundary. They become DomainSyncResult
// values and a LastError status update; nothing ever propagates back to
// the caller that enqueued the original mutation.
package syncer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sofa-labs/couchsync/internal/domain"
	"github.com/sofa-labs/couchsync/internal/ports"
	"github.com/sofa-labs/couchsync/internal/queue"
	"github.com/sofa-labs/couchsync/internal/status"
)

// Orchestrator runs sync rounds against the registered domain adapters.
type Orchestrator struct {
	adapters map[string]ports.DomainAdapter
	order    []string

	queue   *queue.Store
	status  *status.Broadcaster
	conn    ports.ConnectivitySource
	session ports.SessionSource

	remoteConfigured bool
	logger           ports.Logger

	// now is injectable for deterministic LastSyncedAt assertions.
	now func() time.Time
}

// NewOrchestrator creates an orchestrator over a static adapter
// registry. Registration order is preserved for SyncAll; adapters are
// not hot-swappable after construction.
func NewOrchestrator(
	q *queue.Store,
	st *status.Broadcaster,
	conn ports.ConnectivitySource,
	session ports.SessionSource,
	remoteConfigured bool,
	logger ports.Logger,
	adapters ...ports.DomainAdapter,
) *Orchestrator {
	o := &Orchestrator{
		adapters:         make(map[string]ports.DomainAdapter, len(adapters)),
		queue:            q,
		status:           st,
		conn:             conn,
		session:          session,
		remoteConfigured: remoteConfigured,
		logger:           logger,
		now:              time.Now,
	}
	for _, a := range adapters {
		if _, dup := o.adapters[a.Name()]; dup {
			continue
		}
		o.adapters[a.Name()] = a
		o.order = append(o.order, a.Name())
	}
	return o
}

// Domains returns the registered domain names in registration order.
func (o *Orchestrator) Domains() []string {
	return append([]string(nil), o.order...)
}

// SyncDomain runs pull then push for one domain and merges the outcome.
func (o *Orchestrator) SyncDomain(ctx context.Context, name string) domain.DomainSyncResult {
	adapter, ok := o.adapters[name]
	if !ok {
		return domain.DomainSyncResult{
			Domain: name,
			Error:  fmt.Sprintf("%s: %s", domain.ErrUnknownDomain, name),
		}
	}

	result := domain.DomainSyncResult{Domain: name}

	pull, err := adapter.Pull(ctx)
	if err != nil {
		result.Error = fmt.Sprintf("%s pull: %s", name, err)
		o.logger.Warn("pull failed", ports.String("domain", name), ports.Err(err))
		return result
	}
	result.Pulled = pull.Pulled

	push, err := adapter.Push(ctx)
	if err != nil {
		result.Error = fmt.Sprintf("%s push: %s", name, err)
		o.logger.Warn("push failed", ports.String("domain", name), ports.Err(err))
		return result
	}
	result.Pushed = push.Pushed
	result.Success = true

	o.logger.Debug("domain synced",
		ports.String("domain", name),
		ports.Int("pulled", result.Pulled),
		ports.Int("pushed", result.Pushed),
	)
	return result
}

// SyncAll runs SyncDomain for every registered domain. Rounds are
// issued concurrently: one domain's slow pull never delays another's.
func (o *Orchestrator) SyncAll(ctx context.Context) domain.SyncAllResult {
	if reason, skip := o.skipReason(); skip {
		return domain.SyncAllResult{Skipped: reason, Results: map[string]domain.DomainSyncResult{}}
	}

	results := o.syncConcurrently(ctx, o.order)

	all := domain.SyncAllResult{
		Success: true,
		Results: make(map[string]domain.DomainSyncResult, len(o.order)),
	}
	for _, res := range results {
		all.Results[res.Domain] = res
		if !res.Success {
			all.Success = false
		}
	}
	o.recordOutcome(results)
	return all
}

// syncConcurrently runs one round per domain on its own goroutine and
// returns the results in the given order. Each goroutine writes only
// its own slot; the scheduler's single-flight guard already serializes
// whole flushes, so two rounds for the same domain never overlap.
func (o *Orchestrator) syncConcurrently(ctx context.Context, names []string) []domain.DomainSyncResult {
	results := make([]domain.DomainSyncResult, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			results[i] = o.SyncDomain(ctx, name)
		}(i, name)
	}
	wg.Wait()
	return results
}

// PullDomain runs the pull half only. Realtime invalidations land here:
// the change event is a trigger, never a data source.
func (o *Orchestrator) PullDomain(ctx context.Context, name string) domain.DomainSyncResult {
	if reason, skip := o.skipReason(); skip {
		o.logger.Debug("pull skipped", ports.String("domain", name), ports.String("reason", string(reason)))
		return domain.DomainSyncResult{Domain: name}
	}

	adapter, ok := o.adapters[name]
	if !ok {
		return domain.DomainSyncResult{
			Domain: name,
			Error:  fmt.Sprintf("%s: %s", domain.ErrUnknownDomain, name),
		}
	}

	result := domain.DomainSyncResult{Domain: name}
	pull, err := adapter.Pull(ctx)
	if err != nil {
		result.Error = fmt.Sprintf("%s pull: %s", name, err)
		o.status.RecordError(result.Error)
		o.logger.Warn("invalidation pull failed", ports.String("domain", name), ports.Err(err))
		return result
	}
	result.Pulled = pull.Pulled
	result.Success = true
	o.status.RecordSync(o.now())
	return result
}

// FlushQueue drains the queue: it computes the distinct domains with
// pending entries, syncs each, and purges only the fully successful
// ones. Failed domains keep their entries; the next trigger retries them
// with no extra bookkeeping.
//
// The backpressure rule: when offline, unauthenticated, or unconfigured
// the attempt is cheap and side-effect-free on the queue.
func (o *Orchestrator) FlushQueue(ctx context.Context, reason string) domain.FlushResult {
	if skipReason, skip := o.skipReason(); skip {
		o.logger.Debug("flush skipped",
			ports.String("reason", reason),
			ports.String("skipped", string(skipReason)),
			ports.Int("queue_size", o.queue.Size()),
		)
		return domain.SkippedFlush(skipReason, o.queue.Size())
	}

	domains := o.queue.Domains()
	if len(domains) == 0 {
		return domain.FlushResult{Success: true, QueueSize: 0}
	}

	o.logger.Info("flushing queue",
		ports.String("reason", reason),
		ports.Strings("domains", domains),
		ports.Int("queue_size", o.queue.Size()),
	)

	results := o.syncConcurrently(ctx, domains)

	// Purging and status recording stay on this side of the fan-out.
	result := domain.FlushResult{Success: true}
	for _, res := range results {
		if res.Success {
			removed := o.queue.RemoveDomain(res.Domain)
			result.HandledDomains = append(result.HandledDomains, res.Domain)
			o.logger.Debug("purged domain entries",
				ports.String("domain", res.Domain),
				ports.Int("removed", removed),
			)
			continue
		}
		result.Success = false
	}

	o.recordOutcome(results)
	result.QueueSize = o.queue.Size()
	return result
}

// skipReason reports the first applicable skip condition. Checks are
// ordered cheapest first; none of them touch the network.
func (o *Orchestrator) skipReason() (domain.SkipReason, bool) {
	if !o.remoteConfigured {
		return domain.SkipUnconfigured, true
	}
	if _, ok := o.session.Current(); !ok {
		return domain.SkipUnauthenticated, true
	}
	if !o.conn.Online() {
		return domain.SkipOffline, true
	}
	return domain.SkipNone, false
}

// recordOutcome turns a round's results into one status transition:
// a clean round stamps LastSyncedAt and clears LastError, a round with
// failures records a human-readable summary.
func (o *Orchestrator) recordOutcome(results []domain.DomainSyncResult) {
	var failures []string
	for _, res := range results {
		if !res.Success && res.Error != "" {
			failures = append(failures, res.Error)
		}
	}
	if len(failures) > 0 {
		o.status.RecordError(strings.Join(failures, "; "))
		return
	}
	if len(results) > 0 {
		o.status.RecordSync(o.now())
	}
}
