// Package scheduler decides when the queue gets drained.
//
// All triggers funnel through one channel consumed by a single
// coordinator goroutine, which owns the debounce timer. Flushes run on a
// worker goroutine behind a single-flight guard: a trigger that fires
// while a flush is running is dropped, not queued; the next natural
// trigger picks up whatever was left unflushed. The guard is what makes
// purge-after-success race-free.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sofa-labs/couchsync/internal/domain"
	"github.com/sofa-labs/couchsync/internal/ports"
)

// DefaultDebounce is how long after the last enqueue a flush fires.
// A burst of local mutations collapses into one attempt.
const DefaultDebounce = 1500 * time.Millisecond

// Scheduler owns the trigger loop.
type Scheduler struct {
	runner   ports.SyncRunner
	logger   ports.Logger
	debounce time.Duration

	triggers chan domain.Trigger
	inFlight atomic.Bool
	wg       sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDebounce overrides the debounce interval. Tests use millisecond
// values here.
func WithDebounce(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// New creates a scheduler driving runner. Run must be called before any
// trigger has an effect.
func New(runner ports.SyncRunner, logger ports.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		runner:   runner,
		logger:   logger,
		debounce: DefaultDebounce,
		triggers: make(chan domain.Trigger, 16),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NotifyEnqueue (re)arms the debounce timer. Called after every local
// enqueue; never blocks.
func (s *Scheduler) NotifyEnqueue() {
	s.offer(domain.Trigger{Kind: domain.TriggerDebounce})
}

// NotifyReconnect schedules an immediate flush after an offline-to-online
// transition, cancelling any pending debounce.
func (s *Scheduler) NotifyReconnect() {
	s.offer(domain.Trigger{Kind: domain.TriggerReconnect})
}

// Invalidate requests a re-pull of one domain after a realtime change
// notification.
func (s *Scheduler) Invalidate(domainName string) {
	s.offer(domain.Trigger{Kind: domain.TriggerInvalidate, Domain: domainName})
}

// Flush runs a manual flush and waits for its result. A concurrent
// flush already in flight yields a "busy" skip instead of a second run;
// a context that expires before the result arrives yields a "cancelled"
// skip. Both report QueueSize 0 because no queue snapshot was taken on
// the caller's behalf; read Status for the live size.
func (s *Scheduler) Flush(ctx context.Context, reason string) domain.FlushResult {
	if reason == "" {
		reason = "manual"
	}
	reply := make(chan domain.FlushResult, 1)
	trigger := domain.Trigger{Kind: domain.TriggerManual, Reason: reason, Reply: reply}

	select {
	case s.triggers <- trigger:
	case <-ctx.Done():
		return domain.SkippedFlush(domain.SkipCancelled, 0)
	}

	select {
	case res := <-reply:
		return res
	case <-ctx.Done():
		return domain.SkippedFlush(domain.SkipCancelled, 0)
	}
}

// offer drops the trigger when the channel is full; the queue itself is
// durable, so a dropped trigger only delays work until the next one.
func (s *Scheduler) offer(t domain.Trigger) {
	select {
	case s.triggers <- t:
	default:
		s.logger.Debug("trigger dropped, coordinator saturated",
			ports.String("kind", t.Kind.String()),
		)
	}
}

// Run is the coordinator loop. It owns the debounce timer exclusively
// and returns when ctx is cancelled, after waiting for any in-flight
// work to finish.
func (s *Scheduler) Run(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			stopTimer()
			s.wg.Wait()
			return

		case <-timerC:
			timer = nil
			timerC = nil
			s.launchFlush(ctx, domain.TriggerDebounce.String(), nil)

		case trigger := <-s.triggers:
			switch trigger.Kind {
			case domain.TriggerDebounce:
				stopTimer()
				timer = time.NewTimer(s.debounce)
				timerC = timer.C

			case domain.TriggerReconnect:
				stopTimer()
				s.launchFlush(ctx, domain.TriggerReconnect.String(), nil)

			case domain.TriggerManual:
				stopTimer()
				s.launchFlush(ctx, trigger.Reason, trigger.Reply)

			case domain.TriggerInvalidate:
				s.launchPull(ctx, trigger.Domain)
			}
		}
	}
}

// launchFlush starts a flush worker unless one is already in flight.
// A busy manual caller gets told so; other triggers are silently
// dropped per the single-flight rule.
func (s *Scheduler) launchFlush(ctx context.Context, reason string, reply chan domain.FlushResult) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Debug("flush already in flight, trigger dropped", ports.String("reason", reason))
		if reply != nil {
			reply <- domain.SkippedFlush(domain.SkipBusy, 0)
		}
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inFlight.Store(false)

		res := s.runner.FlushQueue(ctx, reason)
		if reply != nil {
			reply <- res
		}
	}()
}

// launchPull re-pulls one domain. It shares the single-flight guard with
// flushes so a realtime burst cannot stack network rounds; a dropped
// invalidation is safe because the next pull fetches full state anyway.
func (s *Scheduler) launchPull(ctx context.Context, domainName string) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Debug("sync in flight, invalidation dropped", ports.String("domain", domainName))
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inFlight.Store(false)

		s.runner.PullDomain(ctx, domainName)
	}()
}
