// Package queue implements the persistent pending-mutation queue.
//
// The store keeps the ordered entry list in memory and mirrors every
// mutation into a QueueRepository. When persistence fails the in-memory
// queue stays authoritative for the session and the failure is logged as
// a non-fatal warning; a later successful save reconciles.
package queue

import (
	"context"
	"sync"

	"github.com/sofa-labs/couchsync/internal/domain"
	"github.com/sofa-labs/couchsync/internal/ports"
)

// Store holds pending mutation entries, capped at
// domain.MaxQueueEntries with oldest-first eviction.
type Store struct {
	mu      sync.Mutex
	entries []domain.QueueEntry
	repo    ports.QueueRepository
	logger  ports.Logger
	onSize  func(int)
}

// Option configures a Store.
type Option func(*Store)

// WithSizeListener registers a callback invoked with the queue length
// after every mutation. The status broadcaster hangs off this.
func WithSizeListener(fn func(int)) Option {
	return func(s *Store) { s.onSize = fn }
}

// NewStore creates a queue store backed by repo.
func NewStore(repo ports.QueueRepository, logger ports.Logger, opts ...Option) *Store {
	s := &Store{
		repo:   repo,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads the persisted queue. Called once at startup, before any
// enqueue. A load failure starts the session with an empty queue.
func (s *Store) Restore(ctx context.Context) error {
	entries, err := s.repo.Load(ctx)
	if err != nil {
		s.logger.Warn("queue restore failed, starting empty", ports.Err(err))
		entries = nil
	}
	s.mu.Lock()
	s.entries = entries
	size := len(s.entries)
	s.mu.Unlock()

	s.notifySize(size)
	return err
}

// Enqueue appends a pending mutation and persists before returning, so a
// crash immediately after never silently loses it. It never blocks on
// network I/O and never returns an error to the caller: enqueue is
// fire-and-forget.
func (s *Store) Enqueue(domainName string, metadata map[string]string) string {
	entry := domain.NewQueueEntry(domainName, metadata)

	s.mu.Lock()
	s.entries = append(s.entries, entry)
	if evicted := len(s.entries) - domain.MaxQueueEntries; evicted > 0 {
		s.entries = append([]domain.QueueEntry(nil), s.entries[evicted:]...)
		s.logger.Warn("queue capacity reached, evicted oldest entries",
			ports.Int("evicted", evicted),
		)
	}
	s.persistLocked()
	size := len(s.entries)
	s.mu.Unlock()

	s.notifySize(size)
	return entry.ID
}

// Entries returns a copy of the queue in arrival order.
func (s *Store) Entries() []domain.QueueEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.QueueEntry(nil), s.entries...)
}

// Domains returns the distinct domains present in the queue, in first
// arrival order.
func (s *Store) Domains() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(s.entries))
	var domains []string
	for _, e := range s.entries {
		if !seen[e.Domain] {
			seen[e.Domain] = true
			domains = append(domains, e.Domain)
		}
	}
	return domains
}

// RemoveDomain purges every entry for the given domain and persists.
// Returns the number of entries removed.
func (s *Store) RemoveDomain(domainName string) int {
	s.mu.Lock()
	kept := s.entries[:0]
	removed := 0
	for _, e := range s.entries {
		if e.Domain == domainName {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	if removed > 0 {
		s.persistLocked()
	}
	size := len(s.entries)
	s.mu.Unlock()

	if removed > 0 {
		s.notifySize(size)
	}
	return removed
}

// Clear drops every entry and persists the empty queue.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = nil
	s.persistLocked()
	s.mu.Unlock()

	s.notifySize(0)
}

// Size returns the live queue length.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// persistLocked mirrors the in-memory queue to durable storage. Failures
// degrade durability, not availability: the entry stays queued in memory
// and the UI action that caused it is never blocked.
func (s *Store) persistLocked() {
	snapshot := append([]domain.QueueEntry(nil), s.entries...)
	if err := s.repo.Save(context.Background(), snapshot); err != nil {
		s.logger.Warn("queue persistence failed, in-memory queue remains authoritative",
			ports.Err(err),
			ports.Int("entries", len(snapshot)),
		)
	}
}

func (s *Store) notifySize(size int) {
	if s.onSize != nil {
		s.onSize(size)
	}
}
