// Package status holds the SyncStatus snapshot and fans changes out to
// subscribers.
//
// The broadcaster is the only writer of the snapshot. Subscribers are
// notified synchronously, in registration order, after every change.
package status

import (
	"sync"
	"time"

	"github.com/sofa-labs/couchsync/internal/domain"
)

// Listener receives a status snapshot after every change.
type Listener func(domain.SyncStatus)

type subscription struct {
	id int
	fn Listener
}

// Broadcaster owns the SyncStatus snapshot.
type Broadcaster struct {
	mu     sync.Mutex
	status domain.SyncStatus
	subs   []subscription
	nextID int
}

// NewBroadcaster creates a broadcaster with a zero snapshot.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Snapshot returns a copy of the current status.
func (b *Broadcaster) Snapshot() domain.SyncStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Subscribe registers a listener and returns its unsubscribe function.
// The listener is not called with the current snapshot; callers needing
// an initial value read Snapshot first.
func (b *Broadcaster) Subscribe(fn Listener) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, sub := range b.subs {
			if sub.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// SetOnline records network reachability.
func (b *Broadcaster) SetOnline(online bool) {
	b.update(func(s *domain.SyncStatus) { s.Online = online })
}

// SetConnected records realtime-channel health.
func (b *Broadcaster) SetConnected(connected bool) {
	b.update(func(s *domain.SyncStatus) { s.Connected = connected })
}

// SetRemoteConfigured records whether a remote store is configured.
func (b *Broadcaster) SetRemoteConfigured(configured bool) {
	b.update(func(s *domain.SyncStatus) { s.RemoteConfigured = configured })
}

// SetQueueSize mirrors the live queue length into the snapshot.
func (b *Broadcaster) SetQueueSize(size int) {
	b.update(func(s *domain.SyncStatus) { s.QueueSize = size })
}

// RecordSync marks a successful round: stamps LastSyncedAt and clears
// LastError.
func (b *Broadcaster) RecordSync(at time.Time) {
	b.update(func(s *domain.SyncStatus) {
		s.LastSyncedAt = at
		s.LastError = ""
	})
}

// RecordError stores a human-readable summary of a domain error. Skip
// conditions never land here.
func (b *Broadcaster) RecordError(msg string) {
	b.update(func(s *domain.SyncStatus) { s.LastError = msg })
}

// update applies a mutation and notifies subscribers outside the lock,
// in registration order, each with its own copy of the snapshot.
func (b *Broadcaster) update(mutate func(*domain.SyncStatus)) {
	b.mu.Lock()
	mutate(&b.status)
	snapshot := b.status
	subs := append([]subscription(nil), b.subs...)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.fn(snapshot)
	}
}
