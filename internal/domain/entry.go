package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxQueueEntries caps the pending-mutation queue. Enqueueing beyond the
// cap evicts the oldest entries first; the loss boundary is deliberate.
const MaxQueueEntries = 200

// QueueEntry is one pending local mutation awaiting synchronization.
// Entries are appended in arrival order but drained by domain: a sync
// round for a domain settles every entry recorded for it.
type QueueEntry struct {
	// ID uniquely identifies the entry across the whole queue.
	ID string `json:"id"`

	// Domain names the synchronized data category (e.g. "watchlist").
	Domain string `json:"domain"`

	// Metadata is opaque context recorded by the caller at enqueue time.
	// The engine never interprets it.
	Metadata map[string]string `json:"metadata,omitempty"`

	// Timestamp is the enqueue instant.
	Timestamp time.Time `json:"timestamp"`
}

// NewQueueEntry creates an entry with a fresh unique ID stamped now.
func NewQueueEntry(domain string, metadata map[string]string) QueueEntry {
	return QueueEntry{
		ID:        uuid.NewString(),
		Domain:    domain,
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	}
}
