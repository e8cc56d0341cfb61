package ports

import (
	"context"

	"github.com/sofa-labs/couchsync/internal/domain"
)

// QueueRepository persists the pending-mutation queue.
// Implementations rewrite the full ordered list on every save; there is
// no incremental append format.
type QueueRepository interface {
	// Load retrieves the persisted queue.
	// Returns an empty list and nil error if nothing was persisted yet.
	// Returns an error only for actual read failures.
	Load(ctx context.Context) ([]domain.QueueEntry, error)

	// Save persists the full queue atomically.
	// The implementation should write to a temp file and rename so a
	// crash mid-write never corrupts the persisted queue.
	Save(ctx context.Context, entries []domain.QueueEntry) error
}
