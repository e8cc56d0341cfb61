package ports

import (
	"context"

	"github.com/sofa-labs/couchsync/internal/domain"
)

// SyncRunner is the orchestrator surface driven by the flush scheduler.
type SyncRunner interface {
	// FlushQueue drains the queue: it syncs every domain with pending
	// entries and purges the domains whose round fully succeeded.
	FlushQueue(ctx context.Context, reason string) domain.FlushResult

	// PullDomain runs the pull half only, used for realtime
	// invalidations where the remote signalled a change out of band.
	PullDomain(ctx context.Context, name string) domain.DomainSyncResult
}
