package domain

// SkipReason explains why a flush or sync attempt did nothing. Skips are
// not errors: the queue is left untouched and LastError is not set.
type SkipReason string

const (
	// SkipNone means the attempt actually ran.
	SkipNone SkipReason = ""

	// SkipOffline means the remote store is unreachable.
	SkipOffline SkipReason = "offline"

	// SkipUnauthenticated means there is no authenticated session.
	SkipUnauthenticated SkipReason = "unauthenticated"

	// SkipUnconfigured means no remote store URL is configured.
	SkipUnconfigured SkipReason = "unconfigured"

	// SkipBusy means another flush was already in flight.
	SkipBusy SkipReason = "busy"

	// SkipCancelled means the caller's context expired before a result
	// was available. The flush itself may still run to completion.
	SkipCancelled SkipReason = "cancelled"
)

// DomainSyncResult is the outcome of one pull+push round for one domain.
// It is never persisted; it only decides queue purging and status updates.
type DomainSyncResult struct {
	Domain  string `json:"domain"`
	Success bool   `json:"success"`
	Pulled  int    `json:"pulled"`
	Pushed  int    `json:"pushed"`
	Error   string `json:"error,omitempty"`
}

// SyncAllResult aggregates independent per-domain rounds.
type SyncAllResult struct {
	Success bool                        `json:"success"`
	Skipped SkipReason                  `json:"skipped,omitempty"`
	Results map[string]DomainSyncResult `json:"results"`
}

// FlushResult is the outcome of one queue-drain attempt.
type FlushResult struct {
	Success        bool       `json:"success"`
	Skipped        SkipReason `json:"skipped,omitempty"`
	HandledDomains []string   `json:"handled_domains,omitempty"`
	QueueSize      int        `json:"queue_size"`
}

// SkippedFlush builds the cheap no-work result: no network calls were
// made and the queue was not touched.
func SkippedFlush(reason SkipReason, queueSize int) FlushResult {
	return FlushResult{Success: false, Skipped: reason, QueueSize: queueSize}
}
