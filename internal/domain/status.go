package domain

import "time"

// SyncStatus is the externally observable snapshot of the sync engine.
// It is owned and mutated exclusively by the status broadcaster; every
// other component and external caller only reads copies.
type SyncStatus struct {
	// Online reflects raw network reachability of the remote store.
	Online bool `json:"online"`

	// RemoteConfigured reports whether a remote store URL is set.
	RemoteConfigured bool `json:"remote_configured"`

	// Connected reflects realtime-channel health. It is independent of
	// Online: the engine can be online with the realtime channel down.
	Connected bool `json:"connected"`

	// QueueSize mirrors the live length of the persistent queue.
	QueueSize int `json:"queue_size"`

	// LastSyncedAt is the instant of the last successful sync round,
	// zero if no round has succeeded yet.
	LastSyncedAt time.Time `json:"last_synced_at"`

	// LastError is a human-readable summary of the most recent domain
	// error, empty when the last round was clean.
	LastError string `json:"last_error,omitempty"`
}
