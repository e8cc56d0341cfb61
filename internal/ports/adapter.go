package ports

import "context"

// PullResult reports a completed pull: authoritative remote state was
// fetched and local state for the domain overwritten.
type PullResult struct {
	// Pulled is the number of records fetched from the remote store.
	Pulled int
}

// PushResult reports a completed push: local state was upserted to the
// remote store keyed by the domain's natural key, so repeats are
// idempotent.
type PushResult struct {
	// Pushed is the number of records upserted.
	Pushed int
}

// DomainAdapter moves data between local state and the remote store for
// one synchronized domain. Adapters own no engine state; they are pure
// functions over the local store and the remote client.
//
// Pull and Push are the only suspending operations in the engine. The
// orchestrator guarantees pull-before-push within one round and never
// runs two rounds for the same registry concurrently; adapters do not
// need their own locking.
type DomainAdapter interface {
	// Name returns the domain this adapter serves (e.g. "watchlist").
	Name() string

	// ConflictKey returns the natural-key field set used as the upsert
	// uniqueness constraint on the remote store.
	ConflictKey() []string

	// Pull fetches authoritative remote state and overwrites local state.
	Pull(ctx context.Context) (PullResult, error)

	// Push reads local state and upserts it to the remote store.
	Push(ctx context.Context) (PushResult, error)
}
