// Package progress syncs playback positions.
package progress

import (
	"context"
	"fmt"

	"github.com/sofa-labs/couchsync/internal/domain"
	"github.com/sofa-labs/couchsync/internal/localstore"
	"github.com/sofa-labs/couchsync/internal/ports"
	"github.com/sofa-labs/couchsync/internal/remote"
)

// Adapter syncs watch progress. Entries are keyed per episode so a
// series binge upserts many rows under one push.
type Adapter struct {
	store   *localstore.Store
	client  *remote.Client
	session ports.SessionSource
}

func New(store *localstore.Store, client *remote.Client, session ports.SessionSource) *Adapter {
	return &Adapter{store: store, client: client, session: session}
}

func (a *Adapter) Name() string { return "watchProgress" }

func (a *Adapter) ConflictKey() []string {
	return []string{"user_id", "external_id", "season", "episode"}
}

func (a *Adapter) Pull(ctx context.Context) (ports.PullResult, error) {
	sess, ok := a.session.Current()
	if !ok {
		return ports.PullResult{}, domain.ErrNoSession
	}

	var entries []localstore.ProgressEntry
	if err := a.client.Pull(ctx, a.Name(), &entries); err != nil {
		return ports.PullResult{}, err
	}
	if err := a.store.ReplaceProgress(sess.UserID, entries); err != nil {
		return ports.PullResult{}, fmt.Errorf("replace progress: %w", err)
	}
	return ports.PullResult{Pulled: len(entries)}, nil
}

func (a *Adapter) Push(ctx context.Context) (ports.PushResult, error) {
	sess, ok := a.session.Current()
	if !ok {
		return ports.PushResult{}, domain.ErrNoSession
	}

	entries, err := a.store.Progress(sess.UserID)
	if err != nil {
		return ports.PushResult{}, fmt.Errorf("load progress: %w", err)
	}
	pushed, err := a.client.Push(ctx, a.Name(), a.ConflictKey(), entries)
	if err != nil {
		return ports.PushResult{}, err
	}
	return ports.PushResult{Pushed: pushed}, nil
}
