// Package watchlist syncs the user's saved titles.
package watchlist

import (
	"context"
	"fmt"

	"github.com/sofa-labs/couchsync/internal/domain"
	"github.com/sofa-labs/couchsync/internal/localstore"
	"github.com/sofa-labs/couchsync/internal/ports"
	"github.com/sofa-labs/couchsync/internal/remote"
)

// Adapter implements bidirectional sync for the watchlist domain.
// Pull replaces local state with the remote snapshot; push uploads the
// full local list for upsert under the (user_id, external_id) key.
type Adapter struct {
	store   *localstore.Store
	client  *remote.Client
	session ports.SessionSource
}

func New(store *localstore.Store, client *remote.Client, session ports.SessionSource) *Adapter {
	return &Adapter{store: store, client: client, session: session}
}

func (a *Adapter) Name() string { return "watchlist" }

func (a *Adapter) ConflictKey() []string { return []string{"user_id", "external_id"} }

func (a *Adapter) Pull(ctx context.Context) (ports.PullResult, error) {
	sess, ok := a.session.Current()
	if !ok {
		return ports.PullResult{}, domain.ErrNoSession
	}

	var items []localstore.WatchlistItem
	if err := a.client.Pull(ctx, a.Name(), &items); err != nil {
		return ports.PullResult{}, err
	}
	if err := a.store.ReplaceWatchlist(sess.UserID, items); err != nil {
		return ports.PullResult{}, fmt.Errorf("replace watchlist: %w", err)
	}
	return ports.PullResult{Pulled: len(items)}, nil
}

func (a *Adapter) Push(ctx context.Context) (ports.PushResult, error) {
	sess, ok := a.session.Current()
	if !ok {
		return ports.PushResult{}, domain.ErrNoSession
	}

	items, err := a.store.Watchlist(sess.UserID)
	if err != nil {
		return ports.PushResult{}, fmt.Errorf("load watchlist: %w", err)
	}
	pushed, err := a.client.Push(ctx, a.Name(), a.ConflictKey(), items)
	if err != nil {
		return ports.PushResult{}, err
	}
	return ports.PushResult{Pushed: pushed}, nil
}
