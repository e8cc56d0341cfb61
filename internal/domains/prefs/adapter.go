// Package prefs syncs user preferences.
package prefs

import (
	"context"
	"fmt"

	"github.com/sofa-labs/couchsync/internal/domain"
	"github.com/sofa-labs/couchsync/internal/localstore"
	"github.com/sofa-labs/couchsync/internal/ports"
	"github.com/sofa-labs/couchsync/internal/remote"
)

// Adapter syncs user preferences keyed by (user_id, key).
type Adapter struct {
	store   *localstore.Store
	client  *remote.Client
	session ports.SessionSource
}

func New(store *localstore.Store, client *remote.Client, session ports.SessionSource) *Adapter {
	return &Adapter{store: store, client: client, session: session}
}

func (a *Adapter) Name() string { return "preferences" }

func (a *Adapter) ConflictKey() []string { return []string{"user_id", "key"} }

func (a *Adapter) Pull(ctx context.Context) (ports.PullResult, error) {
	sess, ok := a.session.Current()
	if !ok {
		return ports.PullResult{}, domain.ErrNoSession
	}

	var prefs []localstore.Preference
	if err := a.client.Pull(ctx, a.Name(), &prefs); err != nil {
		return ports.PullResult{}, err
	}
	if err := a.store.ReplacePreferences(sess.UserID, prefs); err != nil {
		return ports.PullResult{}, fmt.Errorf("replace preferences: %w", err)
	}
	return ports.PullResult{Pulled: len(prefs)}, nil
}

func (a *Adapter) Push(ctx context.Context) (ports.PushResult, error) {
	sess, ok := a.session.Current()
	if !ok {
		return ports.PushResult{}, domain.ErrNoSession
	}

	prefs, err := a.store.Preferences(sess.UserID)
	if err != nil {
		return ports.PushResult{}, fmt.Errorf("load preferences: %w", err)
	}
	pushed, err := a.client.Push(ctx, a.Name(), a.ConflictKey(), prefs)
	if err != nil {
		return ports.PushResult{}, err
	}
	return ports.PushResult{Pushed: pushed}, nil
}
