package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/sofa-labs/couchsync/internal/adapters/log"
	"github.com/sofa-labs/couchsync/internal/localstore"
	"github.com/sofa-labs/couchsync/internal/ports"
	"github.com/sofa-labs/couchsync/internal/remote"
)

type staticSession struct {
	sess ports.Session
	ok   bool
}

func (s staticSession) Current() (ports.Session, bool) { return s.sess, s.ok }

func newTestAdapter(t *testing.T, handler http.Handler) (*Adapter, *localstore.Store) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store, err := localstore.Open(filepath.Join(t.TempDir(), "local.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	sess := staticSession{
		sess: ports.Session{UserID: "u-1", Token: &oauth2.Token{AccessToken: "tok"}},
		ok:   true,
	}
	client := remote.NewClient(srv.URL, srv.Client(), sess, rate.NewLimiter(rate.Inf, 1), log.NewNoopLogger())
	return New(store, client, sess), store
}

func TestPull_OverwritesLocalValue(t *testing.T) {
	a, store := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"items": []localstore.Preference{
			{UserID: "u-1", Key: "subtitle_lang", Value: "de", UpdatedAt: time.Unix(500, 0).UTC()},
		}})
	}))

	local := localstore.Preference{UserID: "u-1", Key: "subtitle_lang", Value: "en", UpdatedAt: time.Unix(100, 0).UTC()}
	if err := store.UpsertPreference(local); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := a.Pull(context.Background()); err != nil {
		t.Fatalf("Pull() error: %v", err)
	}

	got, err := store.Preferences("u-1")
	if err != nil {
		t.Fatalf("Preferences: %v", err)
	}
	if len(got) != 1 || got[0].Value != "de" {
		t.Errorf("preferences = %+v, want single subtitle_lang=de", got)
	}
}

func TestPush_SendsUserKeyConflictKey(t *testing.T) {
	var gotKey []string
	a, store := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ConflictKey []string        `json:"conflict_key"`
			Items       json.RawMessage `json:"items"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode push body: %v", err)
		}
		gotKey = body.ConflictKey
		fmt.Fprint(w, `{"upserted":2}`)
	}))

	for _, p := range []localstore.Preference{
		{UserID: "u-1", Key: "theme", Value: "dark", UpdatedAt: time.Unix(1, 0).UTC()},
		{UserID: "u-1", Key: "autoplay", Value: "false", UpdatedAt: time.Unix(2, 0).UTC()},
	} {
		if err := store.UpsertPreference(p); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	res, err := a.Push(context.Background())
	if err != nil {
		t.Fatalf("Push() error: %v", err)
	}
	if res.Pushed != 2 {
		t.Errorf("Pushed = %d, want 2", res.Pushed)
	}
	if want := []string{"user_id", "key"}; !reflect.DeepEqual(gotKey, want) {
		t.Errorf("conflict_key = %v, want %v", gotKey, want)
	}
}
