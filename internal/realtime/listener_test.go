package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/oauth2"

	"github.com/sofa-labs/couchsync/internal/adapters/log"
	"github.com/sofa-labs/couchsync/internal/domain"
	"github.com/sofa-labs/couchsync/internal/ports"
	"github.com/sofa-labs/couchsync/internal/status"
)

type staticSession struct {
	sess ports.Session
	ok   bool
}

func (s staticSession) Current() (ports.Session, bool) { return s.sess, s.ok }

func authedSession() staticSession {
	return staticSession{
		sess: ports.Session{
			UserID: "u-1",
			Token:  &oauth2.Token{AccessToken: "tok"},
		},
		ok: true,
	}
}

// invalidations collects domains passed to the invalidate callback.
type invalidations struct {
	mu      sync.Mutex
	domains []string
}

func (i *invalidations) record(domain string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.domains = append(i.domains, domain)
}

func (i *invalidations) snapshot() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.domains...)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func TestListener_InvalidatesSubscribedDomain(t *testing.T) {
	events := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer tok")
		}
		if got := r.URL.Query().Get("domain"); got != "watchlist" {
			t.Errorf("domain query = %q, want %q", got, "watchlist")
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer conn.CloseNow()
		for payload := range events {
			if err := conn.Write(r.Context(), websocket.MessageText, []byte(payload)); err != nil {
				return
			}
		}
	}))
	defer srv.Close()
	defer close(events)

	inv := &invalidations{}
	st := status.NewBroadcaster()
	l := New(srv.URL, []string{"watchlist"}, authedSession(), st, log.NewNoopLogger(), inv.record)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run(ctx)
	}()

	waitFor(t, func() bool { return st.Snapshot().Connected }, "subscription")

	events <- `{"domain":"watchlist","kind":"upsert"}`
	waitFor(t, func() bool { return len(inv.snapshot()) == 1 }, "first invalidation")

	// A malformed frame is logged and skipped, never invalidated.
	events <- `not json`
	events <- `{"domain":"watchlist","kind":"remove"}`
	waitFor(t, func() bool { return len(inv.snapshot()) == 2 }, "second invalidation")

	for _, d := range inv.snapshot() {
		if d != "watchlist" {
			t.Errorf("invalidated domain %q, want %q", d, "watchlist")
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("listener did not stop after cancel")
	}
}

func TestListener_ConnectedRequiresAllDomains(t *testing.T) {
	// Only watchlist subscriptions are accepted; watchProgress dials
	// are refused, so the listener must never report connected.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("domain") != "watchlist" {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		<-r.Context().Done()
	}))
	defer srv.Close()

	inv := &invalidations{}
	st := status.NewBroadcaster()
	l := New(srv.URL, []string{"watchlist", "watchProgress"}, authedSession(), st, log.NewNoopLogger(), inv.record)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run(ctx)
	}()

	time.Sleep(150 * time.Millisecond)
	if st.Snapshot().Connected {
		t.Error("reported connected with one of two subscriptions down")
	}

	cancel()
	<-done
}

func TestDial_NoSessionReturnsSentinel(t *testing.T) {
	st := status.NewBroadcaster()
	l := New("http://127.0.0.1:0", []string{"watchlist"}, staticSession{}, st, log.NewNoopLogger(), func(string) {})

	_, err := l.dial(context.Background(), "watchlist")
	if !errors.Is(err, domain.ErrNoSession) {
		t.Errorf("dial() error = %v, want ErrNoSession", err)
	}
}

func TestListener_UnauthenticatedNeverDials(t *testing.T) {
	dialed := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case dialed <- struct{}{}:
		default:
		}
		http.Error(w, "no", http.StatusUnauthorized)
	}))
	defer srv.Close()

	inv := &invalidations{}
	st := status.NewBroadcaster()
	l := New(srv.URL, []string{"watchlist"}, staticSession{}, st, log.NewNoopLogger(), inv.record)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	l.Run(ctx)

	select {
	case <-dialed:
		t.Error("dialed the remote without a session")
	default:
	}
	if st.Snapshot().Connected {
		t.Error("reported connected without a session")
	}
}
