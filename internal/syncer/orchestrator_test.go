package syncer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	adapterlog "github.com/sofa-labs/couchsync/internal/adapters/log"
	"github.com/sofa-labs/couchsync/internal/domain"
	"github.com/sofa-labs/couchsync/internal/ports"
	"github.com/sofa-labs/couchsync/internal/queue"
	"github.com/sofa-labs/couchsync/internal/status"

	"golang.org/x/oauth2"
)

// mockAdapter implements ports.DomainAdapter with scriptable results.
type mockAdapter struct {
	name    string
	pulled  int
	pushed  int
	pullErr error
	pushErr error

	// pullHook, when set, runs at the start of every Pull. Tests use it
	// to hold a round open.
	pullHook func()

	pullCalls int
	pushCalls int
	calls     []string
}

func (m *mockAdapter) Name() string          { return m.name }
func (m *mockAdapter) ConflictKey() []string { return []string{"user_id", "external_id"} }

func (m *mockAdapter) Pull(ctx context.Context) (ports.PullResult, error) {
	m.pullCalls++
	m.calls = append(m.calls, "pull")
	if m.pullHook != nil {
		m.pullHook()
	}
	if m.pullErr != nil {
		return ports.PullResult{}, m.pullErr
	}
	return ports.PullResult{Pulled: m.pulled}, nil
}

func (m *mockAdapter) Push(ctx context.Context) (ports.PushResult, error) {
	m.pushCalls++
	m.calls = append(m.calls, "push")
	if m.pushErr != nil {
		return ports.PushResult{}, m.pushErr
	}
	return ports.PushResult{Pushed: m.pushed}, nil
}

type connectivity bool

func (c connectivity) Online() bool { return bool(c) }

type fakeSession bool

func (f fakeSession) Current() (ports.Session, bool) {
	if !f {
		return ports.Session{}, false
	}
	return ports.Session{UserID: "u1", Token: &oauth2.Token{AccessToken: "t"}}, true
}

// memRepo is a minimal in-memory queue repository.
type memRepo struct{ saved []domain.QueueEntry }

func (m *memRepo) Load(ctx context.Context) ([]domain.QueueEntry, error) { return m.saved, nil }
func (m *memRepo) Save(ctx context.Context, e []domain.QueueEntry) error {
	m.saved = append([]domain.QueueEntry(nil), e...)
	return nil
}

type harness struct {
	queue  *queue.Store
	status *status.Broadcaster
	orch   *Orchestrator
}

func newHarness(t *testing.T, online, authed, configured bool, adapters ...ports.DomainAdapter) *harness {
	t.Helper()
	st := status.NewBroadcaster()
	q := queue.NewStore(&memRepo{}, adapterlog.NewNoopLogger(),
		queue.WithSizeListener(st.SetQueueSize))
	o := NewOrchestrator(q, st, connectivity(online), fakeSession(authed), configured,
		adapterlog.NewNoopLogger(), adapters...)
	o.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	return &harness{queue: q, status: st, orch: o}
}

func TestSyncDomain_PullBeforePush(t *testing.T) {
	adapter := &mockAdapter{name: "watchlist", pulled: 3, pushed: 1}
	h := newHarness(t, true, true, true, adapter)

	res := h.orch.SyncDomain(context.Background(), "watchlist")

	if !res.Success {
		t.Fatalf("result = %+v, want success", res)
	}
	if res.Pulled != 3 || res.Pushed != 1 {
		t.Errorf("pulled/pushed = %d/%d, want 3/1", res.Pulled, res.Pushed)
	}
	if len(adapter.calls) != 2 || adapter.calls[0] != "pull" || adapter.calls[1] != "push" {
		t.Errorf("call order = %v, want [pull push]", adapter.calls)
	}
}

func TestSyncDomain_PullFailureSkipsPush(t *testing.T) {
	adapter := &mockAdapter{name: "watchlist", pullErr: errors.New("remote 500")}
	h := newHarness(t, true, true, true, adapter)

	res := h.orch.SyncDomain(context.Background(), "watchlist")

	if res.Success {
		t.Error("result success despite pull failure")
	}
	if adapter.pushCalls != 0 {
		t.Errorf("push called %d times after failed pull, want 0", adapter.pushCalls)
	}
	if res.Error == "" {
		t.Error("result carries no error")
	}
}

func TestSyncDomain_Unknown(t *testing.T) {
	h := newHarness(t, true, true, true)

	res := h.orch.SyncDomain(context.Background(), "nonexistent")
	if res.Success || res.Error == "" {
		t.Errorf("result = %+v, want unknown-domain failure", res)
	}
}

func TestFlushQueue_SuccessPurgesAndStampsStatus(t *testing.T) {
	adapter := &mockAdapter{name: "watchlist", pulled: 3, pushed: 1}
	h := newHarness(t, true, true, true, adapter)

	h.queue.Enqueue("watchlist", nil)

	res := h.orch.FlushQueue(context.Background(), "manual")

	if !res.Success {
		t.Fatalf("flush = %+v, want success", res)
	}
	if res.QueueSize != 0 || h.queue.Size() != 0 {
		t.Errorf("queue size = %d, want 0", h.queue.Size())
	}
	if len(res.HandledDomains) != 1 || res.HandledDomains[0] != "watchlist" {
		t.Errorf("handled = %v", res.HandledDomains)
	}

	snap := h.status.Snapshot()
	if snap.LastSyncedAt.IsZero() {
		t.Error("lastSyncedAt not set")
	}
	if snap.LastError != "" {
		t.Errorf("lastError = %q, want empty", snap.LastError)
	}
	if snap.QueueSize != 0 {
		t.Errorf("status queue size = %d, want 0", snap.QueueSize)
	}
}

func TestFlushQueue_FailedDomainRetainsEntries(t *testing.T) {
	adapter := &mockAdapter{name: "watchProgress", pushErr: errors.New("conflict storm")}
	h := newHarness(t, true, true, true, adapter)

	h.queue.Enqueue("watchProgress", nil)
	h.queue.Enqueue("watchProgress", nil)

	res := h.orch.FlushQueue(context.Background(), "debounce")

	if res.Success {
		t.Error("flush reported success despite push failure")
	}
	if h.queue.Size() != 2 {
		t.Errorf("queue size = %d, want 2 (entries retained)", h.queue.Size())
	}
	if got := h.status.Snapshot().LastError; got == "" {
		t.Error("lastError not recorded")
	} else if want := "watchProgress push: conflict storm"; got != want {
		t.Errorf("lastError = %q, want %q", got, want)
	}
}

func TestFlushQueue_PartialFailureIsPerDomain(t *testing.T) {
	good := &mockAdapter{name: "watchlist", pulled: 1, pushed: 1}
	bad := &mockAdapter{name: "preferences", pushErr: errors.New("boom")}
	h := newHarness(t, true, true, true, good, bad)

	h.queue.Enqueue("watchlist", nil)
	h.queue.Enqueue("preferences", nil)
	h.queue.Enqueue("watchlist", nil)

	res := h.orch.FlushQueue(context.Background(), "debounce")

	if res.Success {
		t.Error("flush reported success despite one failed domain")
	}
	if h.queue.Size() != 1 {
		t.Fatalf("queue size = %d, want 1", h.queue.Size())
	}
	if got := h.queue.Entries()[0].Domain; got != "preferences" {
		t.Errorf("surviving domain = %s, want preferences", got)
	}
	if len(res.HandledDomains) != 1 || res.HandledDomains[0] != "watchlist" {
		t.Errorf("handled = %v, want [watchlist]", res.HandledDomains)
	}
	// The failed domain must not block the good one from re-running later.
	if good.pullCalls != 1 || bad.pullCalls != 1 {
		t.Errorf("pull calls good/bad = %d/%d, want 1/1", good.pullCalls, bad.pullCalls)
	}
}

func TestFlushQueue_DeduplicatesByDomain(t *testing.T) {
	adapter := &mockAdapter{name: "watchlist", pulled: 1, pushed: 1}
	h := newHarness(t, true, true, true, adapter)

	for i := 0; i < 5; i++ {
		h.queue.Enqueue("watchlist", nil)
	}

	h.orch.FlushQueue(context.Background(), "debounce")

	// Five pending entries collapse into one round for the domain.
	if adapter.pullCalls != 1 || adapter.pushCalls != 1 {
		t.Errorf("pull/push calls = %d/%d, want 1/1", adapter.pullCalls, adapter.pushCalls)
	}
}

func TestFlushQueue_DomainsRunConcurrently(t *testing.T) {
	// Both pulls must be in flight at the same time: each round holds
	// its pull open until released, so a sequential orchestrator would
	// never get the second pull started.
	var entered atomic.Int32
	release := make(chan struct{})
	hold := func() {
		entered.Add(1)
		<-release
	}

	wl := &mockAdapter{name: "watchlist", pullHook: hold}
	pr := &mockAdapter{name: "preferences", pullHook: hold}
	h := newHarness(t, true, true, true, wl, pr)
	h.queue.Enqueue("watchlist", nil)
	h.queue.Enqueue("preferences", nil)

	done := make(chan domain.FlushResult, 1)
	go func() {
		done <- h.orch.FlushQueue(context.Background(), "test")
	}()

	deadline := time.Now().Add(2 * time.Second)
	for entered.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	overlapped := entered.Load()
	close(release)
	res := <-done

	if overlapped != 2 {
		t.Fatalf("%d pulls in flight together, want 2", overlapped)
	}
	if !res.Success {
		t.Errorf("FlushQueue Success = false, want true")
	}
	if h.queue.Size() != 0 {
		t.Errorf("queue size = %d after flush, want 0", h.queue.Size())
	}
}

func TestFlushQueue_Idempotent(t *testing.T) {
	adapter := &mockAdapter{name: "watchlist", pulled: 1, pushed: 1}
	h := newHarness(t, true, true, true, adapter)

	h.queue.Enqueue("watchlist", nil)

	first := h.orch.FlushQueue(context.Background(), "manual")
	second := h.orch.FlushQueue(context.Background(), "manual")

	if !first.Success || first.QueueSize != 0 {
		t.Errorf("first flush = %+v", first)
	}
	if !second.Success || len(second.HandledDomains) != 0 {
		t.Errorf("second flush = %+v, want successful no-op", second)
	}
	if adapter.pullCalls != 1 {
		t.Errorf("pull calls = %d, want 1 (second flush is a no-op)", adapter.pullCalls)
	}
}

func TestFlushQueue_SkipConditions(t *testing.T) {
	tests := []struct {
		name       string
		online     bool
		authed     bool
		configured bool
		want       domain.SkipReason
	}{
		{"offline", false, true, true, domain.SkipOffline},
		{"unauthenticated", true, false, true, domain.SkipUnauthenticated},
		{"unconfigured", true, true, false, domain.SkipUnconfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := &mockAdapter{name: "watchlist", pulled: 1, pushed: 1}
			h := newHarness(t, tt.online, tt.authed, tt.configured, adapter)
			h.queue.Enqueue("watchlist", nil)

			res := h.orch.FlushQueue(context.Background(), "manual")

			if res.Success {
				t.Error("skipped flush reported success")
			}
			if res.Skipped != tt.want {
				t.Errorf("skipped = %q, want %q", res.Skipped, tt.want)
			}
			if res.QueueSize != 1 || h.queue.Size() != 1 {
				t.Errorf("queue size = %d, want 1 (untouched)", h.queue.Size())
			}
			if adapter.pullCalls != 0 || adapter.pushCalls != 0 {
				t.Error("adapter invoked during skip")
			}
			// Skip conditions are not errors.
			if got := h.status.Snapshot().LastError; got != "" {
				t.Errorf("lastError = %q, want empty", got)
			}
		})
	}
}

func TestFlushQueue_EmptyQueueIsCheapSuccess(t *testing.T) {
	adapter := &mockAdapter{name: "watchlist"}
	h := newHarness(t, true, true, true, adapter)

	res := h.orch.FlushQueue(context.Background(), "manual")

	if !res.Success || res.QueueSize != 0 {
		t.Errorf("flush = %+v", res)
	}
	if adapter.pullCalls != 0 {
		t.Error("adapter invoked with empty queue")
	}
}

func TestSyncAll_IndependentDomains(t *testing.T) {
	good := &mockAdapter{name: "watchlist", pulled: 2, pushed: 2}
	bad := &mockAdapter{name: "watchProgress", pullErr: errors.New("down")}
	also := &mockAdapter{name: "preferences", pulled: 1}
	h := newHarness(t, true, true, true, good, bad, also)

	all := h.orch.SyncAll(context.Background())

	if all.Success {
		t.Error("SyncAll success despite failed domain")
	}
	if len(all.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(all.Results))
	}
	if !all.Results["watchlist"].Success || !all.Results["preferences"].Success {
		t.Error("healthy domains failed")
	}
	if also.pullCalls != 1 {
		t.Error("failure in one domain blocked another")
	}
}

func TestSyncAll_Skipped(t *testing.T) {
	adapter := &mockAdapter{name: "watchlist"}
	h := newHarness(t, false, true, true, adapter)

	all := h.orch.SyncAll(context.Background())
	if all.Skipped != domain.SkipOffline {
		t.Errorf("skipped = %q, want offline", all.Skipped)
	}
	if adapter.pullCalls != 0 {
		t.Error("adapter invoked while offline")
	}
}

func TestPullDomain_SuccessAndFailure(t *testing.T) {
	adapter := &mockAdapter{name: "watchlist", pulled: 4}
	h := newHarness(t, true, true, true, adapter)

	res := h.orch.PullDomain(context.Background(), "watchlist")
	if !res.Success || res.Pulled != 4 {
		t.Errorf("result = %+v", res)
	}
	if adapter.pushCalls != 0 {
		t.Error("push invoked on invalidation pull")
	}
	if h.status.Snapshot().LastSyncedAt.IsZero() {
		t.Error("lastSyncedAt not stamped")
	}

	adapter.pullErr = errors.New("gone")
	res = h.orch.PullDomain(context.Background(), "watchlist")
	if res.Success {
		t.Error("pull success despite error")
	}
	if h.status.Snapshot().LastError == "" {
		t.Error("lastError not recorded")
	}
}

func TestPullDomain_SkippedOffline(t *testing.T) {
	adapter := &mockAdapter{name: "watchlist"}
	h := newHarness(t, false, true, true, adapter)

	res := h.orch.PullDomain(context.Background(), "watchlist")
	if res.Success || adapter.pullCalls != 0 {
		t.Errorf("offline pull ran: %+v, calls=%d", res, adapter.pullCalls)
	}
}
