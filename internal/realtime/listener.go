// Package realtime subscribes to the remote store's change feed.
//
// One websocket subscription per domain. An incoming event only ever
// triggers a re-pull of its domain; the event payload is never applied
// directly, so there is exactly one parser for the remote schema (the
// pull path). Channel loss degrades the engine to polling triggers
// (debounce, reconnect, manual); it never stops them.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/sofa-labs/couchsync/internal/domain"
	"github.com/sofa-labs/couchsync/internal/ports"
	"github.com/sofa-labs/couchsync/internal/scheduler"
	"github.com/sofa-labs/couchsync/internal/status"
)

const realtimeEndpoint = "/v1/realtime"

// changeEvent is the wire shape of one change notification. Only the
// domain matters; everything else is advisory logging context.
type changeEvent struct {
	Domain string `json:"domain"`
	Kind   string `json:"kind,omitempty"`
}

// Listener maintains one subscription per domain.
type Listener struct {
	baseURL    string
	domains    []string
	session    ports.SessionSource
	invalidate func(domainName string)
	status     *status.Broadcaster
	logger     ports.Logger

	subscribed atomic.Int32
}

// New creates a listener for the given domains. invalidate is called
// from listener goroutines with the domain to re-pull; it must not
// block.
func New(baseURL string, domains []string, session ports.SessionSource, st *status.Broadcaster, logger ports.Logger, invalidate func(string)) *Listener {
	return &Listener{
		baseURL:    baseURL,
		domains:    domains,
		session:    session,
		invalidate: invalidate,
		status:     st,
		logger:     logger,
	}
}

// Run opens all subscriptions and keeps them alive with jittered
// backoff until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, domainName := range l.domains {
		wg.Add(1)
		go func(d string) {
			defer wg.Done()
			l.runDomain(ctx, d)
		}(domainName)
	}
	wg.Wait()
}

func (l *Listener) runDomain(ctx context.Context, domainName string) {
	backoff := scheduler.NewBackoff(time.Second, time.Minute)

	for ctx.Err() == nil {
		conn, err := l.dial(ctx, domainName)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.logger.Debug("realtime dial failed",
				ports.String("domain", domainName),
				ports.Err(err),
			)
			if backoff.Wait(ctx) != nil {
				return
			}
			continue
		}

		backoff.Reset()
		l.markSubscribed(true)
		err = l.readLoop(ctx, conn, domainName)
		l.markSubscribed(false)
		conn.Close(websocket.StatusNormalClosure, "")

		if ctx.Err() != nil {
			return
		}
		l.logger.Warn("realtime channel dropped",
			ports.String("domain", domainName),
			ports.Err(err),
		)
		if backoff.Wait(ctx) != nil {
			return
		}
	}
}

func (l *Listener) dial(ctx context.Context, domainName string) (*websocket.Conn, error) {
	sess, ok := l.session.Current()
	if !ok {
		return nil, domain.ErrNoSession
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+sess.Token.AccessToken)
	header.Set("X-Sync-User-Id", sess.UserID)

	dialURL := l.baseURL + realtimeEndpoint + "?domain=" + url.QueryEscape(domainName)
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, resp, err := websocket.Dial(dialCtx, dialURL, &websocket.DialOptions{HTTPHeader: header})
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

// readLoop consumes change events until the connection dies.
func (l *Listener) readLoop(ctx context.Context, conn *websocket.Conn, domainName string) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var ev changeEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			l.logger.Debug("realtime event malformed",
				ports.String("domain", domainName),
				ports.Err(err),
			)
			continue
		}

		// The event is a trigger, not a data source: always re-pull the
		// subscribed domain regardless of the payload.
		l.logger.Debug("realtime invalidation",
			ports.String("domain", domainName),
			ports.String("kind", ev.Kind),
		)
		l.invalidate(domainName)
	}
}

// markSubscribed tracks channel health. Connected means every domain
// subscription is up; anything less reports as disconnected.
func (l *Listener) markSubscribed(up bool) {
	var count int32
	if up {
		count = l.subscribed.Add(1)
	} else {
		count = l.subscribed.Add(-1)
	}
	l.status.SetConnected(count == int32(len(l.domains)))
}
