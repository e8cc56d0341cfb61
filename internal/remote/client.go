// Package remote implements the HTTP client for the authoritative store.
//
// Pulls are GETs of a domain's full state for the authenticated user;
// pushes are bulk PUT upserts keyed by the domain's natural key, so
// repeating a push is harmless. Conflict resolution on the store is a
// plain last-writer-wins upsert; the client sends no version metadata.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"golang.org/x/time/rate"

	"github.com/sofa-labs/couchsync/internal/domain"
	"github.com/sofa-labs/couchsync/internal/ports"
)

const syncEndpoint = "/v1/sync/"

// StatusError is a non-2xx response from the remote store.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote store returned %d: %s", e.StatusCode, e.Body)
}

// Client talks to the remote sync API.
type Client struct {
	baseURL string
	http    ports.HTTPClient
	session ports.SessionSource
	limiter *rate.Limiter
	logger  ports.Logger
}

// NewClient creates a client for the store at baseURL. A trailing slash
// on baseURL is tolerated. The limiter bounds total request rate so
// realtime-driven pull storms cannot hammer the API; pass nil to disable.
func NewClient(baseURL string, httpClient ports.HTTPClient, session ports.SessionSource, limiter *rate.Limiter, logger ports.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		session: session,
		limiter: limiter,
		logger:  logger,
	}
}

// pullEnvelope matches the GET response body.
type pullEnvelope struct {
	Items json.RawMessage `json:"items"`
}

// pushEnvelope is the PUT request body. ConflictKey names the upsert
// uniqueness constraint the store applies.
type pushEnvelope struct {
	ConflictKey []string    `json:"conflict_key"`
	Items       interface{} `json:"items"`
}

// pushReceipt matches the PUT response body.
type pushReceipt struct {
	Upserted int `json:"upserted"`
}

// Pull fetches the authoritative state for one domain and decodes the
// items into out, which must be a pointer to a slice.
func (c *Client) Pull(ctx context.Context, domainName string, out interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, domainName, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	var envelope pullEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s pull response: %w", domainName, err)
	}
	if len(envelope.Items) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Items, out); err != nil {
		return fmt.Errorf("decode %s items: %w", domainName, err)
	}
	return nil
}

// Push bulk-upserts items for one domain. Returns the number of records
// the store reports as upserted; stores that omit the receipt body get
// credited with the number of items sent, since a 2xx means the upsert
// committed.
func (c *Client) Push(ctx context.Context, domainName string, conflictKey []string, items interface{}) (int, error) {
	body, err := json.Marshal(pushEnvelope{ConflictKey: conflictKey, Items: items})
	if err != nil {
		return 0, fmt.Errorf("marshal %s push body: %w", domainName, err)
	}

	resp, err := c.do(ctx, http.MethodPut, domainName, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return 0, err
	}

	var receipt pushReceipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		// Body is advisory; the upsert already committed.
		return itemCount(items), nil
	}
	return receipt.Upserted, nil
}

func itemCount(items interface{}) int {
	v := reflect.ValueOf(items)
	if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
		return v.Len()
	}
	return 0
}

func (c *Client) do(ctx context.Context, method, domainName string, body io.Reader) (*http.Response, error) {
	sess, ok := c.session.Current()
	if !ok {
		return nil, domain.ErrNoSession
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	url := c.baseURL + syncEndpoint + domainName
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", domainName, err)
	}
	req.Header.Set("Authorization", "Bearer "+sess.Token.AccessToken)
	req.Header.Set("X-Sync-User-Id", sess.UserID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, domainName, err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode/100 == 2 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
