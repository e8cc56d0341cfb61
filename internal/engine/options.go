package engine

import (
	"net/http"

	"github.com/sofa-labs/couchsync/internal/ports"
)

// Option configures optional behavior of the Engine.
type Option func(*options)

// options holds the optional configuration for an Engine instance.
type options struct {
	httpClient   ports.HTTPClient
	logger       ports.Logger
	eventHandler EventHandler
}

// defaultOptions returns options with sensible defaults.
func defaultOptions(client *http.Client) options {
	return options{
		httpClient: client,
	}
}

// WithHTTPClient sets a custom HTTP client for remote communication.
// If not provided, a default client with the configured timeout is used.
func WithHTTPClient(client ports.HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger ports.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for lifecycle state changes.
// The handler is called synchronously from the transitioning goroutine.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// EventHandler receives lifecycle state change events.
type EventHandler interface {
	OnStateChange(previous, current State, reason string)
}

// eventEmitterWrapper adapts EventHandler to the lifecycle emitter.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(previous, current, reason)
}
