package domain

// TriggerKind identifies what woke the flush scheduler.
type TriggerKind int

const (
	// TriggerDebounce arms (or re-arms) the debounce timer after a local
	// enqueue; a burst of mutations collapses into one flush.
	TriggerDebounce TriggerKind = iota

	// TriggerReconnect fires on an offline-to-online transition and
	// flushes immediately, cancelling any pending debounce.
	TriggerReconnect

	// TriggerManual is an explicit caller request ("Sync Now"). It runs
	// immediately, cancels any pending debounce, and carries a reply
	// channel for the result.
	TriggerManual

	// TriggerInvalidate is a realtime change notification for one
	// domain. It re-pulls that domain; the event is never a data source.
	TriggerInvalidate
)

// String returns a human-readable trigger name used as the flush reason.
func (k TriggerKind) String() string {
	switch k {
	case TriggerDebounce:
		return "debounce"
	case TriggerReconnect:
		return "reconnect"
	case TriggerManual:
		return "manual"
	case TriggerInvalidate:
		return "invalidate"
	default:
		return "unknown"
	}
}

// Trigger is one event on the scheduler's coordinator loop.
type Trigger struct {
	Kind TriggerKind

	// Domain is set only for TriggerInvalidate.
	Domain string

	// Reason overrides the default flush reason for manual triggers.
	Reason string

	// Reply, when non-nil, receives the flush result exactly once.
	Reply chan FlushResult
}
