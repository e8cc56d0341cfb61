// Package ports defines the interfaces that connect the sync core to
// infrastructure adapters.
//
// The core (queue, orchestrator, scheduler, status) depends only on these
// interfaces. Concrete implementations live under internal/adapters,
// internal/domains, internal/remote, internal/session and internal/netmon.
//
//   - [DomainAdapter]: pull/push for one synchronized domain
//   - [QueueRepository]: durable persistence of the pending-mutation queue
//   - [SyncRunner]: the orchestrator surface the scheduler drives
//   - [SessionSource]: the authenticated identity consumed from outside
//   - [ConnectivitySource]: network reachability
//   - [Logger]: structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// The separation keeps the core testable with hand-rolled mocks and keeps
// the dependency direction pointing inward.
package ports
