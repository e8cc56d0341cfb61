// Package domain contains the core types of the sync engine: queue
// entries, the status snapshot, per-domain sync results, and the trigger
// events consumed by the flush scheduler.
//
// Types here carry no behavior beyond simple accessors and hold no
// references to infrastructure. Everything else in the engine depends on
// this package; it depends on nothing but the standard library and the
// uuid generator.
package domain
