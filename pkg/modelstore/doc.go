// Package modelstore maps declarative table descriptors onto tables in an
// embedded relational database, with automatic schema migration, keyed
// and predicate reads, upsert writes, deletes, and change notification.
//
// # Execution model
//
// Every handle owns one execution goroutine. All operations — including
// first-use migration — are units of work on that goroutine's FIFO queue,
// so access to one handle is strictly serialized in submission order.
// Model types and callers on any goroutine share a handle safely by
// funneling through it.
//
// # Resolution
//
// A table migrates at most once per handle: the first operation (or an
// explicit Resolve) introspects the live table, diffs it against the
// descriptor, and applies additive DDL in one transaction. Migration
// never drops or narrows an existing column; an irreconcilable table
// fails with a schema error and stays unresolved. One table's failure
// does not affect other tables on the same handle.
//
// # Calling conventions
//
// Each operation has an asynchronous form taking a completion callback,
// invoked exactly once — usually on the execution goroutine — and a
// blocking ...Sync form that submits the asynchronous form and waits.
// A nil completion is allowed on every operation; the work still runs
// and its result is discarded.
//
// The synchronous wrappers carry one hard contract: they must never be
// called on the execution goroutine itself, i.e. from inside a
// completion callback. The executor is single-threaded, so the wrapper
// would block on a completion only the blocked goroutine could deliver.
// This is not detected at runtime; nested work from a completion must
// use the asynchronous forms.
//
// # Change events
//
// After a write or delete commits, the handle publishes a Change naming
// the table and the affected primary-key values. Events are broadcast
// fire-and-forget to the handle's sink, in executor order, and never
// before commit or on rollback.
package modelstore
