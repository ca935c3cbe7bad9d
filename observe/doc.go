// Package observe layers change notification on top of a persistent keyed
// state tree. It is the nervous system of a statewatch application: cursors
// hand out cheap handles into a single shared root value, and whenever the
// root is replaced by a new version the dispatcher works out which registered
// listeners care and invokes each at most once.
//
// # Architecture
//
// The package is built from three cooperating pieces:
//
//   - Structure owns the current root version (a *tree.Map behind a mutex)
//     and the listener tree shared by every cursor derived from it.
//   - Cursor is a keypath-bound handle exposing reads, writes and the
//     subscription API (On, Once, RemoveListener, RemoveListeners, Observe,
//     Unobserve). Subscriptions are anchored to keypaths, not cursor
//     instances: any cursor over the same Structure sees them.
//   - The dispatcher walks the listener tree against the old and new root
//     versions. Ancestor listeners along the changed keypath fire first,
//     then a recursive diff fans out to descendant listeners below the
//     mutation point. Reference-identical subtrees are skipped wholesale,
//     which is what keeps dispatch proportional to the change rather than
//     to the size of the state.
//
// # Events
//
// Every fired notification is classified from the presence of the old and
// new values at a node: add (only new), delete (only old), update (both,
// not identical). Listeners registered for "any" receive all three; the
// Change passed to the callback carries the concrete classification.
//
// # Traversal strategies
//
// At each diff step the dispatcher chooses between iterating the data
// entries or iterating the listener children, whichever is smaller. The
// choice affects cost only, never the set of listeners invoked; it can be
// pinned with WithStrategy for testing or tuning.
//
// # Concurrency
//
// Dispatch is synchronous: a mutation through a cursor returns only after
// every affected listener has run on the caller's goroutine. The listener
// tree is mutex-guarded, and the dispatcher snapshots the registrations to
// invoke before calling any of them, so callbacks may register and remove
// listeners freely. Callbacks must not synchronously mutate the same
// Structure; the package does not guard against re-entrant dispatch.
//
// Callback panics are not recovered: a panicking listener aborts the
// remainder of the dispatch and propagates to the mutating caller.
package observe
