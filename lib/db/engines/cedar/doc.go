// Package cedar implements the reference db.Engine: an in-memory
// key-value store with named, optimistic, interactive transactions and
// conflict detection on commit. Clients stage reads and writes against
// a caller-supplied transaction ID and attempt to commit; concurrent
// commits of overlapping transactions are serialized per key, the
// first to finish validation publishes its effects, later ones whose
// snapshots no longer match abort cleanly.
//
// Key Components:
//
//   - cedarImpl: The engine structure. It owns the store (a map from
//     key to cell behind an RWMutex that guards structural mutation
//     only) and the transaction table (an xsync.MapOf from transaction
//     ID to transaction, whose atomic LoadOrStore/Delete operations
//     provide the begin-uniqueness and removal guarantees).
//
//   - internal.Cell: The store-side record for one key. Each cell
//     carries the committed value, a liveness flag, and two mutexes: a
//     write mutex serializing publication and a read mutex serializing
//     readers against publication. Writers hold both, readers only the
//     read mutex. A tombstoned cell (liveness false) is invisible to
//     every public read path and pending physical removal.
//
//   - internal.Transaction / internal.Instruction: The staged
//     write-set. Each staged key holds exactly one instruction with a
//     snapshot of the committed value taken at first touch (absent if
//     no live cell existed), the pending final value, and the kind
//     (put or erase). Re-staging updates value and kind but never the
//     snapshot.
//
//   - internal.EventQueue: A lock-free MPSC queue carrying commit,
//     abort and rollback events to the Watch channel when events are
//     enabled via Options.
//
// Commit Protocol:
//
// Commit runs under the transaction's guard in four passes over the
// staged keys, always in ascending byte order:
//
//  1. Locking pass: acquire the write lock of every staged key that
//     currently has a live cell. Because every committer iterates in
//     the same total order, two concurrent commits can never hold one
//     lock each of a pair and wait crosswise, so commits are
//     deadlock-free by construction.
//
//  2. Validation pass: each captured snapshot must still match the
//     store (absent/absent, or present with byte-equal value). Keys
//     locked in pass 1 cannot change underneath the comparison.
//
//  3. Apply pass: keys that were absent at snapshot time carry no
//     lock, so their final existence check and inserts happen as one
//     atomic group under the store guard; when two commits race over
//     an overlapping set of fresh keys, exactly one inserts and the
//     other aborts. Locked keys then apply without any failure mode:
//     puts overwrite under the cell's read lock, erases tombstone the
//     cell. A conflict found in either pass publishes nothing.
//
//  4. Release pass: write locks are released in reverse acquisition
//     order, and every cell this commit tombstoned is physically
//     removed from the store after its lock is free. Only locks taken
//     in pass 1 are released, including on the abort path, so a
//     conflicted commit leaves no lock behind.
//
// The transaction is removed from the table either way; a conflicted
// commit reports RetCConflictAborted after the store is back to a
// fully released state.
//
// Isolation level: the engine validates the write set only. A value
// read through GetTx but never written by the transaction does not
// participate in conflict detection, and non-transactional readers see
// per-key (not cross-key) atomicity of a concurrent commit.
//
// SetIfUnset shares the apply pass's insert discipline: its existence
// check and insert run in one critical section of the store guard, so
// it composes correctly with racing commits and serves as the
// engine's compare-and-set primitive (the lock manager builds on it).
//
// The liveness flags on cells and transactions let an operation that
// already holds a reference detect concurrent tear-down without
// taking a lock on a resource that is about to disappear: each public
// operation tests liveness before acquiring the relevant guard and
// repeats the test after holding it.
package cedar
