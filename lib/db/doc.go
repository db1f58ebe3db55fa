// Package db defines the interface for the tKV transactional key-value
// engine. It describes the operations every engine implementation must
// provide and the error taxonomy those operations report.
//
// The package focuses on:
//   - A unified interface for point reads and writes (Set, SetIfUnset,
//     Get, Has, Delete)
//   - Named interactive transactions with optimistic conflict detection
//     (Begin, SetTx, GetTx, DeleteTx, Rollback, Commit)
//   - Feature discovery through capability flags
//   - A typed error system with stable return codes
//
// Key Components:
//
//   - Engine Interface: The core interface that all engine
//     implementations must satisfy. Transactions are identified by
//     caller-supplied string IDs. Writes made under a transaction are
//     staged privately; Commit publishes them atomically or fails with
//     RetCConflictAborted when another writer changed a staged key in
//     the meantime.
//
//   - Error System: All operations return *Error values carrying a
//     RetCode. The four codes that matter to callers are
//     RetCDuplicateTransaction, RetCNoSuchTransaction, RetCZombieKey
//     and RetCConflictAborted; CodeOf classifies any error. Errors are
//     never recovered internally, with one exception: a commit that
//     loses the race against a concurrent rollback of the same
//     transaction resolves as a no-op success.
//
//   - Feature Flags: The Feature type defines capability flags that
//     implementations can advertise through the SupportsFeature
//     method. This allows clients to discover supported operations at
//     runtime.
//
//   - Events: Engines that support FeatureWatch expose a stream of
//     Event values describing committed, aborted and rolled-back
//     transactions via the Watch method.
//
// Semantics worth calling out:
//
//   - Snapshots are per written key, not per transaction. A
//     transaction records the committed value of a key the first time
//     it stages that key; Commit validates only those recorded
//     snapshots. Reads through GetTx of keys the transaction never
//     writes do not participate in conflict detection.
//
//   - DeleteTx only flips an already-staged key to an erase. Erasing a
//     key the transaction has not touched is a silent no-op, as is
//     calling it with an unknown transaction ID. This mirrors the
//     interface contract of Delete, which is idempotent and cannot
//     fail on missing keys.
//
//   - SetIfUnset is the conditional write: the existence check and
//     the insert are one atomic step. Coordination patterns that
//     would otherwise need a read followed by a transactional write
//     (and could be outrun between the two) build on it.
//
//   - Values returned by Get and GetTx are independent copies owned
//     by the caller.
//
// Related Packages:
//
// The engines/cedar package (github.com/tkv-io/tkv/lib/db/engines/cedar)
// provides the reference implementation: an in-memory store with
// per-cell locking and a deadlock-free, sorted two-pass commit
// protocol.
//
// The testing package (github.com/tkv-io/tkv/lib/db/testing) provides a
// standardized test suite and benchmarks for engine implementations.
package db
