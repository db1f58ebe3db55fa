package db

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplCedar Implementation = "cedar"
)

// Feature represents engine features as bit flags
type Feature uint64

const (
	FeatureSet          Feature = 1 << iota // Support for Set operations
	FeatureSetIfUnset                       // Support for SetIfUnset operations
	FeatureGet                              // Support for Get operations
	FeatureHas                              // Support for Has operations
	FeatureDelete                           // Support for Delete operations
	FeatureTransactions                     // Support for Begin/SetTx/GetTx/DeleteTx/Rollback/Commit
	FeatureWatch                            // Support for commit event notification
	FeatureInfo                             // Support for GetInfo
)

func (f Feature) String() string {
	switch f {
	case FeatureSet:
		return "Set"
	case FeatureSetIfUnset:
		return "SetIfUnset"
	case FeatureGet:
		return "Get"
	case FeatureHas:
		return "Has"
	case FeatureDelete:
		return "Delete"
	case FeatureTransactions:
		return "Transactions"
	case FeatureWatch:
		return "Watch"
	case FeatureInfo:
		return "Info"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Event Type (commit notifications)
// --------------------------------------------------------------------------

type EventType int

const (
	EventTCommit EventType = iota
	EventTAbort
	EventTRollback
)

func (e EventType) String() string {
	switch e {
	case EventTCommit:
		return "Commit"
	case EventTAbort:
		return "Abort"
	case EventTRollback:
		return "Rollback"
	default:
		return "Unknown"
	}
}

// Event describes the outcome of one transaction as observed through
// the Watch channel. Keys holds the staged keys in the order the
// commit pass visited them; it is empty for transactions that never
// staged anything.
type Event struct {
	Type EventType
	TxID string
	Keys []string
}

// --------------------------------------------------------------------------
// Engine Info
// --------------------------------------------------------------------------

type EngineInfo struct {
	Keys               int            `json:"keys"`
	ActiveTransactions int            `json:"active_transactions"`
	DbType             Implementation `json:"db_type"`
	SupportedFeatures  []Feature      `json:"supported_features"`
	Metadata           interface{}    `json:"metadata"`
}

// --------------------------------------------------------------------------
// Engine Interface
// --------------------------------------------------------------------------

// Engine defines the interface for the transactional key-value store.
// It provides point reads and writes against the committed state, and
// named interactive transactions with optimistic conflict detection:
// writes made under a transaction ID are staged privately and only
// published by Commit, which fails if any staged key changed since the
// transaction first touched it.
//
// Transaction IDs are caller supplied. An ID is live from Begin until
// Rollback or Commit removes it; afterwards it may be reused.
// Implementations can vary in their feature support, which can be
// queried with SupportsFeature.
type Engine interface {

	// --------------------------------------------------------------------------
	// Non-Transactional Operations
	// --------------------------------------------------------------------------

	// Set inserts or updates an entry with the given key and value.
	// Writing to a key whose cell is being torn down by a concurrent
	// committed erase or Delete fails with RetCZombieKey. A post-write
	// recheck that finds the value already replaced by a concurrent
	// writer reports RetCInternalError.
	Set(key string, value []byte) (err error)

	// SetIfUnset inserts an entry with the given key and value only
	// if the key does not exist. The boolean reports whether the
	// value was stored; an existing entry is left untouched and is
	// not an error. The check and the insert are a single atomic
	// step, which makes this the engine's compare-and-set primitive.
	SetIfUnset(key string, value []byte) (stored bool, err error)

	// Get retrieves the value for a key. The boolean return value
	// indicates whether a value for the key was found. The returned
	// slice is a copy owned by the caller.
	Get(key string) (value []byte, loaded bool, err error)

	// Has checks whether a live entry exists for the key without
	// copying its value.
	Has(key string) (loaded bool, err error)

	// Delete removes the entry for the key. Deleting a missing key is
	// not an error (idempotent).
	Delete(key string) (err error)

	// --------------------------------------------------------------------------
	// Transactional Operations
	// --------------------------------------------------------------------------

	// SetTx stages a write of key=value inside the transaction txID.
	// The value is not visible outside the transaction until Commit.
	// Fails with RetCNoSuchTransaction if txID is unknown or torn down.
	SetTx(key string, value []byte, txID string) (err error)

	// GetTx reads key as seen by the transaction txID: a staged write
	// is returned, a staged erase reads as absent, and an untouched
	// key falls through to the committed state.
	GetTx(key string, txID string) (value []byte, loaded bool, err error)

	// DeleteTx marks an already-staged key as erased inside the
	// transaction. A key the transaction has not touched is left
	// alone, and an unknown txID is ignored; both are silent no-ops.
	DeleteTx(key string, txID string) (err error)

	// Begin creates a new empty transaction under txID.
	// Fails with RetCDuplicateTransaction if txID is already active.
	Begin(txID string) (err error)

	// Rollback discards all staged state of txID and invalidates it.
	// Fails with RetCNoSuchTransaction if txID is unknown.
	Rollback(txID string) (err error)

	// Commit validates every staged key against the snapshot taken
	// when the transaction first touched it and, if all match,
	// atomically publishes the staged writes and erases. On any
	// mismatch the whole transaction fails with RetCConflictAborted.
	// Either way txID is removed from the active set.
	Commit(txID string) (err error)

	// --------------------------------------------------------------------------
	// Introspection
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the engine implementation supports the
	// specified feature. Multiple features can be checked at once
	// using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the engine.
	GetInfo() (info EngineInfo, err error)

	// Watch returns the commit event stream, or nil if the engine was
	// created without event support. The channel is closed by Close.
	Watch() <-chan Event

	// Close shuts the engine down.
	Close() (err error)
}
