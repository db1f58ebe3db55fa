package cedar

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/tkv-io/tkv/lib/db"
	"github.com/tkv-io/tkv/lib/db/engines/cedar/internal"
)

// --------------------------------------------------------------------------
// Core Cedar engine structure
// --------------------------------------------------------------------------

// cedarImpl implements the db.Engine interface with an in-memory store
// guarded per cell and optimistic, snapshot-validated commits.
type cedarImpl struct {
	// store: key -> cell. The mutex guards structural mutation of the
	// map only; a cell pointer obtained under it stays valid after
	// release. Never acquire a cell lock while holding this mutex.
	mu    sync.RWMutex
	cells map[string]*internal.Cell

	// transaction table: id -> transaction. The map's own atomic
	// operations serve as the table guard (uniqueness on Begin,
	// single removal on Rollback/Commit).
	txns *xsync.MapOf[string, *internal.Transaction]

	events *internal.EventQueue // nil unless enabled
	closed atomic.Bool

	// operation counters
	setsTotal      *metrics.Counter
	getsTotal      *metrics.Counter
	deletesTotal   *metrics.Counter
	beginsTotal    *metrics.Counter
	commitsTotal   *metrics.Counter
	conflictsTotal *metrics.Counter
	rollbacksTotal *metrics.Counter
}

// Options configures the cedar engine during initialization.
type Options struct {
	// EnableEvents turns on the Watch event stream. The stream must
	// then be drained; an unread stream backs up in memory.
	EnableEvents bool
}

// DefaultOptions returns the default cedar options.
func DefaultOptions() *Options {
	return &Options{
		EnableEvents: false,
	}
}

// New creates a new cedar engine with the specified options (optional).
//
// Thread-safety: This function is not thread-safe and should only be
// called once during initialization.
func New(opts *Options) db.Engine {
	if opts == nil {
		opts = DefaultOptions()
	}

	engine := &cedarImpl{
		cells: make(map[string]*internal.Cell),
		txns:  xsync.NewMapOf[string, *internal.Transaction](),

		setsTotal:      counter("sets"),
		getsTotal:      counter("gets"),
		deletesTotal:   counter("deletes"),
		beginsTotal:    counter("begins"),
		commitsTotal:   counter("commits"),
		conflictsTotal: counter("conflicts"),
		rollbacksTotal: counter("rollbacks"),
	}

	if opts.EnableEvents {
		engine.events = internal.NewEventQueue()
	}

	return engine
}

func counter(op string) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`tkv_%s_total{engine="cedar"}`, op))
}

// --------------------------------------------------------------------------
// Store Helpers
// --------------------------------------------------------------------------

// cloneBytes copies value so staged and published data never alias
// caller memory.
func cloneBytes(value []byte) []byte {
	clone := make([]byte, len(value))
	copy(clone, value)
	return clone
}

// cell returns the cell stored under key, tombstoned or not.
func (c *cedarImpl) cell(key string) (*internal.Cell, bool) {
	c.mu.RLock()
	cell, ok := c.cells[key]
	c.mu.RUnlock()
	return cell, ok
}

// liveCell returns the cell stored under key only if it is alive.
func (c *cedarImpl) liveCell(key string) (*internal.Cell, bool) {
	if cell, ok := c.cell(key); ok && cell.Alive() {
		return cell, true
	}
	return nil, false
}

// readCommitted copies the current committed value of key, if any.
func (c *cedarImpl) readCommitted(key string) ([]byte, bool) {
	cell, ok := c.liveCell(key)
	if !ok {
		return nil, false
	}
	cell.ReadMu.Lock()
	if !cell.Alive() {
		// tombstoned while we waited for the lock
		cell.ReadMu.Unlock()
		return nil, false
	}
	value := cloneBytes(cell.Value)
	cell.ReadMu.Unlock()
	return value, true
}

// removeCell deletes key from the store if it still maps to cell. The
// identity check keeps a stale eraser from removing a successor cell
// inserted under the same key.
func (c *cedarImpl) removeCell(key string, cell *internal.Cell) {
	c.mu.Lock()
	if c.cells[key] == cell {
		delete(c.cells, key)
	}
	c.mu.Unlock()
}

func (c *cedarImpl) emit(event db.Event) {
	if c.events != nil {
		c.events.Push(event)
	}
}

func errNoSuchTransaction(txID string) error {
	return db.NewErrorf(db.RetCNoSuchTransaction, "no existing transaction with name %q", txID)
}

// --------------------------------------------------------------------------
// Engine Interface Methods - Non-Transactional Operations
// --------------------------------------------------------------------------

// Set inserts or updates the entry for key. An existing cell is
// overwritten under its write and read lock pair; a missing cell is
// inserted under the store guard. Writing to a tombstoned cell fails
// with RetCZombieKey.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *cedarImpl) Set(key string, value []byte) error {
	c.setsTotal.Inc()

	staged := cloneBytes(value)

	cell, ok := c.cell(key)
	if !ok {
		c.mu.Lock()
		cell, ok = c.cells[key]
		if !ok {
			cell = internal.NewCell(staged)
			c.cells[key] = cell
			c.mu.Unlock()
			return nil
		}
		c.mu.Unlock() // lost the insert race, fall through to overwrite
	}

	if !cell.Alive() {
		return db.NewErrorf(db.RetCZombieKey, "set failed on key %q: zombie key", key)
	}

	cell.LockPair()
	if !cell.Alive() {
		// a committed erase or a Delete tombstoned the cell while we waited
		cell.UnlockPair()
		return db.NewErrorf(db.RetCZombieKey, "set failed on key %q: zombie key", key)
	}
	cell.Value = staged
	cell.UnlockPair()

	// Recheck that our publication stuck. Only a concurrent writer
	// interleaving after the unlock can make this fire.
	cell.WriteMu.Lock()
	stuck := bytes.Equal(cell.Value, staged)
	cell.WriteMu.Unlock()
	if !stuck {
		return db.NewErrorf(db.RetCInternalError, "set failed on key %q: could not complete", key)
	}
	return nil
}

// SetIfUnset inserts the entry for key only if no cell exists under
// it. The existence check and the insert share one critical section
// of the store guard, so two racing callers can never both store. A
// tombstoned cell counts as existing for the short span until its
// eraser removes it.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *cedarImpl) SetIfUnset(key string, value []byte) (bool, error) {
	c.setsTotal.Inc()

	staged := cloneBytes(value)

	c.mu.Lock()
	if _, ok := c.cells[key]; ok {
		c.mu.Unlock()
		return false, nil
	}
	c.cells[key] = internal.NewCell(staged)
	c.mu.Unlock()
	return true, nil
}

// Get retrieves a copy of the value for key. The boolean indicates
// whether a live entry was found.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *cedarImpl) Get(key string) ([]byte, bool, error) {
	c.getsTotal.Inc()
	value, ok := c.readCommitted(key)
	return value, ok, nil
}

// Has checks whether a live entry exists for key without copying it.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *cedarImpl) Has(key string) (bool, error) {
	_, ok := c.liveCell(key)
	return ok, nil
}

// Delete removes the entry for key. Deleting a missing key is a no-op.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *cedarImpl) Delete(key string) error {
	c.deletesTotal.Inc()

	cell, ok := c.liveCell(key)
	if !ok {
		return nil
	}

	cell.LockPair()
	if !cell.Alive() {
		// someone else erased it first, nothing left to do
		cell.UnlockPair()
		return nil
	}
	cell.Kill()
	cell.UnlockPair()
	c.removeCell(key, cell)
	return nil
}

// --------------------------------------------------------------------------
// Engine Interface Methods - Transactional Operations
// --------------------------------------------------------------------------

// SetTx stages a write of key=value inside txID. Re-staging a key
// updates the pending value and kind but leaves the snapshot taken at
// first touch untouched.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *cedarImpl) SetTx(key string, value []byte, txID string) error {
	txn, ok := c.txns.Load(txID)
	if !ok || !txn.Alive() {
		return errNoSuchTransaction(txID)
	}

	txn.Mu.Lock()
	defer txn.Mu.Unlock()
	if !txn.Alive() {
		return errNoSuchTransaction(txID)
	}

	if inst, staged := txn.Instructions[key]; staged {
		inst.Final = cloneBytes(value)
		inst.Kind = internal.KindPut
		return nil
	}

	inst := &internal.Instruction{
		Key:   key,
		Final: cloneBytes(value),
		Kind:  internal.KindPut,
	}
	if initial, loaded := c.readCommitted(key); loaded {
		inst.Initial = initial
		inst.HasInitial = true
	}
	txn.Instructions[key] = inst
	return nil
}

// GetTx reads key as seen by txID: staged writes are visible, staged
// erases read as absent, untouched keys fall through to the committed
// state.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *cedarImpl) GetTx(key string, txID string) ([]byte, bool, error) {
	txn, ok := c.txns.Load(txID)
	if !ok || !txn.Alive() {
		return nil, false, db.NewErrorf(db.RetCNoSuchTransaction,
			"cannot get %q from transaction %q: transaction not existing", key, txID)
	}

	txn.Mu.Lock()
	if !txn.Alive() {
		txn.Mu.Unlock()
		return nil, false, db.NewErrorf(db.RetCNoSuchTransaction,
			"cannot get %q from transaction %q: transaction not existing", key, txID)
	}
	if inst, staged := txn.Instructions[key]; staged {
		defer txn.Mu.Unlock()
		if inst.Kind == internal.KindErase {
			return nil, false, nil
		}
		return cloneBytes(inst.Final), true, nil
	}
	txn.Mu.Unlock()

	return c.Get(key)
}

// DeleteTx flips an already-staged key to an erase. A key the
// transaction never touched is left alone, as is an unknown txID.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *cedarImpl) DeleteTx(key string, txID string) error {
	txn, ok := c.txns.Load(txID)
	if !ok || !txn.Alive() {
		return nil
	}

	txn.Mu.Lock()
	if inst, staged := txn.Instructions[key]; staged && txn.Alive() {
		inst.Kind = internal.KindErase
	}
	txn.Mu.Unlock()
	return nil
}

// Begin creates a new empty transaction under txID.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *cedarImpl) Begin(txID string) error {
	if _, loaded := c.txns.LoadOrStore(txID, internal.NewTransaction()); loaded {
		return db.NewErrorf(db.RetCDuplicateTransaction, "transaction with name %q already exists", txID)
	}
	c.beginsTotal.Inc()
	return nil
}

// Rollback invalidates txID and discards its staged state.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *cedarImpl) Rollback(txID string) error {
	txn, ok := c.txns.Load(txID)
	if !ok || !txn.Alive() {
		return db.NewErrorf(db.RetCNoSuchTransaction, "no transaction %q to rollback", txID)
	}

	txn.Mu.Lock()
	if !txn.Alive() {
		// a concurrent rollback or commit tore it down while we waited
		txn.Mu.Unlock()
		return db.NewErrorf(db.RetCNoSuchTransaction, "no transaction %q to rollback", txID)
	}
	txn.Kill()
	keys := txn.SortedKeys()
	txn.Mu.Unlock()

	c.txns.Delete(txID)
	c.rollbacksTotal.Inc()
	c.emit(db.Event{Type: db.EventTRollback, TxID: txID, Keys: keys})
	return nil
}

// --------------------------------------------------------------------------
// Engine Interface Methods - Commit Protocol
// --------------------------------------------------------------------------

// lockedCell records one write lock taken by the locking pass so the
// release pass unlocks exactly what was acquired.
type lockedCell struct {
	key  string
	cell *internal.Cell
}

// Commit publishes the staged writes of txID, or aborts the
// transaction if any staged key's committed state no longer matches
// the snapshot taken when the transaction first touched it. The
// outcome is all-or-nothing: a conflicted commit publishes none of
// its instructions.
//
// The protocol works in passes over the staging map, all in the same
// ascending key order every committer uses (which is what makes
// concurrent commits deadlock-free):
//
//  1. Locking pass: take the write lock of every staged key that has
//     a live cell. Absent keys have nothing to lock.
//  2. Validation pass: a key that existed at snapshot time must be
//     locked and still carry the snapshot value (its held write lock
//     makes the comparison stable); a key that was absent must still
//     be unlocked.
//  3. Apply pass: keys absent at snapshot time have no lock to pin
//     them, so they are re-checked and inserted as one atomic group
//     under the store guard; a racing committer that inserted any of
//     them first turns the whole commit into a conflict. Locked keys
//     cannot fail anymore: puts overwrite under the cell's read
//     lock, erases tombstone the cell.
//  4. Release pass: unlock in reverse acquisition order, then
//     physically remove every cell this commit tombstoned.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *cedarImpl) Commit(txID string) error {
	txn, ok := c.txns.Load(txID)
	if !ok || !txn.Alive() {
		return db.NewErrorf(db.RetCNoSuchTransaction,
			"cannot commit transaction %q: transaction not existing", txID)
	}

	txn.Mu.Lock()
	defer txn.Mu.Unlock()

	if !txn.Alive() {
		// A concurrent rollback or commit won the race after our
		// admission check; treat it as having run to completion.
		return nil
	}

	keys := txn.SortedKeys()

	// Locking pass.
	locked := make([]lockedCell, 0, len(keys))
	lockedBy := make(map[string]*internal.Cell, len(keys))
	for _, key := range keys {
		if cell, live := c.liveCell(key); live {
			cell.WriteMu.Lock()
			locked = append(locked, lockedCell{key: key, cell: cell})
			lockedBy[key] = cell
		}
	}

	// Validation pass. The staged key conflicts if it was created,
	// removed or overwritten since the snapshot was captured.
	conflict := false
	for _, key := range keys {
		inst := txn.Instructions[key]
		cell, isLocked := lockedBy[key]

		if inst.HasInitial {
			if !isLocked || !bytes.Equal(cell.Value, inst.Initial) {
				conflict = true
				break
			}
		} else if isLocked {
			conflict = true
			break
		}
	}

	// Apply pass, absent keys first: they have no lock pinning them,
	// so the final existence check and every insert happen together
	// under the store guard. Afterwards nothing can fail.
	if !conflict {
		var absent []*internal.Instruction
		for _, key := range keys {
			if inst := txn.Instructions[key]; !inst.HasInitial {
				absent = append(absent, inst)
			}
		}
		if len(absent) > 0 {
			c.mu.Lock()
			for _, inst := range absent {
				if _, exists := c.cells[inst.Key]; exists {
					conflict = true
					break
				}
			}
			if !conflict {
				for _, inst := range absent {
					// an erase staged over a still-missing key has
					// nothing to apply
					if inst.Kind == internal.KindPut {
						c.cells[inst.Key] = internal.NewCell(cloneBytes(inst.Final))
					}
				}
			}
			c.mu.Unlock()
		}
	}

	if !conflict {
		for _, lc := range locked {
			inst := txn.Instructions[lc.key]
			switch inst.Kind {
			case internal.KindPut:
				// The write lock is already held; the read lock
				// orders the publication against readers.
				lc.cell.ReadMu.Lock()
				lc.cell.Value = cloneBytes(inst.Final)
				lc.cell.ReadMu.Unlock()
			case internal.KindErase:
				lc.cell.ReadMu.Lock()
				lc.cell.Kill()
				lc.cell.ReadMu.Unlock()
			}
		}
	}

	// Release pass: reverse acquisition order. A cell that is no
	// longer alive here was tombstoned by this commit (its write lock
	// kept every other eraser out), so remove it from the store once
	// its lock is free.
	for i := len(locked) - 1; i >= 0; i-- {
		lc := locked[i]
		erased := !lc.cell.Alive()
		lc.cell.WriteMu.Unlock()
		if erased {
			c.removeCell(lc.key, lc.cell)
		}
	}

	txn.Kill()
	c.txns.Delete(txID)

	if conflict {
		c.conflictsTotal.Inc()
		c.emit(db.Event{Type: db.EventTAbort, TxID: txID, Keys: keys})
		return db.NewErrorf(db.RetCConflictAborted,
			"transaction %q commits on tampered data: transaction aborted", txID)
	}

	c.commitsTotal.Inc()
	c.emit(db.Event{Type: db.EventTCommit, TxID: txID, Keys: keys})
	return nil
}

// --------------------------------------------------------------------------
// Engine Interface Methods - Introspection
// --------------------------------------------------------------------------

// GetInfo returns statistics about the engine.
func (c *cedarImpl) GetInfo() (db.EngineInfo, error) {
	// Snapshot the cell pointers first; sampling takes per-cell read
	// locks and must not do that while holding the store guard.
	c.mu.RLock()
	cells := make([]*internal.Cell, 0, len(c.cells))
	for _, cell := range c.cells {
		cells = append(cells, cell)
	}
	c.mu.RUnlock()

	histogram := internal.NewSizeHistogram()
	live := 0
	for _, cell := range cells {
		if !cell.Alive() {
			continue
		}
		live++
		cell.ReadMu.Lock()
		histogram.Add(len(cell.Value))
		cell.ReadMu.Unlock()
	}

	activeTxns := 0
	c.txns.Range(func(_ string, txn *internal.Transaction) bool {
		if txn.Alive() {
			activeTxns++
		}
		return true
	})

	meta := &struct {
		Tombstones      int    `json:"tombstones"`
		MedianValueSize int    `json:"median_value_size"`
		AvgValueSize    int    `json:"avg_value_size"`
		EventsEnabled   bool   `json:"events_enabled"`
		Info            string `json:"info"`
	}{
		Tombstones:      len(cells) - live,
		MedianValueSize: histogram.Median(),
		AvgValueSize:    histogram.Average(),
		EventsEnabled:   c.events != nil,
		Info:            "Size values are estimates and may vary depending on the engine state.",
	}

	supportedFeatures := []db.Feature{
		db.FeatureSet, db.FeatureSetIfUnset, db.FeatureGet, db.FeatureHas,
		db.FeatureDelete, db.FeatureTransactions, db.FeatureInfo,
	}
	if c.events != nil {
		supportedFeatures = append(supportedFeatures, db.FeatureWatch)
	}

	return db.EngineInfo{
		Keys:               live,
		ActiveTransactions: activeTxns,
		DbType:             db.ImplCedar,
		SupportedFeatures:  supportedFeatures,
		Metadata:           meta,
	}, nil
}

// SupportsFeature checks if this implementation supports a specific
// Engine feature.
func (c *cedarImpl) SupportsFeature(feature db.Feature) bool {
	supportedFeatures := db.FeatureSet |
		db.FeatureSetIfUnset |
		db.FeatureGet |
		db.FeatureHas |
		db.FeatureDelete |
		db.FeatureTransactions |
		db.FeatureInfo
	if c.events != nil {
		supportedFeatures |= db.FeatureWatch
	}
	return supportedFeatures&feature == feature
}

// Watch returns the commit event stream, or nil when events are
// disabled.
func (c *cedarImpl) Watch() <-chan db.Event {
	if c.events == nil {
		return nil
	}
	return c.events.Recv()
}

// Close shuts the event queue down.
func (c *cedarImpl) Close() error {
	if c.closed.CompareAndSwap(false, true) && c.events != nil {
		c.events.Close()
	}
	return nil
}
