package lockmgr

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
	"github.com/tkv-io/tkv/lib/db"
)

type lockMgrImpl struct {
	engine db.Engine
}

// NewLockManager creates a lock manager on top of the given engine.
// Locks are plain keys in the store; acquisition races through the
// engine's atomic insert, release races through its commit conflict
// detection, never by blocking.
func NewLockManager(engine db.Engine) ILockManager {
	return &lockMgrImpl{
		engine: engine,
	}
}

// lockTxID names the short-lived transaction a release runs.
func lockTxID() string {
	return fmt.Sprintf("lockmgr-%s", uuid.NewString())
}

func (lm *lockMgrImpl) AcquireLock(key string) (bool, []byte, error) {
	ownerID, err := generateOwnerID()
	if err != nil {
		return false, nil, err
	}

	// The existence check and the insert are one atomic step inside
	// the engine; a held lock, or a contender landing first, both
	// leave our value unstored.
	stored, err := lm.engine.SetIfUnset(key, ownerID)
	if err != nil || !stored {
		return false, nil, err
	}
	return true, ownerID, nil
}

func (lm *lockMgrImpl) ReleaseLock(key string, ownerID []byte) (bool, error) {
	txID := lockTxID()
	if err := lm.engine.Begin(txID); err != nil {
		return false, err
	}

	// Stage the key first: SetTx captures the snapshot the commit
	// will validate against. The ownership check reads the store only
	// afterwards, so a value the snapshot missed cannot pass it:
	// owner IDs are random and never recur, and the commit erases the
	// key only while it still holds the snapshotted value.
	if err := lm.engine.SetTx(key, ownerID, txID); err != nil {
		_ = lm.engine.Rollback(txID)
		return false, err
	}
	// read outside the transaction: the staged write must not mask
	// the committed value
	value, held, err := lm.engine.Get(key)
	if err != nil {
		_ = lm.engine.Rollback(txID)
		return false, err
	}

	// No lock to release.
	if !held {
		_ = lm.engine.Rollback(txID)
		return true, nil
	}

	// Held by someone else.
	if !bytes.Equal(ownerID, value) {
		_ = lm.engine.Rollback(txID)
		return false, nil
	}

	// Flip the staged instruction to an erase; an untouched key
	// cannot be erased transactionally.
	if err := lm.engine.DeleteTx(key, txID); err != nil {
		_ = lm.engine.Rollback(txID)
		return false, err
	}

	if err := lm.engine.Commit(txID); err != nil {
		if db.CodeOf(err) == db.RetCConflictAborted {
			// the lock changed hands underneath us
			return false, nil
		}
		return false, err
	}
	return true, nil
}
