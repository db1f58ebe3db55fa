package lockmgr

// ILockManager defines the interface for a lock provider built on the
// optimistic transaction engine: acquiring a lock is an atomic
// insert-if-absent of a random owner ID that only one contender can
// store.
type ILockManager interface {
	// AcquireLock tries to acquire the lock for the given key.
	// Returns a boolean indicating whether the lock was acquired, the
	// owner ID needed to release it, and an error if any. A held lock
	// or a contender that inserted first both report ok=false without
	// error.
	AcquireLock(key string) (ok bool, ownerID []byte, err error)

	// ReleaseLock releases the lock for the given key.
	// Returns a boolean indicating whether the lock was released, and
	// an error if any. The method also returns true if the lock did
	// not exist; it returns false if the lock is held by another owner.
	ReleaseLock(key string, ownerID []byte) (ok bool, err error)
}
