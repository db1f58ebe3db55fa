// Package lockmgr provides advisory locks on top of the transactional
// key-value engine.
//
// A lock is an ordinary key whose value is a random owner ID.
// Acquisition uses the engine's atomic SetIfUnset: the existence
// check and the insert are one step, so of any number of contenders
// exactly one stores its owner ID and every other observes the key as
// taken. Release runs as a short-lived optimistic transaction that
// stages the key before checking ownership — the staged snapshot is
// what the commit validates, so the erase only lands while the key
// still holds the owner's value, and a lock that changed hands in the
// meantime surfaces as a conflict instead of being released.
//
// Locks do not expire. A crashed holder leaves the key behind and the
// lock must be released (or the key deleted) out of band.
package lockmgr
