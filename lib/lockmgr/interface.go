package lockmgr

// ILockManager defines the interface for a lock table.
// A key is locked while it holds a live lease. Leases taken with Lock never lapse,
// leases taken with AcquireLock lapse after their timeout.
type ILockManager interface {
	// Lock takes an anonymous, non-expiring lease on the key.
	// Returns false if the key is already locked.
	Lock(key string) (ok bool, err error)

	// Unlock removes any lease on the key, regardless of its owner.
	// Unlocking a key that is not locked is a no-op.
	Unlock(key string) (err error)

	// AcquireLock acquires a lease for the given key with an optional timeout in seconds (0 = no timeout).
	// Return a boolean indicating whether the lease was acquired, an owner ID, and an error if any.
	AcquireLock(key string, timeout uint64) (ok bool, ownerID []byte, err error)

	// ReleaseLock releases the lease for the given key.
	// Return a boolean indicating whether the lease was released, and an error if any.
	// The method will also return true if the lease did not exist.
	ReleaseLock(key string, ownerID []byte) (ok bool, err error)

	// IsLocked reports whether the key currently holds a live lease.
	IsLocked(key string) (locked bool, err error)
}
