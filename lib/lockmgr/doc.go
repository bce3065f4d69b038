// Package lockmgr implements the lock table of a store: an in-memory map from
// key to lease. A key with a live lease cannot be changed or deleted through the
// store until the lease is gone.
//
// Core Functionality:
//   - Anonymous locks (Lock / Unlock) that never lapse and can be removed by anyone
//   - Owned leases (AcquireLock / ReleaseLock) identified by a random 256 bit owner ID
//   - Automatic lease expiration through configurable timeouts
//
// Implementation Approach:
//
//	Leases live in an xsync.MapOf. Acquisition and release run inside Compute,
//	so checking for a live lease and installing a new one is a single atomic step.
//	Lapsed leases are treated as absent and cleaned up the next time the key is touched.
//
//	Lock state is never written to the WAL, the snapshot or replicated to peers.
//	After a restart every key is unlocked.
//
// Usage Example:
//
//	locks := lockmgr.NewLockManager(nil)
//
//	acquired, ownerID, err := locks.AcquireLock("resource:123", 30)
//	if err != nil {
//	    // Handle error
//	}
//
//	if acquired {
//	    // Use the resource safely
//	    // ...
//
//	    released, err := locks.ReleaseLock("resource:123", ownerID)
//	}
//
// Security Considerations:
//
//	Owner IDs protect against accidental lock stealing, not against malicious
//	clients: Unlock removes any lease without an owner check.
package lockmgr
