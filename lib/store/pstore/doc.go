// Package pstore implements a single-node, persistent store.IStore.
//
// Records live in a db.KVDB engine (maple by default). Every mutation is written to
// a write-ahead log before it is applied, and a snapshot of the whole engine is
// written periodically (and on Close) when something changed since the last one.
//
// Mutation path (serialized by one mutex):
//
//	lock table check -> WAL append -> engine update -> replication publish
//
// A mutation on a locked key fails with store.RetCLockConflict and changes nothing.
// If the WAL append fails, the mutation is not applied.
//
// Expiration:
//
// Records carry an absolute expiry time. A read that finds an expired record removes
// it through the mutation path and reports it as absent. The sweeper (started by
// Start) periodically asks the engine for expired keys and removes them the same way.
// The expiry is re-checked under the mutex, so a key is never removed twice and a
// key that was overwritten in the meantime survives. Locked keys are not removed,
// but still read as absent once expired.
//
// Recovery:
//
// Open loads the snapshot and replays the WAL entries that are newer than the
// snapshot. Missing files are an empty state, damaged files abort Open.
//
// Replication:
//
// Local mutations (including expiry deletions) are handed to the configured
// Publisher. Mutations received from peers are applied with ApplySync, which takes
// the same path but does not publish them again.
package pstore
