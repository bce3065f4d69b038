// Package db provides the interface of the record table behind a store.
// It defines the KVDB interface that allows for consistent interaction
// with different in-memory engines while abstracting implementation details.
//
// Key Components:
//
//   - KVDB Interface: The core interface that all engines must satisfy.
//     It provides basic operations (Set, Get, Delete), iteration (Range),
//     expiry tracking (ExpiredKeys), metadata retrieval (GetInfo)
//     and persistence (Save, Load).
//
//   - Entry: a value plus its absolute expiry time (unix milliseconds, 0 = never)
//     and the write index of the mutation that produced it.
//
//   - Feature Flags: The Feature type defines capability flags that implementations
//     advertise through SupportsFeature, so a store can refuse operations an
//     engine cannot serve instead of silently misbehaving.
//
//   - Database Information: DatabaseInfo reports record count, an estimated size
//     and implementation specific metadata. Size numbers are estimates.
//
// Note on Time:
//   - Engines never read a clock. Expiry is stored as a number and compared against
//     a timestamp handed in by the caller (ExpiredKeys, Entry.Expired). The store owns
//     the clock, which makes expiry testable with a fake clock and keeps WAL replay
//     independent of when it runs.
//   - An expired entry stays in the engine until the caller deletes it. The store's
//     read path and its sweeper do so through the regular delete path, so the deletion
//     is logged and replicated like any other.
//
// Note on Write Indices:
//   - Every write carries a write index, a logical timestamp assigned by the store
//     (the WAL index). Writes older than the stored entry are ignored.
//   - The highest index seen is exposed through WriteIdx and is part of the saved state,
//     which lets recovery decide which WAL entries are already contained in a snapshot.
//
// Related Packages:
//
// The engines/maple package provides a sharded implementation based on xsync maps
// with a per-shard expiry heap.
//
// The testing package provides a conformance suite (RunKVDBTests) and benchmarks
// (RunKVDBBenchmarks) for every KVDB implementation.
package db
