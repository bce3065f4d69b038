// Package testing holds the conformance suite and benchmarks shared by every db.KVDB engine.
//
// RunKVDBTests checks the contract the store relies on: versioned writes, stale write
// rejection, range iteration, expiry scans and Save/Load round trips. RunKVDBBenchmarks
// measures the same operations under a growing key count.
//
// Usage from an engine package:
//
//	func Test(t *testing.T) {
//		dbtesting.RunKVDBTests(t, "MapleDB", func() db.KVDB { return maple.NewMapleDB(nil) })
//	}
package testing
