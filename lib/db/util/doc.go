// Package util provides utility components for
// database implementations that satisfy the db.KVDB interface.
//
// The package contains:
//   - statistics: shard distribution and value size summaries reported by db.DatabaseInfo
//   - functions: Hash functions and other utility functions
//   - mapheap: A generic priority queue with key-based access, used to track record expiry
//   - lockfreempsc: A lock-free Multi-Producer Single-Consumer (MPSC) queue implementation build for high throughput and low latency
//
// The MPSC queue is not only used by the engines: the replication publisher
// pushes outbound notifications onto it from the write path, so a mutation never
// waits for a peer.
package util
