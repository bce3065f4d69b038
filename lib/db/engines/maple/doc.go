// Package maple implements the in-memory record table (db.KVDB) behind a store.
//
// Key Components:
//
//   - mapleImpl: The database structure implementing db.KVDB. It spreads keys over
//     a fixed number of shards using a seeded FNV-1a hash. The write index is
//     not generated here: callers pass one with every write (the store uses its WAL
//     index) and mapleImpl only remembers the highest one it has seen.
//
//   - Shard: A partition of the key space with its own xsync map and an expiry heap
//     (util.MapHeap) holding the keys that carry a ttl, ordered by expiry time.
//     Entry updates run inside xsync's Compute, so the map entry and its heap item
//     change together.
//
// Expiry:
//
// Expiry times are absolute unix milliseconds stored with the entry. The engine has no
// clock and no background goroutine: ExpiredKeys reports keys that are due at a
// timestamp chosen by the caller, and the caller removes them with Delete. Keys that
// are reported but not deleted (for example because the store holds a lock on them)
// stay tracked and are reported again unless the caller's skip function passes over
// them. Each scan starts at the next shard.
//
// Persistence:
//
// Save writes a compact binary image (magic number, format version, hash seed, write
// index, then all entries including their expiry time and write index). Save collects
// the entries before encoding, so the caller only has to block writers for the
// collection phase if it needs a consistent image. Load validates the header and
// the entry framing and restores the expiry heaps.
//
// Usage example:
//
//	db := maple.NewMapleDB(nil) // one shard per CPU
//
//	db.Set("user:1", []byte("alice"), 1, 0)
//	db.Set("session:1", []byte("token"), 2, uint64(time.Now().Add(time.Minute).UnixMilli()))
//
//	for _, key := range db.ExpiredKeys(uint64(time.Now().UnixMilli()), 0, nil) {
//		db.Delete(key, 3)
//	}
package maple
