// Package store provides a high-level interface for key-value storage operations
// with expiration and unified error handling. It serves as an abstraction layer
// over the lower-level db.KVDB implementations, adding write index management,
// durability and standardized error reporting.
//
// Key Components:
//
//   - IStore Interface: The core abstraction defining operations for interacting with
//     a key-value store. The local persistent store (pstore) and the rpc client
//     (rpc/client) both implement it, so commands and tests work against either.
//
//   - Error System: A structured error reporting mechanism using typed error codes
//     (RetCode) and descriptive messages. Callers check for specific conditions with
//     CodeOf or helpers like IsLockConflict instead of matching on strings.
//
//   - DBFactory: A function type that abstracts the creation of underlying db.KVDB
//     instances.
//
// Implementations:
//
//   - Persistent Store (pstore): a single-node store backed by a db.KVDB, a write-ahead
//     log and periodic snapshots. It consults a lock table before every mutation and
//     hands every applied mutation to a replication publisher.
//     Available in the "github.com/ValentinKolb/sKV/lib/store/pstore" package.
//
//   - RPC Client: forwards all calls to a remote skv server.
//     Available in the "github.com/ValentinKolb/sKV/rpc/client" package.
package store
