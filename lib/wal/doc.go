// Package wal implements the write-ahead log of a store.
//
// Every mutation is appended to the log before it is applied in memory. After a
// crash the log is replayed on top of the latest snapshot to restore the state.
// Entries are never edited once written.
//
// Each entry is framed with a CRC32 checksum and a length, so Replay can tell a
// clean end of file from a torn or damaged frame. The log is trusted completely or
// not at all: Replay stops at the first damaged frame and returns an error wrapping
// ErrCorrupted instead of silently dropping the tail.
//
// Durability is controlled by SyncMode:
//
//   - SyncNone: appends are buffered, the operating system decides when data reaches the disk
//   - SyncBatch: appends are flushed to the file, fsync is done by periodic Sync calls
//   - SyncAlways: every append is followed by fsync
package wal
