// Package snapshot stores a point-in-time image of a store on disk.
//
// Exactly one snapshot file is kept. Write replaces it atomically (temporary file,
// fsync, rename, directory fsync) and protects the content with a CRC32 footer.
// Read verifies the footer before handing the content to the caller, so a damaged
// snapshot is detected instead of being loaded partially.
//
// The package does not know the content format, the store passes whatever its
// database engine produces with db.KVDB.Save.
package snapshot
