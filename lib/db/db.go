package db

import "io"

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplMaple Implementation = "maple"
)

// Feature represents database features as bit flags
type Feature uint64

const (
	FeatureSet    Feature = 1 << iota // Support for Set operations
	FeatureGet                        // Support for Get operations
	FeatureDelete                     // Support for Delete operations
	FeatureRange                      // Support for iterating over all records
	FeatureExpiry                     // Support for expiry tracking (ExpiredKeys)
	FeatureSave                       // Support for Save operations
	FeatureLoad                       // Support for Load operations
)

func (f Feature) String() string {
	switch f {
	case FeatureSet:
		return "Set"
	case FeatureGet:
		return "Get"
	case FeatureDelete:
		return "Delete"
	case FeatureRange:
		return "Range"
	case FeatureExpiry:
		return "Expiry"
	case FeatureSave:
		return "Save"
	case FeatureLoad:
		return "Load"
	default:
		return "Unknown"
	}
}

type DatabaseInfo struct {
	Records           int            `json:"records"`
	SizeBytes         int            `json:"size_bytes"`
	DbType            Implementation `json:"db_type"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// Entry is a single record as stored by the database.
type Entry struct {
	Value    []byte // The stored value
	ExpireAt uint64 // Absolute expiry time in unix milliseconds, 0 = never expires
	Index    uint64 // Write index of the mutation that produced this entry
}

// Expired reports whether the entry is expired at the given unix millisecond timestamp.
func (e Entry) Expired(nowMs uint64) bool {
	return e.ExpireAt != 0 && nowMs >= e.ExpireAt
}

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// KVDB defines the record table used by a store.
// A KVDB never looks at a clock: expiry times are plain numbers which the
// caller compares against its own notion of now. This keeps the database
// deterministic, which is what WAL replay relies on.
//
// Every write carries a write index. Writes with a lower index than the one
// stored for the key are ignored (stale writes), so applying the same ordered
// sequence of writes twice yields the same table.
type KVDB interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Set inserts or updates an entry.
	// expireAt is an absolute unix millisecond timestamp, 0 means the entry never expires.
	Set(key string, value []byte, writeIndex uint64, expireAt uint64)

	// Delete removes the entry with the specified key.
	// Returns whether an entry was removed.
	Delete(key string, writeIndex uint64) (deleted bool)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Get returns a copy of the entry for the key, expired or not.
	Get(key string) (entry Entry, loaded bool)

	// Range calls fn for every entry until fn returns false.
	// The order is unspecified. Values passed to fn must not be modified or retained.
	Range(fn func(key string, entry Entry) bool)

	// ExpiredKeys returns up to limit keys whose expiry is at or before nowMs.
	// A limit of 0 returns all of them. Keys for which skip returns true are left out
	// and do not count towards limit; skip may be nil.
	// The entries are not removed, callers delete them via Delete.
	ExpiredKeys(nowMs uint64, limit int, skip func(key string) bool) (keys []string)

	// Len returns the number of entries, including expired ones not yet deleted.
	Len() int

	// --------------------------------------------------------------------------
	// Persistence Operations
	// --------------------------------------------------------------------------

	// Save persists the current state of the database to the provided io.Writer.
	// The write index is part of the saved state.
	Save(w io.Writer) (err error)

	// Load replaces the database state with the data provided by an io.Reader.
	Load(r io.Reader) (err error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the database implementation supports the specified feature.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the database.
	GetInfo() (info DatabaseInfo)

	// --------------------------------------------------------------------------
	// Write Index Operations
	// --------------------------------------------------------------------------

	// SetWriteIdx sets the current index of the database only if the provided index is greater than the current index.
	SetWriteIdx(index uint64)

	// WriteIdx returns the current index of the database.
	WriteIdx() (index uint64)

	// Close releases all resources of the database.
	Close() (err error)
}
