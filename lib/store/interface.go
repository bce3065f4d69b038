package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/ValentinKolb/sKV/lib/db"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DBFactory is a function type that creates a new db used by the store.
// This is used to abstract the creation of the db from the store implementation.
type DBFactory func() db.KVDB

// KeyInfo describes a single live record as returned by Keys
type KeyInfo struct {
	Key      string    `json:"key"`
	Value    []byte    `json:"value"`
	ExpireAt time.Time `json:"expireAt,omitzero"` // zero = never expires
}

// IStore is the generic interface for interacting with a key–value store.
// All write operations return only a *Error (nil on success),
// while read operations return the requested data along with a *Error (nil on success).
type IStore interface {
	// Set inserts or updates a key–value pair.
	// A ttl of zero means the record never expires.
	Set(key string, value []byte, ttl time.Duration) (err error)
	// Delete deletes a key–value pair. Deleting an absent key is a no-op.
	Delete(key string) (err error)
	// DeleteMatching deletes all records whose key contains pattern and returns how many were removed.
	// Locked keys are skipped.
	DeleteMatching(pattern string) (deleted int, err error)
	// Get return the value for a key. The boolean return value indicates whether a value for the key was found.
	// Expired records are never returned.
	Get(key string) (value []byte, loaded bool, err error)
	// GetWithExpiry works like Get and additionally returns the expiry time (zero = never).
	GetWithExpiry(key string) (value []byte, expireAt time.Time, loaded bool, err error)
	// Keys returns all live records sorted by key.
	Keys() (keys []KeyInfo, err error)
	// GetDBInfo returns metadata about the database underlying the store.
	// It is not guaranteed that all fields are filled in or that the information is up-to-date!
	GetDBInfo() (info db.DatabaseInfo, err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("KVStoreError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new KVStoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// CodeOf returns the RetCode of err, RetCSuccess for nil and RetCInternalError for foreign errors.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return storeErr.Code
	}
	return RetCInternalError
}

// IsLockConflict reports whether err was caused by a locked key
func IsLockConflict(err error) bool {
	return err != nil && CodeOf(err) == RetCLockConflict
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by underlying database.
	RetCInvalidOperation                    // 3: Invalid operation.
	RetCLockConflict                        // 4: The key is locked.
	RetCCorruption                          // 5: Persisted state could not be read.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCLockConflict:
		return "LockConflict"
	case RetCCorruption:
		return "Corruption"
	default:
		return "Unknown"
	}
}
