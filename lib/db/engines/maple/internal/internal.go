package internal

import (
	"sync"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/db/util"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Shard Type (partition of the database)
// --------------------------------------------------------------------------

// Shard represents a partition of the database.
// Data is safe for concurrent use on its own. ExpireHeap is guarded by the
// shard mutex, which is only ever taken inside a Data.Compute callback or
// without holding any map lock, never the other way around.
type Shard struct {
	Data       *xsync.MapOf[string, db.Entry] // Map of all entries of this shard
	ExpireHeap *util.MapHeap[string]          // Keys with a ttl, ordered by expiry time

	mu sync.Mutex
}

// NewShard creates a new empty shard
func NewShard() *Shard {
	return &Shard{
		Data:       xsync.NewMapOf[string, db.Entry](),
		ExpireHeap: util.NewMapHeap[string](),
	}
}

// TrackExpiry registers (or updates) the expiry time of key, 0 removes it
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *Shard) TrackExpiry(key string, expireAt uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expireAt == 0 {
		s.ExpireHeap.RemoveByKey(key)
		return
	}
	s.ExpireHeap.AddItem(key, expireAt)
}

// Due returns up to limit keys that expire at or before nowMs, 0 means no limit
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *Shard) Due(nowMs uint64, limit int, skip func(string) bool) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ExpireHeap.Due(nowMs, limit, skip)
}

// Tracked returns the number of keys with a pending expiry
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *Shard) Tracked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ExpireHeap.Len()
}

// GetShard returns the appropriate shard for a given key hash
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func GetShard[T any](hash uint64, shards []*T) *T {
	return shards[util.ShardIndex(hash, len(shards))]
}
