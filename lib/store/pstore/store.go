package pstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/lockmgr"
	"github.com/ValentinKolb/sKV/lib/replication"
	"github.com/ValentinKolb/sKV/lib/snapshot"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/lib/wal"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("store")

const (
	walFileName      = "appendonly.wal"
	snapshotFileName = "dump.snap"
)

// Publisher receives every mutation applied through the local API
type Publisher interface {
	Publish(n replication.Notification) bool
}

// Options configures a Store
type Options struct {
	DataDir          string        // directory holding the WAL and the snapshot (required)
	WALSyncMode      wal.SyncMode  // durability of WAL appends
	WALSyncInterval  time.Duration // fsync period in wal.SyncBatch mode, default 1s
	SweepInterval    time.Duration // expiration sweep period, default 1s, negative disables
	SweepBatch       int           // max keys removed per sweep, default 1000
	SnapshotInterval time.Duration // snapshot period, default 60s, negative disables

	Now       func() time.Time     // clock, default time.Now
	Publisher Publisher            // replication target, nil disables publishing
	DBFactory store.DBFactory      // engine, default maple
	Locks     lockmgr.ILockManager // lock table, default in-memory lock manager using Now
}

// Store is a single-node persistent store.
//
// All mutations are serialized by one mutex: lock check, WAL append, engine update,
// publish. Reads go to the engine directly. Expired records are removed through the
// same mutation path, either lazily by a read or by the sweeper.
type Store struct {
	opts      Options
	db        db.KVDB
	locks     lockmgr.ILockManager
	wal       *wal.WAL
	publisher Publisher
	now       func() time.Time

	walPath      string
	snapshotPath string

	mu    sync.Mutex
	index uint64 // last assigned write index, guarded by mu

	snapMu  sync.Mutex
	snapIdx uint64 // index contained in the snapshot on disk, guarded by snapMu

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closed    bool
}

// --------------------------------------------------------------------------
// Internal mutation path
// --------------------------------------------------------------------------

func (s *Store) nowMs() uint64 {
	return uint64(s.now().UnixMilli())
}

func (s *Store) isLocked(key string) (bool, error) {
	locked, err := s.locks.IsLocked(key)
	if err != nil {
		return false, store.NewError(store.RetCInternalError, err.Error())
	}
	return locked, nil
}

func lockConflict(op, key string) error {
	lockConflictsTotal.Inc()
	log.Infof("%s on locked key %q rejected", op, key)
	return store.NewError(store.RetCLockConflict, fmt.Sprintf("key %q is locked", key))
}

// commit logs and applies a mutation. The caller must hold s.mu.
// Nothing is applied when the WAL append fails.
func (s *Store) commit(e wal.Entry, publish bool) error {
	e.Index = s.index + 1

	if err := s.wal.Append(e); err != nil {
		walAppendErrorsTotal.Inc()
		log.Errorf("wal append of %s %q failed: %v", e.Op, e.Key, err)
		return store.NewError(store.RetCInternalError, "write-ahead log: "+err.Error())
	}
	walAppendsTotal.Inc()

	applyEntry(s.db, e)
	s.index = e.Index

	switch e.Op {
	case wal.OpSet:
		setsTotal.Inc()
	case wal.OpDelete:
		deletesTotal.Inc()
	}

	if publish && s.publisher != nil {
		s.publisher.Publish(replication.Notification{
			Op:       replicationOp(e.Op),
			Key:      e.Key,
			Value:    e.Value,
			ExpireAt: e.ExpireAt,
		})
	}
	return nil
}

// applyEntry applies a logged mutation to the engine
func applyEntry(database db.KVDB, e wal.Entry) {
	switch e.Op {
	case wal.OpSet:
		database.Set(e.Key, e.Value, e.Index, e.ExpireAt)
	case wal.OpDelete:
		database.Delete(e.Key, e.Index)
	}
}

func replicationOp(op wal.Op) replication.Op {
	if op == wal.OpDelete {
		return replication.OpDelete
	}
	return replication.OpSet
}

func (s *Store) set(key string, value []byte, expireAt uint64, publish bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.isLocked(key)
	if err != nil {
		return err
	}
	if locked {
		return lockConflict("set", key)
	}

	return s.commit(wal.Entry{Op: wal.OpSet, Key: key, Value: value, ExpireAt: expireAt}, publish)
}

func (s *Store) delete(key string, publish bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.isLocked(key)
	if err != nil {
		return false, err
	}
	if locked {
		return false, lockConflict("delete", key)
	}

	if _, ok := s.db.Get(key); !ok {
		return false, nil
	}

	if err := s.commit(wal.Entry{Op: wal.OpDelete, Key: key}, publish); err != nil {
		return false, err
	}
	return true, nil
}

// expire removes key if it is expired at the time the mutex is held.
// Locked keys are left alone. Returns whether the key was removed.
func (s *Store) expire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if locked, err := s.isLocked(key); err != nil || locked {
		return false
	}

	e, ok := s.db.Get(key)
	if !ok || !e.Expired(s.nowMs()) {
		return false
	}

	if err := s.commit(wal.Entry{Op: wal.OpDelete, Key: key}, true); err != nil {
		return false
	}
	expiredTotal.Inc()
	log.Debugf("expired key %q", key)
	return true
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *Store) Set(key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		return store.NewError(store.RetCInvalidOperation, "ttl must not be negative")
	}

	var expireAt uint64
	if ttl > 0 {
		// sub-millisecond ttls still expire, just not before the next millisecond
		expireAt = s.nowMs() + uint64(max(ttl.Milliseconds(), 1))
	}

	return s.set(key, value, expireAt, true)
}

func (s *Store) Delete(key string) error {
	_, err := s.delete(key, true)
	return err
}

// Remove deletes key like Delete and reports whether a record existed
func (s *Store) Remove(key string) (bool, error) {
	return s.delete(key, true)
}

func (s *Store) DeleteMatching(pattern string) (int, error) {
	if pattern == "" {
		return 0, store.NewError(store.RetCInvalidOperation, "pattern must not be empty")
	}

	var candidates []string
	s.db.Range(func(key string, _ db.Entry) bool {
		if strings.Contains(key, pattern) {
			candidates = append(candidates, key)
		}
		return true
	})

	deleted := 0
	for _, key := range candidates {
		ok, err := s.delete(key, true)
		switch {
		case store.IsLockConflict(err):
			continue
		case err != nil:
			return deleted, err
		case ok:
			deleted++
		}
	}
	return deleted, nil
}

func (s *Store) Get(key string) ([]byte, bool, error) {
	value, _, ok, err := s.GetWithExpiry(key)
	return value, ok, err
}

func (s *Store) GetWithExpiry(key string) ([]byte, time.Time, bool, error) {
	e, ok := s.db.Get(key)
	if !ok {
		return nil, time.Time{}, false, nil
	}

	if e.Expired(s.nowMs()) {
		s.expire(key)
		return nil, time.Time{}, false, nil
	}

	var expireAt time.Time
	if e.ExpireAt != 0 {
		expireAt = time.UnixMilli(int64(e.ExpireAt))
	}
	return e.Value, expireAt, true, nil
}

func (s *Store) Keys() ([]store.KeyInfo, error) {
	now := s.nowMs()

	var keys []store.KeyInfo
	s.db.Range(func(key string, e db.Entry) bool {
		if e.Expired(now) {
			return true
		}
		info := store.KeyInfo{Key: key, Value: bytes.Clone(e.Value)}
		if e.ExpireAt != 0 {
			info.ExpireAt = time.UnixMilli(int64(e.ExpireAt))
		}
		keys = append(keys, info)
		return true
	})

	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Key < keys[j].Key
	})
	return keys, nil
}

func (s *Store) GetDBInfo() (db.DatabaseInfo, error) {
	return s.db.GetInfo(), nil
}

// --------------------------------------------------------------------------
// Replication and maintenance
// --------------------------------------------------------------------------

// ApplySync applies a mutation received from a peer. It takes the same path as a local
// mutation (lock check, WAL, engine) but is not published again.
func (s *Store) ApplySync(n replication.Notification) error {
	var err error
	switch n.Op {
	case replication.OpSet:
		err = s.set(n.Key, n.Value, n.ExpireAt, false)
	case replication.OpDelete:
		_, err = s.delete(n.Key, false)
	default:
		return store.NewError(store.RetCInvalidOperation, fmt.Sprintf("unknown sync operation %s", n.Op))
	}

	if err == nil {
		syncAppliedTotal.Inc()
	}
	return err
}

// Sweep runs one expiration cycle and returns the number of removed records.
// Locked keys are passed over so they cannot hold back the rest of the batch.
func (s *Store) Sweep() int {
	held := func(key string) bool {
		locked, err := s.isLocked(key)
		return err != nil || locked
	}

	removed := 0
	for _, key := range s.db.ExpiredKeys(s.nowMs(), s.opts.SweepBatch, held) {
		if s.expire(key) {
			removed++
		}
	}
	if removed > 0 {
		log.Debugf("sweeper removed %d expired keys", removed)
	}
	return removed
}

// Snapshot writes the current state to disk. Nothing is written if no mutation
// happened since the previous snapshot.
func (s *Store) Snapshot() error {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	start := time.Now()

	// capture a consistent image, the file is written without blocking writers
	s.mu.Lock()
	idx := s.index
	if idx == s.snapIdx {
		s.mu.Unlock()
		return nil
	}
	var buf bytes.Buffer
	err := s.db.Save(&buf)
	s.mu.Unlock()

	if err == nil {
		err = snapshot.Write(s.snapshotPath, buf.Bytes())
	}
	if err != nil {
		snapshotErrorsTotal.Inc()
		log.Errorf("snapshot at index %d failed: %v", idx, err)
		return store.NewError(store.RetCInternalError, "snapshot: "+err.Error())
	}

	s.snapIdx = idx
	snapshotsTotal.Inc()
	snapshotDuration.UpdateDuration(start)
	log.Debugf("snapshot at index %d written (%d bytes)", idx, buf.Len())
	return nil
}

// Index returns the last assigned write index
func (s *Store) Index() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Locks returns the lock table consulted by the store
func (s *Store) Locks() lockmgr.ILockManager {
	return s.locks
}

// Dir returns the data directory
func (s *Store) Dir() string {
	return filepath.Dir(s.walPath)
}

// Close stops the background tasks, writes a final snapshot and closes the WAL.
func (s *Store) Close() error {
	s.lifecycle.Lock()
	if s.closed {
		s.lifecycle.Unlock()
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.lifecycle.Unlock()

	s.wg.Wait()

	snapErr := s.Snapshot()

	s.mu.Lock()
	walErr := s.wal.Close()
	s.mu.Unlock()

	return errors.Join(snapErr, walErr, s.db.Close())
}
