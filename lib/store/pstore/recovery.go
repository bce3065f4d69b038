package pstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/db/engines/maple"
	"github.com/ValentinKolb/sKV/lib/lockmgr"
	"github.com/ValentinKolb/sKV/lib/snapshot"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/lib/wal"
)

// Defaults for zero Options fields
const (
	DefaultWALSyncInterval  = time.Second
	DefaultSweepInterval    = time.Second
	DefaultSweepBatch       = 1000
	DefaultSnapshotInterval = time.Minute
)

func (o *Options) applyDefaults() {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.WALSyncInterval <= 0 {
		o.WALSyncInterval = DefaultWALSyncInterval
	}
	if o.SweepInterval == 0 {
		o.SweepInterval = DefaultSweepInterval
	}
	if o.SweepBatch <= 0 {
		o.SweepBatch = DefaultSweepBatch
	}
	if o.SnapshotInterval == 0 {
		o.SnapshotInterval = DefaultSnapshotInterval
	}
	if o.DBFactory == nil {
		o.DBFactory = func() db.KVDB {
			return maple.NewMapleDB(nil)
		}
	}
	if o.Locks == nil {
		o.Locks = lockmgr.NewLockManager(o.Now)
	}
}

// Open recovers the store from the data directory and opens the WAL for writing.
//
// Recovery loads the snapshot (if any) and replays all WAL entries with a higher
// write index on top of it. Missing files mean an empty store. A damaged snapshot
// or WAL aborts Open with an error wrapping snapshot.ErrCorrupted or wal.ErrCorrupted.
//
// Background tasks do not run until Start is called.
func Open(opts Options) (*Store, error) {
	if opts.DataDir == "" {
		return nil, store.NewError(store.RetCInvalidOperation, "data directory must be set")
	}
	opts.applyDefaults()

	if err := os.MkdirAll(opts.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	s := &Store{
		opts:         opts,
		db:           opts.DBFactory(),
		locks:        opts.Locks,
		publisher:    opts.Publisher,
		now:          opts.Now,
		walPath:      filepath.Join(opts.DataDir, walFileName),
		snapshotPath: filepath.Join(opts.DataDir, snapshotFileName),
	}

	start := time.Now()

	found, err := snapshot.Read(s.snapshotPath, s.db.Load)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	base := s.db.WriteIdx()
	if found {
		s.snapIdx = base
	}

	replayed := 0
	last, err := wal.Replay(s.walPath, func(e wal.Entry) error {
		if e.Index <= base {
			return nil
		}
		applyEntry(s.db, e)
		replayed++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("replay wal: %w", err)
	}
	s.index = max(base, last)

	s.wal, err = wal.Open(s.walPath, wal.Options{SyncMode: opts.WALSyncMode})
	if err != nil {
		return nil, fmt.Errorf("open wal: %w", err)
	}

	log.Infof("recovered %d records in %s (snapshot index %d, %d wal entries replayed, next index %d)",
		s.db.Len(), time.Since(start), base, replayed, s.index+1)
	return s, nil
}

// IsCorruption reports whether err was caused by a damaged WAL or snapshot
func IsCorruption(err error) bool {
	return errors.Is(err, wal.ErrCorrupted) || errors.Is(err, snapshot.ErrCorrupted)
}
