package pstore

import (
	"context"
	"time"

	"github.com/ValentinKolb/sKV/lib/wal"
)

// Start launches the sweeper, the snapshot scheduler and (in wal.SyncBatch mode)
// the WAL fsync timer. They run until Close.
func (s *Store) Start() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.closed || s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if s.opts.SweepInterval > 0 {
		s.every(ctx, s.opts.SweepInterval, func() {
			s.Sweep()
		})
	}

	if s.opts.SnapshotInterval > 0 {
		s.every(ctx, s.opts.SnapshotInterval, func() {
			_ = s.Snapshot() // logged by Snapshot
		})
	}

	if s.opts.WALSyncMode == wal.SyncBatch {
		s.every(ctx, s.opts.WALSyncInterval, func() {
			if err := s.wal.Sync(); err != nil {
				log.Errorf("wal sync failed: %v", err)
			}
		})
	}

	log.Infof("background tasks started (sweep %s, snapshot %s, wal sync %s)",
		s.opts.SweepInterval, s.opts.SnapshotInterval, s.opts.WALSyncMode)
}

// every runs fn periodically until ctx is cancelled
func (s *Store) every(ctx context.Context, interval time.Duration, fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}
