package pstore

import "github.com/VictoriaMetrics/metrics"

var (
	setsTotal          = metrics.NewCounter("skv_store_sets_total")
	deletesTotal       = metrics.NewCounter("skv_store_deletes_total")
	expiredTotal       = metrics.NewCounter("skv_store_expired_total")
	lockConflictsTotal = metrics.NewCounter("skv_store_lock_conflicts_total")
	syncAppliedTotal   = metrics.NewCounter("skv_store_sync_applied_total")

	walAppendsTotal      = metrics.NewCounter("skv_wal_appends_total")
	walAppendErrorsTotal = metrics.NewCounter("skv_wal_append_errors_total")

	snapshotsTotal      = metrics.NewCounter("skv_snapshots_total")
	snapshotErrorsTotal = metrics.NewCounter("skv_snapshot_errors_total")
	snapshotDuration    = metrics.NewHistogram("skv_snapshot_duration_seconds")
)
