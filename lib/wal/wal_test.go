package wal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, path string) ([]Entry, uint64, error) {
	t.Helper()
	var entries []Entry
	last, err := Replay(path, func(e Entry) error {
		entries = append(entries, e)
		return nil
	})
	return entries, last, err
}

func writeEntries(t *testing.T, path string, mode SyncMode, entries ...Entry) {
	t.Helper()
	w, err := Open(path, Options{SyncMode: mode})
	require.NoError(t, err)
	for _, e := range entries {
		require.NoError(t, w.Append(e))
	}
	require.NoError(t, w.Close())
}

func TestAppendReplay(t *testing.T) {
	for _, mode := range []SyncMode{SyncNone, SyncBatch, SyncAlways} {
		t.Run(mode.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "test.wal")

			want := []Entry{
				{Op: OpSet, Index: 1, Key: "a", Value: []byte("1")},
				{Op: OpSet, Index: 2, Key: "b\x00\nwith bytes", Value: []byte{0, 1, 2}, ExpireAt: 12345},
				{Op: OpDelete, Index: 3, Key: "a", Value: []byte{}},
				{Op: OpSet, Index: 4, Key: "", Value: []byte{}},
			}
			writeEntries(t, path, mode, want...)

			got, last, err := collect(t, path)
			require.NoError(t, err)
			assert.Equal(t, uint64(4), last)
			assert.Equal(t, want, got)
		})
	}
}

func TestReopenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wal")

	writeEntries(t, path, SyncBatch, Entry{Op: OpSet, Index: 1, Key: "a", Value: []byte("1")})
	writeEntries(t, path, SyncBatch, Entry{Op: OpSet, Index: 2, Key: "b", Value: []byte("2")})

	got, last, err := collect(t, path)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), last)
	assert.Len(t, got, 2)
}

func TestReplayMissingFile(t *testing.T) {
	got, last, err := collect(t, filepath.Join(t.TempDir(), "missing.wal"))
	require.NoError(t, err)
	assert.Zero(t, last)
	assert.Empty(t, got)
}

func TestReplayTornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wal")
	writeEntries(t, path, SyncAlways,
		Entry{Op: OpSet, Index: 1, Key: "a", Value: []byte("1")},
		Entry{Op: OpSet, Index: 2, Key: "b", Value: []byte("2")},
	)

	info, err := os.Stat(path)
	require.NoError(t, err)

	for _, cut := range []int64{1, 5, 12} {
		t.Run(fmt.Sprintf("cut%d", cut), func(t *testing.T) {
			torn := filepath.Join(t.TempDir(), "torn.wal")
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(torn, data[:info.Size()-cut], 0644))

			got, last, err := collect(t, torn)
			assert.True(t, errors.Is(err, ErrCorrupted), "expected ErrCorrupted, got %v", err)
			assert.Equal(t, uint64(1), last)
			assert.Len(t, got, 1)
		})
	}
}

func TestReplayChecksumMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wal")
	writeEntries(t, path, SyncAlways, Entry{Op: OpSet, Index: 1, Key: "key", Value: []byte("value")})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, _, err = collect(t, path)
	assert.ErrorIs(t, err, ErrCorrupted)
}

func TestReplayNonIncreasingIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wal")
	writeEntries(t, path, SyncAlways,
		Entry{Op: OpSet, Index: 5, Key: "a", Value: []byte("1")},
		Entry{Op: OpSet, Index: 5, Key: "b", Value: []byte("2")},
	)

	got, _, err := collect(t, path)
	assert.ErrorIs(t, err, ErrCorrupted)
	assert.Len(t, got, 1)
}

func TestReplayCallbackError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wal")
	writeEntries(t, path, SyncAlways, Entry{Op: OpSet, Index: 1, Key: "a", Value: []byte("1")})

	boom := errors.New("boom")
	_, err := Replay(path, func(Entry) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrCorrupted)
}

func TestAppendAfterClose(t *testing.T) {
	w, err := Open(filepath.Join(t.TempDir(), "test.wal"), Options{})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	assert.ErrorIs(t, w.Append(Entry{Op: OpSet, Index: 1}), ErrClosed)
	assert.ErrorIs(t, w.Sync(), ErrClosed)
}

func TestSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wal")
	w, err := Open(path, Options{SyncMode: SyncBatch})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Append(Entry{Op: OpSet, Index: 1, Key: "ab", Value: []byte("xyz")}))
	assert.Equal(t, int64(frameHeaderSize+entryFixedSize+5), w.Size())
	assert.Equal(t, path, w.Path())
}

func TestParseSyncMode(t *testing.T) {
	for _, mode := range []SyncMode{SyncNone, SyncBatch, SyncAlways} {
		parsed, err := ParseSyncMode(mode.String())
		require.NoError(t, err)
		assert.Equal(t, mode, parsed)
	}
	_, err := ParseSyncMode("sometimes")
	assert.Error(t, err)
}
