package maple

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"runtime"
	"sync/atomic"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/db/engines/maple/internal"
	"github.com/ValentinKolb/sKV/lib/db/util"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	magicNum        = "MAPLEDB\x00" // File format identifier
	mapleVersion    = 4             // Format version (4: string keys, absolute expiry)
	samplesPerShard = 100           // Entries per shard looked at by GetInfo
	entryOverhead   = 24            // expireAt, index and length fields per entry
	maxKeyLen       = 1 << 20       // Sanity limit for keys read by Load
)

// --------------------------------------------------------------------------
// Core Maple database structure
// --------------------------------------------------------------------------

// mapleImpl implements db.KVDB with sharded xsync maps
type mapleImpl struct {
	numShards int               // Number of shards
	seed      uint64            // Seed for the shard hash
	shards    []*internal.Shard // Array of shards
	currIndex atomic.Uint64     // Highest write index seen

	scanCursor atomic.Uint64 // Rotates the first shard of ExpiredKeys
}

// DBOptions configures the mapleImpl behavior during initialization
type DBOptions struct {
	NumShards int // Number of shards (0 = number of CPUs)
}

// DefaultOptions returns the default mapleImpl options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		NumShards: runtime.NumCPU(),
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// NewMapleDB creates a new MapleDB instance with the specified options (optional)
func NewMapleDB(opts *DBOptions) db.KVDB {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.NumShards <= 0 {
		opts.NumShards = runtime.NumCPU()
	}

	return &mapleImpl{
		numShards: opts.NumShards,
		seed:      util.GenerateSeed(),
		shards:    newShards(opts.NumShards),
	}
}

func newShards(n int) []*internal.Shard {
	shards := make([]*internal.Shard, n)
	for i := range shards {
		shards[i] = internal.NewShard()
	}
	return shards
}

// shardFor returns the shard responsible for key
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) shardFor(key string) *internal.Shard {
	return internal.GetShard(util.HashString(key, maple.seed), maple.shards)
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Write Operations
// --------------------------------------------------------------------------

// Set inserts or updates an entry. Stale writes (lower index than the stored entry) are ignored.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Set(key string, value []byte, writeIdx uint64, expireAt uint64) {
	maple.SetWriteIdx(writeIdx)
	shard := maple.shardFor(key)

	// callers may reuse their buffer
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	shard.Data.Compute(key, func(old db.Entry, loaded bool) (db.Entry, bool) {
		if loaded && writeIdx < old.Index {
			return old, false
		}

		shard.TrackExpiry(key, expireAt)
		return db.Entry{
			Value:    valueCopy,
			ExpireAt: expireAt,
			Index:    writeIdx,
		}, false
	})
}

// Delete removes an entry with the specified key. Returns whether an entry was removed.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Delete(key string, writeIdx uint64) bool {
	maple.SetWriteIdx(writeIdx)
	shard := maple.shardFor(key)

	deleted := false
	shard.Data.Compute(key, func(old db.Entry, loaded bool) (db.Entry, bool) {
		if !loaded {
			return old, true // true because else the zero value would be stored
		}
		if writeIdx < old.Index {
			return old, false
		}

		shard.TrackExpiry(key, 0)
		deleted = true
		return old, true
	})

	return deleted
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Read Operations
// --------------------------------------------------------------------------

// Get retrieves the entry for a key. The returned value is a copy.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Get(key string) (db.Entry, bool) {
	e, ok := maple.shardFor(key).Data.Load(key)
	if !ok {
		return db.Entry{}, false
	}

	value := make([]byte, len(e.Value))
	copy(value, e.Value)
	e.Value = value
	return e, true
}

// Range calls fn for all entries of all shards until fn returns false.
//
// Thread-safety: This method is thread-safe, concurrent writes may or may not be observed.
func (maple *mapleImpl) Range(fn func(key string, entry db.Entry) bool) {
	for _, shard := range maple.shards {
		keepGoing := true
		shard.Data.Range(func(key string, e db.Entry) bool {
			keepGoing = fn(key, e)
			return keepGoing
		})
		if !keepGoing {
			return
		}
	}
}

// ExpiredKeys collects keys whose expiry is at or before nowMs from all shards.
// Each call starts at the next shard so a limited scan reaches every shard in turn.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) ExpiredKeys(nowMs uint64, limit int, skip func(key string) bool) []string {
	var keys []string
	first := int(maple.scanCursor.Add(1) % uint64(len(maple.shards)))
	for i := range maple.shards {
		remaining := 0
		if limit > 0 {
			remaining = limit - len(keys)
			if remaining <= 0 {
				break
			}
		}
		shard := maple.shards[(first+i)%len(maple.shards)]
		keys = append(keys, shard.Due(nowMs, remaining, skip)...)
	}
	return keys
}

// Len returns the number of stored entries
func (maple *mapleImpl) Len() int {
	n := 0
	for _, shard := range maple.shards {
		n += shard.Data.Size()
	}
	return n
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

type savedEntry struct {
	key   string
	entry db.Entry
}

// Save persists the database to the writer.
//
// Layout (little endian):
//
//	magic [8] | version u8 | seed u64 | writeIdx u64 | count u64
//	count * ( keyLen u32 | key | expireAt u64 | index u64 | valueLen u32 | value )
//
// Thread-safety: Save may run concurrently with writes, it then captures a fuzzy state.
// Callers that need a consistent state must prevent writes while Save collects the entries.
func (maple *mapleImpl) Save(w io.Writer) error {
	writeIdx := maple.currIndex.Load()

	var entries []savedEntry
	maple.Range(func(key string, e db.Entry) bool {
		value := make([]byte, len(e.Value))
		copy(value, e.Value)
		e.Value = value
		entries = append(entries, savedEntry{key, e})
		return true
	})

	bw := bufio.NewWriterSize(w, 1024*1024)

	if _, err := bw.WriteString(magicNum); err != nil {
		return err
	}
	header := []any{uint8(mapleVersion), maple.seed, writeIdx, uint64(len(entries))}
	for _, field := range header {
		if err := binary.Write(bw, binary.LittleEndian, field); err != nil {
			return err
		}
	}

	for _, item := range entries {
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(item.key))); err != nil {
			return err
		}
		if _, err := bw.WriteString(item.key); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, item.entry.ExpireAt); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, item.entry.Index); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(item.entry.Value))); err != nil {
			return err
		}
		if _, err := bw.Write(item.entry.Value); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Load replaces the database content with the state read from r.
// On error the database is left empty.
//
// Thread-safety: This function is not thread-safe and must not run concurrently with any other method.
func (maple *mapleImpl) Load(r io.Reader) error {
	br := bufio.NewReaderSize(r, 1024*1024)

	maple.shards = newShards(maple.numShards)
	maple.currIndex.Store(0)

	magicBytes := make([]byte, len(magicNum))
	if _, err := io.ReadFull(br, magicBytes); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if string(magicBytes) != magicNum {
		return fmt.Errorf("invalid file format: magic number mismatch")
	}

	var version uint8
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return err
	}
	if int(version) != mapleVersion {
		return fmt.Errorf("unsupported version: %d (expected %d)", version, mapleVersion)
	}

	var seed, writeIdx, count uint64
	for _, field := range []*uint64{&seed, &writeIdx, &count} {
		if err := binary.Read(br, binary.LittleEndian, field); err != nil {
			return err
		}
	}
	maple.seed = seed

	maxIndex := writeIdx
	for i := uint64(0); i < count; i++ {
		key, entry, err := readEntry(br)
		if err != nil {
			maple.shards = newShards(maple.numShards)
			return fmt.Errorf("entry %d: %w", i, err)
		}
		maxIndex = max(maxIndex, entry.Index)

		shard := maple.shardFor(key)
		shard.Data.Store(key, entry)
		shard.TrackExpiry(key, entry.ExpireAt)
	}

	// trailing bytes mean the count or a length field is wrong
	if _, err := br.ReadByte(); err != io.EOF {
		maple.shards = newShards(maple.numShards)
		return fmt.Errorf("unexpected data after %d entries", count)
	}

	maple.currIndex.Store(maxIndex)
	return nil
}

func readEntry(br *bufio.Reader) (string, db.Entry, error) {
	var keyLen uint32
	if err := binary.Read(br, binary.LittleEndian, &keyLen); err != nil {
		return "", db.Entry{}, err
	}
	if keyLen > maxKeyLen {
		return "", db.Entry{}, fmt.Errorf("key length %d exceeds limit", keyLen)
	}
	key := make([]byte, keyLen)
	if _, err := io.ReadFull(br, key); err != nil {
		return "", db.Entry{}, err
	}

	var e db.Entry
	if err := binary.Read(br, binary.LittleEndian, &e.ExpireAt); err != nil {
		return "", db.Entry{}, err
	}
	if err := binary.Read(br, binary.LittleEndian, &e.Index); err != nil {
		return "", db.Entry{}, err
	}

	var valueLen uint32
	if err := binary.Read(br, binary.LittleEndian, &valueLen); err != nil {
		return "", db.Entry{}, err
	}
	e.Value = make([]byte, valueLen)
	if _, err := io.ReadFull(br, e.Value); err != nil {
		return "", db.Entry{}, err
	}

	return string(key), e, nil
}

// --------------------------------------------------------------------------
// KVDB Interface Implementation - Features and Metadata
// --------------------------------------------------------------------------

// GetInfo returns estimated statistics about the database
func (maple *mapleImpl) GetInfo() db.DatabaseInfo {
	shardSizes := make([]float64, len(maple.shards))
	var sizes []int
	records, pendingExpiry := 0, 0

	for i, shard := range maple.shards {
		shardSizes[i] = float64(shard.Data.Size())
		records += shard.Data.Size()
		pendingExpiry += shard.Tracked()

		sampled := 0
		shard.Data.Range(func(key string, e db.Entry) bool {
			sizes = append(sizes, len(key)+len(e.Value))
			sampled++
			return sampled < samplesPerShard
		})
	}

	summary := util.NewSizeSummary(sizes)

	meta := &struct {
		CurrentWriteIndex uint64                 `json:"current_write_index"`
		ShardCount        int                    `json:"shard_count"`
		ShardDistribution util.DistributionStats `json:"shard_distribution"`
		PendingExpiry     int                    `json:"pending_expiry"`
		SampledSizes      util.SizeSummary       `json:"sampled_sizes"`
		Info              string                 `json:"info"`
	}{
		CurrentWriteIndex: maple.currIndex.Load(),
		ShardCount:        len(maple.shards),
		ShardDistribution: util.NewDistributionStats(shardSizes),
		PendingExpiry:     pendingExpiry,
		SampledSizes:      summary,
		Info:              "Sizes are estimated from samples and may vary depending on the database state.",
	}

	return db.DatabaseInfo{
		Records:   records,
		SizeBytes: records * (summary.Average + entryOverhead),
		DbType:    db.ImplMaple,
		SupportedFeatures: []db.Feature{
			db.FeatureSet, db.FeatureGet, db.FeatureDelete,
			db.FeatureRange, db.FeatureExpiry,
			db.FeatureSave, db.FeatureLoad,
		},
		Metadata: meta,
	}
}

// SupportsFeature checks if this implementation supports a specific KVDB feature
func (maple *mapleImpl) SupportsFeature(feature db.Feature) bool {
	supportedFeatures := db.FeatureSet |
		db.FeatureGet |
		db.FeatureDelete |
		db.FeatureRange |
		db.FeatureExpiry |
		db.FeatureSave |
		db.FeatureLoad
	return supportedFeatures&feature == feature
}

// Close drops all entries
func (maple *mapleImpl) Close() error {
	maple.shards = newShards(maple.numShards)
	return nil
}

// --------------------------------------------------------------------------
// Index Management
// --------------------------------------------------------------------------

// SetWriteIdx safely updates the current index.
// It only updates if the new index is greater than the current one.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) SetWriteIdx(newIdx uint64) {
	for {
		currIdx := maple.currIndex.Load()
		if newIdx <= currIdx {
			return
		}
		if maple.currIndex.CompareAndSwap(currIdx, newIdx) {
			return
		}
	}
}

// WriteIdx returns the current index of the database
func (maple *mapleImpl) WriteIdx() uint64 {
	return maple.currIndex.Load()
}
