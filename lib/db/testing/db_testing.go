package testing

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/ValentinKolb/sKV/lib/db"
)

// DBFactory is a function that creates a new instance of a KVDB implementation
type DBFactory func() db.KVDB

// RunKVDBTests runs a comprehensive test suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("StaleWrites", func(t *testing.T) {
			testStaleWrites(t, factory())
		})

		t.Run("Range", func(t *testing.T) {
			testRange(t, factory())
		})

		t.Run("ExpiredKeys", func(t *testing.T) {
			testExpiredKeys(t, factory())
		})

		t.Run("ManyExpiringKeys", func(t *testing.T) {
			testManyExpiringKeys(t, factory())
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("LoadGarbage", func(t *testing.T) {
			testLoadGarbage(t, factory)
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})

		t.Run("Concurrency", func(t *testing.T) {
			testConcurrency(t, factory())
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.KVDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

func sortedKeys(database db.KVDB) []string {
	var keys []string
	database.Range(func(key string, _ db.Entry) bool {
		keys = append(keys, key)
		return true
	})
	sort.Strings(keys)
	return keys
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	testKey := "test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	database.Set(testKey, testValue1, 1, 0)

	result, exists := database.Get(testKey)
	if !exists {
		t.Fatalf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result.Value, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result.Value)
	}
	if result.Index != 1 || result.ExpireAt != 0 {
		t.Errorf("Expected index 1 and no expiry, got index %d expireAt %d", result.Index, result.ExpireAt)
	}

	database.Set(testKey, testValue2, 2, 5000)

	result, exists = database.Get(testKey)
	if !exists {
		t.Fatalf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result.Value, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result.Value)
	}
	if result.ExpireAt != 5000 {
		t.Errorf("Expected expireAt 5000, got %d", result.ExpireAt)
	}

	if _, exists = database.Get("nonexistent-key"); exists {
		t.Errorf("Expected nonexistent key to return exists=false")
	}

	// Get must hand out copies
	retrieved, _ := database.Get(testKey)
	retrieved.Value[0] = 'X'
	original, _ := database.Get(testKey)
	if bytes.Equal(retrieved.Value, original.Value) {
		t.Errorf("Get should return a copy, not a reference to the stored value")
	}

	// Set must not keep the callers buffer
	buf := []byte("buffer")
	database.Set("buf-key", buf, 3, 0)
	buf[0] = 'X'
	stored, _ := database.Get("buf-key")
	if string(stored.Value) != "buffer" {
		t.Errorf("Set should copy the value, got %s", stored.Value)
	}

	if database.WriteIdx() != 3 {
		t.Errorf("Expected write index 3, got %d", database.WriteIdx())
	}
	if database.Len() != 2 {
		t.Errorf("Expected 2 entries, got %d", database.Len())
	}
}

func testDelete(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete)

	database.Set("key", []byte("value"), 1, 0)

	if !database.Delete("key", 2) {
		t.Errorf("Expected Delete to report a removed entry")
	}
	if _, exists := database.Get("key"); exists {
		t.Errorf("Key should not exist after Delete")
	}
	if database.Delete("key", 3) {
		t.Errorf("Deleting an absent key should report false")
	}
	if database.Delete("never-existed", 4) {
		t.Errorf("Deleting an absent key should report false")
	}
	if database.Len() != 0 {
		t.Errorf("Expected an empty database, got %d entries", database.Len())
	}

	// deleting a key with a ttl also drops its expiry tracking
	database.Set("ttl-key", []byte("value"), 5, 100)
	database.Delete("ttl-key", 6)
	if keys := database.ExpiredKeys(1000, 0, nil); len(keys) != 0 {
		t.Errorf("Deleted key should not be reported as expired, got %v", keys)
	}
}

func testStaleWrites(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete)

	database.Set("key", []byte("new"), 10, 0)
	database.Set("key", []byte("old"), 5, 0)

	result, _ := database.Get("key")
	if string(result.Value) != "new" {
		t.Errorf("Stale Set should be ignored, got %s", result.Value)
	}

	if database.Delete("key", 7) {
		t.Errorf("Stale Delete should be ignored")
	}
	if _, exists := database.Get("key"); !exists {
		t.Errorf("Key should survive a stale Delete")
	}

	// equal index is a replay of the same write and is applied
	database.Set("key", []byte("replayed"), 10, 0)
	result, _ = database.Get("key")
	if string(result.Value) != "replayed" {
		t.Errorf("Write with equal index should be applied, got %s", result.Value)
	}

	if database.WriteIdx() != 10 {
		t.Errorf("Write index should not move backwards, got %d", database.WriteIdx())
	}
}

func testRange(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureRange)

	want := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("key-%02d", i)
		want = append(want, key)
		database.Set(key, []byte(key), uint64(i+1), 0)
	}

	got := sortedKeys(database)
	if len(got) != len(want) {
		t.Fatalf("Expected %d keys, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected key %s at position %d, got %s", want[i], i, got[i])
		}
	}

	visited := 0
	database.Range(func(key string, e db.Entry) bool {
		visited++
		if string(e.Value) != key {
			t.Errorf("Expected value %s, got %s", key, e.Value)
		}
		return visited < 10
	})
	if visited != 10 {
		t.Errorf("Range should stop when fn returns false, visited %d", visited)
	}
}

func testExpiredKeys(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureExpiry)

	database.Set("a", []byte("a"), 1, 100)
	database.Set("b", []byte("b"), 2, 200)
	database.Set("c", []byte("c"), 3, 0)

	entry, _ := database.Get("a")
	if entry.Expired(99) {
		t.Errorf("Entry should not be expired before its expiry time")
	}
	if !entry.Expired(100) {
		t.Errorf("Entry should be expired at its expiry time")
	}

	if keys := database.ExpiredKeys(99, 0, nil); len(keys) != 0 {
		t.Errorf("Expected no expired keys at 99, got %v", keys)
	}

	keys := database.ExpiredKeys(150, 0, nil)
	if len(keys) != 1 || keys[0] != "a" {
		t.Errorf("Expected [a] at 150, got %v", keys)
	}

	// reporting does not remove, the key is reported again
	keys = database.ExpiredKeys(250, 0, nil)
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("Expected [a b] at 250, got %v", keys)
	}
	if _, exists := database.Get("a"); !exists {
		t.Errorf("ExpiredKeys must not remove entries")
	}

	if keys = database.ExpiredKeys(250, 1, nil); len(keys) != 1 {
		t.Errorf("Expected limit to be honoured, got %v", keys)
	}

	// skipped keys do not use up the limit
	skipA := func(key string) bool { return key == "a" }
	for i := 0; i < 4; i++ {
		if keys = database.ExpiredKeys(250, 1, skipA); len(keys) != 1 || keys[0] != "b" {
			t.Errorf("Expected [b] when a is skipped, got %v", keys)
		}
	}

	// overwriting without ttl removes the expiry
	database.Set("a", []byte("a2"), 4, 0)
	keys = database.ExpiredKeys(250, 0, nil)
	if len(keys) != 1 || keys[0] != "b" {
		t.Errorf("Expected [b] after clearing the ttl of a, got %v", keys)
	}

	// overwriting with a later ttl moves the expiry
	database.Set("b", []byte("b2"), 5, 1000)
	if keys = database.ExpiredKeys(250, 0, nil); len(keys) != 0 {
		t.Errorf("Expected no expired keys after extending b, got %v", keys)
	}
}

func testManyExpiringKeys(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureDelete|db.FeatureExpiry)

	const n = 1000
	for i := 0; i < n; i++ {
		database.Set(fmt.Sprintf("key-%d", i), []byte("v"), uint64(i+1), uint64(i+1))
	}

	keys := database.ExpiredKeys(n/2, 0, nil)
	if len(keys) != n/2 {
		t.Errorf("Expected %d expired keys, got %d", n/2, len(keys))
	}

	idx := uint64(n + 1)
	for _, key := range keys {
		database.Delete(key, idx)
		idx++
	}

	if database.Len() != n/2 {
		t.Errorf("Expected %d remaining entries, got %d", n/2, database.Len())
	}
	if keys = database.ExpiredKeys(n/2, 0, nil); len(keys) != 0 {
		t.Errorf("Expected no expired keys after deletion, got %d", len(keys))
	}
	if keys = database.ExpiredKeys(n, 0, nil); len(keys) != n/2 {
		t.Errorf("Expected %d expired keys at %d, got %d", n/2, n, len(keys))
	}

	// repeated limited scans that delete what they get reach every key
	for round := 0; round < n; round++ {
		keys = database.ExpiredKeys(n, 7, nil)
		if len(keys) == 0 {
			break
		}
		for _, k := range keys {
			database.Delete(k, idx)
			idx++
		}
	}
	if database.Len() != 0 {
		t.Errorf("Expected limited scans to drain every shard, %d entries left", database.Len())
	}
}

func testSaveLoad(t *testing.T, factory DBFactory) {
	original := factory()
	defer original.Close()

	requireFeature(t, original, db.FeatureSet|db.FeatureGet|db.FeatureSave|db.FeatureLoad)

	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("key-%d", i)
		var expireAt uint64
		if i%3 == 0 {
			expireAt = uint64(1000 + i)
		}
		original.Set(key, []byte(fmt.Sprintf("value-%d", i)), uint64(i+1), expireAt)
	}
	original.Set("empty", []byte{}, 200, 0)
	original.Delete("key-99", 300)

	var buf bytes.Buffer
	if err := original.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	restored := factory()
	defer restored.Close()

	// pre-existing data must be replaced
	restored.Set("stale", []byte("stale"), 1, 0)

	if err := restored.Load(&buf); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if restored.WriteIdx() != 300 {
		t.Errorf("Expected write index 300 after Load, got %d", restored.WriteIdx())
	}
	if _, exists := restored.Get("stale"); exists {
		t.Errorf("Load should replace existing data")
	}
	if restored.Len() != original.Len() {
		t.Errorf("Expected %d entries, got %d", original.Len(), restored.Len())
	}

	original.Range(func(key string, want db.Entry) bool {
		got, exists := restored.Get(key)
		if !exists {
			t.Errorf("Key %s missing after Load", key)
			return true
		}
		if !bytes.Equal(got.Value, want.Value) || got.ExpireAt != want.ExpireAt || got.Index != want.Index {
			t.Errorf("Entry %s differs after Load: want %+v, got %+v", key, want, got)
		}
		return true
	})

	if restored.SupportsFeature(db.FeatureExpiry) {
		keys := restored.ExpiredKeys(2000, 0, nil)
		if len(keys) != 33 {
			t.Errorf("Expected 33 keys with restored expiry, got %d", len(keys))
		}
	}
}

func testLoadGarbage(t *testing.T, factory DBFactory) {
	database := factory()
	defer database.Close()

	requireFeature(t, database, db.FeatureSave|db.FeatureLoad)

	if err := database.Load(bytes.NewReader([]byte("definitely not a database image"))); err == nil {
		t.Errorf("Expected Load to fail on garbage input")
	}

	if err := database.Load(bytes.NewReader(nil)); err == nil {
		t.Errorf("Expected Load to fail on empty input")
	}

	database.Set("key", []byte("value"), 1, 0)
	var buf bytes.Buffer
	if err := database.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	truncated := buf.Bytes()[:buf.Len()-2]
	if err := database.Load(bytes.NewReader(truncated)); err == nil {
		t.Errorf("Expected Load to fail on a truncated image")
	}
}

func testEdgeCases(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete)

	t.Run("EmptyKey", func(t *testing.T) {
		database.Set("", []byte("value"), 1, 0)
		result, exists := database.Get("")
		if !exists || string(result.Value) != "value" {
			t.Errorf("Empty key should be stored")
		}
	})

	t.Run("EmptyValue", func(t *testing.T) {
		database.Set("empty", []byte{}, 2, 0)
		result, exists := database.Get("empty")
		if !exists || len(result.Value) != 0 {
			t.Errorf("Empty value should be stored and returned")
		}
	})

	t.Run("NilValue", func(t *testing.T) {
		database.Set("nil", nil, 3, 0)
		if _, exists := database.Get("nil"); !exists {
			t.Errorf("Nil value should be stored")
		}
	})

	t.Run("LargeValue", func(t *testing.T) {
		large := bytes.Repeat([]byte("x"), 1<<20)
		database.Set("large", large, 4, 0)
		result, _ := database.Get("large")
		if !bytes.Equal(result.Value, large) {
			t.Errorf("Large value differs after Get")
		}
	})

	t.Run("BinaryKey", func(t *testing.T) {
		key := string([]byte{0, 1, 2, 255})
		database.Set(key, []byte("bin"), 5, 0)
		result, exists := database.Get(key)
		if !exists || string(result.Value) != "bin" {
			t.Errorf("Binary key should be stored")
		}
	})
}

func testConcurrency(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete)

	const (
		workers    = 8
		iterations = 500
	)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				key := fmt.Sprintf("w%d-k%d", w, i%50)
				idx := uint64(w*iterations + i + 1)
				switch i % 3 {
				case 0, 1:
					database.Set(key, []byte(key), idx, uint64(i))
				case 2:
					database.Delete(key, idx)
				}
				database.Get(key)
			}
		}(w)
	}
	wg.Wait()

	if database.WriteIdx() != workers*iterations {
		t.Errorf("Expected write index %d, got %d", workers*iterations, database.WriteIdx())
	}

	database.Range(func(key string, e db.Entry) bool {
		if string(e.Value) != key {
			t.Errorf("Entry %s holds foreign value %s", key, e.Value)
		}
		return true
	})
}

func testInfo(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)

	for i := 0; i < 20; i++ {
		database.Set(fmt.Sprintf("key-%d", i), []byte("value"), uint64(i+1), 0)
	}

	info := database.GetInfo()
	if info.Records != 20 {
		t.Errorf("Expected 20 records, got %d", info.Records)
	}
	if info.SizeBytes <= 0 {
		t.Errorf("Expected a positive size estimate, got %d", info.SizeBytes)
	}
	for _, f := range info.SupportedFeatures {
		if !database.SupportsFeature(f) {
			t.Errorf("Feature %s is listed but not supported", f)
		}
	}
}
