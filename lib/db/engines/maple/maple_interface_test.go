package maple

import (
	"bytes"
	"testing"

	"github.com/ValentinKolb/sKV/lib/db"
	dbtesting "github.com/ValentinKolb/sKV/lib/db/testing"
)

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "MapleDB", func() db.KVDB {
		return NewMapleDB(nil)
	})
}

func TestSingleShard(t *testing.T) {
	dbtesting.RunKVDBTests(t, "MapleDB(1)", func() db.KVDB {
		return NewMapleDB(&DBOptions{NumShards: 1})
	})
}

func TestLoadKeepsSeed(t *testing.T) {
	src := NewMapleDB(&DBOptions{NumShards: 4}).(*mapleImpl)
	src.Set("a", []byte("1"), 1, 0)

	var buf bytes.Buffer
	if err := src.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	dst := NewMapleDB(&DBOptions{NumShards: 4}).(*mapleImpl)
	if err := dst.Load(&buf); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if dst.seed != src.seed {
		t.Errorf("Expected seed %d after Load, got %d", src.seed, dst.seed)
	}
}

func TestLoadRejectsVersion(t *testing.T) {
	src := NewMapleDB(nil)
	src.Set("a", []byte("1"), 1, 0)

	var buf bytes.Buffer
	if err := src.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	image := buf.Bytes()
	image[len(magicNum)] = mapleVersion + 1

	if err := NewMapleDB(nil).Load(bytes.NewReader(image)); err == nil {
		t.Errorf("Expected Load to reject an unknown version")
	}
}

func Benchmark(t *testing.B) {
	dbtesting.RunKVDBBenchmarks(t, "MapleDB", func() db.KVDB {
		return NewMapleDB(nil)
	})
}
