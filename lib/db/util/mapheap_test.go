package util

import (
	"container/heap"
	"fmt"
	"sort"
	"testing"
)

// TestNewMapHeap tests the creation of a new MapHeap
func TestNewMapHeap(t *testing.T) {
	mh := NewMapHeap[string]()

	if mh == nil {
		t.Fatal("NewMapHeap() returned nil")
	}

	if mh.Len() != 0 {
		t.Errorf("New heap should be empty, but has length %d", mh.Len())
	}

	if len(mh.itemsMap) != 0 {
		t.Errorf("New heap's map should be empty, but has %d items", len(mh.itemsMap))
	}
}

// TestAddItem tests adding items to the heap
func TestAddItem(t *testing.T) {
	mh := NewMapHeap[string]()

	mh.AddItem("a", 100)
	mh.AddItem("b", 200)
	mh.AddItem("c", 50)

	if mh.Len() != 3 {
		t.Errorf("Heap should have 3 items, but has %d", mh.Len())
	}

	for _, key := range []string{"a", "b", "c"} {
		if !mh.Contains(key) {
			t.Errorf("Heap should contain key %s", key)
		}
	}

	it, exists := mh.Peek()
	if !exists {
		t.Fatal("Peek() should return an item")
	}

	if it.Key != "c" || it.Priority != 50 {
		t.Errorf("Expected min item to be (c,50), got (%s,%d)", it.Key, it.Priority)
	}
}

// TestUpdateItem tests updating existing items
func TestUpdateItem(t *testing.T) {
	mh := NewMapHeap[string]()

	mh.AddItem("a", 100)
	mh.AddItem("b", 200)

	// a record was overwritten with a later expiry
	mh.AddItem("a", 300)

	it, exists := mh.GetByKey("a")
	if !exists {
		t.Fatal("Item with key a should exist")
	}
	if it.Priority != 300 {
		t.Errorf("Item with key a should have priority 300, got %d", it.Priority)
	}
	if mh.Len() != 2 {
		t.Errorf("Update must not add a second item, heap has %d items", mh.Len())
	}

	min, _ := mh.Peek()
	if min.Key != "b" {
		t.Errorf("Min item should now be key b, got %s", min.Key)
	}

	mh.AddItem("b", 50)

	min, _ = mh.Peek()
	if min.Key != "b" || min.Priority != 50 {
		t.Errorf("Min item should now be (b,50), got (%s,%d)", min.Key, min.Priority)
	}
}

// TestRemoveByKey tests removing items by key
func TestRemoveByKey(t *testing.T) {
	mh := NewMapHeap[string]()

	mh.AddItem("a", 100)
	mh.AddItem("b", 200)
	mh.AddItem("c", 300)

	value, exists := mh.RemoveByKey("b")
	if !exists {
		t.Fatal("RemoveByKey should return true for existing key")
	}
	if value != 200 {
		t.Errorf("RemoveByKey should return priority 200, got %d", value)
	}
	if mh.Len() != 2 {
		t.Errorf("Heap should have 2 items after removal, has %d", mh.Len())
	}
	if mh.Contains("b") {
		t.Error("Heap should not contain key b after removal")
	}

	if _, exists = mh.RemoveByKey("missing"); exists {
		t.Error("RemoveByKey should return false for non-existent key")
	}
}

// TestPopOrder tests if items are popped in correct order
func TestPopOrder(t *testing.T) {
	mh := NewMapHeap[uint64]()
	heap.Init(mh)

	items := []struct {
		key   uint64
		value uint64
	}{
		{5, 50},
		{3, 30},
		{1, 10},
		{4, 40},
		{2, 20},
	}

	for _, it := range items {
		mh.AddItem(it.key, it.value)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].value < items[j].value
	})

	for i, expected := range items {
		if mh.Len() == 0 {
			t.Fatalf("Heap empty after %d items, expected %d items", i, len(items))
		}

		it := heap.Pop(mh).(*item[uint64])
		if it.Key != expected.key || it.Priority != expected.value {
			t.Errorf("Pop %d: expected (%d,%d), got (%d,%d)",
				i, expected.key, expected.value, it.Key, it.Priority)
		}
	}

	if mh.Len() != 0 {
		t.Errorf("Heap should be empty after popping all items, has %d items", mh.Len())
	}
}

// TestPeekEmptyHeap tests behavior when peeking an empty heap
func TestPeekEmptyHeap(t *testing.T) {
	mh := NewMapHeap[string]()

	if _, exists := mh.Peek(); exists {
		t.Error("Peek on empty heap should return exists=false")
	}
}

// TestDue tests that due keys are reported in order and stay in the heap
func TestDue(t *testing.T) {
	mh := NewMapHeap[string]()

	mh.AddItem("late", 500)
	mh.AddItem("first", 100)
	mh.AddItem("second", 200)
	mh.AddItem("never-due", 10_000)

	due := mh.Due(300, 0, nil)
	if len(due) != 2 || due[0] != "first" || due[1] != "second" {
		t.Fatalf("Expected [first second], got %v", due)
	}

	if mh.Len() != 4 {
		t.Errorf("Due must not remove items, heap has %d items", mh.Len())
	}

	// the same keys are reported until they are removed
	if again := mh.Due(300, 0, nil); len(again) != 2 {
		t.Errorf("Expected due keys to be reported again, got %v", again)
	}

	limited := mh.Due(1000, 1, nil)
	if len(limited) != 1 || limited[0] != "first" {
		t.Errorf("Expected [first] with limit 1, got %v", limited)
	}

	mh.RemoveByKey("first")
	due = mh.Due(300, 0, nil)
	if len(due) != 1 || due[0] != "second" {
		t.Errorf("Expected [second] after removal, got %v", due)
	}

	min, _ := mh.Peek()
	if min.Key != "second" {
		t.Errorf("Heap order broken after Due, min is %s", min.Key)
	}
}

// TestDueSkip tests that skipped keys neither appear nor use up the limit
func TestDueSkip(t *testing.T) {
	mh := NewMapHeap[string]()
	mh.AddItem("held-1", 100)
	mh.AddItem("held-2", 110)
	mh.AddItem("free", 120)

	skip := func(k string) bool { return k == "held-1" || k == "held-2" }

	due := mh.Due(300, 2, skip)
	if len(due) != 1 || due[0] != "free" {
		t.Fatalf("Expected [free] past the skipped keys, got %v", due)
	}
	if mh.Len() != 3 {
		t.Errorf("Due must not remove items, heap has %d items", mh.Len())
	}

	min, _ := mh.Peek()
	if min.Key != "held-1" {
		t.Errorf("Heap order broken after Due with skip, min is %s", min.Key)
	}
}

// TestLargeNumberOfItems tests heap order with many keys
func TestLargeNumberOfItems(t *testing.T) {
	mh := NewMapHeap[string]()
	const n = 10_000

	for i := n; i > 0; i-- {
		mh.AddItem(fmt.Sprintf("key-%d", i), uint64(i))
	}

	if mh.Len() != n {
		t.Fatalf("Expected %d items, got %d", n, mh.Len())
	}

	var last uint64
	for mh.Len() > 0 {
		it := heap.Pop(mh).(*item[string])
		if it.Priority < last {
			t.Fatalf("Heap order violated: %d after %d", it.Priority, last)
		}
		last = it.Priority
	}

	if len(mh.itemsMap) != 0 {
		t.Errorf("Map should be empty after popping everything, has %d items", len(mh.itemsMap))
	}
}
