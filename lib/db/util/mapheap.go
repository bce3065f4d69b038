// Package util
//
// This file provides a priority queue that is also addressable by key.
//
// The implementation combines a binary heap with a hash map, so that the
// lowest priority item can be found in O(1) while any item can still be
// updated or removed by its key. The maple engine uses it to track the
// expiry time of every record that carries a TTL: the sweeper only has to
// look at the top of the heap to find expired keys, and an overwrite or a
// delete of a record can drop its heap entry without a scan.
//
// Complexity:
//   - O(log n) for Push, Pop, AddItem (insert or update) and RemoveByKey
//   - O(1) for Peek, Contains and GetByKey
//
// The heap is not thread-safe, callers must synchronise access.
//
// Example usage:
//
//	expiry := NewMapHeap[string]()
//	expiry.AddItem("session:1", 1700000000000)
//	expiry.AddItem("session:2", 1700000005000)
//
//	// the record expiring first
//	next, ok := expiry.Peek()
//
//	// the record was deleted explicitly
//	expiry.RemoveByKey("session:1")
package util

import (
	"container/heap"
	"fmt"
)

// item is a single heap entry with a key for identification
// and a uint64 priority (e.g. an expiry timestamp)
type item[K comparable] struct {
	Key      K      // Unique identifier for the item
	Priority uint64 // Priority used for ordering in the heap
	index    int    // Index in the heap, maintained by the heap package
}

func (i *item[K]) String() string {
	return fmt.Sprintf("{Key: %v, Priority: %d}", i.Key, i.Priority)
}

// MapHeap is a min-heap ordered by priority that supports key-based access
type MapHeap[K comparable] struct {
	items    []*item[K]     // The actual heap slice
	itemsMap map[K]*item[K] // Map for O(1) access by key
}

// NewMapHeap creates a new empty MapHeap
func NewMapHeap[K comparable]() *MapHeap[K] {
	return &MapHeap[K]{
		items:    make([]*item[K], 0),
		itemsMap: make(map[K]*item[K]),
	}
}

// Len returns the number of items in the queue (part of heap.Interface)
func (mh *MapHeap[K]) Len() int { return len(mh.items) }

// Less compares items by priority (part of heap.Interface)
func (mh *MapHeap[K]) Less(i, j int) bool {
	return mh.items[i].Priority < mh.items[j].Priority
}

// Swap exchanges items at positions i and j (part of heap.Interface)
func (mh *MapHeap[K]) Swap(i, j int) {
	mh.items[i], mh.items[j] = mh.items[j], mh.items[i]
	mh.items[i].index = i
	mh.items[j].index = j
}

// Push adds an item to the heap (part of heap.Interface)
func (mh *MapHeap[K]) Push(x interface{}) {
	n := len(mh.items)
	it := x.(*item[K])
	it.index = n
	mh.items = append(mh.items, it)
	mh.itemsMap[it.Key] = it
}

// Pop removes and returns the minimum item (part of heap.Interface)
func (mh *MapHeap[K]) Pop() interface{} {
	old := mh.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil // Avoid memory leak
	it.index = -1
	mh.items = old[:n-1]
	delete(mh.itemsMap, it.Key)
	return it
}

// AddItem adds a new item to the queue or updates the priority of an existing one
func (mh *MapHeap[K]) AddItem(key K, priority uint64) {
	if it, exists := mh.itemsMap[key]; exists {
		it.Priority = priority
		heap.Fix(mh, it.index)
		return
	}

	heap.Push(mh, &item[K]{
		Key:      key,
		Priority: priority,
	})
}

// RemoveByKey removes an item by its key and returns its priority
func (mh *MapHeap[K]) RemoveByKey(key K) (uint64, bool) {
	it, exists := mh.itemsMap[key]
	if !exists {
		return 0, false
	}

	heap.Remove(mh, it.index)
	return it.Priority, true
}

// Peek returns the minimum item without removing it
func (mh *MapHeap[K]) Peek() (*item[K], bool) {
	if len(mh.items) == 0 {
		return nil, false
	}
	return mh.items[0], true
}

// Contains checks if a key exists in the queue
func (mh *MapHeap[K]) Contains(key K) bool {
	_, exists := mh.itemsMap[key]
	return exists
}

// GetByKey retrieves an item by its key without removing it
func (mh *MapHeap[K]) GetByKey(key K) (*item[K], bool) {
	it, exists := mh.itemsMap[key]
	return it, exists
}

// Due returns up to limit keys whose priority is less than or equal to bound,
// lowest priority first. The items stay in the heap. A limit of 0 means no limit.
// Keys for which skip returns true are passed over and do not count towards limit;
// skip may be nil.
func (mh *MapHeap[K]) Due(bound uint64, limit int, skip func(K) bool) []K {
	var popped []*item[K]
	var keys []K
	for mh.Len() > 0 && (limit <= 0 || len(keys) < limit) {
		if mh.items[0].Priority > bound {
			break
		}
		it := heap.Pop(mh).(*item[K])
		popped = append(popped, it)
		if skip == nil || !skip(it.Key) {
			keys = append(keys, it.Key)
		}
	}

	for _, it := range popped {
		heap.Push(mh, it)
	}
	return keys
}
