package replication

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink stores every delivered notification per peer
type recordingSink struct {
	mu        sync.Mutex
	delivered map[string][]Notification
	fail      map[string]bool
	block     chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		delivered: make(map[string][]Notification),
		fail:      make(map[string]bool),
	}
}

func (s *recordingSink) Deliver(ctx context.Context, peer string, n Notification) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[peer] {
		return errors.New("peer unreachable")
	}
	s.delivered[peer] = append(s.delivered[peer], n)
	return nil
}

func (s *recordingSink) get(peer string) []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notification(nil), s.delivered[peer]...)
}

func TestPublishFanOut(t *testing.T) {
	sink := newRecordingSink()
	p := NewPublisher(sink, Options{})

	require.True(t, p.AddNode("a:1"))
	require.True(t, p.AddNode("b:1"))

	for i := 0; i < 100; i++ {
		require.True(t, p.Publish(Notification{Op: OpSet, Key: fmt.Sprintf("k%d", i), Value: []byte("v")}))
	}
	p.Close()

	for _, peer := range []string{"a:1", "b:1"} {
		got := sink.get(peer)
		require.Len(t, got, 100, "peer %s", peer)
		for i, n := range got {
			assert.Equal(t, fmt.Sprintf("k%d", i), n.Key, "notifications must arrive in publish order")
		}
	}
}

func TestAddNodeDeduplicates(t *testing.T) {
	p := NewPublisher(newRecordingSink(), Options{})
	defer p.Close()

	assert.True(t, p.AddNode("a:1"))
	assert.False(t, p.AddNode("a:1"))
	assert.False(t, p.AddNode(""))
	assert.True(t, p.AddNode("b:1"))

	assert.Equal(t, []string{"a:1", "b:1"}, p.Nodes())
}

func TestFailingPeerDoesNotAffectOthers(t *testing.T) {
	sink := newRecordingSink()
	sink.fail["down:1"] = true

	p := NewPublisher(sink, Options{})
	p.AddNode("down:1")
	p.AddNode("up:1")

	p.Publish(Notification{Op: OpSet, Key: "a"})
	p.Publish(Notification{Op: OpDelete, Key: "a"})
	p.Close()

	assert.Empty(t, sink.get("down:1"))
	assert.Len(t, sink.get("up:1"), 2)
}

func TestFullBufferDrops(t *testing.T) {
	sink := newRecordingSink()
	sink.block = make(chan struct{})

	p := NewPublisher(sink, Options{BufferSize: 1, Timeout: time.Minute})
	p.AddNode("slow:1")

	before := droppedTotal.Get()
	for i := 0; i < 50; i++ {
		require.True(t, p.Publish(Notification{Op: OpSet, Key: fmt.Sprintf("k%d", i)}))
	}

	// one notification is held by the worker, one sits in the buffer
	require.Eventually(t, func() bool {
		return droppedTotal.Get() >= before+48
	}, 5*time.Second, 5*time.Millisecond)

	close(sink.block)
	p.Close()

	assert.Len(t, sink.get("slow:1"), 2)
}

func TestPublishAfterClose(t *testing.T) {
	p := NewPublisher(newRecordingSink(), Options{})
	p.Close()
	p.Close()

	assert.False(t, p.Publish(Notification{Op: OpSet, Key: "a"}))
	assert.False(t, p.AddNode("a:1"))
}

func TestDeliveryTimeout(t *testing.T) {
	sink := newRecordingSink()
	sink.block = make(chan struct{}) // never closed

	p := NewPublisher(sink, Options{Timeout: 20 * time.Millisecond})
	p.AddNode("hanging:1")
	p.Publish(Notification{Op: OpSet, Key: "a"})

	done := make(chan struct{})
	go func() {
		p.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return, delivery timeout not applied")
	}
	assert.Empty(t, sink.get("hanging:1"))
}

func TestParseOp(t *testing.T) {
	op, err := ParseOp("SET")
	require.NoError(t, err)
	assert.Equal(t, OpSet, op)

	op, err = ParseOp("DELETE")
	require.NoError(t, err)
	assert.Equal(t, OpDelete, op)

	_, err = ParseOp("INCR")
	assert.Error(t, err)
}
