package lockmgr

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLockUnlock(t *testing.T) {
	locks := NewLockManager(nil)

	ok, err := locks.Lock("a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = locks.Lock("a")
	require.NoError(t, err)
	assert.False(t, ok, "second Lock on a held key must fail")

	locked, _ := locks.IsLocked("a")
	assert.True(t, locked)

	locked, _ = locks.IsLocked("b")
	assert.False(t, locked)

	require.NoError(t, locks.Unlock("a"))
	locked, _ = locks.IsLocked("a")
	assert.False(t, locked)

	// unlocking an unheld key is fine
	require.NoError(t, locks.Unlock("never-locked"))
}

func TestAcquireRelease(t *testing.T) {
	locks := NewLockManager(nil)

	ok, owner, err := locks.AcquireLock("res", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, owner, 32)

	ok, other, err := locks.AcquireLock("res", 0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, other)

	released, err := locks.ReleaseLock("res", []byte("not the owner"))
	require.NoError(t, err)
	assert.False(t, released)

	released, err = locks.ReleaseLock("res", owner)
	require.NoError(t, err)
	assert.True(t, released)

	locked, _ := locks.IsLocked("res")
	assert.False(t, locked)

	// releasing a missing lease reports success
	released, _ = locks.ReleaseLock("res", owner)
	assert.True(t, released)
}

func TestReleaseAnonymousLock(t *testing.T) {
	locks := NewLockManager(nil)

	ok, _ := locks.Lock("a")
	require.True(t, ok)

	released, _ := locks.ReleaseLock("a", nil)
	assert.False(t, released, "anonymous locks are only removed by Unlock")

	locked, _ := locks.IsLocked("a")
	assert.True(t, locked)
}

func TestLeaseTimeout(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_000, 0)}
	locks := NewLockManager(clock.Now)

	ok, owner, _ := locks.AcquireLock("res", 10)
	require.True(t, ok)

	clock.Advance(9 * time.Second)
	locked, _ := locks.IsLocked("res")
	assert.True(t, locked)

	clock.Advance(time.Second)
	locked, _ = locks.IsLocked("res")
	assert.False(t, locked, "lease must lapse after its timeout")

	ok, newOwner, _ := locks.AcquireLock("res", 10)
	require.True(t, ok, "a lapsed lease can be taken over")
	assert.NotEqual(t, owner, newOwner)

	released, _ := locks.ReleaseLock("res", owner)
	assert.False(t, released, "the old owner cannot release the new lease")
}

func TestConcurrentAcquire(t *testing.T) {
	locks := NewLockManager(nil)

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _, _ := locks.AcquireLock("contended", 0); ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}
