package lockmgr

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// lease is a single entry of the lock table
type lease struct {
	ownerID  []byte    // nil for anonymous locks
	expireAt time.Time // zero = never lapses
}

func (l lease) live(now time.Time) bool {
	return l.expireAt.IsZero() || now.Before(l.expireAt)
}

// ownerIDSize is the length of the random owner ids handed out by AcquireLock (256 bit)
const ownerIDSize = 32

func newOwnerID() ([]byte, error) {
	id := make([]byte, ownerIDSize)
	if _, err := rand.Read(id); err != nil {
		return nil, fmt.Errorf("failed to generate owner id: %w", err)
	}
	return id, nil
}

type lockMgrImpl struct {
	leases *xsync.MapOf[string, lease]
	now    func() time.Time
}

// NewLockManager creates an in-memory lock table.
// now is the clock used for lease timeouts, nil means time.Now.
func NewLockManager(now func() time.Time) ILockManager {
	if now == nil {
		now = time.Now
	}
	return &lockMgrImpl{
		leases: xsync.NewMapOf[string, lease](),
		now:    now,
	}
}

// take installs l if the key holds no live lease
func (lm *lockMgrImpl) take(key string, l lease) bool {
	now := lm.now()
	acquired := false
	lm.leases.Compute(key, func(old lease, loaded bool) (lease, bool) {
		if loaded && old.live(now) {
			return old, false
		}
		acquired = true
		return l, false
	})
	return acquired
}

func (lm *lockMgrImpl) Lock(key string) (bool, error) {
	return lm.take(key, lease{}), nil
}

func (lm *lockMgrImpl) Unlock(key string) error {
	lm.leases.Delete(key)
	return nil
}

func (lm *lockMgrImpl) AcquireLock(key string, timeout uint64) (bool, []byte, error) {
	ownerID, err := newOwnerID()
	if err != nil {
		return false, nil, err
	}

	l := lease{ownerID: ownerID}
	if timeout > 0 {
		l.expireAt = lm.now().Add(time.Duration(timeout) * time.Second)
	}

	if !lm.take(key, l) {
		return false, nil, nil
	}
	return true, ownerID, nil
}

func (lm *lockMgrImpl) ReleaseLock(key string, ownerID []byte) (bool, error) {
	now := lm.now()
	released := true
	lm.leases.Compute(key, func(old lease, loaded bool) (lease, bool) {
		if !loaded || !old.live(now) {
			return old, true
		}
		if old.ownerID == nil || !bytes.Equal(old.ownerID, ownerID) {
			released = false
			return old, false
		}
		return old, true
	})
	return released, nil
}

func (lm *lockMgrImpl) IsLocked(key string) (bool, error) {
	l, ok := lm.leases.Load(key)
	if !ok {
		return false, nil
	}
	if l.live(lm.now()) {
		return true, nil
	}

	// drop the lapsed lease unless it was replaced in the meantime
	lm.leases.Compute(key, func(old lease, loaded bool) (lease, bool) {
		return old, !loaded || !old.live(lm.now())
	})
	return false, nil
}
