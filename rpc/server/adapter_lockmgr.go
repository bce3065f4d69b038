package server

import (
	"fmt"

	"github.com/ValentinKolb/sKV/lib/lockmgr"
	"github.com/ValentinKolb/sKV/rpc/common"
)

func NewLockManagerServerAdapter(locks lockmgr.ILockManager) IRPCServerAdapter {
	return &lockMgrServerAdapter{locks: locks}
}

type lockMgrServerAdapter struct {
	locks lockmgr.ILockManager
}

func (adapter *lockMgrServerAdapter) Supports(t common.MessageType) bool {
	switch t {
	case common.MsgTLCKLock, common.MsgTLCKUnlock, common.MsgTLCKAcquire,
		common.MsgTLCKRelease, common.MsgTLCKIsLocked:
		return true
	}
	return false
}

func (adapter *lockMgrServerAdapter) Handle(req *common.Message) (resp *common.Message) {
	// Check for nil lock manager
	if adapter.locks == nil {
		return common.NewErrorResponse("handler: lock manager is nil")
	}

	// Handle different message types
	switch req.MsgType {
	case common.MsgTLCKLock:
		ok, err := adapter.locks.Lock(req.Key)
		return common.NewLockResponse(ok, err)
	case common.MsgTLCKUnlock:
		err := adapter.locks.Unlock(req.Key)
		return common.NewUnlockResponse(err)
	case common.MsgTLCKAcquire:
		ok, ownerID, err := adapter.locks.AcquireLock(req.Key, req.TTL)
		return common.NewAcquireResponse(ok, ownerID, err)
	case common.MsgTLCKRelease:
		ok, err := adapter.locks.ReleaseLock(req.Key, req.Value)
		return common.NewReleaseResponse(ok, err)
	case common.MsgTLCKIsLocked:
		locked, err := adapter.locks.IsLocked(req.Key)
		return common.NewIsLockedResponse(locked, err)
	default:
		return common.NewErrorResponse(fmt.Sprintf("RPC LockManagerAdapter - Unsuported message type: %s", req.MsgType))
	}
}
