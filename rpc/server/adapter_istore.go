package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/common"
)

func NewIStoreServerAdapter(store store.IStore) IRPCServerAdapter {
	return &iStoreServerAdapterImpl{store: store}
}

type iStoreServerAdapterImpl struct {
	store store.IStore
}

func (adapter *iStoreServerAdapterImpl) Supports(t common.MessageType) bool {
	switch t {
	case common.MsgTKVSet, common.MsgTKVGet, common.MsgTKVDelete, common.MsgTKVDeleteMatching,
		common.MsgTKVKeys, common.MsgTKVInfo:
		return true
	}
	return false
}

func (adapter *iStoreServerAdapterImpl) Handle(req *common.Message) *common.Message {
	// Check for nil store
	if adapter.store == nil {
		return common.NewErrorResponse("handler: store is nil")
	}

	// Handle different message types
	switch req.MsgType {
	case common.MsgTKVSet:
		err := adapter.store.Set(req.Key, req.Value, time.Duration(req.TTL)*time.Millisecond)
		return common.NewSetResponse(err)
	case common.MsgTKVDelete:
		err := adapter.store.Delete(req.Key)
		return common.NewDeleteResponse(err)
	case common.MsgTKVDeleteMatching:
		n, err := adapter.store.DeleteMatching(req.Key)
		return common.NewDeleteMatchingResponse(encodeMeta(n, err))
	case common.MsgTKVGet:
		val, expireAt, ok, err := adapter.store.GetWithExpiry(req.Key)
		var expireAtMs uint64
		if !expireAt.IsZero() {
			expireAtMs = uint64(expireAt.UnixMilli())
		}
		return common.NewGetResponse(val, expireAtMs, ok, err)
	case common.MsgTKVKeys:
		keys, err := adapter.store.Keys()
		if keys == nil {
			keys = []store.KeyInfo{}
		}
		return common.NewKeysResponse(encodeMeta(keys, err))
	case common.MsgTKVInfo:
		info, err := adapter.store.GetDBInfo()
		return common.NewInfoResponse(encodeMeta(info, err))
	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC IStoreAdapter - Unsuported message type: %s", req.MsgType),
		)
	}
}

// encodeMeta marshals v for the Meta field of a response unless err is set
func encodeMeta(v any, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
