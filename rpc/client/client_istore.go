package client

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/serializer"
	"github.com/ValentinKolb/sKV/rpc/transport"
)

// RPCStore is a store.IStore served by a remote skv node
type RPCStore interface {
	store.IStore
	Close() error
}

// NewRPCStore creates a new RPC store
// The function takes a config, a transport and a serializer as parameters
// It returns a store.IStore and an error
func NewRPCStore(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (RPCStore, error) {
	adapter, err := newRPCClientAdapter(config, transport, serializer)
	if err != nil {
		return nil, err
	}
	return &rpcStore{adapter}, nil
}

type rpcStore struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcStore) Set(key string, value []byte, ttl time.Duration) (err error) {
	if ttl < 0 {
		return store.NewError(store.RetCInvalidOperation, "ttl must not be negative")
	}
	// round up so a sub-millisecond ttl does not turn into "never expires"
	ttlMs := uint64((ttl + time.Millisecond - 1) / time.Millisecond)
	_, err = i.call(common.NewSetRequest(key, value, ttlMs))
	return err
}

func (i *rpcStore) Delete(key string) (err error) {
	_, err = i.call(common.NewDeleteRequest(key))
	return err
}

func (i *rpcStore) DeleteMatching(pattern string) (int, error) {
	resp, err := i.call(common.NewDeleteMatchingRequest(pattern))
	if err != nil {
		return 0, err
	}
	var deleted int
	if err := json.Unmarshal(resp.Meta, &deleted); err != nil {
		return 0, fmt.Errorf("RPC client - invalid delete count: %w", err)
	}
	return deleted, nil
}

func (i *rpcStore) Get(key string) (value []byte, loaded bool, err error) {
	value, _, loaded, err = i.GetWithExpiry(key)
	return value, loaded, err
}

func (i *rpcStore) GetWithExpiry(key string) ([]byte, time.Time, bool, error) {
	resp, err := i.call(common.NewGetRequest(key))
	if err != nil {
		return nil, time.Time{}, false, err
	}
	var expireAt time.Time
	if resp.ExpireAt != 0 {
		expireAt = time.UnixMilli(int64(resp.ExpireAt))
	}
	return resp.Value, expireAt, resp.Ok, nil
}

func (i *rpcStore) Keys() ([]store.KeyInfo, error) {
	resp, err := i.call(common.NewKeysRequest())
	if err != nil {
		return nil, err
	}
	var keys []store.KeyInfo
	if err := json.Unmarshal(resp.Meta, &keys); err != nil {
		return nil, fmt.Errorf("RPC client - invalid key list: %w", err)
	}
	return keys, nil
}

func (i *rpcStore) GetDBInfo() (info db.DatabaseInfo, err error) {
	resp, err := i.call(common.NewInfoRequest())
	if err != nil {
		return db.DatabaseInfo{}, err
	}
	if err := json.Unmarshal(resp.Meta, &info); err != nil {
		return db.DatabaseInfo{}, fmt.Errorf("RPC client - invalid database info: %w", err)
	}
	return info, nil
}
