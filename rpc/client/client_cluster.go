package client

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/sKV/lib/replication"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/serializer"
	"github.com/ValentinKolb/sKV/rpc/transport"
)

// RPCCluster manages the replication peers of a remote node
type RPCCluster interface {
	// AddNode registers addr as a replication target, returns false if it was already known
	AddNode(addr string) (bool, error)
	// Nodes lists the replication targets in the order they were added
	Nodes() ([]string, error)
	// Sync applies a notification on the remote node as if it came from a peer
	Sync(n replication.Notification) error
	Close() error
}

// NewRPCCluster creates a new RPC cluster client
func NewRPCCluster(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (RPCCluster, error) {
	adapter, err := newRPCClientAdapter(config, transport, serializer)
	if err != nil {
		return nil, err
	}
	return &rpcCluster{adapter}, nil
}

type rpcCluster struct {
	rpcClientAdapter
}

func (c *rpcCluster) AddNode(addr string) (bool, error) {
	resp, err := c.call(common.NewNodeAddRequest(addr))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (c *rpcCluster) Nodes() ([]string, error) {
	resp, err := c.call(common.NewNodeListRequest())
	if err != nil {
		return nil, err
	}
	var nodes []string
	if err := json.Unmarshal(resp.Meta, &nodes); err != nil {
		return nil, fmt.Errorf("RPC client - invalid node list: %w", err)
	}
	return nodes, nil
}

func (c *rpcCluster) Sync(n replication.Notification) error {
	var req *common.Message
	switch n.Op {
	case replication.OpSet:
		req = common.NewSyncSetRequest(n.Key, n.Value, n.ExpireAt)
	case replication.OpDelete:
		req = common.NewSyncDeleteRequest(n.Key)
	default:
		return fmt.Errorf("unknown sync op %s", n.Op)
	}
	_, err := c.call(req)
	return err
}
