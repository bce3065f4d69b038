package server

import (
	"fmt"

	"github.com/ValentinKolb/sKV/lib/replication"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/common"
)

// Syncer applies mutations received from peers
type Syncer interface {
	ApplySync(n replication.Notification) error
}

// NodeRegistry holds the replication targets of a node
type NodeRegistry interface {
	AddNode(addr string) bool
	Nodes() []string
}

func NewClusterServerAdapter(syncer Syncer, nodes NodeRegistry) IRPCServerAdapter {
	return &clusterServerAdapter{syncer: syncer, nodes: nodes}
}

type clusterServerAdapter struct {
	syncer Syncer
	nodes  NodeRegistry
}

func (adapter *clusterServerAdapter) Supports(t common.MessageType) bool {
	switch t {
	case common.MsgTSyncSet, common.MsgTSyncDelete, common.MsgTNodeAdd, common.MsgTNodeList:
		return true
	}
	return false
}

func (adapter *clusterServerAdapter) Handle(req *common.Message) *common.Message {
	switch req.MsgType {
	case common.MsgTSyncSet:
		err := adapter.syncer.ApplySync(replication.Notification{
			Op:       replication.OpSet,
			Key:      req.Key,
			Value:    req.Value,
			ExpireAt: req.ExpireAt,
		})
		return common.NewSyncResponse(req.MsgType, err)
	case common.MsgTSyncDelete:
		err := adapter.syncer.ApplySync(replication.Notification{
			Op:  replication.OpDelete,
			Key: req.Key,
		})
		return common.NewSyncResponse(req.MsgType, err)
	case common.MsgTNodeAdd:
		if req.Key == "" {
			return common.NewNodeAddResponse(false, store.NewError(store.RetCInvalidOperation, "node address must not be empty"))
		}
		return common.NewNodeAddResponse(adapter.nodes.AddNode(req.Key), nil)
	case common.MsgTNodeList:
		return common.NewNodeListResponse(encodeMeta(adapter.nodes.Nodes(), nil))
	default:
		return common.NewErrorResponse(fmt.Sprintf("RPC ClusterAdapter - Unsuported message type: %s", req.MsgType))
	}
}

