// Package client implements RPC clients for sKV nodes.
// It provides implementations of the store.IStore and lockmgr.ILockManager interfaces
// that communicate with a remote node via RPC, and the replication sinks a node uses
// to forward its mutations to peers.
//
// Key Components:
//
//   - NewRPCStore: Creates a client implementing store.IStore. Errors returned by the
//     node keep their store.RetCode, so store.IsLockConflict works on the client side.
//
//   - NewRPCLockMgr: Creates a client implementing lockmgr.ILockManager.
//
//   - NewRPCCluster: Creates a client for the peer list of a node (AddNode, Nodes).
//
//   - NewRPCSyncSink: replication.Sink sending SyncSet/SyncDelete rpc messages, one
//     client transport per peer.
//
//   - NewJSONSyncSink: replication.Sink posting SyncRequest bodies to the /sync
//     route of the json api.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  Endpoints:              []string{"localhost:8080"},
//	  TimeoutSecond:          5,
//	  RetryCount:             3,
//	  ConnectionsPerEndpoint: 1,
//	}
//
//	s, _ := client.NewRPCStore(config, http.NewHttpClientTransport(), serializer.NewBinarySerializer())
//	defer s.Close()
//
//	s.Set("session:1", []byte("token"), time.Minute)
//	value, exists, _ := s.Get("session:1")
//
//	locks, _ := client.NewRPCLockMgr(config, http.NewHttpClientTransport(), serializer.NewBinarySerializer())
//	acquired, ownerID, _ := locks.AcquireLock("session:1", 30)
//	if acquired {
//	  locks.ReleaseLock("session:1", ownerID)
//	}
//
// Performance Considerations:
//
//   - For applications that frequently send large payloads, increasing ConnectionsPerEndpoint
//     can improve throughput by allowing parallel requests.
//
//   - For small messages, a single connection per endpoint is often more efficient due to
//     reduced connection overhead.
//
//   - The choice of serializer significantly affects performance. The binary serializer
//     provides the best performance and smallest payload size.
//
// Thread Safety:
//
//	All client implementations are thread-safe and can be used concurrently from
//	multiple goroutines without additional synchronization.
package client
