// Package server implements a sKV node: it opens the persistent store, wires the
// replication publisher and serves both the rpc endpoint and the json api.
//
// Key Components:
//
//   - IRPCServerAdapter: Interface for request handlers. Each adapter reports which
//     message types it supports and translates them into method calls.
//
//   - NewIStoreServerAdapter: Adapter for key-value operations (store.IStore).
//
//   - NewLockManagerServerAdapter: Adapter for the lock table (lockmgr.ILockManager).
//
//   - NewClusterServerAdapter: Adapter for replication traffic. SyncSet and SyncDelete
//     are applied with ApplySync (not published again), NodeAdd and NodeList manage the
//     peers of the publisher.
//
//   - NewRESTAPI: The json api (set, get, del, match, keys, lock, nodes, sync, metrics)
//     mounted next to the rpc endpoint.
//
//   - NewRPCServer: Creates a node with the given transport and serializer. Serve
//     recovers the store from the data directory, starts the background tasks and
//     blocks until SIGINT or SIGTERM, then shuts down gracefully.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Endpoint:            "0.0.0.0:8080",
//	  DataDir:             "data",
//	  WALSync:             "batch",
//	  Peers:               []string{"backup:8080"},
//	  ReplicationProtocol: "rpc",
//	  LogLevel:            "info",
//	}
//
//	s := server.NewRPCServer(
//	  config,
//	  http.NewHttpServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Replication:
//
//	With ReplicationProtocol "rpc" peers receive SyncSet/SyncDelete messages on their
//	rpc endpoint (all nodes must use the same serializer). ReplicationTransport picks
//	how they travel: http (peers are http addresses) or tcp/unix (peers are the socket
//	endpoints of nodes started with a RPCTransport). With "json" peers receive
//	POST /sync requests, which any node accepts regardless of its serializer.
//
// Socket listener:
//
//	With RPCTransport "tcp" or "unix" the rpc endpoint is also served on RPCEndpoint
//	using the framed socket transport. The REST api and metrics stay on http.
package server
