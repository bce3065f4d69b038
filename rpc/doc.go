// Package rpc provides the network layer of sKV. It connects command line clients
// to a node and nodes to their replication peers.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message protocol, configuration structures, and logging.
//
//   - transport: Network communication abstractions, implemented over HTTP.
//
//   - serializer: Message serialization with multiple format options (Binary, JSON, GOB)
//     for converting between Message objects and byte arrays.
//
//   - client: RPC clients for the store, the lock table and the peer list, and the
//     replication sinks used to deliver mutations to peers.
//
//   - server: The node itself, with adapters for store, lock and replication
//     messages and the json api.
package rpc
