// Package http implements the HTTP transport for skv rpc communication.
//
// Key Components:
//
//   - httpClientTransport: Implements IRPCClientTransport. It posts serialized
//     requests to the /rpc endpoint of one of the configured servers (round-robin)
//     and retries failed requests with a fresh request body. Endpoints may be given
//     as URLs or as bare host:port.
//
//   - HttpServerTransport: Implements IRPCServerTransport on a chi router. POST /rpc
//     is handed to the registered handler, every other route goes to the api
//     registered with RegisterAPI (REST endpoints, metrics).
//
// Thread Safety:
//
//	The client transport is thread-safe and can be used concurrently. It uses
//	atomic operations for the round-robin counter to ensure thread safety when
//	selecting server endpoints.
package http
