// Package base implements the framed socket transport shared by the tcp and unix
// transports. The concrete packages only provide connectors that dial and listen.
//
// Wire format, per frame in both directions:
//
//	8 bytes  request id (uint64, big endian)
//	4 bytes  payload length (uint32, big endian)
//	N bytes  payload (a serialized rpc message)
//
// Client:
//
//   - Every endpoint gets ConnectionsPerEndpoint connections, requests are spread
//     round-robin over all of them.
//   - Requests are multiplexed: a reader goroutine per connection hands each
//     response to the request with the same id, so many requests can be in flight
//     on one connection.
//   - A broken connection fails its waiting requests and is dialed again on the
//     next request. Failed requests are retried with exponential backoff.
//
// Server:
//
//   - Each connection handles up to maxWorkersPerConn requests concurrently, request
//     buffers are pooled.
//   - Shutdown stops accepting, answers the requests already read and then closes
//     the connections.
//
// Socket transports carry rpc frames only. The REST api and the metrics endpoint
// stay on the http transport, RegisterAPI is a no-op.
package base
