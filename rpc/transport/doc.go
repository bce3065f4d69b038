// Package transport defines the interfaces for RPC communication between skv
// clients and servers. It provides a common contract that all transport
// implementations must fulfill, so clients and server adapters never depend on
// how bytes travel.
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations that
//     handles connection management and request sending.
//
//   - IRPCServerTransport: Interface for server-side transport implementations that
//     receives requests and hands them to the registered handler. It also serves
//     the REST api and the metrics endpoint registered with RegisterAPI.
//
//   - ServerHandleFunc: Function type for request handling callbacks.
//
// Implementations:
//
//   - http: POST /rpc next to the REST api, always served by a node.
//
//   - tcp and unix: framed socket transports built on the base subpackage. A node
//     serves one of them next to http when configured with a RPCTransport.
package transport
