// Package tcp implements the TCP socket transport of skv's rpc system. It provides
// the TCP connectors for the base package, which does the framing, connection
// pooling and request correlation.
//
// Key Components:
//
//   - clientConnector: dials host:port endpoints
//
//   - serverConnector: listens on host:port, ":0" picks a free port
//
// Both sides disable Nagle's algorithm and enable keep-alive. The default server
// buffer size is 512 KB.
package tcp
