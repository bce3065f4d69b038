// Package common provides core data structures and utilities shared by the
// skv client, server and commands. It defines the rpc message protocol, the
// configuration structures and the logger used by all packages.
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication between components,
//     with a flexible structure that adapts to different operation types.
//     Includes factory methods for creating the request and response messages.
//     Errors travel as message text plus a store.RetCode (ErrCode), so a client
//     can rebuild the *store.Error with ResponseError.
//
//   - MessageType: Enumeration defining all supported operation types,
//     grouped into key-value, lock, replication and control messages.
//
//   - ServerConfig: Configuration of a node, including persistence, expiration and
//     replication settings.
//
//   - ClientConfig: Configuration for client components, controlling connection
//     parameters, timeouts, and retry behavior.
//
//   - Logger: Custom implementation of dragonboat's logger.ILogger used through the
//     logger facade by every package, providing consistent formatting across the application.
package common
