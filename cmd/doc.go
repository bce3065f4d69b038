// Package cmd implements the command-line interface of sKV. It provides a
// hierarchical command structure with operations for running a node and
// interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for key-value operations (set, get, del, match, keys, ...)
//   - lock: Commands for the lock table (lock, unlock, acquire, release, status)
//   - nodes: Commands for the replication peers of a node (add, list)
//   - serve: Command for starting and configuring a node
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See skv -help for a list of all commands.
package cmd
