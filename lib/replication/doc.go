// Package replication implements best-effort, asynchronous propagation of applied
// mutations to peer nodes.
//
// The store publishes a Notification after every applied change. The Publisher
// forwards it to every registered peer through a Sink (in skv an rpc or JSON
// client). Delivery is at most once: a failed or timed out delivery is logged,
// counted and dropped. There is no retry, no acknowledgement and no conflict
// resolution, concurrent writes to the same key on different nodes may leave the
// nodes with different values.
//
// Peers are registered at runtime with AddNode. The peer list lives in memory only.
//
// Notifications received from a peer must be applied without publishing them again,
// otherwise two nodes listing each other would bounce every change forever.
package replication
