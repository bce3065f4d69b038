// Package unix implements the Unix domain socket transport of skv's rpc system for
// clients running on the same machine as the node. Endpoints are socket paths, a
// stale socket file is removed before listening.
//
// The framing, connection pooling and request correlation come from the base
// package. The default server buffer size is 64 KB.
package unix
