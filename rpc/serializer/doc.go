// Package serializer encodes common.Message values for the rpc endpoint and the rpc
// replication sink. Clients, servers and peers must agree on the format; the serve and
// client commands select it with the --serializer flag.
//
// Formats:
//
//   - binary: a flag byte followed by only the fields that are set. Smallest payloads
//     and the default for both clients and replication.
//   - json: readable on the wire, useful when debugging with curl or a proxy.
//   - gob: Go's self describing format. Every message carries its type description,
//     so payloads are the largest of the three.
//
// All implementations are safe for concurrent use.
//
// Usage:
//
//	s, err := serializer.ByName("binary")
//	data, err := s.Serialize(*common.NewGetRequest("user:1"))
//
//	var resp common.Message
//	err = s.Deserialize(reply, &resp)
package serializer
