package serializer

import (
	"fmt"

	"github.com/ValentinKolb/sKV/rpc/common"
)

// IRPCSerializer encodes the messages exchanged between clients, nodes and replication peers.
// Implementations must be safe for concurrent use.
type IRPCSerializer interface {
	// Serialize encodes msg into a new byte slice
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize decodes b into msg. msg is only valid if no error is returned.
	Deserialize(b []byte, msg *common.Message) error
}

// ByName returns the serializer registered under name (binary, json or gob)
func ByName(name string) (IRPCSerializer, error) {
	switch name {
	case "binary":
		return NewBinarySerializer(), nil
	case "json":
		return NewJSONSerializer(), nil
	case "gob":
		return NewGOBSerializer(), nil
	default:
		return nil, fmt.Errorf("unknown serializer %q (binary, json, gob)", name)
	}
}
