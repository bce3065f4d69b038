package server

import (
	"github.com/ValentinKolb/sKV/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for handling requests and responses
type IRPCServerAdapter interface {
	// Supports reports whether the adapter handles messages of type t
	Supports(t common.MessageType) bool

	// Handle handles a request and returns a response
	// If an error occurs, it should be set in the response
	Handle(req *common.Message) (resp *common.Message)
}
