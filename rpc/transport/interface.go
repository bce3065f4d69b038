package transport

import (
	"context"
	"net/http"

	"github.com/ValentinKolb/sKV/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer when a request is received
// It takes a serialized request and returns a serialized response
type ServerHandleFunc func(req []byte) (resp []byte)

// IRPCServerTransport is the interface for the RPC transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler should be called when a rpc request is received
	RegisterHandler(handler ServerHandleFunc)
	// RegisterAPI mounts additional routes (REST api, metrics) next to the rpc endpoint
	// Transports that are not http based ignore it
	RegisterAPI(api http.Handler)
	// Listen starts the transport layer and listens for incoming requests
	// It blocks until the transport is shut down
	Listen(config common.ServerConfig) error
	// Shutdown stops the transport, waiting for running requests until ctx is done
	Shutdown(ctx context.Context) error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request to the server and returns the response
	Send(ctx context.Context, req []byte) (resp []byte, err error)
	// Close closes the transport connection
	Close() error
}
