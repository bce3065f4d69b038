package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ValentinKolb/sKV/lib/replication"
	"github.com/ValentinKolb/sKV/lib/store/pstore"
	"github.com/ValentinKolb/sKV/lib/wal"
	"github.com/ValentinKolb/sKV/rpc/client"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/serializer"
	"github.com/ValentinKolb/sKV/rpc/transport"
	httptransport "github.com/ValentinKolb/sKV/rpc/transport/http"
	tcptransport "github.com/ValentinKolb/sKV/rpc/transport/tcp"
	unixtransport "github.com/ValentinKolb/sKV/rpc/transport/unix"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("rpc")

// shutdownTimeout bounds the graceful shutdown of the http server
const shutdownTimeout = 10 * time.Second

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		http.NewHttpServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
	}
}

// RPCServer is a single skv node: a persistent store, its replication publisher and
// the rpc and json endpoints serving both. The rpc endpoint can additionally be served
// on a tcp or unix socket (config.RPCTransport).
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	socket     transport.IRPCServerTransport // nil without a socket listener
	serializer serializer.IRPCSerializer

	store     *pstore.Store
	publisher *replication.Publisher
	adapters  []IRPCServerAdapter
}

func (s *RPCServer) registerTransportHandler() {
	s.transport.RegisterHandler(s.handleRequest)
	if s.socket != nil {
		s.socket.RegisterHandler(s.handleRequest)
	}
}

// handleRequest decodes a rpc request, lets the adapters handle it and encodes the response
func (s *RPCServer) handleRequest(req []byte) []byte {
	var msg common.Message
	var respMsg *common.Message

	// Decode the request
	if err := s.serializer.Deserialize(req, &msg); err != nil {
		respMsg = common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
	} else {
		// Let the responsible adapter handle the request
		respMsg = s.handle(&msg)
	}

	// Return result
	val, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("failed to serialize response: %v", err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return val
}

// handle passes req to the first adapter supporting its type
func (s *RPCServer) handle(req *common.Message) *common.Message {
	for _, adapter := range s.adapters {
		if adapter.Supports(req.MsgType) {
			return adapter.Handle(req)
		}
	}
	return common.NewErrorResponse(fmt.Sprintf("unsupported message type: %s", req.MsgType))
}

// newSocketTransport creates the socket listener served next to the http api, nil for none
func newSocketTransport(name string) (transport.IRPCServerTransport, error) {
	switch name {
	case "", "none":
		return nil, nil
	case "tcp":
		return tcptransport.NewTCPDefaultServerTransport(), nil
	case "unix":
		return unixtransport.NewUnixDefaultServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid rpc transport %q (none, tcp, unix)", name)
	}
}

// clientTransportFactory returns the constructor of the named client transport
func clientTransportFactory(name string) (func() transport.IRPCClientTransport, error) {
	switch name {
	case "", "http":
		return httptransport.NewHttpClientTransport, nil
	case "tcp":
		return tcptransport.NewTCPClientTransport, nil
	case "unix":
		return unixtransport.NewUnixClientTransport, nil
	default:
		return nil, fmt.Errorf("invalid replication transport %q (http, tcp, unix)", name)
	}
}

// socketConfig is the configuration passed to the socket listener
func (s *RPCServer) socketConfig() common.ServerConfig {
	config := s.config
	config.Endpoint = s.config.RPCEndpoint
	return config
}

// newSink creates the replication sink for the configured protocol
func (s *RPCServer) newSink() (replication.Sink, error) {
	switch s.config.ReplicationProtocol {
	case "", "rpc":
		newTransport, err := clientTransportFactory(s.config.ReplicationTransport)
		if err != nil {
			return nil, err
		}
		return client.NewRPCSyncSink(newTransport, s.serializer, s.config.ReplicationTimeout), nil
	case "json":
		return client.NewJSONSyncSink(&http.Client{Timeout: s.config.ReplicationTimeout}), nil
	default:
		return nil, fmt.Errorf("invalid replication protocol %q (rpc, json)", s.config.ReplicationProtocol)
	}
}

func (s *RPCServer) init() error {

	// Init logger
	common.InitLoggers(s.config)

	walSync, err := wal.ParseSyncMode(s.config.WALSync)
	if err != nil {
		return err
	}

	s.socket, err = newSocketTransport(s.config.RPCTransport)
	if err != nil {
		return err
	}
	if s.socket != nil && s.config.RPCEndpoint == "" {
		return fmt.Errorf("rpc transport %s needs an rpc endpoint", s.config.RPCTransport)
	}

	// Replication
	sink, err := s.newSink()
	if err != nil {
		return err
	}
	s.publisher = replication.NewPublisher(sink, replication.Options{
		Timeout:    s.config.ReplicationTimeout,
		BufferSize: s.config.ReplicationBuffer,
	})

	// Store, recovered from the data directory
	s.store, err = pstore.Open(pstore.Options{
		DataDir:          s.config.DataDir,
		WALSyncMode:      walSync,
		WALSyncInterval:  s.config.WALSyncInterval,
		SweepInterval:    s.config.SweepInterval,
		SnapshotInterval: s.config.SnapshotInterval,
		Publisher:        s.publisher,
	})
	if err != nil {
		s.publisher.Close()
		return err
	}
	s.store.Start()

	for _, peer := range s.config.Peers {
		s.publisher.AddNode(peer)
	}

	s.adapters = []IRPCServerAdapter{
		NewIStoreServerAdapter(s.store),
		NewLockManagerServerAdapter(s.store.Locks()),
		NewClusterServerAdapter(s.store, s.publisher),
	}

	// Configure the transport layer
	s.registerTransportHandler()
	s.transport.RegisterAPI(NewRESTAPI(s.store, s.publisher, s.config.DefaultTTL))

	Logger.Infof("skv node %s ready (data dir %s, index %d)", s.config.NodeName, s.store.Dir(), s.store.Index())
	return nil
}

// shutdownTransports stops the http api and the socket listener
func (s *RPCServer) shutdownTransports(ctx context.Context) error {
	err := s.transport.Shutdown(ctx)
	if s.socket != nil {
		err = errors.Join(err, s.socket.Shutdown(ctx))
	}
	return err
}

// close stops the store before the publisher so that the last mutations are still queued
func (s *RPCServer) close() error {
	err := s.store.Close()
	s.publisher.Close()
	return err
}

// Serve starts the RPC server
// This function will also initialize the store and the replication and start the transport layer.
// It returns after SIGINT or SIGTERM once the store is closed.
func (s *RPCServer) Serve() error {
	Logger.Infof("Created RPC Server")
	Logger.Infof(s.config.String())

	if err := s.init(); err != nil {
		return err
	}

	listenErr := make(chan error, 2)
	listeners := 1
	go func() {
		listenErr <- s.transport.Listen(s.config)
	}()
	if s.socket != nil {
		listeners++
		go func() {
			listenErr <- s.socket.Listen(s.socketConfig())
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	var serveErr error
	select {
	case serveErr = <-listenErr:
		listeners--
		if serveErr != nil {
			Logger.Errorf("transport failed: %v", serveErr)
		}
	case received := <-sig:
		Logger.Infof("received %s, shutting down", received)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	serveErr = errors.Join(serveErr, s.shutdownTransports(ctx))
	cancel()
	for ; listeners > 0; listeners-- {
		serveErr = errors.Join(serveErr, <-listenErr)
	}

	return errors.Join(serveErr, s.close())
}
