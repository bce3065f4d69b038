package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of a skv node.
type ServerConfig struct {
	// HTTP api settings
	Endpoint      string
	TimeoutSecond int64
	NodeName      string

	// Socket rpc listener next to the http api
	RPCTransport string // none, tcp or unix
	RPCEndpoint  string // host:port (tcp) or socket path (unix)

	// Persistence
	DataDir          string
	WALSync          string // none, batch or always
	WALSyncInterval  time.Duration
	SnapshotInterval time.Duration

	// Expiration
	SweepInterval time.Duration
	DefaultTTL    time.Duration // applied by the REST api when a set carries no ttl

	// Replication
	Peers               []string
	ReplicationTimeout  time.Duration
	ReplicationBuffer   int
	ReplicationProtocol  string // rpc or json
	ReplicationTransport string // http, tcp or unix (rpc protocol only)

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Endpoint)
	addField("Node Name", c.NodeName)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	if c.RPCTransport != "" && c.RPCTransport != "none" {
		addField("Socket Transport", c.RPCTransport)
		addField("Socket Endpoint", c.RPCEndpoint)
	}

	// Persistence
	addSection("Storage")
	addField("Data Directory", c.DataDir)
	addField("WAL Sync", c.WALSync)
	if c.WALSync == "batch" {
		addField("WAL Sync Interval", c.WALSyncInterval.String())
	}
	addField("Snapshot Interval", c.SnapshotInterval.String())

	// Expiration
	addSection("Expiration")
	addField("Sweep Interval", c.SweepInterval.String())
	if c.DefaultTTL > 0 {
		addField("Default TTL", c.DefaultTTL.String())
	} else {
		addField("Default TTL", "none")
	}

	// Replication
	addSection("Replication")
	addField("Protocol", c.ReplicationProtocol)
	if c.ReplicationProtocol == "rpc" {
		addField("Transport", c.ReplicationTransport)
	}
	addField("Timeout", c.ReplicationTimeout.String())
	addField("Buffer per Peer", strconv.Itoa(c.ReplicationBuffer))
	if len(c.Peers) == 0 {
		addField("Initial Peers", "none")
	}
	for i, peer := range c.Peers {
		addField("Peer "+strconv.Itoa(i), peer)
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoints              []string
	TimeoutSecond          int
	RetryCount             int
	ConnectionsPerEndpoint int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))
	addField("Connections Per Endpoint", strconv.Itoa(int(math.Max(1, float64(c.ConnectionsPerEndpoint)))))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
