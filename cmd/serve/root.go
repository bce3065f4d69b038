package serve

import (
	"fmt"
	"strings"
	"time"

	cmdUtil "github.com/ValentinKolb/sKV/cmd/util"
	"github.com/ValentinKolb/sKV/lib/store/pstore"
	"github.com/ValentinKolb/sKV/lib/wal"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/server"
	"github.com/ValentinKolb/sKV/rpc/transport/http"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start a sKV node",
		Long:    `Start a sKV node with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is SKV_<flag> (e.g. SKV_DATA_DIR=/var/lib/skv)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the rpc endpoint and the json api will listen (e.g. localhost:8080)"))

	key = "rpc-endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8090", cmdUtil.WrapString("Address of the socket rpc listener when --transport is tcp (host:port) or unix (socket path)"))

	key = "node-name"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Name of this node, only used in logs (defaults to the endpoint)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Timeout in seconds"))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, "data", cmdUtil.WrapString("Directory holding the write-ahead log (appendonly.wal) and the snapshot (dump.snap)"))

	key = "wal-sync"
	ServeCmd.PersistentFlags().String(key, "batch", cmdUtil.WrapString("Durability of the write-ahead log: none (os decides), batch (fsync every wal-sync-interval) or always (fsync every write)"))

	key = "wal-sync-interval"
	ServeCmd.PersistentFlags().Duration(key, pstore.DefaultWALSyncInterval, cmdUtil.WrapString("How often the write-ahead log is fsynced in batch mode"))

	key = "snapshot-interval"
	ServeCmd.PersistentFlags().Duration(key, pstore.DefaultSnapshotInterval, cmdUtil.WrapString("How often a snapshot is written, a negative value disables periodic snapshots"))

	key = "sweep-interval"
	ServeCmd.PersistentFlags().Duration(key, pstore.DefaultSweepInterval, cmdUtil.WrapString("How often expired records are removed, a negative value disables the sweeper (expired records are still never returned)"))

	key = "default-ttl"
	ServeCmd.PersistentFlags().Duration(key, 0, cmdUtil.WrapString("TTL applied by the json api to sets without a ttl (0 = never expire)"))

	key = "peers"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Comma-separated list of nodes that receive every mutation of this node (e.g. 'localhost:8081,localhost:8082'). More peers can be added at runtime"))

	key = "replication-protocol"
	ServeCmd.PersistentFlags().String(key, "rpc", cmdUtil.WrapString("How mutations are sent to peers: rpc (the rpc endpoint with the configured serializer) or json (POST /sync)"))

	key = "replication-transport"
	ServeCmd.PersistentFlags().String(key, "http", cmdUtil.WrapString("Transport of the rpc replication protocol: http, tcp or unix. With tcp or unix peers are given by the --rpc-endpoint of their node"))

	key = "replication-timeout"
	ServeCmd.PersistentFlags().Duration(key, 5*time.Second, cmdUtil.WrapString("Timeout of a single replication request"))

	key = "replication-buffer"
	ServeCmd.PersistentFlags().Int(key, 1024, cmdUtil.WrapString("Mutations queued per peer, further mutations for a slow peer are dropped"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.NodeName = viper.GetString("node-name")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.WALSync = viper.GetString("wal-sync")
	serveCmdConfig.WALSyncInterval = viper.GetDuration("wal-sync-interval")
	serveCmdConfig.SnapshotInterval = viper.GetDuration("snapshot-interval")
	serveCmdConfig.SweepInterval = viper.GetDuration("sweep-interval")
	serveCmdConfig.DefaultTTL = viper.GetDuration("default-ttl")
	serveCmdConfig.ReplicationProtocol = viper.GetString("replication-protocol")
	serveCmdConfig.ReplicationTransport = viper.GetString("replication-transport")
	serveCmdConfig.RPCEndpoint = viper.GetString("rpc-endpoint")
	serveCmdConfig.ReplicationTimeout = viper.GetDuration("replication-timeout")
	serveCmdConfig.ReplicationBuffer = viper.GetInt("replication-buffer")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	if serveCmdConfig.NodeName == "" {
		serveCmdConfig.NodeName = serveCmdConfig.Endpoint
	}

	// validate before anything touches the data directory
	if _, err := wal.ParseSyncMode(serveCmdConfig.WALSync); err != nil {
		return err
	}
	if _, err := common.ParseLogLevel(serveCmdConfig.LogLevel); err != nil {
		return err
	}
	if serveCmdConfig.DefaultTTL < 0 {
		return fmt.Errorf("default-ttl must not be negative")
	}

	// parse peers
	serveCmdConfig.Peers = nil
	for _, peer := range strings.Split(viper.GetString("peers"), ",") {
		if peer = strings.TrimSpace(peer); peer != "" {
			serveCmdConfig.Peers = append(serveCmdConfig.Peers, peer)
		}
	}

	return nil
}

// run starts the sKV node
func run(_ *cobra.Command, _ []string) error {

	// parse the serializer
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	// The http api is always served, tcp and unix add a socket listener for the rpc endpoint
	switch transport := viper.GetString("transport"); transport {
	case "http":
		serveCmdConfig.RPCTransport = "none"
	case "tcp", "unix":
		serveCmdConfig.RPCTransport = transport
	default:
		return fmt.Errorf("invalid transport %s", transport)
	}

	serv := server.NewRPCServer(
		*serveCmdConfig,
		http.NewHttpServerTransport(),
		s,
	)

	if err := serv.Serve(); err != nil {
		if pstore.IsCorruption(err) {
			return fmt.Errorf("refusing to start, persisted state in %s is corrupted: %w", serveCmdConfig.DataDir, err)
		}
		return err
	}
	return nil
}

// initConfig reads in serveCmdConfig file and ENV variables if set.
func initConfig() {
	cmdUtil.InitConfig()
}
