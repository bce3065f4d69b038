package nodes

import (
	"fmt"

	"github.com/ValentinKolb/sKV/cmd/util"
	"github.com/ValentinKolb/sKV/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcCluster client.RPCCluster

	// NodeCommands represents the nodes command group
	NodeCommands = &cobra.Command{
		Use:               "nodes",
		Short:             "Manage the replication peers of a node",
		PersistentPreRunE: setupClusterClient,
	}

	addCmd = &cobra.Command{
		Use:   "add [address]",
		Short: "Replicate all further mutations of the node to address",
		Long:  "Adds a replication peer. The peer list lives in memory only, peers have to be added again after a restart (or passed with --peers).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			added, err := rpcCluster.AddNode(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("address=%s, added=%v\n", args[0], added)
			return nil
		},
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List the replication peers of the node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			nodes, err := rpcCluster.Nodes()
			if err != nil {
				return err
			}
			for _, n := range nodes {
				fmt.Println(n)
			}
			return nil
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common RPC flags to the nodes command
	util.SetupRPCClientFlags(NodeCommands)

	NodeCommands.AddCommand(addCmd)
	NodeCommands.AddCommand(listCmd)
}

// setupClusterClient initializes the cluster client
func setupClusterClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	rpcCluster, err = client.NewRPCCluster(*util.GetClientConfig(), t, s)
	return err
}
