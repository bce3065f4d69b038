package lock

import (
	"encoding/hex"
	"fmt"

	"github.com/ValentinKolb/sKV/cmd/util"
	"github.com/ValentinKolb/sKV/lib/lockmgr"
	"github.com/ValentinKolb/sKV/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcLockMgr     lockmgr.ILockManager
	acquireTimeout uint64

	// LockCommands represents the lock command group
	LockCommands = &cobra.Command{
		Use:               "lock",
		Short:             "Perform lock operations",
		PersistentPreRunE: setupLockClient,
	}

	// lockCmd represents the lock command
	lockCmd = &cobra.Command{
		Use:   "lock [key]",
		Short: "Lock a key until it is unlocked, sets and deletes of the key are rejected meanwhile",
		Args:  cobra.ExactArgs(1),
		RunE:  runLock,
	}

	// unlockCmd represents the unlock command
	unlockCmd = &cobra.Command{
		Use:   "unlock [key]",
		Short: "Remove any lock on a key",
		Args:  cobra.ExactArgs(1),
		RunE:  runUnlock,
	}

	// statusCmd represents the status command
	statusCmd = &cobra.Command{
		Use:   "status [key]",
		Short: "Check whether a key is locked",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatus,
	}

	// acquireCmd represents the acquire command
	acquireCmd = &cobra.Command{
		Use:   "acquire [key]",
		Short: "Acquire a lease on a key, returns the owner ID needed to release it",
		Args:  cobra.ExactArgs(1),
		RunE:  runAcquire,
	}

	// releaseCmd represents the release command
	releaseCmd = &cobra.Command{
		Use:   "release [key] [ownerID]",
		Short: "Release a previously acquired lock",
		Long:  "Release a lock using the key and owner ID. The owner ID is the hex string returned by the acquire command.",
		Args:  cobra.ExactArgs(2),
		RunE:  runRelease,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add subcommands to lock command
	LockCommands.AddCommand(lockCmd)
	LockCommands.AddCommand(unlockCmd)
	LockCommands.AddCommand(statusCmd)
	LockCommands.AddCommand(acquireCmd)
	LockCommands.AddCommand(releaseCmd)

	// Add common RPC flags to the lock command
	util.SetupRPCClientFlags(LockCommands)

	// Add flags specific to acquire
	acquireCmd.Flags().Uint64Var(&acquireTimeout, "lease", 30, "Lease duration in seconds (0 for no timeout)")
}

// setupLockClient initializes the lock manager client
func setupLockClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get client configuration components
	config := util.GetClientConfig()

	// Get serializer and transport
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	// Create the lock manager client
	rpcLockMgr, err = client.NewRPCLockMgr(
		*config,
		t,
		s,
	)

	return err
}

// runLock handles the lock command
func runLock(_ *cobra.Command, args []string) error {
	locked, err := rpcLockMgr.Lock(args[0])
	if err != nil {
		return fmt.Errorf("failed to lock: %v", err)
	}
	fmt.Printf("locked=%v\n", locked)
	return nil
}

// runUnlock handles the unlock command
func runUnlock(_ *cobra.Command, args []string) error {
	if err := rpcLockMgr.Unlock(args[0]); err != nil {
		return fmt.Errorf("failed to unlock: %v", err)
	}
	fmt.Println("unlocked=true")
	return nil
}

// runStatus handles the status command
func runStatus(_ *cobra.Command, args []string) error {
	locked, err := rpcLockMgr.IsLocked(args[0])
	if err != nil {
		return fmt.Errorf("failed to check lock: %v", err)
	}
	fmt.Printf("locked=%v\n", locked)
	return nil
}

// runAcquire handles the acquire lock command
func runAcquire(cmd *cobra.Command, args []string) error {
	key := args[0]

	// Attempt to acquire the lock
	acquired, ownerID, err := rpcLockMgr.AcquireLock(key, acquireTimeout)

	if err != nil {
		return fmt.Errorf("failed to acquire lock: %v", err)
	}

	if !acquired {
		fmt.Printf("acquired=false\n")
		return nil
	}

	// Convert owner ID to hex string for display
	ownerIDHex := hex.EncodeToString(ownerID)
	fmt.Printf("acquired=true, ownerId=%s\n", ownerIDHex)

	return nil
}

// runRelease handles the release lock command
func runRelease(_ *cobra.Command, args []string) error {
	key := args[0]
	ownerIDHex := args[1]

	// Convert hex string owner ID back to bytes
	ownerID, err := hex.DecodeString(ownerIDHex)
	if err != nil {
		return fmt.Errorf("invalid owner ID format: %v", err)
	}

	// Attempt to release the lock
	released, err := rpcLockMgr.ReleaseLock(key, ownerID)

	if err != nil {
		return fmt.Errorf("failed to release lock: %v", err)
	}

	fmt.Printf("released=%v\n", released)

	return nil
}
