package kv

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	setTTL time.Duration

	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key, optionally with a ttl",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]
			if err := rpcStore.Set(key, []byte(value), setTTL); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value and the remaining ttl of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			resp, expireAt, ok, err := rpcStore.GetWithExpiry(key)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%v, resp=%s, ttl=%s\n", key, ok, resp, remaining(expireAt))
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := rpcStore.Delete(key); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
	matchCmd = &cobra.Command{
		Use:   "match [pattern]",
		Short: "Deletes all keys containing pattern (locked keys are skipped)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deleted, err := rpcStore.DeleteMatching(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("deleted=%d\n", deleted)
			return nil
		},
	}
	keysCmd = &cobra.Command{
		Use:   "keys",
		Short: "Lists all live keys with their value and remaining ttl",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := rpcStore.Keys()
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Printf("key=%s, value=%s, ttl=%s\n", k.Key, k.Value, remaining(k.ExpireAt))
			}
			return nil
		},
	}
	countCmd = &cobra.Command{
		Use:   "count",
		Short: "Prints the number of live keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := rpcStore.Keys()
			if err != nil {
				return err
			}
			fmt.Printf("count=%d\n", len(keys))
			return nil
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Prints statistics of the database of the node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := rpcStore.GetDBInfo()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}
)

// remaining formats the time left until expireAt, "none" for records without ttl
func remaining(expireAt time.Time) string {
	if expireAt.IsZero() {
		return "none"
	}
	return max(time.Until(expireAt), 0).Round(time.Millisecond).String()
}
