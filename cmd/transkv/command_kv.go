package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Jeanedlune/transkv/internal/codec"
	"github.com/Jeanedlune/transkv/internal/kvstore"
)

var setJSON bool

// openLocal opens the configured store without replication, for one-shot
// commands against a stopped server's data directory.
func openLocal() (kvstore.Store, error) {
	opts := config.StoreOptions()
	opts.Raft = nil
	opts.Name = ""
	store, err := kvstore.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", opts.Type, err)
	}
	return store, nil
}

// withStore runs fn against a freshly opened local store and closes it.
func withStore(fn func(store kvstore.Store) error) (err error) {
	store, err := openLocal()
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()
	return fn(store)
}

func printValue(cmd *cobra.Command, v any) error {
	v = codec.Display(v)
	if s, ok := v.(string); ok {
		fmt.Fprintln(cmd.OutOrStdout(), s)
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the value stored under a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store kvstore.Store) error {
			value, found, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("key not found: %s", args[0])
			}
			return printValue(cmd, value)
		})
	},
}

var setCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a value under a key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var value any = args[1]
		if setJSON {
			if err := json.Unmarshal([]byte(args[1]), &value); err != nil {
				return fmt.Errorf("value is not valid JSON: %w", err)
			}
		}
		return withStore(func(store kvstore.Store) error {
			return store.Store(cmd.Context(), args[0], value)
		})
	},
}

var delCmd = &cobra.Command{
	Use:     "del <key>",
	Aliases: []string{"delete", "rm"},
	Short:   "Delete a key and print its old value",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store kvstore.Store) error {
			value, found, err := store.Delete(cmd.Context(), args[0])
			if err != nil || !found {
				return err
			}
			return printValue(cmd, value)
		})
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List every key in the store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store kvstore.Store) error {
			var printErr error
			_, err := store.EachKey(cmd.Context(), func(key any) {
				if printErr == nil {
					printErr = printValue(cmd, key)
				}
			})
			return errors.Join(err, printErr)
		})
	},
}

func init() {
	setCmd.Flags().BoolVar(&setJSON, "json", false, "Parse the value as JSON")
	rootCmd.AddCommand(getCmd, setCmd, delCmd, keysCmd)
}
