package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Jeanedlune/transkv/internal/codec"
)

var codecsCmd = &cobra.Command{
	Use:   "codecs",
	Short: "List the registered codecs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range codec.Names() {
			c, err := codec.Lookup(name)
			if err != nil {
				return err
			}
			kind := "invertible"
			if !c.Invertible() {
				kind = "one-way"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", name, kind)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(codecsCmd)
}
