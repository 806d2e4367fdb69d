package main

import (
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/Jeanedlune/transkv/configs"
)

var (
	configFile string

	config *configs.Config
	logger hclog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "transkv",
	Short:         "Key-value store with pluggable engines and key/value codecs",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configs.LoadConfig(configFile)
		if err != nil {
			return err
		}
		config = cfg
		logger = hclog.New(&hclog.LoggerOptions{
			Name:       "transkv",
			Level:      hclog.LevelFromString(cfg.Log.Level),
			JSONFormat: cfg.Log.JSON,
			Output:     os.Stderr,
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to configuration file")
}
