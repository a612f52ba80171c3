package cmd

import (
	"github.com/spf13/cobra"
	"roapctl/internal/config"
	"roapctl/internal/logger"
)

// DefaultConfigPath is used when --config is not given.
const DefaultConfigPath = "roapctl.yaml"

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "roapctl",
	Short: "roapctl - control TVs over the ROAP protocol",
	Long: `roapctl talks to televisions that expose the ROAP HTTP/XML interface.
It can pair with a TV, send remote keys and commands, query TV data, run an
interactive remote and bridge TVs to an MQTT broker.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.ConfigureFromEnv()
		if verbose {
			logger.SetSilentMode(false)
			logger.SetLevel(logger.LOG_DEBUG)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", DefaultConfigPath, "configuration file (.yaml, .yml or .toml)")

	// Add subcommands
	rootCmd.AddCommand(cliCmd)
	rootCmd.AddCommand(tvCmd)
	rootCmd.AddCommand(deviceCmd)
	rootCmd.AddCommand(bridgeCmd)
}

func configManager() *config.Manager {
	return config.NewManager(configPath)
}
