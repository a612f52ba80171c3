package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"roapctl/cmd/cli"
	"roapctl/internal/logger"
	"roapctl/internal/roap"
)

var (
	debugFlag  bool
	cliTimeout time.Duration
)

var cliCmd = &cobra.Command{
	Use:   "cli",
	Short: "Start the interactive remote",
	Long: `Launch the Terminal User Interface (TUI) remote control.
Devices from the config file are offered on the connect screen.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Logging would corrupt the TUI unless explicitly asked for
		if debugFlag {
			logger.SetSilentMode(false)
			logger.SetLevel(logger.LOG_DEBUG)
		} else {
			logger.SetSilentMode(true)
		}

		log := logger.New()

		saved, err := configManager().ListDevices()
		if err != nil {
			log.Warn().Err(err).Msg("Ignoring config file")
			saved = nil
		}

		log.Info().
			Bool("debug", debugFlag).
			Int("saved_devices", len(saved)).
			Msg("Starting roapctl CLI interface")

		var opts []roap.Option
		if cliTimeout > 0 {
			opts = append(opts, roap.WithTimeout(cliTimeout))
		}

		if err := cli.StartTUI(saved, debugFlag, opts...); err != nil {
			log.Error().Err(err).Msg("Failed to start TUI")
			return err
		}

		return nil
	},
}

func init() {
	cliCmd.Flags().BoolVar(&debugFlag, "debug", false, "Enable debug logging for ROAP requests")
	cliCmd.Flags().DurationVar(&cliTimeout, "timeout", 0, "request timeout (default 30s)")
}
