package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"roapctl/internal/config"
	"roapctl/internal/logger"
	"roapctl/internal/roap"
)

var (
	deviceHost       string
	devicePort       int
	devicePairingKey string
	deviceTimeout    time.Duration
	deviceEndpoints  map[string]string
)

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Manage TVs in the config file",
}

var deviceAddCmd = &cobra.Command{
	Use:   "add [id]",
	Short: "Add a TV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d := config.DeviceConfig{ID: args[0]}
		applyDeviceFlags(cmd, &d)

		if err := configManager().AddDevice(d); err != nil {
			return err
		}

		log := logger.New()
		log.Info().
			Str("device", d.ID).
			Str("host", d.Host).
			Str("config", configPath).
			Msg("Device added")
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", d.ID)
		return nil
	},
}

var deviceUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Change the settings of a TV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m := configManager()
		d, err := m.GetDevice(args[0])
		if err != nil {
			return err
		}
		applyDeviceFlags(cmd, d)

		if err := m.UpdateDevice(args[0], *d); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", d.ID)
		return nil
	},
}

var deviceRemoveCmd = &cobra.Command{
	Use:     "remove [id]",
	Aliases: []string{"rm"},
	Short:   "Remove a TV",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := configManager().RemoveDevice(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
		return nil
	},
}

var deviceListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List configured TVs",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := configManager().ListDevices()
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No devices in %s\n", configPath)
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tADDRESS\tPAIRED\tTIMEOUT")
		for _, d := range devices {
			port := d.Port
			if port == 0 {
				port = roap.DefaultPort
			}
			timeout := d.Timeout
			if timeout == "" {
				timeout = roap.DefaultTimeout.String()
			}
			fmt.Fprintf(w, "%s\t%s:%s\t%t\t%s\n", d.ID, d.Host, strconv.Itoa(port), d.PairingKey != "", timeout)
		}
		return w.Flush()
	},
}

func init() {
	for _, c := range []*cobra.Command{deviceAddCmd, deviceUpdateCmd} {
		c.Flags().StringVarP(&deviceHost, "host", "H", "", "TV host name or IP address")
		c.Flags().IntVarP(&devicePort, "port", "p", 0, "TV ROAP port")
		c.Flags().StringVarP(&devicePairingKey, "pairing-key", "k", "", "pairing key shown on the TV")
		c.Flags().DurationVar(&deviceTimeout, "timeout", 0, "request timeout")
		c.Flags().StringToStringVar(&deviceEndpoints, "endpoint", nil, "endpoint path override, e.g. data=/udap/api/data")
	}
	deviceAddCmd.MarkFlagRequired("host")

	deviceCmd.AddCommand(deviceAddCmd, deviceUpdateCmd, deviceRemoveCmd, deviceListCmd)
}

// applyDeviceFlags copies the flags that were set on cmd into d.
func applyDeviceFlags(cmd *cobra.Command, d *config.DeviceConfig) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		d.Host = deviceHost
	}
	if flags.Changed("port") {
		d.Port = devicePort
	}
	if flags.Changed("pairing-key") {
		d.PairingKey = devicePairingKey
	}
	if flags.Changed("timeout") {
		d.Timeout = deviceTimeout.String()
	}
	if flags.Changed("endpoint") {
		if d.Endpoints == nil {
			d.Endpoints = make(map[string]string)
		}
		for group, path := range deviceEndpoints {
			d.Endpoints[group] = path
		}
	}
}
