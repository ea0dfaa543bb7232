// Package commands implements the mctp-emu CLI commands.
package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version information injected at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "mctp-emu",
	Short: "MCTP endpoint and bus-owner emulator",
	Long: `mctp-emu emulates an MCTP (DMTF DSP0236) endpoint or bus owner over a
pluggable physical binding, for bring-up and testing of platform management
software without real hardware.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(simCmd)
	rootCmd.AddCommand(versionCmd)
}

// flagKeys maps a config mapstructure key to the command-line flag name
// that sets it; flag names are hyphenated for readability while config
// keys stay underscored to match YAML/env-var conventions.
var flagKeys = map[string]string{
	"smbus_addr":    "smbus-addr",
	"peer_addr":     "peer-addr",
	"udp_bind_addr": "udp-bind-addr",
	"udp_peer_addr": "udp-peer-addr",
	"initial_eid":   "initial-eid",
	"bus_owner":     "bus-owner",
	"endpoint_type": "endpoint-type",
	"pool_start":    "pool-start",
	"pool_size":     "pool-size",
	"log_level":     "log-level",
	"metrics_addr":  "metrics-addr",
}

// bindViper wires a command's flags into v, keyed by config field name, so
// an explicitly-set flag takes precedence over environment and config-file
// values in config.Load.
func bindViper(v *viper.Viper, cmd *cobra.Command) {
	for key, flagName := range flagKeys {
		if f := cmd.Flags().Lookup(flagName); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}
