// Command pulse-monitor drives an optical heart-rate sensor and publishes
// measurements, status and raw samples.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sweeney/pulse-monitor/internal/config"
	"github.com/sweeney/pulse-monitor/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "pulse-monitor",
	Short: "Heart-rate acquisition daemon",
	Long: `pulse-monitor powers the optical heart-rate sensor, runs the acquisition
scheduler and publishes results over MQTT or NATS. Settings come from flags,
PULSE_* environment variables and /etc/pulse-monitor.toml.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup(cmd)
		if err != nil {
			return err
		}
		return runDaemon(cfg)
	},
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(printStateCmd)
}

// setup loads configuration and installs the logger.
func setup(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
