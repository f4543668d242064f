package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/pulse-monitor/internal/gpio"
	"github.com/sweeney/pulse-monitor/internal/logic"
	"github.com/sweeney/pulse-monitor/internal/sensor"
)

var printStateCmd = &cobra.Command{
	Use:   "print-state",
	Short: "Power the sensor, read both channels once and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup(cmd)
		if err != nil {
			return err
		}
		power, err := gpio.NewPowerLine(cfg.GPIOChip, cfg.PowerPin)
		if err != nil {
			return fmt.Errorf("init sensor power: %w", err)
		}
		adapter := sensor.NewAdapter(power,
			sensor.IIOChannel{Path: cfg.ChannelA},
			sensor.IIOChannel{Path: cfg.ChannelB})
		defer adapter.Close()

		printState(cmd.OutOrStdout(), adapter, cfg.SettleDelay, time.Sleep)
		return nil
	},
}

func printState(w io.Writer, s logic.Sensor, settle time.Duration, sleep func(time.Duration)) {
	s.Enable()
	sleep(settle)
	a, b := s.ReadChannelA(), s.ReadChannelB()
	s.Disable()
	fmt.Fprintf(w, "A: %d, B: %d\n", a, b)
}
