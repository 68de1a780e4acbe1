package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var cmdDiameter = &cobra.Command{
	Use:   "diameter <channel> [mm]",
	Short: "Print or set a channel's tubing inner diameter in mm",
	Long:  ``,
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runDiameter,
}

func init() {
	rootCmd.AddCommand(cmdDiameter)
}

func runDiameter(ccmd *cobra.Command, args []string) error {
	channel, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad channel %q", args[0])
	}

	p, err := openPump()
	if err != nil {
		return err
	}
	defer p.Close()

	if len(args) == 1 {
		mm, err := p.TubingDiameter(channel)
		if err != nil {
			return err
		}
		fmt.Printf("%g mm\n", mm)

		return nil
	}

	mm, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("bad diameter %q", args[1])
	}

	if err := p.SetTubingDiameter(channel, mm); err != nil {
		return err
	}

	max, err := p.MaxFlowRate(channel)
	if err != nil {
		return err
	}

	fmt.Printf("channel %d tubing set to %g mm (max flow %g ml/min)\n", channel, mm, max)

	return nil
}
