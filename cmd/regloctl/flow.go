package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var cmdFlow = &cobra.Command{
	Use:   "flow <channel> [rate]",
	Short: "Print a channel's flow rate setpoint, or start continuous flow at rate (mL/min)",
	Long:  ``,
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runFlow,
}

func init() {
	rootCmd.AddCommand(cmdFlow)
}

func runFlow(ccmd *cobra.Command, args []string) error {
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
		rate, err := p.FlowRate(channel)
		if err != nil {
			return err
		}
		fmt.Printf("%g ml/min\n", rate)

		return nil
	}

	rate, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("bad rate %q", args[1])
	}

	if err := p.ContinuousFlow(rate, channel); err != nil {
		return err
	}

	fmt.Printf("channel %d flowing at %g ml/min\n", channel, rate)

	return nil
}
