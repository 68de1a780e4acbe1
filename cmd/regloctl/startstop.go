package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var cmdStart = &cobra.Command{
	Use:   "start [channel]",
	Short: "Start a channel with its current settings (all channels if omitted)",
	Long:  ``,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStart,
}

var cmdStop = &cobra.Command{
	Use:   "stop [channel]",
	Short: "Stop a channel (all channels if omitted)",
	Long:  ``,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStop,
}

func init() {
	rootCmd.AddCommand(cmdStart)
	rootCmd.AddCommand(cmdStop)
}

// argChannel parses the optional channel argument, 0 meaning all channels.
func argChannel(args []string) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}

	channel, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("bad channel %q", args[0])
	}

	return channel, nil
}

func runStart(ccmd *cobra.Command, args []string) error {
	channel, err := argChannel(args)
	if err != nil {
		return err
	}

	p, err := openPump()
	if err != nil {
		return err
	}
	defer p.Close()

	started, err := p.Start(channel)
	if err != nil {
		return err
	}

	if !started {
		code, limit, err := p.RunFailureReason(channel)
		if err != nil {
			return fmt.Errorf("channel %d refused to start", channel)
		}

		return fmt.Errorf("channel %d refused to start: reason %c (limit %g)", channel, code, limit)
	}

	fmt.Println("started")

	return nil
}

func runStop(ccmd *cobra.Command, args []string) error {
	channel, err := argChannel(args)
	if err != nil {
		return err
	}

	p, err := openPump()
	if err != nil {
		return err
	}
	defer p.Close()

	if err := p.Stop(channel); err != nil {
		return err
	}

	fmt.Println("stopped")

	return nil
}
