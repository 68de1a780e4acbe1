package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fluidline/regloicc/logger"
	"github.com/fluidline/regloicc/pump"
)

var (
	rootCmd = &cobra.Command{
		Use:           "regloctl",
		Short:         "Control an Ismatec Reglo ICC peristaltic pump.",
		Long:          ``,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
)

var (
	address string
	debug   bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&address, "address", "a", "",
		"pump address: serial device path or host:port of a serial gateway")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "regloctl: %v\n", err)
	}

	return err
}

// openPump connects to the configured pump and runs its init sequence.
func openPump() (*pump.Pump, error) {
	if debug {
		logger.SetLevel(logger.DebugLevel)
	}

	if address == "" {
		return nil, fmt.Errorf("no pump address given, use --address")
	}

	return pump.Open(address)
}
