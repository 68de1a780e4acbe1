package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cmdVersion = &cobra.Command{
	Use:   "version",
	Short: "Print the pump model, firmware version, and protocol version",
	Long:  ``,
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(cmdVersion)
}

func runVersion(ccmd *cobra.Command, args []string) error {
	p, err := openPump()
	if err != nil {
		return err
	}
	defer p.Close()

	version, err := p.Version()
	if err != nil {
		return err
	}

	proto, err := p.ProtocolVersion()
	if err != nil {
		return err
	}

	fmt.Printf("%s (protocol version %d)\n", version, proto)

	return nil
}
