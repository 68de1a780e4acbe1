package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var cmdStatus = &cobra.Command{
	Use:   "status",
	Short: "Print per-channel status as JSON",
	Long:  ``,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(cmdStatus)
}

type channelStatus struct {
	Channel  int     `json:"channel"`
	Running  bool    `json:"running"`
	Mode     string  `json:"mode"`
	FlowRate float64 `json:"flow_rate_ml_min"`
	Diameter float64 `json:"tubing_diameter_mm"`
}

func runStatus(ccmd *cobra.Command, args []string) error {
	p, err := openPump()
	if err != nil {
		return err
	}
	defer p.Close()

	var out []channelStatus
	for _, ch := range p.Channels() {
		mode, err := p.Mode(ch)
		if err != nil {
			return err
		}

		rate, err := p.FlowRate(ch)
		if err != nil {
			return err
		}

		diameter, err := p.TubingDiameter(ch)
		if err != nil {
			return err
		}

		out = append(out, channelStatus{
			Channel:  ch,
			Running:  p.IsRunning(ch),
			Mode:     mode.String(),
			FlowRate: rate,
			Diameter: diameter,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(out)
}
