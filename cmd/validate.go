package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newValidateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := opts.cfg
			out := cmd.OutOrStdout()
			source := opts.configFile
			if source == "" {
				source = "(defaults)"
			}
			fmt.Fprintf(out, "Configuration %s is VALID\n", source)
			fmt.Fprintf(out, "  log:       level=%s format=%s file=%t\n", c.Log.Level, c.Log.Format, c.Log.File.Enabled)
			fmt.Fprintf(out, "  dissector: strict_size=%t strict_pad=%t strict_program_data_size=%t ddciq_mtu_check=%t sequence_check=%t\n",
				c.Dissector.StrictSize, c.Dissector.StrictPad, c.Dissector.StrictProgramDataSize,
				c.Dissector.DDCIQMTUCheck, c.Dissector.SequenceCheck)
			fmt.Fprintf(out, "  capture:   source=%s snap_len=%d\n", c.Capture.Source, c.Capture.SnapLen)
			subs := "all"
			if len(c.Output.Subprotocols) > 0 {
				subs = strings.Join(c.Output.Subprotocols, ",")
			}
			fmt.Fprintf(out, "  output:    format=%s subprotocols=%s\n", c.Output.Format, subs)
			if c.Metrics.Enabled {
				fmt.Fprintf(out, "  metrics:   %s%s\n", c.Metrics.Listen, c.Metrics.Path)
			}
			if c.Kafka.Enabled {
				fmt.Fprintf(out, "  kafka:     %s -> %s\n", strings.Join(c.Kafka.Brokers, ","), c.Kafka.Topic)
			}
			return nil
		},
	}
}
