package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"firestige.xyz/hpsdrdump/internal/config"
	"firestige.xyz/hpsdrdump/internal/hpsdr"
)

func newFieldsCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "fields [PREFIX]",
		Short: "List the registered field descriptors",
		Example: `  hpsdrdump fields
  hpsdrdump fields hpc -F json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			views := hpsdr.Fields().Views(prefix)
			out := cmd.OutOrStdout()
			switch format {
			case config.OutputJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(views)
			case config.OutputYAML:
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(views); err != nil {
					return err
				}
				return enc.Close()
			case config.OutputText:
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ABBREV\tTYPE\tMASK\tLABEL")
				for _, v := range views {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.Abbrev, v.Type, v.Mask, v.Label)
				}
				return tw.Flush()
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "F", config.OutputText, "output format: text, json or yaml")
	return cmd
}
