// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/hpsdrdump/internal/config"
	"firestige.xyz/hpsdrdump/internal/log"
	_ "firestige.xyz/hpsdrdump/plugins" // built-in plugins
)

// options are the persistent flags shared by every subcommand.
type options struct {
	configFile string
	logLevel   string

	cfg *config.Config
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "hpsdrdump",
		Short: "hpsdrdump - openHPSDR-Ethernet (Protocol 2) packet dissector",
		Long: `hpsdrdump decodes openHPSDR-Ethernet (Protocol 2) traffic between a host and
an SDR radio into annotated field trees.

It reads pcap/pcapng captures or a live interface, follows the port map the
host negotiates in its General command, and flags malformed datagrams.

Examples:
  hpsdrdump read -r session.pcapng
  hpsdrdump read -r session.pcap --format json --subprotocols cr,hps
  hpsdrdump live -i eth1 --min-severity warn
  hpsdrdump decode --src 50000 --dst 1024 000000000200...
  hpsdrdump fields --format yaml`,
		Version:           "0.1.0",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: opts.load,
	}

	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "",
		"config file path (defaults plus HPSDRDUMP_* environment when empty)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "",
		"override log level (debug/info/warn/error)")

	root.AddCommand(
		newReadCommand(opts),
		newLiveCommand(opts),
		newDecodeCommand(opts),
		newFieldsCommand(),
		newValidateCommand(opts),
	)
	return root
}

// load reads the configuration and initialises logging.
func (o *options) load(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
		if err := cfg.ValidateAndApplyDefaults(); err != nil {
			return err
		}
	}
	if err := log.Init(cfg.Log); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	o.cfg = cfg
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}
