package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"firestige.xyz/hpsdrdump/internal/config"
	"firestige.xyz/hpsdrdump/internal/log"
	"firestige.xyz/hpsdrdump/internal/metrics"
	"firestige.xyz/hpsdrdump/internal/pipeline"
	"firestige.xyz/hpsdrdump/pkg/plugin"
	"firestige.xyz/hpsdrdump/plugins/parser/openhpsdr"
	"firestige.xyz/hpsdrdump/plugins/processor/subproto"
	"firestige.xyz/hpsdrdump/plugins/reporter/console"
	"firestige.xyz/hpsdrdump/plugins/reporter/kafka"
)

// outputFlags override the output section of the configuration.
type outputFlags struct {
	format       string
	subprotocols []string
	minSeverity  string
	bits         bool
	maxChildren  int
	quiet        bool
	noStats      bool
}

func (f *outputFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.format, "format", "F", "", "output format: text, json or yaml")
	fs.StringSliceVarP(&f.subprotocols, "subprotocols", "s", nil, "only show these subprotocols (e.g. cr,hps,ddciq)")
	fs.StringVar(&f.minSeverity, "min-severity", "", "only show datagrams with an annotation of at least warn or error")
	fs.BoolVar(&f.bits, "bits", false, "print masked flag bits")
	fs.IntVar(&f.maxChildren, "max-children", -1, "elide children past this count (0 prints all)")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "print only the end-of-run summary")
	fs.BoolVar(&f.noStats, "no-stats", false, "do not print the end-of-run summary")
}

func (f *outputFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	fs := cmd.Flags()
	if fs.Changed("format") {
		cfg.Output.Format = f.format
	}
	if fs.Changed("subprotocols") {
		cfg.Output.Subprotocols = f.subprotocols
	}
	if fs.Changed("min-severity") {
		cfg.Output.MinSeverity = f.minSeverity
	}
	if fs.Changed("bits") {
		cfg.Output.Bits = f.bits
	}
	if fs.Changed("max-children") {
		cfg.Output.MaxChildren = f.maxChildren
	}
	return cfg.ValidateAndApplyDefaults()
}

func newReadCommand(opts *options) *cobra.Command {
	var (
		file string
		out  outputFlags
	)
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Dissect a pcap or pcapng capture file",
		Example: `  hpsdrdump read -r radio.pcapng
  hpsdrdump read -r radio.pcap -F json -s cr,hpc`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			cfg.Capture.Source = config.SourceFile
			if file != "" {
				cfg.Capture.File = file
			}
			if cfg.Capture.File == "" {
				return fmt.Errorf("no capture file: use -r or capture.file")
			}
			if err := out.apply(cmd, cfg); err != nil {
				return err
			}
			return runCapture(cmd, cfg, &out)
		},
	}
	cmd.Flags().StringVarP(&file, "read", "r", "", "capture file to read")
	out.register(cmd)
	return cmd
}

func newLiveCommand(opts *options) *cobra.Command {
	var (
		iface   string
		snapLen int
		allIP   bool
		out     outputFlags
	)
	cmd := &cobra.Command{
		Use:     "live",
		Short:   "Dissect traffic from a network interface (Linux AF_PACKET)",
		Example: `  hpsdrdump live -i eth1 --min-severity warn`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			cfg.Capture.Source = config.SourceAFPacket
			if iface != "" {
				cfg.Capture.Interface = iface
			}
			if cmd.Flags().Changed("snap-len") {
				cfg.Capture.SnapLen = snapLen
			}
			if allIP {
				cfg.Capture.UDPOnly = false
			}
			if err := out.apply(cmd, cfg); err != nil {
				return err
			}
			return runCapture(cmd, cfg, &out)
		},
	}
	cmd.Flags().StringVarP(&iface, "interface", "i", "", "interface to capture on")
	cmd.Flags().IntVar(&snapLen, "snap-len", 65535, "snapshot length")
	cmd.Flags().BoolVar(&allIP, "no-kernel-filter", false, "do not attach the UDP-only kernel filter")
	out.register(cmd)
	return cmd
}

// session bundles a built pipeline with the parser whose summary is
// printed at the end.
type session struct {
	pipeline *pipeline.Pipeline
	parser   *openhpsdr.Parser
}

// buildSession wires the configured plugins into a pipeline. Console
// output goes to out unless quiet.
func buildSession(cfg *config.Config, out io.Writer, quiet bool) (*session, error) {
	capt, err := plugin.NewCapturer(cfg.Capture.Source)
	if err != nil {
		return nil, err
	}
	if err := capt.Init(cfg.Capture.PluginConfig()); err != nil {
		return nil, err
	}

	p, err := plugin.NewParser(openhpsdr.Name)
	if err != nil {
		return nil, err
	}
	prefs := cfg.Dissector
	if err := p.Init(map[string]any{
		"strict_size":              prefs.StrictSize,
		"strict_pad":               prefs.StrictPad,
		"strict_program_data_size": prefs.StrictProgramDataSize,
		"ddciq_mtu_check":          prefs.DDCIQMTUCheck,
		"sequence_check":           prefs.SequenceCheck,
	}); err != nil {
		return nil, err
	}
	parser, ok := p.(*openhpsdr.Parser)
	if !ok {
		return nil, fmt.Errorf("parser %s has unexpected type %T", openhpsdr.Name, p)
	}

	b := pipeline.NewBuilder().
		WithName(cfg.Capture.Source).
		WithCapturer(capt).
		WithParsers(parser)

	if len(cfg.Output.Subprotocols) > 0 || cfg.Output.MinSeverity != "" {
		proc, err := plugin.NewProcessor(subproto.Name)
		if err != nil {
			return nil, err
		}
		if err := proc.Init(map[string]any{
			"subprotocols": cfg.Output.Subprotocols,
			"min_severity": cfg.Output.MinSeverity,
		}); err != nil {
			return nil, err
		}
		b.WithProcessors(proc)
	}

	if !quiet {
		rep := console.NewWithWriter(out)
		if err := rep.Init(map[string]any{
			"format":       cfg.Output.Format,
			"bits":         cfg.Output.Bits,
			"max_children": cfg.Output.MaxChildren,
		}); err != nil {
			return nil, err
		}
		b.WithReporters(rep)
	}

	if cfg.Kafka.Enabled {
		rep, err := plugin.NewReporter(kafka.Name)
		if err != nil {
			return nil, err
		}
		if err := rep.Init(cfg.Kafka.PluginConfig()); err != nil {
			return nil, err
		}
		b.WithReporters(rep)
	}

	return &session{pipeline: b.Build(), parser: parser}, nil
}

func runCapture(cmd *cobra.Command, cfg *config.Config, out *outputFlags) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer srv.Stop(context.Background())
	}

	s, err := buildSession(cfg, cmd.OutOrStdout(), out.quiet)
	if err != nil {
		return err
	}
	runErr := s.pipeline.Run(ctx)
	if !out.noStats {
		if err := writeSummary(cmd.ErrOrStderr(), s.pipeline.Stats(), s.parser.Summary()); err != nil {
			log.GetLogger().WithError(err).Warn("write summary failed")
		}
	}
	return runErr
}
