package cmd

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"firestige.xyz/hpsdrdump/internal/config"
	"firestige.xyz/hpsdrdump/internal/hpsdr"
)

func newDecodeCommand(opts *options) *cobra.Command {
	var (
		src, dst uint16
		learn    []string
		format   string
		bits     bool
	)
	cmd := &cobra.Command{
		Use:   "decode HEX",
		Short: "Dissect a single UDP payload given as hex",
		Long: `Dissect a single UDP payload. Whitespace and colons in HEX are ignored.
General packets passed with --learn are dissected first so that
renegotiated ports are honoured.`,
		Example: `  hpsdrdump decode --src 1024 --dst 50000 0000000102...`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := parseHex(strings.Join(args, ""))
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("format") {
				format = opts.cfg.Output.Format
			}
			sess := hpsdr.NewSession(hpsdr.WithPrefs(opts.cfg.Dissector.Prefs()))
			d := hpsdr.NewDissector(sess)
			for _, g := range learn {
				raw, err := parseHex(g)
				if err != nil {
					return fmt.Errorf("--learn: %w", err)
				}
				if _, err := d.Dissect(raw, hpsdr.PortCommandReply, hpsdr.PortCommandReply); err != nil && !errors.Is(err, hpsdr.ErrTruncated) {
					return fmt.Errorf("--learn: %w", err)
				}
			}
			res, err := d.Dissect(payload, src, dst)
			if res == nil {
				return err
			}
			if werr := writeResult(cmd.OutOrStdout(), res, format, bits); werr != nil {
				return werr
			}
			if errors.Is(err, hpsdr.ErrTruncated) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().Uint16Var(&src, "src", 0, "UDP source port")
	cmd.Flags().Uint16Var(&dst, "dst", 0, "UDP destination port")
	cmd.Flags().StringSliceVar(&learn, "learn", nil, "General packet(s) in hex to learn ports from")
	cmd.Flags().StringVarP(&format, "format", "F", config.OutputText, "output format: text, json or yaml")
	cmd.Flags().BoolVar(&bits, "bits", false, "print masked flag bits")
	_ = cmd.MarkFlagRequired("src")
	_ = cmd.MarkFlagRequired("dst")
	return cmd
}

func parseHex(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', ':':
			return -1
		}
		return r
	}, s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload: %w", err)
	}
	return b, nil
}

func writeResult(w io.Writer, res *hpsdr.Result, format string, bits bool) error {
	switch strings.ToLower(format) {
	case config.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res.View())
	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res.View()); err != nil {
			return err
		}
		return enc.Close()
	case config.OutputText, "":
		if _, err := fmt.Fprintln(w, res.Info); err != nil {
			return err
		}
		return hpsdr.WriteText(w, res.Tree, hpsdr.TextOptions{Bits: bits})
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
