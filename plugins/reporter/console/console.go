// Package console implements the console reporter.
// It prints dissected datagrams as an indented tree, JSON lines or a YAML
// document stream.
package console

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"firestige.xyz/hpsdrdump/internal/core"
	"firestige.xyz/hpsdrdump/internal/hpsdr"
	"firestige.xyz/hpsdrdump/internal/log"
	"firestige.xyz/hpsdrdump/pkg/plugin"
)

const Name = "console"

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ConsoleReporter writes packets to stdout or an injected writer.
type ConsoleReporter struct {
	cfg Config

	mu   sync.Mutex
	out  *bufio.Writer
	yaml *yaml.Encoder

	reportedCount atomic.Uint64
}

// Config represents console reporter configuration.
type Config struct {
	Format      string `mapstructure:"format"` // text, json or yaml; default text
	Bits        bool   `mapstructure:"bits"`
	MaxChildren int    `mapstructure:"max_children"`
}

// NewConsoleReporter creates a reporter writing to stdout.
func NewConsoleReporter() plugin.Reporter {
	return NewWithWriter(os.Stdout)
}

// NewWithWriter creates a reporter writing to w.
func NewWithWriter(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{
		cfg: Config{Format: FormatText},
		out: bufio.NewWriter(w),
	}
}

// Name returns the plugin name.
func (r *ConsoleReporter) Name() string { return Name }

// Init initializes the reporter with configuration.
func (r *ConsoleReporter) Init(config map[string]any) error {
	cfg := Config{Format: FormatText}
	if err := mapstructure.Decode(config, &cfg); err != nil {
		return fmt.Errorf("%w: console: %v", core.ErrConfigInvalid, err)
	}
	if cfg.Format == "" {
		cfg.Format = FormatText
	}
	switch cfg.Format {
	case FormatText, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("%w: console: invalid format %q, must be text, json or yaml", core.ErrConfigInvalid, cfg.Format)
	}
	r.cfg = cfg
	if cfg.Format == FormatYAML {
		r.yaml = yaml.NewEncoder(r.out)
		r.yaml.SetIndent(2)
	}
	return nil
}

// Start starts the reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	log.GetLogger().WithField("format", r.cfg.Format).Debug("console reporter started")
	return nil
}

// Stop flushes and closes the YAML stream.
func (r *ConsoleReporter) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.yaml != nil {
		if err := r.yaml.Close(); err != nil {
			return err
		}
	}
	log.GetLogger().WithField("total_reported", r.reportedCount.Load()).Debug("console reporter stopped")
	return r.out.Flush()
}

// Record is the JSON and YAML shape of one reported packet.
type Record struct {
	Frame     uint64            `json:"frame" yaml:"frame"`
	Timestamp string            `json:"timestamp" yaml:"timestamp"`
	SrcIP     string            `json:"src_ip" yaml:"src_ip"`
	DstIP     string            `json:"dst_ip" yaml:"dst_ip"`
	SrcPort   uint16            `json:"src_port" yaml:"src_port"`
	DstPort   uint16            `json:"dst_port" yaml:"dst_port"`
	Labels    core.Labels       `json:"labels,omitempty" yaml:"labels,omitempty"`
	Result    *hpsdr.ResultView `json:"result,omitempty" yaml:"result,omitempty"`
}

// NewRecord converts an output packet for serialisation.
func NewRecord(pkt *core.OutputPacket) Record {
	rec := Record{
		Frame:     pkt.Frame,
		Timestamp: pkt.Timestamp.UTC().Format(time.RFC3339Nano),
		SrcIP:     pkt.SrcIP.String(),
		DstIP:     pkt.DstIP.String(),
		SrcPort:   pkt.SrcPort,
		DstPort:   pkt.DstPort,
		Labels:    pkt.Labels,
	}
	if res, ok := pkt.Payload.(*hpsdr.Result); ok {
		v := res.View()
		rec.Result = &v
	}
	return rec
}

// Report outputs a packet.
func (r *ConsoleReporter) Report(ctx context.Context, pkt *core.OutputPacket) error {
	if pkt == nil {
		return fmt.Errorf("nil packet")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reportedCount.Add(1)
	switch r.cfg.Format {
	case FormatJSON:
		data, err := json.Marshal(NewRecord(pkt))
		if err != nil {
			return fmt.Errorf("json marshal failed: %w", err)
		}
		r.out.Write(data)
		return r.out.WriteByte('\n')
	case FormatYAML:
		return r.yaml.Encode(NewRecord(pkt))
	}
	return r.reportText(pkt)
}

// reportText prints a summary line followed by the tree.
func (r *ConsoleReporter) reportText(pkt *core.OutputPacket) error {
	info := pkt.Labels[core.LabelHPSDRInfo]
	fmt.Fprintf(r.out, "Frame %d: %s %s:%d -> %s:%d %s\n",
		pkt.Frame,
		pkt.Timestamp.Format("15:04:05.000000"),
		pkt.SrcIP, pkt.SrcPort,
		pkt.DstIP, pkt.DstPort,
		info,
	)
	res, ok := pkt.Payload.(*hpsdr.Result)
	if !ok {
		return nil
	}
	if err := hpsdr.WriteText(r.out, res.Tree, hpsdr.TextOptions{Bits: r.cfg.Bits, MaxChildren: r.cfg.MaxChildren}); err != nil {
		return err
	}
	return r.out.WriteByte('\n')
}

// Flush writes buffered output.
func (r *ConsoleReporter) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.out.Flush()
}
