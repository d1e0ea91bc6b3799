// Package subproto implements a processor that keeps only datagrams of
// selected subprotocols or of a minimum diagnostic severity.
package subproto

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/mitchellh/mapstructure"

	"firestige.xyz/hpsdrdump/internal/core"
	"firestige.xyz/hpsdrdump/internal/hpsdr"
	"firestige.xyz/hpsdrdump/internal/log"
	"firestige.xyz/hpsdrdump/pkg/plugin"
)

const Name = "subproto"

// Config represents the filter configuration. Empty fields filter nothing.
type Config struct {
	Subprotocols []string `mapstructure:"subprotocols"`
	MinSeverity  string   `mapstructure:"min_severity"`
}

// Filter drops output packets outside the configured selection. It reads
// only the labels set by the openhpsdr parser.
type Filter struct {
	subs        map[string]bool
	minSeverity hpsdr.Severity

	kept, dropped atomic.Uint64
}

func New() plugin.Processor {
	return &Filter{}
}

func (f *Filter) Name() string { return Name }

func (f *Filter) Init(cfg map[string]any) error {
	var c Config
	if err := mapstructure.Decode(cfg, &c); err != nil {
		return fmt.Errorf("%w: subproto: %v", core.ErrConfigInvalid, err)
	}
	sev, err := hpsdr.ParseSeverity(c.MinSeverity)
	if err != nil {
		return fmt.Errorf("%w: subproto: %v", core.ErrConfigInvalid, err)
	}
	f.minSeverity = sev
	f.subs = nil
	for _, name := range c.Subprotocols {
		sub, err := hpsdr.ParseSubprotocol(name)
		if err != nil {
			return fmt.Errorf("%w: subproto: %v", core.ErrConfigInvalid, err)
		}
		if f.subs == nil {
			f.subs = make(map[string]bool)
		}
		f.subs[sub.String()] = true
	}
	return nil
}

func (f *Filter) Start(_ context.Context) error { return nil }

func (f *Filter) Stop(_ context.Context) error {
	log.GetLogger().WithFields(map[string]interface{}{
		"kept":    f.kept.Load(),
		"dropped": f.dropped.Load(),
	}).Debug("subproto filter stopped")
	return nil
}

// Process keeps pkt when it passes both the subprotocol and the severity
// selection.
func (f *Filter) Process(pkt *core.OutputPacket) bool {
	keep := f.match(pkt.Labels)
	if keep {
		f.kept.Add(1)
	} else {
		f.dropped.Add(1)
	}
	return keep
}

func (f *Filter) match(l core.Labels) bool {
	if f.subs != nil && !f.subs[l[core.LabelHPSDRSubprotocol]] {
		return false
	}
	if f.minSeverity == hpsdr.SeverityNone {
		return true
	}
	sev, err := hpsdr.ParseSeverity(l[core.LabelHPSDRSeverity])
	return err == nil && sev >= f.minSeverity
}
