//go:build !linux

package afpacket

import (
	"context"
	"errors"

	"firestige.xyz/hpsdrdump/internal/core"
	"firestige.xyz/hpsdrdump/pkg/plugin"
)

var errUnsupported = errors.New("afpacket: live capture requires linux")

type Source struct{}

func New() plugin.Capturer { return &Source{} }

func (s *Source) Name() string { return Name }

func (s *Source) Init(cfg map[string]any) error {
	_, err := decodeConfig(cfg)
	return err
}

func (s *Source) Start(context.Context) error { return errUnsupported }

func (s *Source) Capture(context.Context, chan<- core.RawPacket) error { return errUnsupported }

func (s *Source) Stats() plugin.CaptureStats { return plugin.CaptureStats{} }

func (s *Source) Stop(context.Context) error { return nil }
