//go:build linux

package afpacket

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/gopacket/afpacket"

	"firestige.xyz/hpsdrdump/internal/core"
	"firestige.xyz/hpsdrdump/internal/log"
	"firestige.xyz/hpsdrdump/pkg/plugin"
)

type Source struct {
	cfg    Config
	handle *afpacket.TPacket

	received atomic.Uint64
}

func New() plugin.Capturer {
	return &Source{}
}

func (s *Source) Name() string { return Name }

func (s *Source) Init(cfg map[string]any) error {
	c, err := decodeConfig(cfg)
	if err != nil {
		return err
	}
	s.cfg = c
	return nil
}

func (s *Source) Start(ctx context.Context) error {
	frameSize, blockSize, numBlocks, err := recomputeSize(s.cfg.BufferSizeMB, s.cfg.SnapLen, os.Getpagesize())
	if err != nil {
		return err
	}
	tp, err := afpacket.NewTPacket(
		afpacket.OptInterface(s.cfg.Interface),
		afpacket.OptFrameSize(frameSize),
		afpacket.OptBlockSize(blockSize),
		afpacket.OptNumBlocks(numBlocks),
		afpacket.OptPollTimeout(time.Duration(s.cfg.TimeoutMs)*time.Millisecond),
		afpacket.SocketRaw,
		afpacket.TPacketVersion3,
	)
	if err != nil {
		return fmt.Errorf("afpacket: open %s: %w", s.cfg.Interface, err)
	}

	if s.cfg.UDPOnly {
		filter, err := udpFilter(s.cfg.SnapLen)
		if err != nil {
			tp.Close()
			return fmt.Errorf("afpacket: assemble filter: %w", err)
		}
		if err := tp.SetBPF(filter); err != nil {
			tp.Close()
			return fmt.Errorf("afpacket: attach filter: %w", err)
		}
	}

	s.handle = tp
	log.GetLogger().WithFields(map[string]interface{}{
		"interface":  s.cfg.Interface,
		"frame_size": frameSize,
		"block_size": blockSize,
		"blocks":     numBlocks,
		"udp_only":   s.cfg.UDPOnly,
	}).Info("afpacket capture started")
	return nil
}

func (s *Source) Capture(ctx context.Context, output chan<- core.RawPacket) error {
	if s.handle == nil {
		return fmt.Errorf("afpacket source not started")
	}
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		data, ci, err := s.handle.ReadPacketData()
		if errors.Is(err, afpacket.ErrTimeout) {
			continue
		}
		if err != nil {
			return fmt.Errorf("afpacket: read: %w", err)
		}
		s.received.Add(1)

		pkt := core.RawPacket{
			Data:           data,
			Timestamp:      ci.Timestamp,
			CaptureLen:     uint32(ci.CaptureLength),
			OrigLen:        uint32(ci.Length),
			InterfaceIndex: ci.InterfaceIndex,
			LinkType:       core.LinkTypeEthernet,
		}
		select {
		case output <- pkt:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Source) Stats() plugin.CaptureStats {
	st := plugin.CaptureStats{PacketsReceived: s.received.Load()}
	if s.handle != nil {
		if _, v3, err := s.handle.SocketStats(); err == nil {
			st.PacketsDropped = uint64(v3.Drops())
		}
	}
	return st
}

func (s *Source) Stop(ctx context.Context) error {
	if s.handle != nil {
		s.handle.Close()
		s.handle = nil
	}
	return nil
}
