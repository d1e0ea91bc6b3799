// Package file reads packets from pcap and pcapng capture files.
package file

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/mitchellh/mapstructure"

	"firestige.xyz/hpsdrdump/internal/core"
	"firestige.xyz/hpsdrdump/internal/log"
	"firestige.xyz/hpsdrdump/pkg/plugin"
)

const Name = "file"

// pcapng section header block type, identical in both byte orders.
const ngMagic = 0x0A0D0D0A

type Config struct {
	Path string `mapstructure:"path"`
}

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// Source is a capturer over a capture file. Capture returns nil at end of
// file so the pipeline drains and stops.
type Source struct {
	cfg    Config
	f      *os.File
	reader packetReader
	format string

	received atomic.Uint64
}

func New() plugin.Capturer {
	return &Source{}
}

func (s *Source) Name() string { return Name }

func (s *Source) Init(cfg map[string]any) error {
	if err := mapstructure.Decode(cfg, &s.cfg); err != nil {
		return fmt.Errorf("file source: %w", err)
	}
	if s.cfg.Path == "" {
		return fmt.Errorf("file source: %w: path is required", core.ErrConfigInvalid)
	}
	return nil
}

func (s *Source) Start(ctx context.Context) error {
	f, err := os.Open(s.cfg.Path)
	if err != nil {
		return fmt.Errorf("open capture %s: %w", s.cfg.Path, err)
	}
	r, format, err := newReader(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("read capture %s: %w", s.cfg.Path, err)
	}
	s.f, s.reader, s.format = f, r, format
	log.GetLogger().WithFields(map[string]interface{}{
		"path":      s.cfg.Path,
		"format":    format,
		"link_type": r.LinkType().String(),
	}).Info("capture file opened")
	return nil
}

// newReader picks pcap or pcapng from the first four bytes.
func newReader(r io.Reader) (packetReader, string, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", core.ErrPacketTooShort, err)
	}
	if binary.LittleEndian.Uint32(magic) == ngMagic {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, "", err
		}
		return ng, "pcapng", nil
	}
	pr, err := pcapgo.NewReader(br)
	if err != nil {
		return nil, "", err
	}
	return pr, "pcap", nil
}

func (s *Source) Capture(ctx context.Context, output chan<- core.RawPacket) error {
	if s.reader == nil {
		return fmt.Errorf("file source not started")
	}
	linkType := int(s.reader.LinkType())
	for {
		data, ci, err := s.reader.ReadPacketData()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read packet %d: %w", s.received.Load()+1, err)
		}
		s.received.Add(1)

		pkt := core.RawPacket{
			Data:           data,
			Timestamp:      ci.Timestamp,
			CaptureLen:     uint32(ci.CaptureLength),
			OrigLen:        uint32(ci.Length),
			InterfaceIndex: ci.InterfaceIndex,
			LinkType:       linkType,
		}
		select {
		case output <- pkt:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Source) Stats() plugin.CaptureStats {
	return plugin.CaptureStats{PacketsReceived: s.received.Load()}
}

func (s *Source) Stop(ctx context.Context) error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f, s.reader = nil, nil
	return err
}
